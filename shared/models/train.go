package models

// Station is immutable reference data.
type Station struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Train is a physical train. Its route lives in Stop rows.
type Train struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	Name          string  `json:"name"`
	SeatsPerCoach int     `json:"seatsPerCoach"`
	CoachCount    int     `json:"coachCount"`
	BasePrice     float64 `json:"basePrice"`
}

// Capacity returns the number of physical seats on the train.
func (t Train) Capacity() int {
	return t.SeatsPerCoach * t.CoachCount
}

// Stop is one schedule entry of a train.
type Stop struct {
	TrainID    int64     `json:"trainId"`
	StationID  int64     `json:"stationId"`
	Sequence   int       `json:"sequence"`
	Arrival    TimeOfDay `json:"arrivalTime"`
	Departure  TimeOfDay `json:"departureTime"`
	DistanceKm int       `json:"distanceKm"`
}

// User is the passenger a booking belongs to.
type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
