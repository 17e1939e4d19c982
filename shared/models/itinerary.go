package models

// PathPoint is one station on the map route of an itinerary
type PathPoint struct {
	StationCode string  `json:"stationCode"`
	StationName string  `json:"stationName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Leg is the part of an itinerary travelled on one train
type Leg struct {
	TrainID         int64     `json:"trainId"`
	TrainName       string    `json:"trainName"`
	TrainNumber     string    `json:"trainNumber"`
	SourceStationID int64     `json:"sourceStationId"`
	DestStationID   int64     `json:"destStationId"`
	SourceCode      string    `json:"sourceStationCode"`
	DestCode        string    `json:"destStationCode"`
	DepartureTime   TimeOfDay `json:"departureTime"`
	ArrivalTime     TimeOfDay `json:"arrivalTime"`
	FromSeq         int       `json:"fromSeq"`
	ToSeq           int       `json:"toSeq"`
	DistanceKm      int       `json:"distanceKm"`
	Price           float64   `json:"price"`
	AvailableSeats  int       `json:"availableSeats"`
	Description     string    `json:"description"`
}

// Itinerary is a direct or composite journey returned by search
type Itinerary struct {
	TrainName       string      `json:"trainName"`
	TrainNumber     string      `json:"trainNumber"`
	DepartureTime   TimeOfDay   `json:"departureTime"`
	ArrivalTime     TimeOfDay   `json:"arrivalTime"`
	DurationText    string      `json:"durationText"`
	DurationMinutes int         `json:"durationMinutes"`
	Price           float64     `json:"price"`
	IsDirect        bool        `json:"isDirect"`
	LayoverStation  string      `json:"layoverStation,omitempty"`
	LayoverStations []string    `json:"layoverStations,omitempty"`
	Legs            []Leg       `json:"legs"`
	Path            []PathPoint `json:"path"`
	AvailableSeats  int         `json:"availableSeats"`
	TrainID         int64       `json:"trainId"`
	SourceStationID int64       `json:"sourceStationId"`
	DestStationID   int64       `json:"destStationId"`
}

// SearchRequest asks for journeys between two station codes on a date
type SearchRequest struct {
	SourceStationCode string `json:"sourceStationCode"`
	DestStationCode   string `json:"destStationCode"`
	JourneyDate       Date   `json:"journeyDate"`
}
