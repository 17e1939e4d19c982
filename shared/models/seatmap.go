package models

// SeatStatus is what the seat map shows for one seat
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat is one cell of the seat grid
type Seat struct {
	SeatNumber int        `json:"seatNumber"`
	Label      string     `json:"label"`
	Status     SeatStatus `json:"status"`
}

// SeatRow is one row of the seat grid
type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

// SeatMapRequest selects a coach and a stretch of the route
type SeatMapRequest struct {
	TrainID     int64  `json:"trainId"`
	JourneyDate Date   `json:"journeyDate"`
	CoachType   string `json:"coachType"`
	StartSeq    int    `json:"startSeq"`
	EndSeq      int    `json:"endSeq"`
}

// SeatMap is the projected occupancy of one coach for a query window
type SeatMap struct {
	TrainID     int64     `json:"trainId"`
	JourneyDate Date      `json:"journeyDate"`
	CoachType   string    `json:"coachType"`
	StartSeq    int       `json:"startSeq"`
	EndSeq      int       `json:"endSeq"`
	Rows        []SeatRow `json:"rows"`
}
