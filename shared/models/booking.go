package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusRefunded   BookingStatus = "REFUNDED"
	BookingStatusBlocked    BookingStatus = "BLOCKED"
	BookingStatusAdminBlock BookingStatus = "ADMIN_BLOCK"
)

// IsBlocked reports whether the booking is an administrative hold.
func (s BookingStatus) IsBlocked() bool {
	return s == BookingStatusBlocked || s == BookingStatusAdminBlock
}

// IsActive reports whether the booking still holds its seats.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusConfirmed || s.IsBlocked()
}

// ActiveStatuses lists the statuses whose seat intervals occupy seats.
var ActiveStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusBlocked, BookingStatusAdminBlock}

// Booking is one reservation of one or more seats on one train for one day
type Booking struct {
	ID            uuid.UUID      `json:"id"`
	PNR           string         `json:"pnr"`
	UserID        *int64         `json:"userId,omitempty"`
	TrainID       int64          `json:"trainId"`
	JourneyDate   Date           `json:"journeyDate"`
	SourceStation int64          `json:"sourceStationId"`
	DestStation   int64          `json:"destStationId"`
	Status        BookingStatus  `json:"status"`
	Fare          float64        `json:"fare"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Seats         []SeatInterval `json:"seats,omitempty"`
}

// SeatInterval holds one physical seat over [FromSeq, ToSeq) of the train's stops.
type SeatInterval struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"bookingId"`
	TrainID    int64     `json:"trainId"`
	Date       Date      `json:"journeyDate"`
	Coach      string    `json:"coach"`
	SeatNumber int       `json:"seatNumber"`
	FromSeq    int       `json:"fromSeq"`
	ToSeq      int       `json:"toSeq"`

	// BookingStatus is the owning booking's status at read time.
	BookingStatus BookingStatus `json:"bookingStatus,omitempty"`
}

// BookingRequest asks for seats in one coach between two stations
type BookingRequest struct {
	UserID          int64  `json:"userId"`
	TrainID         int64  `json:"trainId"`
	JourneyDate     Date   `json:"journeyDate"`
	SourceStationID int64  `json:"sourceStationId"`
	DestStationID   int64  `json:"destStationId"`
	CoachType       string `json:"coachType"`
	SelectedSeats   []int  `json:"selectedSeats"`
}

// CompositeBookingRequest books every leg of a multi-train itinerary
type CompositeBookingRequest struct {
	Bookings []BookingRequest `json:"bookings"`
}

// BlockRequest places or lifts administrative holds. Zero station ids mean
// the whole route of the train.
type BlockRequest struct {
	TrainID         int64  `json:"trainId"`
	JourneyDate     Date   `json:"journeyDate"`
	CoachType       string `json:"coachType"`
	SeatNumbers     []int  `json:"seatNumbers"`
	SourceStationID int64  `json:"sourceStationId,omitempty"`
	DestStationID   int64  `json:"destStationId,omitempty"`
}

// BookingResponse is returned after a booking commits
type BookingResponse struct {
	BookingID uuid.UUID     `json:"bookingId"`
	PNR       string        `json:"pnr"`
	Status    BookingStatus `json:"status"`
	Fare      float64       `json:"fare"`
}

// BookingDetails is a booking joined with its reference data for history views
type BookingDetails struct {
	Booking
	Train         *Train   `json:"train,omitempty"`
	SourceStation *Station `json:"sourceStation,omitempty"`
	DestStation   *Station `json:"destStation,omitempty"`
	User          *User    `json:"user,omitempty"`
}
