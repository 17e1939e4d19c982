// Package events publishes booking lifecycle events to a message broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// Event types
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingRefunded  = "booking.refunded"
	TypeSeatsBlocked     = "seats.blocked"
	TypeSeatsUnblocked   = "seats.unblocked"
)

// SeatRef is one seat over one stretch of the route.
type SeatRef struct {
	Coach      string `json:"coach"`
	SeatNumber int    `json:"seatNumber"`
	FromSeq    int    `json:"fromSeq"`
	ToSeq      int    `json:"toSeq"`
}

// Event is the message body published for every seat change.
type Event struct {
	Type        string               `json:"type"`
	BookingID   uuid.UUID            `json:"bookingId,omitempty"`
	PNR         string               `json:"pnr,omitempty"`
	TrainID     int64                `json:"trainId"`
	JourneyDate models.Date          `json:"journeyDate"`
	Status      models.BookingStatus `json:"status,omitempty"`
	Fare        float64              `json:"fare,omitempty"`
	Seats       []SeatRef            `json:"seats"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// Publisher sends events. Implementations are safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// ForBooking builds the event for a booking and the seats it touched.
func ForBooking(eventType string, b *models.Booking, seats []models.SeatInterval) Event {
	return Event{
		Type:        eventType,
		BookingID:   b.ID,
		PNR:         b.PNR,
		TrainID:     b.TrainID,
		JourneyDate: b.JourneyDate,
		Status:      b.Status,
		Fare:        b.Fare,
		Seats:       seatRefs(seats),
		OccurredAt:  time.Now().UTC(),
	}
}

// ForSeats builds an event for seats released outside a single booking.
func ForSeats(eventType string, trainID int64, date models.Date, seats []models.SeatInterval) Event {
	return Event{
		Type:        eventType,
		TrainID:     trainID,
		JourneyDate: date,
		Seats:       seatRefs(seats),
		OccurredAt:  time.Now().UTC(),
	}
}

func seatRefs(seats []models.SeatInterval) []SeatRef {
	refs := make([]SeatRef, 0, len(seats))
	for _, s := range seats {
		refs = append(refs, SeatRef{Coach: s.Coach, SeatNumber: s.SeatNumber, FromSeq: s.FromSeq, ToSeq: s.ToSeq})
	}
	return refs
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
