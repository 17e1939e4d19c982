package models

import "github.com/google/uuid"

// CompositeBookingWorkflowInput is the input of the composite booking workflow
type CompositeBookingWorkflowInput struct {
	RequestID string           `json:"requestId"`
	Bookings  []BookingRequest `json:"bookings"`
}

// LegBookingResult is the outcome of one sub-booking. Each leg commits or
// fails on its own.
type LegBookingResult struct {
	Index     int           `json:"index"`
	Success   bool          `json:"success"`
	BookingID uuid.UUID     `json:"bookingId,omitempty"`
	PNR       string        `json:"pnr,omitempty"`
	Fare      float64       `json:"fare,omitempty"`
	Status    BookingStatus `json:"status,omitempty"`
	Conflict  bool          `json:"conflict,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// CompositeBookingResult aggregates the per-leg outcomes
type CompositeBookingResult struct {
	RequestID string             `json:"requestId"`
	Results   []LegBookingResult `json:"results"`
}

// BookingIDs returns the ids of the legs that committed, in request order.
func (r *CompositeBookingResult) BookingIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, leg := range r.Results {
		if leg.Success {
			ids = append(ids, leg.BookingID)
		}
	}
	return ids
}

// Activity names registered on the worker
const (
	ActivityCreateBooking    = "CreateBooking"
	WorkflowCompositeBooking = "CompositeBookingWorkflow"
)
