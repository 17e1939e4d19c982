package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/thilaks-prosperr/train-booking-system/internal/booking"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// Booker commits one booking.
type Booker interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
}

// Activities holds the activities run by the booking worker
type Activities struct {
	booker Booker
}

// NewActivities creates a new Activities instance
func NewActivities(b Booker) *Activities {
	return &Activities{booker: b}
}

// CreateBookingInput is one leg of a composite request
type CreateBookingInput struct {
	Index   int                   `json:"index"`
	Request models.BookingRequest `json:"request"`
}

// CreateBooking activity - books one leg. Rejections such as a seat conflict
// come back as an unsuccessful result; only infrastructure failures are
// returned as errors.
func (a *Activities) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.LegBookingResult, error) {
	logger := activity.GetLogger(ctx)
	req := input.Request
	logger.Info("Booking leg", "index", input.Index, "trainId", req.TrainID, "date", req.JourneyDate.String(), "seats", req.SelectedSeats)

	b, err := a.booker.CreateBooking(ctx, req)
	if err != nil && !rejected(err) {
		logger.Error("Failed to book leg", "index", input.Index, "error", err)
		return nil, err
	}

	result := booking.LegResult(input.Index, b, err)
	if result.Success {
		logger.Info("Leg booked", "index", input.Index, "pnr", result.PNR)
	} else {
		logger.Warn("Leg rejected", "index", input.Index, "error", result.Error)
	}
	return &result, nil
}

func rejected(err error) bool {
	return errors.Is(err, booking.ErrSeatConflict) ||
		errors.Is(err, booking.ErrInvalidRequest) ||
		errors.Is(err, booking.ErrInvalidRoute) ||
		errors.Is(err, booking.ErrNotFound)
}
