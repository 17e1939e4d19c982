package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/thilaks-prosperr/train-booking-system/internal/activities"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// LegTimeout bounds a single leg booking
const LegTimeout = 30 * time.Second

// CompositeBookingWorkflow books the legs of a multi-train itinerary in
// order. Legs are independent: a failed leg is recorded and the rest are
// still attempted, and nothing already booked is undone.
func CompositeBookingWorkflow(ctx workflow.Context, input models.CompositeBookingWorkflowInput) (*models.CompositeBookingResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Composite booking workflow started", "requestId", input.RequestID, "legs", len(input.Bookings))

	// a retried leg could double-book once the first attempt commits
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: LegTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	result := &models.CompositeBookingResult{RequestID: input.RequestID}
	for i, req := range input.Bookings {
		var leg models.LegBookingResult
		err := workflow.ExecuteActivity(ctx, models.ActivityCreateBooking, activities.CreateBookingInput{
			Index:   i,
			Request: req,
		}).Get(ctx, &leg)
		if err != nil {
			logger.Error("Leg booking failed", "index", i, "error", err)
			leg = models.LegBookingResult{Index: i, Error: err.Error()}
		}
		result.Results = append(result.Results, leg)
	}

	logger.Info("Composite booking workflow completed", "requestId", input.RequestID, "booked", len(result.BookingIDs()))
	return result, nil
}
