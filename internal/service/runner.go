package service

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/thilaks-prosperr/train-booking-system/internal/booking"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// CompositeRunner books every leg of a composite request. Each leg commits
// or fails on its own; a failed leg never undoes an earlier one.
type CompositeRunner interface {
	Run(ctx context.Context, input models.CompositeBookingWorkflowInput) (*models.CompositeBookingResult, error)
}

// LegBooker books one leg.
type LegBooker interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
}

// InlineRunner books legs one after another in the calling process.
type InlineRunner struct {
	booker LegBooker
}

func NewInlineRunner(b LegBooker) *InlineRunner {
	return &InlineRunner{booker: b}
}

func (r *InlineRunner) Run(ctx context.Context, input models.CompositeBookingWorkflowInput) (*models.CompositeBookingResult, error) {
	result := &models.CompositeBookingResult{RequestID: input.RequestID}
	for i, req := range input.Bookings {
		b, err := r.booker.CreateBooking(ctx, req)
		result.Results = append(result.Results, booking.LegResult(i, b, err))
	}
	return result, nil
}

// TemporalRunner hands the request to the composite booking workflow and
// waits for its result.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
}

func NewTemporalRunner(c client.Client, taskQueue string) *TemporalRunner {
	return &TemporalRunner{client: c, taskQueue: taskQueue}
}

func (r *TemporalRunner) Run(ctx context.Context, input models.CompositeBookingWorkflowInput) (*models.CompositeBookingResult, error) {
	options := client.StartWorkflowOptions{
		ID:        "composite-booking-" + input.RequestID,
		TaskQueue: r.taskQueue,
	}
	run, err := r.client.ExecuteWorkflow(ctx, options, models.WorkflowCompositeBooking, input)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	var result models.CompositeBookingResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to get workflow result: %w", err)
	}
	return &result, nil
}
