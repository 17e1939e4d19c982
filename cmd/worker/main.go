package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/thilaks-prosperr/train-booking-system/internal/activities"
	"github.com/thilaks-prosperr/train-booking-system/internal/booking"
	"github.com/thilaks-prosperr/train-booking-system/internal/bootstrap"
	"github.com/thilaks-prosperr/train-booking-system/internal/config"
	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/obs"
	"github.com/thilaks-prosperr/train-booking-system/internal/workflows"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	temporalHost := cfg.TemporalHost
	if temporalHost == "" {
		temporalHost = "localhost:7233"
	}

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName+"-worker", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}
	defer shutdownTracer(ctx)

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Connect to Temporal
	log.Printf("Connecting to Temporal at %s...", temporalHost)
	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Temporal: %v", err)
	}
	defer c.Close()
	log.Println("Connected to Temporal")

	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.CompositeBookingWorkflow, workflow.RegisterOptions{Name: models.WorkflowCompositeBooking})

	acts := activities.NewActivities(booking.NewEngine(st, fare.NewCalculator(cfg.PerKmRate)))
	w.RegisterActivityWithOptions(acts.CreateBooking, activity.RegisterOptions{Name: models.ActivityCreateBooking})

	log.Printf("Starting Temporal worker on %s...", cfg.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
