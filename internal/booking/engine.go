// Package booking is the booking transaction manager. Every mutation that
// allocates seats runs under the train lock of the store and re-checks seat
// intervals against the latest committed state before writing.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/occupancy"
	"github.com/thilaks-prosperr/train-booking-system/internal/schedule"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// Engine creates, blocks and releases seat intervals.
type Engine struct {
	store  store.Store
	fares  fare.Calculator
	tracer trace.Tracer
}

func NewEngine(s store.Store, fares fare.Calculator) *Engine {
	return &Engine{
		store:  s,
		fares:  fares,
		tracer: otel.Tracer("train-booking-system/booking"),
	}
}

// leg is a resolved stretch of one train's route.
type leg struct {
	train models.Train
	from  models.Stop
	to    models.Stop
}

func (l leg) window() occupancy.Interval {
	return occupancy.Interval{From: l.from.Sequence, To: l.to.Sequence}
}

func (e *Engine) route(ctx context.Context, trainID int64) (*models.Train, *schedule.Route, error) {
	train, err := e.store.GetTrain(ctx, trainID)
	if err != nil {
		return nil, nil, fmt.Errorf("train %d: %w", trainID, err)
	}
	stops, err := e.store.ListTrainStops(ctx, trainID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stops of train %d: %w", trainID, err)
	}
	route, err := schedule.NewRoute(trainID, stops)
	if err != nil {
		return nil, nil, err
	}
	return train, route, nil
}

// resolve turns two stations into stops of the train. Both stations must exist
// and the train must call at them in travel order.
func (e *Engine) resolve(ctx context.Context, trainID, sourceID, destID int64) (leg, error) {
	train, route, err := e.route(ctx, trainID)
	if err != nil {
		return leg{}, err
	}
	for _, id := range []int64{sourceID, destID} {
		if _, err := e.store.GetStation(ctx, id); err != nil {
			return leg{}, fmt.Errorf("station %d: %w", id, err)
		}
	}
	from, err := route.StopAt(sourceID)
	if err != nil {
		return leg{}, err
	}
	to, err := route.StopAt(destID)
	if err != nil {
		return leg{}, err
	}
	if from.Sequence >= to.Sequence {
		return leg{}, fmt.Errorf("%w: train %d reaches station %d before station %d",
			ErrInvalidRoute, trainID, destID, sourceID)
	}
	return leg{train: *train, from: from, to: to}, nil
}

func validateSeats(train models.Train, coach string, seats []int) error {
	if coach == "" {
		return fmt.Errorf("%w: coach is required", ErrInvalidRequest)
	}
	if len(seats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidRequest)
	}
	seen := make(map[int]struct{}, len(seats))
	for _, n := range seats {
		if n < 1 || n > train.SeatsPerCoach {
			return fmt.Errorf("%w: seat %d outside 1..%d", ErrInvalidRequest, n, train.SeatsPerCoach)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: seat %d requested twice", ErrInvalidRequest, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// CreateBooking confirms seats for a passenger. The whole booking commits or
// none of it does.
func (e *Engine) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.Int64("train.id", req.TrainID),
		attribute.String("journey.date", req.JourneyDate.String()),
		attribute.String("coach", req.CoachType),
		attribute.Int("seats", len(req.SelectedSeats)),
	))
	defer span.End()

	b, err := e.createBooking(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.pnr", b.PNR))
	return b, nil
}

func (e *Engine) createBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if req.JourneyDate.IsZero() {
		return nil, fmt.Errorf("%w: journey date is required", ErrInvalidRequest)
	}
	if _, err := e.store.GetUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", req.UserID, err)
	}
	l, err := e.resolve(ctx, req.TrainID, req.SourceStationID, req.DestStationID)
	if err != nil {
		return nil, err
	}
	if err := validateSeats(l.train, req.CoachType, req.SelectedSeats); err != nil {
		return nil, err
	}

	userID := req.UserID
	b := &models.Booking{
		UserID:        &userID,
		TrainID:       req.TrainID,
		JourneyDate:   req.JourneyDate,
		SourceStation: req.SourceStationID,
		DestStation:   req.DestStationID,
		Status:        models.BookingStatusConfirmed,
		Fare:          e.fares.Between(l.train, l.from, l.to) * float64(len(req.SelectedSeats)),
	}
	if err := e.reserve(ctx, l, b, req.CoachType, req.SelectedSeats); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateAdminBlock holds seats without a passenger at zero fare. Without
// stations the hold spans the train's whole route.
func (e *Engine) CreateAdminBlock(ctx context.Context, req models.BlockRequest) (*models.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.CreateAdminBlock", trace.WithAttributes(
		attribute.Int64("train.id", req.TrainID),
		attribute.String("journey.date", req.JourneyDate.String()),
		attribute.String("coach", req.CoachType),
	))
	defer span.End()

	b, err := e.createAdminBlock(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return b, nil
}

func (e *Engine) createAdminBlock(ctx context.Context, req models.BlockRequest) (*models.Booking, error) {
	if req.JourneyDate.IsZero() {
		return nil, fmt.Errorf("%w: journey date is required", ErrInvalidRequest)
	}
	l, err := e.blockWindow(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := validateSeats(l.train, req.CoachType, req.SeatNumbers); err != nil {
		return nil, err
	}

	b := &models.Booking{
		TrainID:       req.TrainID,
		JourneyDate:   req.JourneyDate,
		SourceStation: l.from.StationID,
		DestStation:   l.to.StationID,
		Status:        models.BookingStatusAdminBlock,
	}
	if err := e.reserve(ctx, l, b, req.CoachType, req.SeatNumbers); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Engine) blockWindow(ctx context.Context, req models.BlockRequest) (leg, error) {
	switch {
	case req.SourceStationID != 0 && req.DestStationID != 0:
		return e.resolve(ctx, req.TrainID, req.SourceStationID, req.DestStationID)
	case req.SourceStationID != 0 || req.DestStationID != 0:
		return leg{}, fmt.Errorf("%w: source and destination must be given together", ErrInvalidRequest)
	}

	train, route, err := e.route(ctx, req.TrainID)
	if err != nil {
		return leg{}, err
	}
	first, ok := route.First()
	last, _ := route.Last()
	if !ok || first.Sequence >= last.Sequence {
		return leg{}, fmt.Errorf("%w: train %d has no route to block", ErrInvalidRoute, req.TrainID)
	}
	return leg{train: *train, from: first, to: last}, nil
}

// reserve re-checks every seat under the train lock in request order and
// writes the booking with one interval per seat.
func (e *Engine) reserve(ctx context.Context, l leg, b *models.Booking, coach string, seats []int) error {
	window := l.window()
	var inserted []models.SeatInterval

	err := e.store.WithTrainLock(ctx, l.train.ID, func(tx store.Tx) error {
		inserted = inserted[:0]
		for _, n := range seats {
			existing, err := tx.ListSeatIntervals(ctx, store.IntervalQuery{
				TrainID:     l.train.ID,
				Date:        b.JourneyDate,
				Coach:       coach,
				SeatNumbers: []int{n},
			})
			if err != nil {
				return fmt.Errorf("failed to check seat %d: %w", n, err)
			}
			if _, taken := occupancy.FindConflict(existing, window); taken {
				return &SeatConflictError{Coach: coach, SeatNumber: n, FromSeq: window.From, ToSeq: window.To}
			}
		}

		b.ID = uuid.New()
		b.PNR = NewPNR()
		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		for _, n := range seats {
			si := models.SeatInterval{
				BookingID:  b.ID,
				TrainID:    l.train.ID,
				Date:       b.JourneyDate,
				Coach:      coach,
				SeatNumber: n,
				FromSeq:    window.From,
				ToSeq:      window.To,
			}
			if err := tx.InsertSeatInterval(ctx, &si); err != nil {
				return fmt.Errorf("failed to insert seat %d: %w", n, err)
			}
			si.BookingStatus = b.Status
			inserted = append(inserted, si)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.Seats = inserted
	return nil
}

// UnblockSeats lifts administrative holds on the given seats. Confirmed
// bookings are never touched. With stations only holds overlapping that
// stretch are lifted.
func (e *Engine) UnblockSeats(ctx context.Context, req models.BlockRequest) ([]models.SeatInterval, error) {
	ctx, span := e.tracer.Start(ctx, "booking.UnblockSeats", trace.WithAttributes(
		attribute.Int64("train.id", req.TrainID),
		attribute.String("coach", req.CoachType),
	))
	defer span.End()

	q := store.IntervalQuery{
		TrainID:     req.TrainID,
		Date:        req.JourneyDate,
		Coach:       req.CoachType,
		SeatNumbers: req.SeatNumbers,
	}
	if req.JourneyDate.IsZero() || req.CoachType == "" || len(req.SeatNumbers) == 0 {
		return nil, fmt.Errorf("%w: date, coach and seats are required", ErrInvalidRequest)
	}
	if req.SourceStationID != 0 || req.DestStationID != 0 {
		l, err := e.resolve(ctx, req.TrainID, req.SourceStationID, req.DestStationID)
		if err != nil {
			return nil, err
		}
		q.FromSeq, q.ToSeq = l.from.Sequence, l.to.Sequence
	} else if _, err := e.store.GetTrain(ctx, req.TrainID); err != nil {
		return nil, fmt.Errorf("train %d: %w", req.TrainID, err)
	}

	released, err := e.store.DeleteBlockedIntervals(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unblock seats: %w", err)
	}
	span.SetAttributes(attribute.Int("seats.released", len(released)))
	return released, nil
}

// CancelBooking frees the booking's seats and marks it cancelled. Cancelling
// twice frees nothing the second time.
func (e *Engine) CancelBooking(ctx context.Context, id uuid.UUID) (*models.Booking, []models.SeatInterval, error) {
	return e.release(ctx, "booking.CancelBooking", id, models.BookingStatusCancelled)
}

// RefundBooking frees the booking's seats and marks it refunded.
func (e *Engine) RefundBooking(ctx context.Context, id uuid.UUID) (*models.Booking, []models.SeatInterval, error) {
	return e.release(ctx, "booking.RefundBooking", id, models.BookingStatusRefunded)
}

func (e *Engine) release(ctx context.Context, op string, id uuid.UUID, status models.BookingStatus) (*models.Booking, []models.SeatInterval, error) {
	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("booking.id", id.String())))
	defer span.End()

	b, freed, err := e.store.ReleaseBooking(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("booking %s: %w", id, err)
	}
	return b, freed, nil
}

// LegResult reports the outcome of one sub-booking of a composite request.
func LegResult(index int, b *models.Booking, err error) models.LegBookingResult {
	if err != nil {
		return models.LegBookingResult{
			Index:    index,
			Conflict: errors.Is(err, ErrSeatConflict),
			Error:    err.Error(),
		}
	}
	return models.LegBookingResult{
		Index:     index,
		Success:   true,
		BookingID: b.ID,
		PNR:       b.PNR,
		Fare:      b.Fare,
		Status:    b.Status,
	}
}
