package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/thilaks-prosperr/train-booking-system/internal/booking"
	"github.com/thilaks-prosperr/train-booking-system/internal/events"
	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/search"
	"github.com/thilaks-prosperr/train-booking-system/internal/seatmap"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/internal/ticket"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// BookingService defines the booking service interface
type BookingService interface {
	Search(ctx context.Context, req models.SearchRequest) ([]models.Itinerary, error)
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResponse, error)
	CreateCompositeBooking(ctx context.Context, req models.CompositeBookingRequest) (*models.CompositeBookingResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.BookingDetails, error)
	ListUserBookings(ctx context.Context, userID int64) ([]models.BookingDetails, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*models.BookingResponse, error)
	RefundBooking(ctx context.Context, id uuid.UUID) (*models.BookingResponse, error)
	GetSeatMap(ctx context.Context, req models.SeatMapRequest) (*models.SeatMap, error)
	BlockSeats(ctx context.Context, req models.BlockRequest) (*models.BookingResponse, error)
	UnblockSeats(ctx context.Context, req models.BlockRequest) (int, error)
	Ticket(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// SeatNotifier receives seat changes for live seat maps
type SeatNotifier interface {
	BroadcastSeatsBooked(b *models.Booking)
	BroadcastSeatsReleased(trainID int64, date models.Date, seats []models.SeatInterval)
}

type nopNotifier struct{}

func (nopNotifier) BroadcastSeatsBooked(*models.Booking)                             {}
func (nopNotifier) BroadcastSeatsReleased(int64, models.Date, []models.SeatInterval) {}

// Option configures the service
type Option func(*bookingServiceImpl)

// WithRunner sets how composite bookings are executed. The default books
// legs inline.
func WithRunner(r CompositeRunner) Option {
	return func(s *bookingServiceImpl) { s.runner = r }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *bookingServiceImpl) { s.publisher = p }
}

func WithNotifier(n SeatNotifier) Option {
	return func(s *bookingServiceImpl) { s.notifier = n }
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	store     store.Store
	search    *search.Engine
	engine    *booking.Engine
	seats     *seatmap.Projector
	runner    CompositeRunner
	publisher events.Publisher
	notifier  SeatNotifier
}

// NewBookingService creates a new BookingService
func NewBookingService(st store.Store, fares fare.Calculator, opts ...Option) BookingService {
	engine := booking.NewEngine(st, fares)
	s := &bookingServiceImpl{
		store:     st,
		search:    search.NewEngine(st, fares),
		engine:    engine,
		seats:     seatmap.NewProjector(st),
		runner:    NewInlineRunner(engine),
		publisher: events.NopPublisher{},
		notifier:  nopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingServiceImpl) Search(ctx context.Context, req models.SearchRequest) ([]models.Itinerary, error) {
	return s.search.Search(ctx, req)
}

func response(b *models.Booking) *models.BookingResponse {
	return &models.BookingResponse{BookingID: b.ID, PNR: b.PNR, Status: b.Status, Fare: b.Fare}
}

func (s *bookingServiceImpl) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResponse, error) {
	b, err := s.engine.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	s.booked(ctx, b)
	return response(b), nil
}

// booked announces a committed booking or block.
func (s *bookingServiceImpl) booked(ctx context.Context, b *models.Booking) {
	eventType := events.TypeBookingConfirmed
	if b.Status.IsBlocked() {
		eventType = events.TypeSeatsBlocked
	}
	log.Printf("Booking %s (%s) %s on train %d for %s, %d seats", b.ID, b.PNR, b.Status, b.TrainID, b.JourneyDate, len(b.Seats))
	s.publish(ctx, events.ForBooking(eventType, b, b.Seats))
	s.notifier.BroadcastSeatsBooked(b)
}

func (s *bookingServiceImpl) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("Failed to publish %s for train %d: %v", e.Type, e.TrainID, err)
	}
}

func (s *bookingServiceImpl) CreateCompositeBooking(ctx context.Context, req models.CompositeBookingRequest) (*models.CompositeBookingResult, error) {
	if len(req.Bookings) == 0 {
		return nil, fmt.Errorf("%w: no bookings in composite request", booking.ErrInvalidRequest)
	}
	input := models.CompositeBookingWorkflowInput{
		RequestID: uuid.NewString(),
		Bookings:  req.Bookings,
	}
	result, err := s.runner.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run composite booking: %w", err)
	}

	// legs may have been booked by a worker process, so announce them from
	// what the store holds
	for _, id := range result.BookingIDs() {
		b, err := s.store.GetBooking(ctx, id)
		if err != nil {
			log.Printf("Failed to load booking %s of composite request %s: %v", id, input.RequestID, err)
			continue
		}
		s.booked(ctx, b)
	}
	return result, nil
}

func (s *bookingServiceImpl) details(ctx context.Context, b *models.Booking) (*models.BookingDetails, error) {
	d := &models.BookingDetails{Booking: *b}
	var err error
	if d.Train, err = s.store.GetTrain(ctx, b.TrainID); err != nil {
		return nil, fmt.Errorf("train of booking %s: %w", b.ID, err)
	}
	if d.SourceStation, err = s.store.GetStation(ctx, b.SourceStation); err != nil {
		return nil, fmt.Errorf("source of booking %s: %w", b.ID, err)
	}
	if d.DestStation, err = s.store.GetStation(ctx, b.DestStation); err != nil {
		return nil, fmt.Errorf("destination of booking %s: %w", b.ID, err)
	}
	if b.UserID != nil {
		if d.User, err = s.store.GetUser(ctx, *b.UserID); err != nil {
			return nil, fmt.Errorf("user of booking %s: %w", b.ID, err)
		}
	}
	return d, nil
}

func (s *bookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*models.BookingDetails, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}
	return s.details(ctx, b)
}

func (s *bookingServiceImpl) ListUserBookings(ctx context.Context, userID int64) ([]models.BookingDetails, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	bookings, err := s.store.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.BookingDetails, 0, len(bookings))
	for i := range bookings {
		d, err := s.details(ctx, &bookings[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *bookingServiceImpl) CancelBooking(ctx context.Context, id uuid.UUID) (*models.BookingResponse, error) {
	b, freed, err := s.engine.CancelBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	s.released(ctx, events.TypeBookingCancelled, b, freed)
	return response(b), nil
}

func (s *bookingServiceImpl) RefundBooking(ctx context.Context, id uuid.UUID) (*models.BookingResponse, error) {
	b, freed, err := s.engine.RefundBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	s.released(ctx, events.TypeBookingRefunded, b, freed)
	return response(b), nil
}

// released announces freed seats. Repeated cancels free nothing and stay quiet.
func (s *bookingServiceImpl) released(ctx context.Context, eventType string, b *models.Booking, freed []models.SeatInterval) {
	if len(freed) == 0 {
		return
	}
	log.Printf("Booking %s (%s) is %s, %d seats freed", b.ID, b.PNR, b.Status, len(freed))
	s.publish(ctx, events.ForBooking(eventType, b, freed))
	s.notifier.BroadcastSeatsReleased(b.TrainID, b.JourneyDate, freed)
}

func (s *bookingServiceImpl) GetSeatMap(ctx context.Context, req models.SeatMapRequest) (*models.SeatMap, error) {
	return s.seats.Project(ctx, req)
}

func (s *bookingServiceImpl) BlockSeats(ctx context.Context, req models.BlockRequest) (*models.BookingResponse, error) {
	b, err := s.engine.CreateAdminBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	s.booked(ctx, b)
	return response(b), nil
}

func (s *bookingServiceImpl) UnblockSeats(ctx context.Context, req models.BlockRequest) (int, error) {
	freed, err := s.engine.UnblockSeats(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(freed) > 0 {
		log.Printf("Unblocked %d seats on train %d for %s", len(freed), req.TrainID, req.JourneyDate)
		s.publish(ctx, events.ForSeats(events.TypeSeatsUnblocked, req.TrainID, req.JourneyDate, freed))
		s.notifier.BroadcastSeatsReleased(req.TrainID, req.JourneyDate, freed)
	}
	return len(freed), nil
}

func (s *bookingServiceImpl) Ticket(ctx context.Context, id uuid.UUID) ([]byte, error) {
	d, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return ticket.Render(d)
}
