// Package store defines the storage collaborator the booking core depends on:
// reference data reads, snapshot reads of seat intervals, and a transaction
// that holds an exclusive lock on one train row.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thilaks-prosperr/train-booking-system/internal/occupancy"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

var (
	ErrNotFound = errors.New("not found")
)

// IntervalQuery filters seat intervals of active bookings on one train and day.
// Empty Coach and nil SeatNumbers match everything. When ToSeq > FromSeq only
// intervals overlapping [FromSeq, ToSeq) are returned.
type IntervalQuery struct {
	TrainID     int64
	Date        models.Date
	Coach       string
	SeatNumbers []int
	FromSeq     int
	ToSeq       int
}

// HasWindow reports whether the query restricts by sequence range.
func (q IntervalQuery) HasWindow() bool {
	return q.ToSeq > q.FromSeq
}

// Matches applies the query to an interval that is already known to belong
// to q.TrainID and q.Date.
func (q IntervalQuery) Matches(s models.SeatInterval) bool {
	if q.Coach != "" && s.Coach != q.Coach {
		return false
	}
	if q.SeatNumbers != nil {
		found := false
		for _, n := range q.SeatNumbers {
			if n == s.SeatNumber {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.HasWindow() && !occupancy.Overlaps(occupancy.Of(s), occupancy.Interval{From: q.FromSeq, To: q.ToSeq}) {
		return false
	}
	return true
}

// Reader is the read-only side of the store. Reads are snapshot reads and
// never take the train lock.
type Reader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetStation(ctx context.Context, id int64) (*models.Station, error)
	GetStationByCode(ctx context.Context, code string) (*models.Station, error)
	GetTrain(ctx context.Context, id int64) (*models.Train, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	ListTrains(ctx context.Context) ([]models.Train, error)
	ListStops(ctx context.Context) ([]models.Stop, error)
	ListTrainStops(ctx context.Context, trainID int64) ([]models.Stop, error)
	ListSeatIntervals(ctx context.Context, q IntervalQuery) ([]models.SeatInterval, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error)
}

// Tx is the work done while the train row is locked.
type Tx interface {
	// ListSeatIntervals sees every interval committed before the lock was
	// granted plus the ones written by this transaction.
	ListSeatIntervals(ctx context.Context, q IntervalQuery) ([]models.SeatInterval, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	InsertSeatInterval(ctx context.Context, s *models.SeatInterval) error
}

// Store is the transactional record store.
type Store interface {
	Reader

	// WithTrainLock runs fn in one transaction holding an exclusive lock on
	// the train. fn returning an error rolls everything back. A missing
	// train yields ErrNotFound.
	WithTrainLock(ctx context.Context, trainID int64, fn func(tx Tx) error) error

	// ReleaseBooking deletes the booking's seat intervals and moves it to
	// status. It returns the booking as stored afterwards and the deleted
	// intervals. Bookings already in a terminal status keep it.
	ReleaseBooking(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) (*models.Booking, []models.SeatInterval, error)

	// DeleteBlockedIntervals removes intervals matching q whose booking is
	// an administrative block and returns them.
	DeleteBlockedIntervals(ctx context.Context, q IntervalQuery) ([]models.SeatInterval, error)

	Close() error
}

// NextStatus resolves the status a release moves a booking to. Cancelling a
// refunded booking keeps it refunded; refunding a cancelled one refunds it.
func NextStatus(current, requested models.BookingStatus) models.BookingStatus {
	switch current {
	case models.BookingStatusRefunded:
		return current
	case models.BookingStatusCancelled:
		if requested == models.BookingStatusRefunded {
			return requested
		}
		return current
	}
	return requested
}
