package booking

import (
	"errors"
	"fmt"

	"github.com/thilaks-prosperr/train-booking-system/internal/store"
)

var (
	// ErrNotFound is returned when a user, train, station or stop is missing.
	ErrNotFound = store.ErrNotFound

	ErrInvalidRoute   = errors.New("invalid route")
	ErrInvalidRequest = errors.New("invalid request")
	ErrSeatConflict   = errors.New("seat conflict")
)

// SeatConflictError names the seat whose interval overlaps an existing hold.
type SeatConflictError struct {
	Coach      string
	SeatNumber int
	FromSeq    int
	ToSeq      int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %d in coach %s is already taken between stops %d and %d",
		e.SeatNumber, e.Coach, e.FromSeq, e.ToSeq)
}

func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}
