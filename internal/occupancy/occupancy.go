// Package occupancy models seat reservations as half-open intervals over a
// train's stop sequence numbers.
package occupancy

import "github.com/thilaks-prosperr/train-booking-system/shared/models"

// Interval is the half-open range [From, To) of stop sequences.
type Interval struct {
	From int
	To   int
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.From < i.To
}

// Overlaps is the only rule deciding whether two stretches of the route
// compete for a seat. Touching ends do not overlap, so [1,2) and [2,3) can
// share a physical seat.
func Overlaps(a, b Interval) bool {
	return a.From < b.To && b.From < a.To
}

// Of returns the interval a seat interval covers.
func Of(s models.SeatInterval) Interval {
	return Interval{From: s.FromSeq, To: s.ToSeq}
}

// SeatKey identifies a physical seat within a train.
type SeatKey struct {
	Coach      string
	SeatNumber int
}

// FindConflict returns the first interval of an active booking that
// overlaps window.
func FindConflict(existing []models.SeatInterval, window Interval) (models.SeatInterval, bool) {
	for _, s := range existing {
		if s.BookingStatus != "" && !s.BookingStatus.IsActive() {
			continue
		}
		if Overlaps(Of(s), window) {
			return s, true
		}
	}
	return models.SeatInterval{}, false
}

// OccupiedSeats counts the distinct physical seats held by an active booking
// anywhere inside window.
func OccupiedSeats(intervals []models.SeatInterval, window Interval) int {
	seen := make(map[SeatKey]struct{})
	for _, s := range intervals {
		if s.BookingStatus != "" && !s.BookingStatus.IsActive() {
			continue
		}
		if Overlaps(Of(s), window) {
			seen[SeatKey{Coach: s.Coach, SeatNumber: s.SeatNumber}] = struct{}{}
		}
	}
	return len(seen)
}

// Available returns capacity minus the occupied seats in window, never below zero.
func Available(capacity int, intervals []models.SeatInterval, window Interval) int {
	free := capacity - OccupiedSeats(intervals, window)
	if free < 0 {
		return 0
	}
	return free
}
