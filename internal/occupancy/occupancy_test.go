package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "back to back legs", a: Interval{1, 2}, b: Interval{2, 3}, want: false},
		{name: "back to back reversed", a: Interval{2, 3}, b: Interval{1, 2}, want: false},
		{name: "contained", a: Interval{1, 3}, b: Interval{2, 3}, want: true},
		{name: "identical", a: Interval{1, 2}, b: Interval{1, 2}, want: true},
		{name: "partial", a: Interval{1, 4}, b: Interval{3, 6}, want: true},
		{name: "disjoint", a: Interval{1, 2}, b: Interval{5, 6}, want: false},
		{name: "enclosing", a: Interval{1, 10}, b: Interval{4, 5}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, Interval{1, 2}.Valid())
	assert.False(t, Interval{2, 2}.Valid())
	assert.False(t, Interval{3, 2}.Valid())
}

func TestFindConflict(t *testing.T) {
	existing := []models.SeatInterval{
		{Coach: "S1", SeatNumber: 5, FromSeq: 1, ToSeq: 2, BookingStatus: models.BookingStatusConfirmed},
		{Coach: "S1", SeatNumber: 5, FromSeq: 3, ToSeq: 5, BookingStatus: models.BookingStatusCancelled},
	}

	_, found := FindConflict(existing, Interval{2, 3})
	assert.False(t, found)

	_, found = FindConflict(existing, Interval{3, 4})
	assert.False(t, found, "cancelled bookings never conflict")

	conflict, found := FindConflict(existing, Interval{1, 3})
	assert.True(t, found)
	assert.Equal(t, 1, conflict.FromSeq)
}

func TestOccupiedSeats(t *testing.T) {
	intervals := []models.SeatInterval{
		{Coach: "S1", SeatNumber: 1, FromSeq: 1, ToSeq: 2},
		{Coach: "S1", SeatNumber: 1, FromSeq: 2, ToSeq: 3},
		{Coach: "S1", SeatNumber: 2, FromSeq: 1, ToSeq: 3},
		{Coach: "S2", SeatNumber: 1, FromSeq: 2, ToSeq: 3},
		{Coach: "S2", SeatNumber: 9, FromSeq: 3, ToSeq: 4},
	}

	assert.Equal(t, 3, OccupiedSeats(intervals, Interval{1, 3}), "one seat held on two legs counts once")
	assert.Equal(t, 2, OccupiedSeats(intervals, Interval{1, 2}))
	assert.Equal(t, 1, OccupiedSeats(intervals, Interval{3, 4}))
	assert.Equal(t, 0, Available(2, intervals, Interval{1, 3}))
	assert.Equal(t, 38, Available(40, intervals, Interval{1, 2}))
}
