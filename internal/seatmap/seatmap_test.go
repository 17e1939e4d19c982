package seatmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/internal/kvstore"
	"github.com/thilaks-prosperr/train-booking-system/internal/occupancy"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func seatStatus(rows []models.SeatRow, n int) models.SeatStatus {
	for _, r := range rows {
		for _, s := range r.Seats {
			if s.SeatNumber == n {
				return s.Status
			}
		}
	}
	return ""
}

func interval(seat, from, to int, status models.BookingStatus) models.SeatInterval {
	return models.SeatInterval{Coach: "S1", SeatNumber: seat, FromSeq: from, ToSeq: to, BookingStatus: status}
}

func TestBuildLayout(t *testing.T) {
	rows := Build(0, nil, occupancy.Interval{From: 1, To: 2})
	require.Len(t, rows, DefaultRows)
	for _, r := range rows {
		assert.Len(t, r.Seats, SeatsPerRow)
	}
	assert.Equal(t, "1A", rows[0].Seats[0].Label)
	assert.Equal(t, "3C", rows[2].Seats[2].Label)
	assert.Equal(t, 11, rows[2].Seats[2].SeatNumber)

	rows = Build(18, nil, occupancy.Interval{From: 1, To: 2})
	require.Len(t, rows, 5)
	assert.Len(t, rows[4].Seats, 2)
}

func TestBuildStatuses(t *testing.T) {
	window := occupancy.Interval{From: 2, To: 4}
	intervals := []models.SeatInterval{
		interval(1, 1, 3, models.BookingStatusConfirmed),
		interval(2, 4, 6, models.BookingStatusConfirmed),
		interval(3, 1, 2, models.BookingStatusConfirmed),
		interval(4, 3, 4, models.BookingStatusConfirmed),
		interval(4, 1, 5, models.BookingStatusAdminBlock),
		interval(5, 2, 3, models.BookingStatusBlocked),
		interval(5, 3, 4, models.BookingStatusConfirmed),
		interval(6, 1, 6, models.BookingStatusCancelled),
	}
	rows := Build(40, intervals, window)

	tests := []struct {
		seat int
		want models.SeatStatus
	}{
		{1, models.SeatStatusBooked},
		{2, models.SeatStatusAvailable},
		{3, models.SeatStatusAvailable},
		{4, models.SeatStatusBlocked},
		{5, models.SeatStatusBlocked},
		{6, models.SeatStatusAvailable},
		{7, models.SeatStatusAvailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, seatStatus(rows, tt.seat), "seat %d", tt.seat)
	}
}

func TestProject(t *testing.T) {
	s, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	day := models.MustDate("2024-07-01")

	require.NoError(t, s.PutTrain(ctx, models.Train{ID: 3, Name: "Express", SeatsPerCoach: 8, CoachCount: 2}))
	require.NoError(t, s.PutStops(ctx,
		models.Stop{TrainID: 3, StationID: 1, Sequence: 1},
		models.Stop{TrainID: 3, StationID: 2, Sequence: 2},
		models.Stop{TrainID: 3, StationID: 3, Sequence: 3},
	))
	err = s.WithTrainLock(ctx, 3, func(tx store.Tx) error {
		b := &models.Booking{TrainID: 3, JourneyDate: day, Status: models.BookingStatusConfirmed}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		for _, si := range []models.SeatInterval{
			{BookingID: b.ID, TrainID: 3, Date: day, Coach: "S1", SeatNumber: 2, FromSeq: 1, ToSeq: 2},
			{BookingID: b.ID, TrainID: 3, Date: day, Coach: "S2", SeatNumber: 3, FromSeq: 1, ToSeq: 3},
		} {
			si := si
			if err := tx.InsertSeatInterval(ctx, &si); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	p := NewProjector(s)

	full, err := p.Project(ctx, models.SeatMapRequest{TrainID: 3, JourneyDate: day, CoachType: "S1"})
	require.NoError(t, err)
	assert.Equal(t, 1, full.StartSeq)
	assert.Equal(t, 3, full.EndSeq)
	require.Len(t, full.Rows, 2)
	assert.Equal(t, models.SeatStatusBooked, seatStatus(full.Rows, 2))
	assert.Equal(t, models.SeatStatusAvailable, seatStatus(full.Rows, 3))

	later, err := p.Project(ctx, models.SeatMapRequest{TrainID: 3, JourneyDate: day, CoachType: "S1", StartSeq: 2, EndSeq: 3})
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusAvailable, seatStatus(later.Rows, 2))

	_, err = p.Project(ctx, models.SeatMapRequest{TrainID: 3, JourneyDate: day, CoachType: "S1", StartSeq: 3, EndSeq: 2})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Project(ctx, models.SeatMapRequest{TrainID: 9, JourneyDate: day, CoachType: "S1"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
