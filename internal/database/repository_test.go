package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func TestIntervalFilter(t *testing.T) {
	day := models.MustDate("2024-01-05")

	tests := []struct {
		name      string
		q         store.IntervalQuery
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "train and day",
			q:         store.IntervalQuery{TrainID: 1, Date: day},
			wantWhere: "si.train_id = $1 AND si.journey_date = $2 AND b.status = ANY($3)",
			wantArgs:  3,
		},
		{
			name:      "seat lookup",
			q:         store.IntervalQuery{TrainID: 1, Date: day, Coach: "S1", SeatNumbers: []int{4}},
			wantWhere: "si.train_id = $1 AND si.journey_date = $2 AND b.status = ANY($3) AND si.coach = $4 AND si.seat_number = ANY($5)",
			wantArgs:  5,
		},
		{
			name:      "window",
			q:         store.IntervalQuery{TrainID: 1, Date: day, FromSeq: 2, ToSeq: 5},
			wantWhere: "si.train_id = $1 AND si.journey_date = $2 AND b.status = ANY($3) AND si.from_seq < $4 AND si.to_seq > $5",
			wantArgs:  5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := intervalFilter(tt.q, models.ActiveStatuses)
			assert.Equal(t, tt.wantWhere, where)
			assert.Len(t, args, tt.wantArgs)
		})
	}

	_, args := intervalFilter(store.IntervalQuery{TrainID: 1, Date: day, FromSeq: 2, ToSeq: 5}, models.ActiveStatuses)
	assert.Equal(t, 5, args[3])
	assert.Equal(t, 2, args[4])
}

// TestRepository runs against a live database named by TEST_DATABASE_URL.
func TestRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := Connect(ctx, url)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Migrate(ctx))

	trainID := int64(900000 + os.Getpid()%1000)
	require.NoError(t, repo.PutStation(ctx, models.Station{ID: 990001, Code: "TSTA", Name: "Test A"}))
	require.NoError(t, repo.PutStation(ctx, models.Station{ID: 990002, Code: "TSTB", Name: "Test B"}))
	require.NoError(t, repo.PutTrain(ctx, models.Train{ID: trainID, Number: "T1", Name: "Test", SeatsPerCoach: 4, CoachCount: 1, BasePrice: 10}))
	require.NoError(t, repo.PutStops(ctx,
		models.Stop{TrainID: trainID, StationID: 990001, Sequence: 1, Departure: models.Clock(8, 0)},
		models.Stop{TrainID: trainID, StationID: 990002, Sequence: 2, Arrival: models.Clock(9, 30), DistanceKm: 80},
	))

	st, err := repo.GetStationByCode(ctx, "tsta")
	require.NoError(t, err)
	assert.Equal(t, int64(990001), st.ID)

	stops, err := repo.ListTrainStops(ctx, trainID)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, models.Clock(9, 30), stops[1].Arrival)

	day := models.MustDate("2030-01-01")
	b := &models.Booking{PNR: uuid.NewString()[:10], TrainID: trainID, JourneyDate: day,
		SourceStation: 990001, DestStation: 990002, Status: models.BookingStatusAdminBlock}
	err = repo.WithTrainLock(ctx, trainID, func(tx store.Tx) error {
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		return tx.InsertSeatInterval(ctx, &models.SeatInterval{BookingID: b.ID, TrainID: trainID, Date: day, Coach: "S1", SeatNumber: 2, FromSeq: 1, ToSeq: 2})
	})
	require.NoError(t, err)

	held, err := repo.ListSeatIntervals(ctx, store.IntervalQuery{TrainID: trainID, Date: day, Coach: "S1", SeatNumbers: []int{2}})
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, models.BookingStatusAdminBlock, held[0].BookingStatus)

	freed, err := repo.DeleteBlockedIntervals(ctx, store.IntervalQuery{TrainID: trainID, Date: day, Coach: "S1", SeatNumbers: []int{2}})
	require.NoError(t, err)
	assert.Len(t, freed, 1)

	got, _, err := repo.ReleaseBooking(ctx, b.ID, models.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	err = repo.WithTrainLock(ctx, -1, func(store.Tx) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}
