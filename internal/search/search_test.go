package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/kvstore"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

var day = models.MustDate("2024-06-01")

type fixture struct {
	t     *testing.T
	store *kvstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, st := range []models.Station{
		{ID: 1, Code: "A", Name: "Alpha", Latitude: 13.08, Longitude: 80.27},
		{ID: 2, Code: "B", Name: "Bravo"},
		{ID: 3, Code: "C", Name: "Charlie"},
		{ID: 4, Code: "D", Name: "Delta"},
	} {
		require.NoError(t, s.PutStation(context.Background(), st))
	}
	return &fixture{t: t, store: s}
}

// train adds a train with one coach. Each call is (station, arrival, departure, km).
func (f *fixture) train(id int64, seats int, calls ...[4]int) {
	f.t.Helper()
	ctx := context.Background()
	require.NoError(f.t, f.store.PutTrain(ctx, models.Train{
		ID: id, Number: "T" + string(rune('0'+id)), Name: "Train " + string(rune('0'+id)),
		SeatsPerCoach: seats, CoachCount: 1, BasePrice: 100,
	}))
	for i, c := range calls {
		require.NoError(f.t, f.store.PutStops(ctx, models.Stop{
			TrainID:    id,
			StationID:  int64(c[0]),
			Sequence:   i + 1,
			Arrival:    models.TimeOfDay(c[1]),
			Departure:  models.TimeOfDay(c[2]),
			DistanceKm: c[3],
		}))
	}
}

func (f *fixture) hold(trainID int64, seat, from, to int) {
	f.t.Helper()
	ctx := context.Background()
	err := f.store.WithTrainLock(ctx, trainID, func(tx store.Tx) error {
		b := &models.Booking{TrainID: trainID, JourneyDate: day, Status: models.BookingStatusConfirmed}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		return tx.InsertSeatInterval(ctx, &models.SeatInterval{
			BookingID: b.ID, TrainID: trainID, Date: day, Coach: "S1", SeatNumber: seat, FromSeq: from, ToSeq: to,
		})
	})
	require.NoError(f.t, err)
}

func hm(h, m int) int { return int(models.Clock(h, m)) }

func (f *fixture) search(src, dst string) []models.Itinerary {
	f.t.Helper()
	got, err := NewEngine(f.store, fare.NewCalculator(2)).Search(context.Background(), models.SearchRequest{
		SourceStationCode: src, DestStationCode: dst, JourneyDate: day,
	})
	require.NoError(f.t, err)
	return got
}

func TestThreeLegItinerary(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(8, 0), 0, 100})
	f.train(2, 40, [4]int{2, 0, hm(9, 30), 0}, [4]int{3, hm(11, 0), 0, 80})
	f.train(3, 40, [4]int{3, 0, hm(12, 30), 0}, [4]int{4, hm(14, 0), 0, 120})
	// leaves Bravo only 30 minutes after train 1 arrives
	f.train(4, 40, [4]int{2, 0, hm(8, 30), 0}, [4]int{3, hm(10, 0), 0, 80})
	// runs the other way
	f.train(5, 40, [4]int{4, 0, hm(5, 0), 0}, [4]int{1, hm(5, 50), 0, 300})

	got := f.search("a", "D")
	require.Len(t, got, 1)
	it := got[0]

	assert.False(t, it.IsDirect)
	require.Len(t, it.Legs, 3)
	assert.Equal(t, (100+100*2)+(100+80*2)+(100+120*2), int(it.Price))
	assert.Equal(t, it.Legs[0].Price+it.Legs[1].Price+it.Legs[2].Price, it.Price)
	assert.Equal(t, []string{"Bravo", "Charlie"}, it.LayoverStations)
	assert.Equal(t, "Bravo", it.LayoverStation)
	assert.Equal(t, "Layover at Bravo", it.Legs[0].Description)
	assert.Equal(t, "Destination", it.Legs[2].Description)
	assert.Equal(t, "8h 0m", it.DurationText)
	assert.Equal(t, 480, it.DurationMinutes)
	assert.Equal(t, 40, it.AvailableSeats)

	var codes []string
	for _, p := range it.Path {
		codes = append(codes, p.StationCode)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, codes)
}

func TestLayoverFloor(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(8, 0), 0, 100})
	f.train(2, 40, [4]int{2, 0, hm(9, 0), 0}, [4]int{3, hm(11, 0), 0, 80})
	f.train(3, 40, [4]int{2, 0, hm(8, 59), 0}, [4]int{3, hm(10, 0), 0, 80})
	f.train(4, 40, [4]int{2, 0, hm(7, 30), 0}, [4]int{3, hm(9, 0), 0, 80})

	got := f.search("A", "C")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Legs[1].TrainID)

	for _, it := range got {
		for i := 1; i < len(it.Legs); i++ {
			wait := it.Legs[i].DepartureTime - it.Legs[i-1].ArrivalTime
			assert.GreaterOrEqual(t, int(wait), 60)
		}
	}
}

func TestDirectionality(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(7, 0), hm(7, 5), 60}, [4]int{3, hm(9, 0), 0, 200})

	forward := f.search("A", "C")
	require.Len(t, forward, 1)
	assert.True(t, forward[0].IsDirect)
	assert.Equal(t, "Train 1", forward[0].TrainName)
	assert.Equal(t, 500.0, forward[0].Price)
	assert.Len(t, forward[0].Path, 3)

	assert.Empty(t, f.search("C", "A"))
	assert.Empty(t, f.search("B", "A"))

	for _, it := range append(forward, f.search("B", "C")...) {
		for _, l := range it.Legs {
			assert.Less(t, l.FromSeq, l.ToSeq)
		}
	}
}

func TestResultsSortedByDeparture(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(18, 0), 0}, [4]int{2, hm(19, 0), 0, 60})
	f.train(2, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(7, 0), 0, 60})
	f.train(3, 40, [4]int{1, 0, hm(12, 0), 0}, [4]int{2, hm(13, 0), 0, 60})

	got := f.search("A", "B")
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{got[0].TrainID, got[1].TrainID, got[2].TrainID})
}

func TestNeverReboardsSameTrain(t *testing.T) {
	f := newFixture(t)
	// the only connection at Bravo leads away from Delta
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(7, 0), hm(9, 0), 50}, [4]int{4, hm(12, 0), 0, 200})
	f.train(2, 40, [4]int{2, 0, hm(8, 30), 0}, [4]int{3, hm(9, 0), 0, 20})

	got := f.search("A", "D")
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDirect)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(8, 0), 0, 100})
	f.train(2, 2, [4]int{2, 0, hm(9, 30), 0}, [4]int{3, hm(11, 0), 0, 80})
	f.hold(2, 1, 1, 2)

	got := f.search("A", "C")
	require.Len(t, got, 1)
	assert.Equal(t, 40, got[0].Legs[0].AvailableSeats)
	assert.Equal(t, 1, got[0].Legs[1].AvailableSeats)
	assert.Equal(t, 1, got[0].AvailableSeats)
}

func TestFullTrainShowsZeroAvailability(t *testing.T) {
	f := newFixture(t)
	f.train(1, 40, [4]int{1, 0, hm(6, 0), 0}, [4]int{2, hm(8, 0), hm(8, 5), 100}, [4]int{3, hm(9, 0), 0, 150})
	for seat := 1; seat <= 40; seat++ {
		f.hold(1, seat, 1, 3)
	}

	got := f.search("B", "C")
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].AvailableSeats)
}

func TestSearchErrors(t *testing.T) {
	f := newFixture(t)
	e := NewEngine(f.store, fare.NewCalculator(2))
	ctx := context.Background()

	_, err := e.Search(ctx, models.SearchRequest{SourceStationCode: "A", DestStationCode: "ZZ", JourneyDate: day})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.Search(ctx, models.SearchRequest{SourceStationCode: "A", DestStationCode: "A", JourneyDate: day})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Search(ctx, models.SearchRequest{SourceStationCode: "A", DestStationCode: "B"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
