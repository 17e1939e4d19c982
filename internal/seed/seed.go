// Package seed loads a small demonstration network of stations, trains and
// users into an empty store.
package seed

import (
	"context"
	"fmt"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// Writer is implemented by both stores.
type Writer interface {
	PutStation(ctx context.Context, s models.Station) error
	PutTrain(ctx context.Context, t models.Train) error
	PutStops(ctx context.Context, stops ...models.Stop) error
	PutUser(ctx context.Context, u models.User) error
}

var Stations = []models.Station{
	{ID: 1, Code: "MAS", Name: "Chennai Central", City: "Chennai", Latitude: 13.0827, Longitude: 80.2757},
	{ID: 2, Code: "KPD", Name: "Katpadi Junction", City: "Vellore", Latitude: 12.9716, Longitude: 79.1378},
	{ID: 3, Code: "SBC", Name: "KSR Bengaluru", City: "Bengaluru", Latitude: 12.9784, Longitude: 77.5697},
	{ID: 4, Code: "MYS", Name: "Mysuru Junction", City: "Mysuru", Latitude: 12.3164, Longitude: 76.6458},
	{ID: 5, Code: "JTJ", Name: "Jolarpettai Junction", City: "Jolarpettai", Latitude: 12.5661, Longitude: 78.5753},
	{ID: 6, Code: "CBE", Name: "Coimbatore Junction", City: "Coimbatore", Latitude: 10.9976, Longitude: 76.9674},
}

var Trains = []models.Train{
	{ID: 12007, Number: "12007", Name: "Mysuru Shatabdi", SeatsPerCoach: 40, CoachCount: 4, BasePrice: 150},
	{ID: 12639, Number: "12639", Name: "Brindavan Express", SeatsPerCoach: 40, CoachCount: 6, BasePrice: 100},
	{ID: 12675, Number: "12675", Name: "Kovai Express", SeatsPerCoach: 40, CoachCount: 5, BasePrice: 120},
	{ID: 16231, Number: "16231", Name: "Mayiladuthurai Express", SeatsPerCoach: 40, CoachCount: 3, BasePrice: 80},
}

func stop(train, station int64, seq int, arr, dep string, km int) models.Stop {
	return models.Stop{
		TrainID:    train,
		StationID:  station,
		Sequence:   seq,
		Arrival:    mustClock(arr),
		Departure:  mustClock(dep),
		DistanceKm: km,
	}
}

func mustClock(s string) models.TimeOfDay {
	if s == "" {
		return 0
	}
	t, err := models.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

var Stops = []models.Stop{
	stop(12007, 1, 1, "", "06:00", 0),
	stop(12007, 2, 2, "07:23", "07:25", 129),
	stop(12007, 3, 3, "10:50", "11:00", 359),
	stop(12007, 4, 4, "13:00", "", 497),

	stop(12639, 1, 1, "", "07:50", 0),
	stop(12639, 2, 2, "09:33", "09:35", 129),
	stop(12639, 5, 3, "10:48", "10:50", 213),
	stop(12639, 3, 4, "13:55", "", 359),

	stop(12675, 1, 1, "", "06:15", 0),
	stop(12675, 2, 2, "07:53", "07:55", 129),
	stop(12675, 5, 3, "09:08", "09:10", 213),
	stop(12675, 6, 4, "14:00", "", 496),

	stop(16231, 3, 1, "", "15:30", 0),
	stop(16231, 4, 2, "18:30", "", 138),
}

var Users = []models.User{
	{ID: 1, FullName: "Demo Passenger", Email: "passenger@example.com"},
	{ID: 2, FullName: "Station Admin", Email: "admin@example.com"},
}

// Load writes the demonstration network.
func Load(ctx context.Context, w Writer) error {
	for _, s := range Stations {
		if err := w.PutStation(ctx, s); err != nil {
			return fmt.Errorf("failed to seed station %s: %w", s.Code, err)
		}
	}
	for _, t := range Trains {
		if err := w.PutTrain(ctx, t); err != nil {
			return fmt.Errorf("failed to seed train %s: %w", t.Number, err)
		}
	}
	if err := w.PutStops(ctx, Stops...); err != nil {
		return fmt.Errorf("failed to seed stops: %w", err)
	}
	for _, u := range Users {
		if err := w.PutUser(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %d: %w", u.ID, err)
		}
	}
	return nil
}
