package database

import (
	"context"
	"fmt"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// PutStation creates or replaces a station.
func (r *Repository) PutStation(ctx context.Context, s models.Station) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stations (id, code, name, city, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET code = EXCLUDED.code, name = EXCLUDED.name, city = EXCLUDED.city,
		    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
	`, s.ID, s.Code, s.Name, s.City, s.Latitude, s.Longitude)
	if err != nil {
		return fmt.Errorf("failed to save station: %w", err)
	}
	return nil
}

// PutTrain creates or replaces a train.
func (r *Repository) PutTrain(ctx context.Context, t models.Train) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trains (id, train_number, name, seats_per_coach, coach_count, base_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET train_number = EXCLUDED.train_number, name = EXCLUDED.name,
		    seats_per_coach = EXCLUDED.seats_per_coach, coach_count = EXCLUDED.coach_count,
		    base_price = EXCLUDED.base_price
	`, t.ID, t.Number, t.Name, t.SeatsPerCoach, t.CoachCount, t.BasePrice)
	if err != nil {
		return fmt.Errorf("failed to save train: %w", err)
	}
	return nil
}

// PutStops creates or replaces schedule entries in one transaction.
func (r *Repository) PutStops(ctx context.Context, stops ...models.Stop) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range stops {
		_, err := tx.Exec(ctx, `
			INSERT INTO train_stops (train_id, station_id, stop_sequence, arrival_minute, departure_minute, distance_km)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (train_id, stop_sequence) DO UPDATE
			SET station_id = EXCLUDED.station_id, arrival_minute = EXCLUDED.arrival_minute,
			    departure_minute = EXCLUDED.departure_minute, distance_km = EXCLUDED.distance_km
		`, s.TrainID, s.StationID, s.Sequence, int(s.Arrival), int(s.Departure), s.DistanceKm)
		if err != nil {
			return fmt.Errorf("failed to save stop %d of train %d: %w", s.Sequence, s.TrainID, err)
		}
	}
	return tx.Commit(ctx)
}

// PutUser creates or replaces a user.
func (r *Repository) PutUser(ctx context.Context, u models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, full_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email
	`, u.ID, u.FullName, u.Email)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
