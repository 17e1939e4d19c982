// Package database is the PostgreSQL implementation of the booking store.
// The train lock is a row lock taken with SELECT ... FOR UPDATE.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

//go:embed schema.sql
var schema string

// Repository handles all database operations
type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool and checks it with a ping.
func Connect(ctx context.Context, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewRepository(pool), nil
}

// Migrate creates missing tables and indexes.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// --- Reference data ---

func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `SELECT id, full_name, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FullName, &u.Email)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

const stationColumns = `id, code, name, city, latitude, longitude`

func scanStation(row pgx.Row) (models.Station, error) {
	var s models.Station
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.City, &s.Latitude, &s.Longitude)
	return s, err
}

func (r *Repository) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	s, err := scanStation(r.pool.QueryRow(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "station")
	}
	return &s, nil
}

func (r *Repository) GetStationByCode(ctx context.Context, code string) (*models.Station, error) {
	s, err := scanStation(r.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE UPPER(code) = UPPER($1)`, strings.TrimSpace(code)))
	if err != nil {
		return nil, notFound(err, "station")
	}
	return &s, nil
}

func (r *Repository) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

const trainColumns = `id, train_number, name, seats_per_coach, coach_count, base_price`

func scanTrain(row pgx.Row) (models.Train, error) {
	var t models.Train
	err := row.Scan(&t.ID, &t.Number, &t.Name, &t.SeatsPerCoach, &t.CoachCount, &t.BasePrice)
	return t, err
}

func (r *Repository) GetTrain(ctx context.Context, id int64) (*models.Train, error) {
	t, err := scanTrain(r.pool.QueryRow(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "train")
	}
	return &t, nil
}

func (r *Repository) ListTrains(ctx context.Context) ([]models.Train, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	var trains []models.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan train: %w", err)
		}
		trains = append(trains, t)
	}
	return trains, rows.Err()
}

func (r *Repository) listStops(ctx context.Context, where string, args ...any) ([]models.Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT train_id, station_id, stop_sequence, arrival_minute, departure_minute, distance_km
		FROM train_stops `+where+`
		ORDER BY train_id, stop_sequence
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var (
			s        models.Stop
			arr, dep int
		)
		if err := rows.Scan(&s.TrainID, &s.StationID, &s.Sequence, &arr, &dep, &s.DistanceKm); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		s.Arrival, s.Departure = models.TimeOfDay(arr), models.TimeOfDay(dep)
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (r *Repository) ListStops(ctx context.Context) ([]models.Stop, error) {
	return r.listStops(ctx, "")
}

func (r *Repository) ListTrainStops(ctx context.Context, trainID int64) ([]models.Stop, error) {
	return r.listStops(ctx, "WHERE train_id = $1", trainID)
}

// --- Seat intervals ---

const intervalColumns = `si.id, si.booking_id, si.train_id, si.journey_date, si.coach, si.seat_number, si.from_seq, si.to_seq, b.status`

func scanInterval(row pgx.Row) (models.SeatInterval, error) {
	var (
		si     models.SeatInterval
		date   time.Time
		status string
	)
	err := row.Scan(&si.ID, &si.BookingID, &si.TrainID, &date, &si.Coach, &si.SeatNumber, &si.FromSeq, &si.ToSeq, &status)
	si.Date = models.NewDate(date)
	si.BookingStatus = models.BookingStatus(status)
	return si, err
}

func collectIntervals(rows pgx.Rows) ([]models.SeatInterval, error) {
	defer rows.Close()
	var out []models.SeatInterval
	for rows.Next() {
		si, err := scanInterval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat interval: %w", err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// intervalFilter renders q as a WHERE clause over si (seat_intervals) and
// b (bookings), restricted to bookings in one of statuses.
func intervalFilter(q store.IntervalQuery, statuses []models.BookingStatus) (string, []any) {
	args := []any{q.TrainID, q.Date.Time, statusStrings(statuses)}
	conds := []string{"si.train_id = $1", "si.journey_date = $2", "b.status = ANY($3)"}

	if q.Coach != "" {
		args = append(args, q.Coach)
		conds = append(conds, fmt.Sprintf("si.coach = $%d", len(args)))
	}
	if q.SeatNumbers != nil {
		args = append(args, q.SeatNumbers)
		conds = append(conds, fmt.Sprintf("si.seat_number = ANY($%d)", len(args)))
	}
	if q.HasWindow() {
		args = append(args, q.ToSeq, q.FromSeq)
		conds = append(conds, fmt.Sprintf("si.from_seq < $%d AND si.to_seq > $%d", len(args)-1, len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func listIntervals(ctx context.Context, db querier, q store.IntervalQuery) ([]models.SeatInterval, error) {
	where, args := intervalFilter(q, models.ActiveStatuses)
	rows, err := db.Query(ctx, `
		SELECT `+intervalColumns+`
		FROM seat_intervals si
		JOIN bookings b ON b.id = si.booking_id
		WHERE `+where+`
		ORDER BY si.coach, si.seat_number, si.from_seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seat intervals: %w", err)
	}
	return collectIntervals(rows)
}

func (r *Repository) ListSeatIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	return listIntervals(ctx, r.pool, q)
}

// --- Bookings ---

const bookingColumns = `id, pnr, user_id, train_id, journey_date, source_station_id, dest_station_id, status, fare, created_at, updated_at`

func scanBooking(row pgx.Row) (models.Booking, error) {
	var (
		b      models.Booking
		date   time.Time
		status string
	)
	err := row.Scan(&b.ID, &b.PNR, &b.UserID, &b.TrainID, &date, &b.SourceStation, &b.DestStation,
		&status, &b.Fare, &b.CreatedAt, &b.UpdatedAt)
	b.JourneyDate = models.NewDate(date)
	b.Status = models.BookingStatus(status)
	return b, err
}

func (r *Repository) bookingSeats(ctx context.Context, b *models.Booking) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+intervalColumns+`
		FROM seat_intervals si
		JOIN bookings b ON b.id = si.booking_id
		WHERE si.booking_id = $1
		ORDER BY si.coach, si.seat_number
	`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query booking seats: %w", err)
	}
	b.Seats, err = collectIntervals(rows)
	return err
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	if err := r.bookingSeats(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}

	for i := range bookings {
		if err := r.bookingSeats(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// --- Locked transactions ---

// WithTrainLock locks the train row for the life of one transaction.
func (r *Repository) WithTrainLock(ctx context.Context, trainID int64, fn func(tx store.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM trains WHERE id = $1 FOR UPDATE`, trainID).Scan(&id); err != nil {
		return notFound(err, "train lock")
	}

	if err := fn(&lockedTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type lockedTx struct {
	tx pgx.Tx
}

func (t *lockedTx) ListSeatIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	return listIntervals(ctx, t.tx, q)
}

func (t *lockedTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings (id, pnr, user_id, train_id, journey_date, source_station_id, dest_station_id, status, fare)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, b.ID, b.PNR, b.UserID, b.TrainID, b.JourneyDate.Time, b.SourceStation, b.DestStation, string(b.Status), b.Fare).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (t *lockedTx) InsertSeatInterval(ctx context.Context, si *models.SeatInterval) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO seat_intervals (id, booking_id, train_id, journey_date, coach, seat_number, from_seq, to_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, si.ID, si.BookingID, si.TrainID, si.Date.Time, si.Coach, si.SeatNumber, si.FromSeq, si.ToSeq)
	if err != nil {
		return fmt.Errorf("failed to create seat interval: %w", err)
	}
	return nil
}

// --- Releases ---

func (r *Repository) ReleaseBooking(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) (*models.Booking, []models.SeatInterval, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
	if err != nil {
		return nil, nil, notFound(err, "booking")
	}

	rows, err := tx.Query(ctx, `
		DELETE FROM seat_intervals si
		USING bookings b
		WHERE b.id = si.booking_id AND si.booking_id = $1
		RETURNING `+intervalColumns, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to release seats: %w", err)
	}
	freed, err := collectIntervals(rows)
	if err != nil {
		return nil, nil, err
	}

	if next := store.NextStatus(b.Status, status); next != b.Status {
		err = tx.QueryRow(ctx, `
			UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at
		`, string(next), bookingID).Scan(&b.UpdatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update booking status: %w", err)
		}
		b.Status = next
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &b, freed, nil
}

func (r *Repository) DeleteBlockedIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	where, args := intervalFilter(q, []models.BookingStatus{models.BookingStatusBlocked, models.BookingStatusAdminBlock})
	rows, err := r.pool.Query(ctx, `
		DELETE FROM seat_intervals si
		USING bookings b
		WHERE b.id = si.booking_id AND `+where+`
		RETURNING `+intervalColumns, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to unblock seats: %w", err)
	}
	return collectIntervals(rows)
}
