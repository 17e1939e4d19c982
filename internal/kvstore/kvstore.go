// Package kvstore implements the booking store on an embedded badger
// database. Train locks are process-local mutexes, so one process must own
// the database directory.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

const maxConflictRetries = 5

// Store is a store.Store backed by badger.
type Store struct {
	db    *badger.DB
	locks sync.Map // train id -> *sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open opens the database in dir, or an in-memory database when dir is empty.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- keys ---

func stationKey(id int64) []byte { return []byte(fmt.Sprintf("station/%020d", id)) }
func stationCodeKey(code string) []byte {
	return []byte("stationcode/" + strings.ToUpper(strings.TrimSpace(code)))
}
func trainKey(id int64) []byte        { return []byte(fmt.Sprintf("train/%020d", id)) }
func stopPrefix(trainID int64) []byte { return []byte(fmt.Sprintf("stop/%020d/", trainID)) }
func stopKey(trainID int64, seq int) []byte {
	return []byte(fmt.Sprintf("stop/%020d/%010d", trainID, seq))
}
func userKey(id int64) []byte               { return []byte(fmt.Sprintf("user/%020d", id)) }
func bookingKey(id uuid.UUID) []byte        { return []byte("booking/" + id.String()) }
func userBookingPrefix(userID int64) []byte { return []byte(fmt.Sprintf("userbooking/%020d/", userID)) }
func userBookingKey(userID int64, id uuid.UUID) []byte {
	return append(userBookingPrefix(userID), id.String()...)
}
func bookingIntervalPrefix(id uuid.UUID) []byte {
	return []byte("bookinginterval/" + id.String() + "/")
}
func bookingIntervalKey(bookingID, intervalID uuid.UUID) []byte {
	return append(bookingIntervalPrefix(bookingID), intervalID.String()...)
}

func intervalPrefix(trainID int64, date models.Date, coach string) []byte {
	p := fmt.Sprintf("interval/%020d/%s/", trainID, date)
	if coach != "" {
		p += url.PathEscape(coach) + "/"
	}
	return []byte(p)
}

func intervalKey(si *models.SeatInterval) []byte {
	return []byte(fmt.Sprintf("interval/%020d/%s/%s/%06d/%s",
		si.TrainID, si.Date, url.PathEscape(si.Coach), si.SeatNumber, si.ID))
}

// --- txn helpers ---

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return txn.Set(key, b)
}

// scan copies every key/value under prefix. The iterator is closed before
// returning so callers may read or write freely afterwards.
func scan(txn *badger.Txn, prefix []byte) (keys [][]byte, vals [][]byte, err error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", item.Key(), err)
		}
		keys = append(keys, item.KeyCopy(nil))
		vals = append(vals, v)
	}
	return keys, vals, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// commit invalidated what fn read.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("failed to commit after %d attempts: %w", maxConflictRetries, err)
}

// --- reference data writes (administrative collaborator) ---

// PutStation creates or replaces a station.
func (s *Store) PutStation(ctx context.Context, st models.Station) error {
	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, stationKey(st.ID), st); err != nil {
			return err
		}
		return txn.Set(stationCodeKey(st.Code), []byte(strconv.FormatInt(st.ID, 10)))
	})
}

// PutTrain creates or replaces a train.
func (s *Store) PutTrain(ctx context.Context, t models.Train) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, trainKey(t.ID), t)
	})
}

// PutStops creates or replaces schedule entries.
func (s *Store) PutStops(ctx context.Context, stops ...models.Stop) error {
	return s.update(func(txn *badger.Txn) error {
		for _, st := range stops {
			if err := setJSON(txn, stopKey(st.TrainID, st.Sequence), st); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutUser creates or replaces a user.
func (s *Store) PutUser(ctx context.Context, u models.User) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, userKey(u.ID), u)
	})
}

// --- store.Reader ---

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	var st models.Station
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, stationKey(id), &st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetStationByCode(ctx context.Context, code string) (*models.Station, error) {
	var st models.Station
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stationCodeKey(code))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt station code index for %s: %w", code, err)
		}
		return getJSON(txn, stationKey(id), &st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetTrain(ctx context.Context, id int64) (*models.Train, error) {
	var t models.Train
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, trainKey(id), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func listAll[T any](db *badger.DB, prefix []byte) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		_, vals, err := scan(txn, prefix)
		if err != nil {
			return err
		}
		for _, v := range vals {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to decode %s entry: %w", prefix, err)
			}
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	return listAll[models.Station](s.db, []byte("station/"))
}

func (s *Store) ListTrains(ctx context.Context) ([]models.Train, error) {
	return listAll[models.Train](s.db, []byte("train/"))
}

func (s *Store) ListStops(ctx context.Context) ([]models.Stop, error) {
	return listAll[models.Stop](s.db, []byte("stop/"))
}

func (s *Store) ListTrainStops(ctx context.Context, trainID int64) ([]models.Stop, error) {
	return listAll[models.Stop](s.db, stopPrefix(trainID))
}

func (s *Store) ListSeatIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	var out []models.SeatInterval
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = listIntervals(txn, q)
		return err
	})
	return out, err
}

// listIntervals returns the intervals matching q whose booking is active,
// with the booking status filled in.
func listIntervals(txn *badger.Txn, q store.IntervalQuery) ([]models.SeatInterval, error) {
	_, vals, err := scan(txn, intervalPrefix(q.TrainID, q.Date, q.Coach))
	if err != nil {
		return nil, err
	}

	statuses := make(map[uuid.UUID]models.BookingStatus)
	var out []models.SeatInterval
	for _, v := range vals {
		var si models.SeatInterval
		if err := json.Unmarshal(v, &si); err != nil {
			return nil, fmt.Errorf("failed to decode seat interval: %w", err)
		}
		if !q.Matches(si) {
			continue
		}
		status, ok := statuses[si.BookingID]
		if !ok {
			var b models.Booking
			if err := getJSON(txn, bookingKey(si.BookingID), &b); err != nil {
				return nil, fmt.Errorf("failed to load booking %s: %w", si.BookingID, err)
			}
			status = b.Status
			statuses[si.BookingID] = status
		}
		if !status.IsActive() {
			continue
		}
		si.BookingStatus = status
		out = append(out, si)
	}
	return out, nil
}

func loadBookingSeats(txn *badger.Txn, b *models.Booking) error {
	_, vals, err := scan(txn, bookingIntervalPrefix(b.ID))
	if err != nil {
		return err
	}
	b.Seats = nil
	for _, key := range vals {
		var si models.SeatInterval
		if err := getJSON(txn, key, &si); err != nil {
			return fmt.Errorf("failed to load seat of booking %s: %w", b.ID, err)
		}
		si.BookingStatus = b.Status
		b.Seats = append(b.Seats, si)
	}
	sort.Slice(b.Seats, func(i, j int) bool {
		if b.Seats[i].Coach != b.Seats[j].Coach {
			return b.Seats[i].Coach < b.Seats[j].Coach
		}
		return b.Seats[i].SeatNumber < b.Seats[j].SeatNumber
	})
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, bookingKey(id), &b); err != nil {
			return err
		}
		return loadBookingSeats(txn, &b)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := userBookingPrefix(userID)
		keys, _, err := scan(txn, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			id, err := uuid.Parse(string(k[len(prefix):]))
			if err != nil {
				return fmt.Errorf("corrupt user booking index %s: %w", k, err)
			}
			var b models.Booking
			if err := getJSON(txn, bookingKey(id), &b); err != nil {
				return err
			}
			if err := loadBookingSeats(txn, &b); err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- store.Store ---

func (s *Store) trainMutex(trainID int64) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(trainID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (s *Store) WithTrainLock(ctx context.Context, trainID int64, fn func(tx store.Tx) error) error {
	mu := s.trainMutex(trainID)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		var t models.Train
		if err := getJSON(txn, trainKey(trainID), &t); err != nil {
			return err
		}
		return fn(&lockedTx{txn: txn})
	})
}

type lockedTx struct {
	txn *badger.Txn
}

func (t *lockedTx) ListSeatIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	return listIntervals(t.txn, q)
}

func (t *lockedTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	stored := *b
	stored.Seats = nil
	if err := setJSON(t.txn, bookingKey(b.ID), stored); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	if b.UserID != nil {
		if err := t.txn.Set(userBookingKey(*b.UserID, b.ID), nil); err != nil {
			return fmt.Errorf("failed to index booking: %w", err)
		}
	}
	return nil
}

func (t *lockedTx) InsertSeatInterval(ctx context.Context, si *models.SeatInterval) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	stored := *si
	stored.BookingStatus = ""
	key := intervalKey(si)
	if err := setJSON(t.txn, key, stored); err != nil {
		return fmt.Errorf("failed to insert seat interval: %w", err)
	}
	if err := t.txn.Set(bookingIntervalKey(si.BookingID, si.ID), key); err != nil {
		return fmt.Errorf("failed to index seat interval: %w", err)
	}
	return nil
}

func (s *Store) ReleaseBooking(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) (*models.Booking, []models.SeatInterval, error) {
	var (
		booking models.Booking
		deleted []models.SeatInterval
	)
	err := s.update(func(txn *badger.Txn) error {
		deleted = nil
		if err := getJSON(txn, bookingKey(bookingID), &booking); err != nil {
			return err
		}

		indexKeys, intervalKeys, err := scan(txn, bookingIntervalPrefix(bookingID))
		if err != nil {
			return err
		}
		for i, key := range intervalKeys {
			var si models.SeatInterval
			if err := getJSON(txn, key, &si); err != nil {
				return fmt.Errorf("failed to load seat interval: %w", err)
			}
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete seat interval: %w", err)
			}
			if err := txn.Delete(indexKeys[i]); err != nil {
				return fmt.Errorf("failed to delete seat index: %w", err)
			}
			deleted = append(deleted, si)
		}

		next := store.NextStatus(booking.Status, status)
		if next != booking.Status {
			booking.Status = next
			booking.UpdatedAt = time.Now().UTC()
			if err := setJSON(txn, bookingKey(bookingID), booking); err != nil {
				return fmt.Errorf("failed to update booking status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &booking, deleted, nil
}

func (s *Store) DeleteBlockedIntervals(ctx context.Context, q store.IntervalQuery) ([]models.SeatInterval, error) {
	var deleted []models.SeatInterval
	err := s.update(func(txn *badger.Txn) error {
		deleted = nil
		intervals, err := listIntervals(txn, q)
		if err != nil {
			return err
		}
		for _, si := range intervals {
			if !si.BookingStatus.IsBlocked() {
				continue
			}
			if err := txn.Delete(intervalKey(&si)); err != nil {
				return fmt.Errorf("failed to delete blocked seat: %w", err)
			}
			if err := txn.Delete(bookingIntervalKey(si.BookingID, si.ID)); err != nil {
				return fmt.Errorf("failed to delete blocked seat index: %w", err)
			}
			deleted = append(deleted, si)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
