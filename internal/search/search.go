// Package search finds direct and connecting train itineraries between two
// stations. It reads a snapshot of the schedule and seat intervals and never
// takes a train lock, so the availability it reports can be stale by the time
// a booking is attempted.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/occupancy"
	"github.com/thilaks-prosperr/train-booking-system/internal/schedule"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

const (
	DefaultMaxLegs    = 3
	DefaultMinLayover = 60 * time.Minute
)

var ErrInvalidRequest = errors.New("invalid search request")

// Engine runs itinerary searches.
type Engine struct {
	store      store.Reader
	fares      fare.Calculator
	maxLegs    int
	minLayover time.Duration
}

func NewEngine(r store.Reader, fares fare.Calculator) *Engine {
	return &Engine{
		store:      r,
		fares:      fares,
		maxLegs:    DefaultMaxLegs,
		minLayover: DefaultMinLayover,
	}
}

// hop is one train ridden from one stop to a later one.
type hop struct {
	train models.Train
	from  models.Stop
	to    models.Stop
}

// Search returns every itinerary of one to three legs from source to
// destination, ordered by departure time.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) ([]models.Itinerary, error) {
	if req.JourneyDate.IsZero() {
		return nil, fmt.Errorf("%w: journey date is required", ErrInvalidRequest)
	}

	idx, err := schedule.Load(ctx, e.store)
	if err != nil {
		return nil, err
	}
	src, ok := idx.StationByCode(req.SourceStationCode)
	if !ok {
		return nil, fmt.Errorf("station %q: %w", req.SourceStationCode, store.ErrNotFound)
	}
	dst, ok := idx.StationByCode(req.DestStationCode)
	if !ok {
		return nil, fmt.Errorf("station %q: %w", req.DestStationCode, store.ErrNotFound)
	}
	if src.ID == dst.ID {
		return nil, fmt.Errorf("%w: source and destination are the same station", ErrInvalidRequest)
	}

	var journeys [][]hop
	for _, board := range idx.StopsAt(src.ID) {
		e.walk(idx, dst.ID, board, nil, map[int64]bool{src.ID: true}, func(path []hop) {
			journeys = append(journeys, path)
		})
	}

	seats := &seatCache{reader: e.store, date: req.JourneyDate, byTrain: make(map[int64][]models.SeatInterval)}
	out := make([]models.Itinerary, 0, len(journeys))
	for _, path := range journeys {
		it, err := e.itinerary(ctx, idx, seats, src, dst, path)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DepartureTime < out[j].DepartureTime
	})
	return out, nil
}

// walk rides the train of board to every later stop. Reaching dest emits the
// path; any other stop may become a junction onto a train not yet used.
func (e *Engine) walk(idx *schedule.Index, dest int64, board models.Stop, path []hop, visited map[int64]bool, emit func([]hop)) {
	route, err := idx.Route(board.TrainID)
	if err != nil {
		return
	}
	train, _ := idx.Train(board.TrainID)

	for _, alight := range route.After(board.Sequence) {
		next := append(path[:len(path):len(path)], hop{train: train, from: board, to: alight})
		if alight.StationID == dest {
			emit(next)
			continue
		}
		if len(next) >= e.maxLegs || visited[alight.StationID] {
			continue
		}

		visited[alight.StationID] = true
		for _, conn := range idx.StopsAt(alight.StationID) {
			if ridden(next, conn.TrainID) || !e.feasible(alight.Arrival, conn.Departure) {
				continue
			}
			e.walk(idx, dest, conn, next, visited, emit)
		}
		delete(visited, alight.StationID)
	}
}

func ridden(path []hop, trainID int64) bool {
	for _, h := range path {
		if h.train.ID == trainID {
			return true
		}
	}
	return false
}

// feasible reports whether a connection departing at dep can be made from an
// arrival at arr on the same day.
func (e *Engine) feasible(arr, dep models.TimeOfDay) bool {
	if dep < arr {
		return false
	}
	return dep.Duration()-arr.Duration() >= e.minLayover
}

type seatCache struct {
	reader  store.Reader
	date    models.Date
	byTrain map[int64][]models.SeatInterval
}

func (c *seatCache) intervals(ctx context.Context, trainID int64) ([]models.SeatInterval, error) {
	if s, ok := c.byTrain[trainID]; ok {
		return s, nil
	}
	s, err := c.reader.ListSeatIntervals(ctx, store.IntervalQuery{TrainID: trainID, Date: c.date})
	if err != nil {
		return nil, fmt.Errorf("failed to load seat intervals of train %d: %w", trainID, err)
	}
	c.byTrain[trainID] = s
	return s, nil
}

func (e *Engine) itinerary(ctx context.Context, idx *schedule.Index, seats *seatCache, src, dst models.Station, path []hop) (models.Itinerary, error) {
	first, last := path[0], path[len(path)-1]
	it := models.Itinerary{
		DepartureTime:   first.from.Departure,
		ArrivalTime:     last.to.Arrival,
		IsDirect:        len(path) == 1,
		TrainID:         first.train.ID,
		SourceStationID: src.ID,
		DestStationID:   dst.ID,
		AvailableSeats:  -1,
	}

	var (
		names, numbers []string
		total          time.Duration
	)
	for i, h := range path {
		held, err := seats.intervals(ctx, h.train.ID)
		if err != nil {
			return models.Itinerary{}, err
		}
		window := occupancy.Interval{From: h.from.Sequence, To: h.to.Sequence}
		free := occupancy.Available(h.train.Capacity(), held, window)
		price := e.fares.Between(h.train, h.from, h.to)

		from, _ := idx.Station(h.from.StationID)
		to, _ := idx.Station(h.to.StationID)
		desc := "Destination"
		if i < len(path)-1 {
			desc = "Layover at " + to.Name
			it.LayoverStations = append(it.LayoverStations, to.Name)
			total += h.to.Arrival.Until(path[i+1].from.Departure)
		}
		total += h.from.Departure.Until(h.to.Arrival)

		it.Legs = append(it.Legs, models.Leg{
			TrainID:         h.train.ID,
			TrainName:       h.train.Name,
			TrainNumber:     h.train.Number,
			SourceStationID: from.ID,
			DestStationID:   to.ID,
			SourceCode:      from.Code,
			DestCode:        to.Code,
			DepartureTime:   h.from.Departure,
			ArrivalTime:     h.to.Arrival,
			FromSeq:         h.from.Sequence,
			ToSeq:           h.to.Sequence,
			DistanceKm:      h.to.DistanceKm - h.from.DistanceKm,
			Price:           price,
			AvailableSeats:  free,
			Description:     desc,
		})
		it.Price += price
		if it.AvailableSeats < 0 || free < it.AvailableSeats {
			it.AvailableSeats = free
		}
		names = append(names, h.train.Name)
		numbers = append(numbers, h.train.Number)

		route, err := idx.Route(h.train.ID)
		if err != nil {
			return models.Itinerary{}, err
		}
		for j, s := range route.Between(h.from.Sequence, h.to.Sequence) {
			if i > 0 && j == 0 {
				continue
			}
			st, _ := idx.Station(s.StationID)
			it.Path = append(it.Path, models.PathPoint{
				StationCode: st.Code,
				StationName: st.Name,
				Latitude:    st.Latitude,
				Longitude:   st.Longitude,
			})
		}
	}

	it.TrainName = strings.Join(names, " + ")
	it.TrainNumber = strings.Join(numbers, " + ")
	if len(it.LayoverStations) > 0 {
		it.LayoverStation = it.LayoverStations[0]
	}
	it.DurationMinutes = int(total.Minutes())
	it.DurationText = models.FormatDuration(total)
	return it, nil
}
