// Package schedule projects train stop rows into per-train routes ordered by
// stop sequence and resolves stations into sequence numbers.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Route is the ordered stop list of one train.
type Route struct {
	TrainID int64
	stops   []models.Stop
}

// NewRoute orders stops by sequence and checks that sequences are unique and
// distances never decrease along the route.
func NewRoute(trainID int64, stops []models.Stop) (*Route, error) {
	ordered := make([]models.Stop, len(stops))
	copy(ordered, stops)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	for i, s := range ordered {
		if s.TrainID != trainID {
			return nil, fmt.Errorf("%w: stop of train %d in route of train %d", ErrInvalidSchedule, s.TrainID, trainID)
		}
		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		if s.Sequence == prev.Sequence {
			return nil, fmt.Errorf("%w: train %d repeats sequence %d", ErrInvalidSchedule, trainID, s.Sequence)
		}
		if s.DistanceKm < prev.DistanceKm {
			return nil, fmt.Errorf("%w: train %d distance decreases at sequence %d", ErrInvalidSchedule, trainID, s.Sequence)
		}
	}

	return &Route{TrainID: trainID, stops: ordered}, nil
}

// Stops returns the stops ordered by sequence.
func (r *Route) Stops() []models.Stop {
	return r.stops
}

// StopAt returns the train's stop at a station.
func (r *Route) StopAt(stationID int64) (models.Stop, error) {
	for _, s := range r.stops {
		if s.StationID == stationID {
			return s, nil
		}
	}
	return models.Stop{}, fmt.Errorf("train %d does not call at station %d: %w", r.TrainID, stationID, store.ErrNotFound)
}

// First returns the origin stop.
func (r *Route) First() (models.Stop, bool) {
	if len(r.stops) == 0 {
		return models.Stop{}, false
	}
	return r.stops[0], true
}

// Last returns the terminating stop.
func (r *Route) Last() (models.Stop, bool) {
	if len(r.stops) == 0 {
		return models.Stop{}, false
	}
	return r.stops[len(r.stops)-1], true
}

// After returns the stops strictly later than sequence seq.
func (r *Route) After(seq int) []models.Stop {
	i := sort.Search(len(r.stops), func(i int) bool {
		return r.stops[i].Sequence > seq
	})
	return r.stops[i:]
}

// Between returns the stops with fromSeq <= sequence <= toSeq.
func (r *Route) Between(fromSeq, toSeq int) []models.Stop {
	var out []models.Stop
	for _, s := range r.stops {
		if s.Sequence >= fromSeq && s.Sequence <= toSeq {
			out = append(out, s)
		}
	}
	return out
}

// Index is a read-only snapshot of stations, trains and their routes.
type Index struct {
	stations  map[int64]models.Station
	byCode    map[string]int64
	trains    map[int64]models.Train
	routes    map[int64]*Route
	atStation map[int64][]models.Stop
}

// Source is what an Index is loaded from.
type Source interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	ListTrains(ctx context.Context) ([]models.Train, error)
	ListStops(ctx context.Context) ([]models.Stop, error)
}

// Load reads a fresh snapshot from src.
func Load(ctx context.Context, src Source) (*Index, error) {
	stations, err := src.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	trains, err := src.ListTrains(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trains: %w", err)
	}
	stops, err := src.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stops: %w", err)
	}
	return New(stations, trains, stops)
}

// New builds an index. Stops referring to unknown trains or stations are
// rejected.
func New(stations []models.Station, trains []models.Train, stops []models.Stop) (*Index, error) {
	x := &Index{
		stations:  make(map[int64]models.Station, len(stations)),
		byCode:    make(map[string]int64, len(stations)),
		trains:    make(map[int64]models.Train, len(trains)),
		routes:    make(map[int64]*Route, len(trains)),
		atStation: make(map[int64][]models.Stop),
	}
	for _, s := range stations {
		x.stations[s.ID] = s
		x.byCode[strings.ToUpper(s.Code)] = s.ID
	}
	for _, t := range trains {
		x.trains[t.ID] = t
	}

	perTrain := make(map[int64][]models.Stop)
	for _, s := range stops {
		if _, ok := x.trains[s.TrainID]; !ok {
			return nil, fmt.Errorf("%w: stop references unknown train %d", ErrInvalidSchedule, s.TrainID)
		}
		if _, ok := x.stations[s.StationID]; !ok {
			return nil, fmt.Errorf("%w: stop references unknown station %d", ErrInvalidSchedule, s.StationID)
		}
		perTrain[s.TrainID] = append(perTrain[s.TrainID], s)
	}

	for trainID := range x.trains {
		route, err := NewRoute(trainID, perTrain[trainID])
		if err != nil {
			return nil, err
		}
		x.routes[trainID] = route
		for _, s := range route.Stops() {
			x.atStation[s.StationID] = append(x.atStation[s.StationID], s)
		}
	}
	for id := range x.atStation {
		calls := x.atStation[id]
		sort.Slice(calls, func(i, j int) bool {
			if calls[i].TrainID != calls[j].TrainID {
				return calls[i].TrainID < calls[j].TrainID
			}
			return calls[i].Sequence < calls[j].Sequence
		})
	}

	return x, nil
}

// Route returns the route of a train.
func (x *Index) Route(trainID int64) (*Route, error) {
	r, ok := x.routes[trainID]
	if !ok {
		return nil, fmt.Errorf("train %d: %w", trainID, store.ErrNotFound)
	}
	return r, nil
}

// StopAt resolves a station on a train's route.
func (x *Index) StopAt(trainID, stationID int64) (models.Stop, error) {
	r, err := x.Route(trainID)
	if err != nil {
		return models.Stop{}, err
	}
	return r.StopAt(stationID)
}

// StopsAt returns every call at a station, ordered by train then sequence.
func (x *Index) StopsAt(stationID int64) []models.Stop {
	return x.atStation[stationID]
}

func (x *Index) Station(id int64) (models.Station, bool) {
	s, ok := x.stations[id]
	return s, ok
}

// StationByCode looks a station up by code, ignoring case.
func (x *Index) StationByCode(code string) (models.Station, bool) {
	id, ok := x.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return models.Station{}, false
	}
	return x.stations[id], true
}

func (x *Index) Train(id int64) (models.Train, bool) {
	t, ok := x.trains[id]
	return t, ok
}
