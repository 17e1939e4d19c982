// Package seatmap projects seat intervals onto a coach's seat grid.
package seatmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/thilaks-prosperr/train-booking-system/internal/occupancy"
	"github.com/thilaks-prosperr/train-booking-system/internal/schedule"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

const (
	SeatsPerRow = 4
	DefaultRows = 10
)

var ErrInvalidRequest = errors.New("invalid seat map request")

var columns = [SeatsPerRow]byte{'A', 'B', 'C', 'D'}

// Projector renders seat maps from snapshot reads.
type Projector struct {
	store store.Reader
}

func NewProjector(r store.Reader) *Projector {
	return &Projector{store: r}
}

// Project renders the coach for the stretch [StartSeq, EndSeq). Zero bounds
// select the train's whole route.
func (p *Projector) Project(ctx context.Context, req models.SeatMapRequest) (*models.SeatMap, error) {
	if req.CoachType == "" {
		return nil, fmt.Errorf("%w: coach is required", ErrInvalidRequest)
	}
	train, err := p.store.GetTrain(ctx, req.TrainID)
	if err != nil {
		return nil, fmt.Errorf("train %d: %w", req.TrainID, err)
	}

	if req.StartSeq == 0 && req.EndSeq == 0 {
		stops, err := p.store.ListTrainStops(ctx, req.TrainID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stops of train %d: %w", req.TrainID, err)
		}
		route, err := schedule.NewRoute(req.TrainID, stops)
		if err != nil {
			return nil, err
		}
		first, _ := route.First()
		last, _ := route.Last()
		req.StartSeq, req.EndSeq = first.Sequence, last.Sequence
	}
	window := occupancy.Interval{From: req.StartSeq, To: req.EndSeq}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: start %d must be before end %d", ErrInvalidRequest, req.StartSeq, req.EndSeq)
	}

	intervals, err := p.store.ListSeatIntervals(ctx, store.IntervalQuery{
		TrainID: req.TrainID,
		Date:    req.JourneyDate,
		Coach:   req.CoachType,
		FromSeq: window.From,
		ToSeq:   window.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load seat intervals: %w", err)
	}

	return &models.SeatMap{
		TrainID:     req.TrainID,
		JourneyDate: req.JourneyDate,
		CoachType:   req.CoachType,
		StartSeq:    window.From,
		EndSeq:      window.To,
		Rows:        Build(train.SeatsPerCoach, intervals, window),
	}, nil
}

// Build lays seats out SeatsPerRow to a row. A seat is blocked when any
// overlapping interval belongs to an administrative block, booked when any
// other active interval overlaps, and available otherwise.
func Build(seatsPerCoach int, intervals []models.SeatInterval, window occupancy.Interval) []models.SeatRow {
	seats := seatsPerCoach
	if seats <= 0 {
		seats = DefaultRows * SeatsPerRow
	}

	status := make(map[int]models.SeatStatus)
	for _, si := range intervals {
		if si.BookingStatus != "" && !si.BookingStatus.IsActive() {
			continue
		}
		if !occupancy.Overlaps(occupancy.Of(si), window) {
			continue
		}
		if si.BookingStatus.IsBlocked() {
			status[si.SeatNumber] = models.SeatStatusBlocked
		} else if status[si.SeatNumber] != models.SeatStatusBlocked {
			status[si.SeatNumber] = models.SeatStatusBooked
		}
	}

	rows := make([]models.SeatRow, 0, (seats+SeatsPerRow-1)/SeatsPerRow)
	for n := 1; n <= seats; n++ {
		idx := (n - 1) / SeatsPerRow
		if idx == len(rows) {
			rows = append(rows, models.SeatRow{Row: idx + 1})
		}
		st, ok := status[n]
		if !ok {
			st = models.SeatStatusAvailable
		}
		rows[idx].Seats = append(rows[idx].Seats, models.Seat{
			SeatNumber: n,
			Label:      fmt.Sprintf("%d%c", idx+1, columns[(n-1)%SeatsPerRow]),
			Status:     st,
		})
	}
	return rows
}
