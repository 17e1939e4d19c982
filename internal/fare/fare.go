// Package fare prices train journeys by distance.
package fare

import (
	"math"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// DefaultPerKmRate is charged per kilometre on top of the train's base price.
const DefaultPerKmRate = 2.0

// Calculator prices one leg for one passenger.
type Calculator struct {
	PerKmRate float64
}

func NewCalculator(perKmRate float64) Calculator {
	if perKmRate <= 0 {
		perKmRate = DefaultPerKmRate
	}
	return Calculator{PerKmRate: perKmRate}
}

// Leg returns base price plus distance times the per-km rate, rounded to paise.
func (c Calculator) Leg(train models.Train, distanceKm int) float64 {
	return round2(train.BasePrice + float64(distanceKm)*c.PerKmRate)
}

// Between prices the stretch between two stops of the same train.
func (c Calculator) Between(train models.Train, from, to models.Stop) float64 {
	return c.Leg(train, to.DistanceKm-from.DistanceKm)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
