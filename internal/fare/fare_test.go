package fare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func TestCalculator(t *testing.T) {
	train := models.Train{ID: 1, BasePrice: 150}

	tests := []struct {
		name string
		rate float64
		km   int
		want float64
	}{
		{"default rate", 0, 100, 350},
		{"custom rate", 1.25, 100, 275},
		{"zero distance", 2, 0, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewCalculator(tt.rate).Leg(train, tt.km))
		})
	}
}

func TestBetween(t *testing.T) {
	c := NewCalculator(2)
	from := models.Stop{Sequence: 2, DistanceKm: 100}
	to := models.Stop{Sequence: 3, DistanceKm: 250}
	assert.Equal(t, 400.0, c.Between(models.Train{BasePrice: 100}, from, to))
}
