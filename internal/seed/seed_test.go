package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/internal/fare"
	"github.com/thilaks-prosperr/train-booking-system/internal/kvstore"
	"github.com/thilaks-prosperr/train-booking-system/internal/schedule"
	"github.com/thilaks-prosperr/train-booking-system/internal/search"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func TestLoadBuildsValidSchedule(t *testing.T) {
	s, err := kvstore.Open("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, Load(ctx, s))

	_, err = schedule.Load(ctx, s)
	require.NoError(t, err)

	// Chennai to Mysuru: the direct Shatabdi plus a change at Bengaluru
	got, err := search.NewEngine(s, fare.NewCalculator(fare.DefaultPerKmRate)).Search(ctx, models.SearchRequest{
		SourceStationCode: "MAS", DestStationCode: "MYS", JourneyDate: models.MustDate("2025-01-15"),
	})
	require.NoError(t, err)

	var direct, connecting int
	for _, it := range got {
		if it.IsDirect {
			direct++
		} else {
			connecting++
		}
	}
	assert.Equal(t, 1, direct)
	assert.GreaterOrEqual(t, connecting, 1)
}
