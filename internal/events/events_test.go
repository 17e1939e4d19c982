package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

func sampleBooking() (*models.Booking, []models.SeatInterval) {
	b := &models.Booking{
		ID:          uuid.New(),
		PNR:         "ABCDEFGHIJ",
		TrainID:     12,
		JourneyDate: models.MustDate("2024-08-15"),
		Status:      models.BookingStatusConfirmed,
		Fare:        640,
	}
	seats := []models.SeatInterval{
		{Coach: "S1", SeatNumber: 4, FromSeq: 1, ToSeq: 3},
		{Coach: "S1", SeatNumber: 5, FromSeq: 1, ToSeq: 3},
	}
	return b, seats
}

func TestForBooking(t *testing.T) {
	b, seats := sampleBooking()
	e := ForBooking(TypeBookingConfirmed, b, seats)

	assert.Equal(t, TypeBookingConfirmed, e.Type)
	assert.Equal(t, b.ID, e.BookingID)
	assert.Equal(t, int64(12), e.TrainID)
	assert.Equal(t, []SeatRef{{"S1", 4, 1, 3}, {"S1", 5, 1, 3}}, e.Seats)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestKafkaPublisher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Event
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != TypeBookingConfirmed || got.PNR != "ABCDEFGHIJ" {
			return errors.New("unexpected event body")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "booking-events")
	b, seats := sampleBooking()
	require.NoError(t, p.Publish(context.Background(), ForBooking(TypeBookingConfirmed, b, seats)))
	require.NoError(t, p.Close())
}

func TestKafkaPublisherError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "booking-events")
	err := p.Publish(context.Background(), ForSeats(TypeSeatsUnblocked, 3, models.MustDate("2024-08-15"), nil))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
