package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

var day = models.MustDate("2024-10-02")

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, 7, day)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesWatchers(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.GetClientCount(7, day) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastSeatsBooked(&models.Booking{
		TrainID:     7,
		JourneyDate: day,
		PNR:         "PNR0000001",
		Status:      models.BookingStatusConfirmed,
		Seats:       []models.SeatInterval{{Coach: "S1", SeatNumber: 3, FromSeq: 1, ToSeq: 2}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeSeatsBooked, msg.Type)
	assert.Equal(t, int64(7), msg.TrainID)
	require.Len(t, msg.Seats, 1)
	assert.Equal(t, models.SeatStatusBooked, msg.Seats[0].Status)
}

func TestBlockedBookingsBroadcastAsBlocked(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetClientCount(7, day) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastSeatsBooked(&models.Booking{
		TrainID: 7, JourneyDate: day, Status: models.BookingStatusAdminBlock,
		Seats: []models.SeatInterval{{Coach: "S1", SeatNumber: 1, FromSeq: 1, ToSeq: 3}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeSeatsBlocked, msg.Type)
	assert.Equal(t, models.SeatStatusBlocked, msg.Seats[0].Status)
}

func TestClientUnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetClientCount(7, day) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount(7, day) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.GetClientCount(8, day))
}

func TestReleasedWithoutSeatsIsSilent(t *testing.T) {
	hub := NewHub()
	hub.BroadcastSeatsReleased(7, day, nil)
	assert.Len(t, hub.broadcast, 0)

	hub.BroadcastSeatsReleased(7, day, []models.SeatInterval{{Coach: "S1", SeatNumber: 2}})
	assert.Len(t, hub.broadcast, 1)
}
