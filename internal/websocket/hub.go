package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSeatsBooked   MessageType = "seats_booked"
	MessageTypeSeatsBlocked  MessageType = "seats_blocked"
	MessageTypeSeatsReleased MessageType = "seats_released"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// SeatUpdate represents a seat interval whose status changed
type SeatUpdate struct {
	Coach      string            `json:"coach"`
	SeatNumber int               `json:"seatNumber"`
	FromSeq    int               `json:"fromSeq"`
	ToSeq      int               `json:"toSeq"`
	Status     models.SeatStatus `json:"status"`
}

// Message represents a WebSocket message
type Message struct {
	Type        MessageType  `json:"type"`
	TrainID     int64        `json:"trainId"`
	JourneyDate models.Date  `json:"journeyDate"`
	Seats       []SeatUpdate `json:"seats,omitempty"`
	PNR         string       `json:"pnr,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// topic is one train on one journey date.
type topic struct {
	trainID int64
	date    string
}

func (t topic) String() string { return fmt.Sprintf("%d/%s", t.trainID, t.date) }

// Client represents a WebSocket client connection
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic topic
}

// Hub manages WebSocket connections per train and journey date
type Hub struct {
	clients    map[topic]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[topic]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for t, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
				delete(h.clients, t)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			log.Printf("WebSocket: Client registered for train %s (total: %d)", client.topic, len(h.clients[client.topic]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("WebSocket: Failed to marshal message: %v", err)
				continue
			}
			t := topic{trainID: message.TrainID, date: message.JourneyDate.String()}

			h.mu.Lock()
			clients := h.clients[t]
			log.Printf("WebSocket: Broadcasting %s to %d clients for train %s", message.Type, len(clients), t)
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client; h.mu must be held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	log.Printf("WebSocket: Client unregistered from train %s (remaining: %d)", client.topic, len(clients))
	if len(clients) == 0 {
		delete(h.clients, client.topic)
	}
}

func (h *Hub) publish(msg *Message) {
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("WebSocket: Broadcast queue full, dropping %s for train %d", msg.Type, msg.TrainID)
	}
}

func updates(seats []models.SeatInterval, status models.SeatStatus) []SeatUpdate {
	out := make([]SeatUpdate, len(seats))
	for i, s := range seats {
		out[i] = SeatUpdate{Coach: s.Coach, SeatNumber: s.SeatNumber, FromSeq: s.FromSeq, ToSeq: s.ToSeq, Status: status}
	}
	return out
}

// BroadcastSeatsBooked tells watchers of the booking's train that its seats are taken
func (h *Hub) BroadcastSeatsBooked(b *models.Booking) {
	msgType, status := MessageTypeSeatsBooked, models.SeatStatusBooked
	if b.Status.IsBlocked() {
		msgType, status = MessageTypeSeatsBlocked, models.SeatStatusBlocked
	}
	h.publish(&Message{
		Type:        msgType,
		TrainID:     b.TrainID,
		JourneyDate: b.JourneyDate,
		PNR:         b.PNR,
		Seats:       updates(b.Seats, status),
	})
}

// BroadcastSeatsReleased tells watchers that seats became available again
func (h *Hub) BroadcastSeatsReleased(trainID int64, date models.Date, seats []models.SeatInterval) {
	if len(seats) == 0 {
		return
	}
	h.publish(&Message{
		Type:        MessageTypeSeatsReleased,
		TrainID:     trainID,
		JourneyDate: date,
		Seats:       updates(seats, models.SeatStatusAvailable),
	})
}

// GetClientCount returns the number of clients watching a train on a date
func (h *Hub) GetClientCount(trainID int64, date models.Date) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic{trainID: trainID, date: date.String()}])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams seat changes of one train and date
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, trainID int64, date models.Date) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket: Upgrade failed: %v", err)
		return
	}
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 64),
		topic: topic{trainID: trainID, date: date.String()},
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client input and unregisters on close.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
