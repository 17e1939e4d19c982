package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/thilaks-prosperr/train-booking-system/internal/booking"
	"github.com/thilaks-prosperr/train-booking-system/internal/search"
	"github.com/thilaks-prosperr/train-booking-system/internal/seatmap"
	"github.com/thilaks-prosperr/train-booking-system/internal/service"
	"github.com/thilaks-prosperr/train-booking-system/internal/store"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// SeatSocket upgrades a request to a live seat-map feed.
type SeatSocket interface {
	ServeWS(w http.ResponseWriter, r *http.Request, trainID int64, date models.Date)
}

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	sockets        SeatSocket
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService, sockets SeatSocket) *Handler {
	return &Handler{
		bookingService: bookingService,
		sockets:        sockets,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrSeatConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrInvalidRoute),
		errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, search.ErrInvalidRequest),
		errors.Is(err, seatmap.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func pathUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

// Search handles GET /api/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SearchRequest{
		SourceStationCode: q.Get("source"),
		DestStationCode:   q.Get("dest"),
	}
	if req.SourceStationCode == "" || req.DestStationCode == "" {
		respondError(w, http.StatusBadRequest, "source and dest are required")
		return
	}
	date, err := models.ParseDate(q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	req.JourneyDate = date

	itineraries, err := h.bookingService.Search(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if itineraries == nil {
		itineraries = []models.Itinerary{}
	}
	respondJSON(w, http.StatusOK, itineraries)
}

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.SelectedSeats) == 0 {
		respondError(w, http.StatusBadRequest, "At least one seat must be selected")
		return
	}

	resp, err := h.bookingService.CreateBooking(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// CreateCompositeBooking handles POST /api/bookings/composite
func (h *Handler) CreateCompositeBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CompositeBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Bookings) == 0 {
		respondError(w, http.StatusBadRequest, "At least one booking is required")
		return
	}

	result, err := h.bookingService.CreateCompositeBooking(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	// some legs may have failed; the per-leg results carry the detail
	status := http.StatusCreated
	if len(result.BookingIDs()) < len(result.Results) {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	details, err := h.bookingService.GetBooking(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// GetTicket handles GET /api/bookings/{id}/ticket
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	pdf, err := h.bookingService.Ticket(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=ticket-%s.pdf", id))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	resp, err := h.bookingService.CancelBooking(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// RefundBooking handles POST /api/bookings/{id}/refund
func (h *Handler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	resp, err := h.bookingService.RefundBooking(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListUserBookings handles GET /api/users/{id}/bookings
func (h *Handler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	bookings, err := h.bookingService.ListUserBookings(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// GetSeatMap handles GET /api/trains/{id}/seats
func (h *Handler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	trainID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid train ID")
		return
	}
	q := r.URL.Query()
	date, err := models.ParseDate(q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	req := models.SeatMapRequest{TrainID: trainID, JourneyDate: date, CoachType: q.Get("coach")}
	if req.StartSeq, err = queryInt(r, "startSeq"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EndSeq, err = queryInt(r, "endSeq"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	seatMap, err := h.bookingService.GetSeatMap(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, seatMap)
}

// SeatUpdates handles GET /api/trains/{id}/ws
func (h *Handler) SeatUpdates(w http.ResponseWriter, r *http.Request) {
	trainID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid train ID")
		return
	}
	date, err := models.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	h.sockets.ServeWS(w, r, trainID, date)
}

// BlockSeats handles POST /api/admin/seats/block
func (h *Handler) BlockSeats(w http.ResponseWriter, r *http.Request) {
	var req models.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.bookingService.BlockSeats(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// UnblockSeats handles POST /api/admin/seats/unblock
func (h *Handler) UnblockSeats(w http.ResponseWriter, r *http.Request) {
	var req models.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	n, err := h.bookingService.UnblockSeats(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"released": n})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
