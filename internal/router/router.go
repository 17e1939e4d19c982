package router

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/thilaks-prosperr/train-booking-system/internal/handlers"
	"github.com/thilaks-prosperr/train-booking-system/internal/ratelimit"
)

// SetupRouter creates and configures the HTTP router. Booking writes are
// throttled when limiter is non-nil.
func SetupRouter(h *handlers.Handler, limiter ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(corsMiddleware)

	throttle := func(fn http.HandlerFunc) http.Handler { return fn }
	if limiter != nil {
		limit := ratelimit.Middleware(limiter)
		throttle = func(fn http.HandlerFunc) http.Handler { return limit(fn) }
	}

	api := r.PathPrefix("/api").Subrouter()

	// Search
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet, http.MethodOptions)

	// Bookings
	api.Handle("/bookings", throttle(h.CreateBooking)).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/bookings/composite", throttle(h.CreateCompositeBooking)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/ticket", h.GetTicket).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/refund", h.RefundBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/users/{id}/bookings", h.ListUserBookings).Methods(http.MethodGet, http.MethodOptions)

	// Seats
	api.HandleFunc("/trains/{id}/seats", h.GetSeatMap).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trains/{id}/ws", h.SeatUpdates)

	// Admin
	api.HandleFunc("/admin/seats/block", h.BlockSeats).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/admin/seats/unblock", h.UnblockSeats).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
