package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/thilaks-prosperr/train-booking-system/internal/handlers"
	"github.com/thilaks-prosperr/train-booking-system/internal/service/mocks"
	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

type stubLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.calls++
	return l.allow, l.err
}

func TestSetupRouter_Health(t *testing.T) {
	r := SetupRouter(handlers.NewHandler(new(mocks.MockBookingService), nil), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSetupRouter_ThrottlesBookingWrites(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	svc := new(mocks.MockBookingService)
	r := SetupRouter(handlers.NewHandler(svc, nil), limiter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are never throttled
	svc.On("Search", mock.Anything, mock.Anything).Return([]models.Itinerary{}, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?source=MAS&dest=MYS&date=2025-02-01", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls)
}

func TestSetupRouter_LimiterDownFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis unreachable")}
	r := SetupRouter(handlers.NewHandler(new(mocks.MockBookingService), nil), limiter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{}`)))

	// reaches the handler, which rejects the empty seat list
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	r := SetupRouter(handlers.NewHandler(new(mocks.MockBookingService), nil), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bookings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
