package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/handler"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/service"
	"github.com/iliyamo/train-seat-booking/internal/utils"
)

const secret = "router-test-secret"

type searchRecorder struct {
	mu sync.Mutex
	n  int
}

func (r *searchRecorder) Record(model.SearchLog) {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

type fixture struct {
	e     *echo.Echo
	store *repository.MemoryStore
	logs  *searchRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logger.Nop()
	store := repository.NewMemoryStore(time.Second)
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 30, RefreshTTLDays: 1, BcryptCost: 4}
	trains := service.NewTrainService(store)
	logs := &searchRecorder{}

	e := NewServer(Deps{
		Cfg:       cfg,
		Log:       log,
		Auth:      handler.NewAuthHandler(cfg, nil, nil, log),
		Bookings:  handler.NewBookingHandler(service.NewBookingService(store, config.BookingConfig{LockTimeout: time.Second, PNRMaxAttempts: 10}, log), log),
		Trains:    handler.NewTrainHandler(trains, log),
		Search:    handler.NewSearchHandler(trains, log),
		Analytics: handler.NewAnalyticsHandler(nil, log),
		SearchLog: logs,
	})
	return fixture{e: e, store: store, logs: logs}
}

func bearer(t *testing.T, uid uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, uid, role, time.Minute, time.Now())
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func (f fixture) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) == echo.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func trainBody(number string, seats uint32, departs time.Time) map[string]any {
	return map[string]any{
		"train_number":   number,
		"name":           "Shatabdi",
		"source":         "New Delhi",
		"destination":    "Agra Cantt",
		"departure_time": departs.Format(time.RFC3339),
		"arrival_time":   departs.Add(2 * time.Hour).Format(time.RFC3339),
		"total_seats":    seats,
	}
}

func TestBookingFlow(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, 1, model.RoleAdmin)
	alice := bearer(t, 2, model.RoleUser)
	departs := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	rec, _ := f.do(t, http.MethodPost, "/v1/trains", alice, trainBody("12001", 10, departs))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, created := f.do(t, http.MethodPost, "/v1/trains", admin, trainBody("12001", 10, departs))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trainID := uint64(created["id"].(float64))
	assert.Equal(t, float64(10), created["available_seats"])

	rec, booked := f.do(t, http.MethodPost, "/v1/bookings", alice, map[string]any{"train_id": trainID, "seats_booked": 6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", booked["status"])
	assert.Len(t, booked["pnr"], 10)
	assert.Equal(t, float64(6), booked["seats_booked"])
	assert.NotEmpty(t, booked["booking_time"])

	rec, failed := f.do(t, http.MethodPost, "/v1/bookings", alice, map[string]any{"train_id": trainID, "seats_booked": 7})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_SEATS", failed["error"])
	assert.Equal(t, float64(4), failed["details"].(map[string]any)["available"])

	rec, listing := f.do(t, http.MethodGet, "/v1/bookings/my", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bookings := listing["bookings"].([]any)
	require.Len(t, bookings, 1)
	assert.Equal(t, booked["pnr"], bookings[0].(map[string]any)["pnr"])

	rec, listing = f.do(t, http.MethodGet, "/v1/bookings/my", bearer(t, 3, model.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listing["bookings"])
}

func TestBookingValidationAndErrors(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, 1, model.RoleAdmin)
	user := bearer(t, 2, model.RoleUser)

	rec, _ := f.do(t, http.MethodPost, "/v1/bookings", "", map[string]any{"train_id": 1, "seats_booked": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/v1/bookings", user, map[string]any{"train_id": 1, "seats_booked": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	rec, body = f.do(t, http.MethodPost, "/v1/bookings", user, map[string]any{"train_id": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	rec, body = f.do(t, http.MethodPost, "/v1/bookings", user, map[string]any{"train_id": 99, "seats_booked": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["error"])

	past := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, f.store.CreateTrain(t.Context(), &model.Train{TrainNumber: "OLD", Source: "A", Destination: "B",
		DepartureTime: past, ArrivalTime: past.Add(time.Hour), TotalSeats: 5, AvailableSeats: 5}))
	rec, body = f.do(t, http.MethodPost, "/v1/bookings", user, map[string]any{"train_id": 1, "seats_booked": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TRAIN_DEPARTED", body["error"])

	rec, _ = f.do(t, http.MethodGet, "/v1/trains/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminTrainUpdate(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, 1, model.RoleAdmin)
	departs := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	rec, created := f.do(t, http.MethodPost, "/v1/trains", admin, trainBody("12002", 50, departs))
	require.Equal(t, http.StatusCreated, rec.Code)
	path := fmt.Sprintf("/v1/trains/%d", uint64(created["id"].(float64)))

	rec, body := f.do(t, http.MethodPatch, path, admin, map[string]any{"available_seats": 60})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	rec, _ = f.do(t, http.MethodPatch, path, admin, map[string]any{"total_seats": 80})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodPatch, path, admin, map[string]any{"available_seats": 20, "name": "Gatimaan"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(20), body["available_seats"])
	assert.Equal(t, "Gatimaan", body["name"])

	rec, _ = f.do(t, http.MethodPut, path, admin, map[string]any{"name": "partial"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gatimaan", body["name"])

	rec, body = f.do(t, http.MethodPost, "/v1/trains", admin, trainBody("12002", 5, departs))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", body["error"])
}

func TestPublicSearchIsLogged(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, 1, model.RoleAdmin)
	departs := time.Date(2031, 5, 4, 7, 30, 0, 0, time.UTC)
	rec, _ := f.do(t, http.MethodPost, "/v1/trains", admin, trainBody("12003", 10, departs))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/v1/trains/search?source=delhi&date=2031-05-04", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["total"])

	rec, body = f.do(t, http.MethodGet, "/v1/trains/search?source=delhi&date=2031-05-05", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["total"])

	rec, _ = f.do(t, http.MethodGet, "/v1/trains/search?date=05-05-2031", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 3, f.logs.n)
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec, body := f.do(t, http.MethodGet, "/v1/analytics/top-routes", bearer(t, 1, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ANALYTICS_UNAVAILABLE", body["error"])
}
