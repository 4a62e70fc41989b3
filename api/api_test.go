package api

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/broadcast"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/auth0"
	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/priority"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{bike.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{attempt.ErrNoOpenAttempt, http.StatusNotFound, "NOT_FOUND"},
		{apperr.Invalid("longitude", "out of range"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{fmt.Errorf("cannot mark as lost: %w", apperr.ErrInvalidState), http.StatusConflict, "INVALID_STATE"},
		{attempt.ErrContended, http.StatusConflict, "CONFLICT"},
		{errUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{errBillingDisabled, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	status, resp := toErrorResponse(apperr.Invalid("trackerId", "must be 8 hex characters"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "trackerId", resp.Field)

	status, resp = toErrorResponse(errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", resp.Message, "internal details are not leaked")
}

func TestPositionRequestPoint(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	p, err := positionRequest{Longitude: f(4.9), Latitude: f(52.37)}.point()
	require.NoError(t, err)
	assert.Equal(t, location.Point{Lng: 4.9, Lat: 52.37}, p)

	_, err = positionRequest{Latitude: f(1)}.point()
	field, _ := apperr.Field(err)
	assert.Equal(t, "longitude", field)

	_, err = positionRequest{Longitude: f(1)}.point()
	field, _ = apperr.Field(err)
	assert.Equal(t, "latitude", field)

	_, err = positionRequest{Longitude: f(1), Latitude: f(95)}.point()
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestToBikeResponse(t *testing.T) {
	signal := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	b := bike.Bike{
		ID:       uuid.New(),
		Make:     "Gazelle",
		Location: location.Point{Lng: 4.9, Lat: 52.37}.PG(),
		Status:   bike.StatusInvestigating,
	}
	b.LastSignal.Time, b.LastSignal.Valid = signal, true

	resp := toBikeResponse(b)
	require.NotNil(t, resp.Location)
	assert.Equal(t, 4.9, resp.Location.Lng)
	require.NotNil(t, resp.LastSignal)
	assert.Equal(t, signal, *resp.LastSignal)

	resp = toBikeResponse(bike.Bike{})
	assert.Nil(t, resp.Location)
	assert.Nil(t, resp.LastSignal)
}

func TestQueryTime(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?a=2025-03-01&b=2025-03-01T10:00:00Z&c=yesterday", nil)

	got, err := queryTime(c, "a")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = queryTime(c, "b")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = queryTime(c, "c")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	got, err = queryTime(c, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDrivingTime(t *testing.T) {
	seconds := func(v float64) *float64 { return &v }
	minutes := func(m int) *time.Duration {
		d := time.Duration(m) * time.Minute
		return &d
	}

	tests := []struct {
		name    string
		seconds *float64
		want    *time.Duration
		wantErr bool
	}{
		{"no route", nil, nil, false},
		{"half an hour", seconds(1800), minutes(30), false},
		{"zero", seconds(0), minutes(0), false},
		{"negative", seconds(-1), nil, true},
		{"not a number", seconds(math.NaN()), nil, true},
		{"beyond duration range", seconds(1e11), nil, false},
		{"at duration range", seconds(maxDrivingSeconds), nil, false},
		{"infinite", seconds(math.Inf(1)), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := drivingTime(tt.seconds)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHugeDrivingTimeIsNotReachable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d, err := drivingTime(func() *float64 { v := 1e11; return &v }())
	require.NoError(t, err)

	c := priority.Candidate{LastSignal: now.Add(-10 * time.Hour), DrivingTime: d}
	assert.Equal(t, 2, priority.Tier(c, now))
}

func TestRoutesRequireAuthentication(t *testing.T) {
	a := New(Deps{Clock: clock.Real{}}, Options{})

	for _, path := range []string{"/bikes", "/statistics", "/recoveries", "/me"} {
		w := httptest.NewRecorder()
		a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeWithoutProfile(t *testing.T) {
	a := New(Deps{}, Options{Auth: func(c *gin.Context) { c.Set("user_id", "auth0|7") }})

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"auth0|7"}`, w.Body.String())
}

func TestMeWithProfile(t *testing.T) {
	users := auth0.NewFakeClient()
	users.AddProfile("token", &auth0.Profile{Sub: "auth0|7", Name: "Robin Agent", Email: "robin@example.com"})
	a := New(Deps{Users: users}, Options{Auth: func(c *gin.Context) { c.Set("user_id", "auth0|7") }})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"auth0|7","name":"Robin Agent","email":"robin@example.com"}`, w.Body.String())

	// A rejected token still identifies the caller.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"auth0|7"}`, w.Body.String())
}

func TestPublicLimiter(t *testing.T) {
	a := New(Deps{}, Options{PublicLimiter: middleware.NewRateLimiter(0.001, 1)})

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bikes/"+uuid.NewString()+"/positions", strings.NewReader("{}")))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestStream(t *testing.T) {
	broker := broadcast.NewBroker()
	a := New(Deps{Broker: broker}, Options{})

	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	id := uuid.New()
	broker.Publish(broadcast.Event{
		Type:     broadcast.EventLocationUpdated,
		Bike:     bike.Bike{ID: id, Status: bike.StatusInvestigating},
		Location: location.Point{Lng: 1.5, Lat: 2.5},
	})

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = v
		}
	}

	assert.Equal(t, "locationUpdated", event)
	assert.Contains(t, data, id.String())
	assert.Contains(t, data, `"location":{"longitude":1.5,"latitude":2.5}`)
	assert.Contains(t, data, `"status":"investigating"`)
}
