package httpgin_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/seatbook/internal/credentials"
	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/kirinyoku/seatbook/internal/repository/memory"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
	"github.com/kirinyoku/seatbook/internal/service"
	"github.com/kirinyoku/seatbook/internal/service/auth"
	"github.com/kirinyoku/seatbook/internal/service/booking"
	httpgin "github.com/kirinyoku/seatbook/internal/transport/http/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, idem *redisrepo.IdempotencyStore, cfg booking.Config) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(service.Deps{
		Bookings: memory.NewBookingRepo(),
		Users:    memory.NewUserRepo(),
		Tokens:   credentials.NewTokenManager("test-secret", time.Hour),
	}, logger, service.Config{
		Booking: cfg,
		Auth:    auth.Config{BcryptCost: bcrypt.MinCost},
	})

	return &testAPI{t: t, handler: httpgin.NewRouter(svcs, idem, logger)}
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(username string) string {
	a.t.Helper()

	email := username + "@example.com"
	w := a.do(http.MethodPost, "/auth/signup", "", gin.H{"username": username, "email": email, "password": "secret123"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var tok auth.Token
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &tok))
	return tok.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})

	w := api.do(http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})

	for _, path := range []string{"/seats", "/bookings/mine", "/auth/me"} {
		w := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := api.do(http.MethodPost, "/bookings", "garbage", gin.H{"seats": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/bookings/reset", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupLoginErrors(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})
	api.login("ann")

	w := api.do(http.MethodPost, "/auth/signup", "", gin.H{"username": "ann2", "email": "ann@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/auth/signup", "", gin.H{"username": "x", "email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", gin.H{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})
	token := api.login("ann")

	w := api.do(http.MethodGet, "/auth/me", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	me := decode[domain.User](t, w)
	assert.Equal(t, "ann", me.Username)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})
	ann := api.login("ann")
	bob := api.login("bob")

	w := api.do(http.MethodPost, "/bookings", ann, gin.H{"seats": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[httpgin.BookResponse](t, w)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, resp.Booking.SeatIDs)

	w = api.do(http.MethodPost, "/bookings", bob, gin.H{"seats": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []int{8, 9, 10}, decode[httpgin.BookResponse](t, w).Booking.SeatIDs)

	w = api.do(http.MethodGet, "/seats", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	av := decode[domain.Availability](t, w)
	assert.Equal(t, 8, av.BookedSeats)
	assert.Equal(t, 72, len(av.AvailableSeats))

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w = api.do(http.MethodGet, "/seats", bob, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = api.do(http.MethodGet, "/bookings/mine", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]domain.Booking](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, mine[0].SeatIDs)

	w = api.do(http.MethodPost, "/bookings/reset", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[httpgin.ResetResponse](t, w).Removed)

	w = api.do(http.MethodGet, "/seats", bob, nil, "If-None-Match", etag)
	require.Equal(t, http.StatusOK, w.Code, "seat map changed after reset")
	assert.Equal(t, 0, decode[domain.Availability](t, w).BookedSeats)
}

func TestBook_InvalidCounts(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})
	token := api.login("ann")

	for _, body := range []any{gin.H{"seats": 0}, gin.H{"seats": 8}, gin.H{"seats": -1}, gin.H{"seats": "two"}, gin.H{}} {
		w := api.do(http.MethodPost, "/bookings", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}
}

func TestBook_Exhausted(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{})
	token := api.login("ann")

	for booked := 0; booked < domain.TotalSeats; {
		n := min(7, domain.TotalSeats-booked)
		w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": n})
		require.Equal(t, http.StatusCreated, w.Code)
		booked += n
	}

	w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not enough seats")
}

func TestReset_AdminOnly(t *testing.T) {
	api := newTestAPI(t, nil, booking.Config{ResetRequiresAdmin: true})
	token := api.login("ann")

	w := api.do(http.MethodPost, "/bookings/reset", token, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBook_IdempotentReplay(t *testing.T) {
	db, mock := redismock.NewClientMock()
	api := newTestAPI(t, redisrepo.NewIdempotencyStore(db, time.Hour), booking.Config{})
	token := api.login("ann")
	key := redisrepo.KeyIdemBooking(1, "k1")

	saved := `{"message":"Seats booked successfully","booking":{"seat_ids":[1,2]}}`
	mock.ExpectGet(key).SetVal("RES:" + saved)

	w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": 2}, "Idempotency-Key", "k1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, saved, w.Body.String())
	assert.Equal(t, "k1", w.Header().Get("Idempotency-Key"))
	assert.NoError(t, mock.ExpectationsWereMet())

	w = api.do(http.MethodGet, "/bookings/mine", token, nil)
	assert.Empty(t, decode[[]domain.Booking](t, w), "a replay must not book again")
}

func TestBook_IdempotencyKeyInProgress(t *testing.T) {
	db, mock := redismock.NewClientMock()
	api := newTestAPI(t, redisrepo.NewIdempotencyStore(db, time.Hour), booking.Config{})
	token := api.login("ann")
	key := redisrepo.KeyIdemBooking(1, "k2")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", 30*time.Second).SetVal(false)
	mock.ExpectGet(key).SetVal("LOCK")

	w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": 2}, "Idempotency-Key", "k2")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_IdempotencyKeySavesResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	api := newTestAPI(t, redisrepo.NewIdempotencyStore(db, time.Hour), booking.Config{})
	token := api.login("ann")
	key := redisrepo.KeyIdemBooking(1, "k3")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", 30*time.Second).SetVal(true)
	mock.Regexp().ExpectSet(key, `RES:\{"message":"Seats booked successfully".*\}`, time.Hour).SetVal("OK")

	w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": 2}, "Idempotency-Key", "k3")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "k3", w.Header().Get("Idempotency-Key"))
	assert.Equal(t, []int{1, 2}, decode[httpgin.BookResponse](t, w).Booking.SeatIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_FailureReleasesIdempotencyKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	api := newTestAPI(t, redisrepo.NewIdempotencyStore(db, time.Hour), booking.Config{})
	token := api.login("ann")
	key := redisrepo.KeyIdemBooking(1, "k4")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetNX(key, "LOCK", 30*time.Second).SetVal(true)
	mock.ExpectDel(key).SetVal(1)

	w := api.do(http.MethodPost, "/bookings", token, gin.H{"seats": 9}, "Idempotency-Key", "k4")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
