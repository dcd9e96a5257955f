package myhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tujane/internal/auth"
	"tujane/internal/config"
	"tujane/internal/matching-service/adapters/driver/myhttp/handle"
	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/mylogger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "operator-secret"

type fakeQuery struct {
	mu         sync.Mutex
	rides      map[string]model.Ride
	lastFilter model.RideFilter
}

func (f *fakeQuery) filter() model.RideFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFilter
}

func (f *fakeQuery) GetRide(_ context.Context, publicID string) (model.Ride, model.RideStatus, error) {
	r, ok := f.rides[publicID]
	if !ok {
		return model.Ride{}, "", myerrors.ErrRideNotFound
	}
	return r, model.RideOpen, nil
}

func (f *fakeQuery) ListRides(_ context.Context, filter model.RideFilter) ([]model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []model.Ride
	for _, r := range f.rides {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeQuery) DriverIDByPhone(_ context.Context, phone string) (int64, error) {
	if phone == "25761000001" {
		return 7, nil
	}
	return 0, myerrors.ErrDriverNotFound
}

func newTestServer(t *testing.T, checks map[string]handle.Check) (*httptest.Server, *fakeQuery) {
	t.Helper()
	q := &fakeQuery{rides: map[string]model.Ride{
		"TUJ1234": {PublicID: "TUJ1234", RiderIdentity: "25779000001@c.us", Passengers: 2, CreatedAt: time.Now()},
	}}
	cfg := &config.Config{
		Srv:  &config.Serviceconfig{Port: "0"},
		Auth: &config.Authconfig{JwtSecret: secret},
	}
	s := NewServer(context.Background(), mylogger.Nop(), cfg, Routes{Rides: q, Checks: checks})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, q
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRootAndHealth(t *testing.T) {
	var broken atomic.Bool
	ts, _ := newTestServer(t, map[string]handle.Check{
		"db": func(context.Context) error { return nil },
		"transport": func(context.Context) error {
			if broken.Load() {
				return errors.New("amqp connection is closed")
			}
			return nil
		},
	})

	resp := get(t, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["transport"])

	broken.Store(true)
	resp = get(t, ts.URL+"/health", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "amqp connection is closed", body.Checks["transport"])

	resp = get(t, ts.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRidesRequireOperator(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	bridgeToken, err := auth.Issue(secret, "bridge-1", auth.RoleBridge, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/rides", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/rides", "garbage").StatusCode)
	assert.Equal(t, http.StatusForbidden, get(t, ts.URL+"/rides", bridgeToken).StatusCode)
}

func TestRidesEndpoints(t *testing.T) {
	ts, q := newTestServer(t, nil)
	token, err := auth.Issue(secret, "ops", auth.RoleOperator, time.Hour)
	require.NoError(t, err)

	resp := get(t, ts.URL+"/rides/TUJ1234", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one struct {
		PublicID string `json:"public_id"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	assert.Equal(t, "TUJ1234", one.PublicID)
	assert.Equal(t, "OPEN", one.Status)

	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/rides/TUJ0000", token).StatusCode)

	resp = get(t, ts.URL+"/rides?driver=25761000001&status=open&limit=5", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := q.filter()
	require.NotNil(t, got.DriverID)
	assert.Equal(t, int64(7), *got.DriverID)
	assert.NotNil(t, got.OpenSince)
	assert.Equal(t, 5, got.Limit)

	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/rides?driver=000", token).StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/rides?status=closed", token).StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/rides?limit=-1", token).StatusCode)
}

func TestKeepAlivePing(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	k := NewKeepAlive(ts.URL, 10*time.Millisecond, mylogger.Nop())
	require.NoError(t, k.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return hits.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func runWithin(t *testing.T, s *Server) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept listening")
		return nil
	}
}

func TestStopBeforeRunKeepsListenerClosed(t *testing.T) {
	cfg := &config.Config{
		Srv:  &config.Serviceconfig{Port: "0"},
		Auth: &config.Authconfig{JwtSecret: secret},
	}
	s := NewServer(context.Background(), mylogger.Nop(), cfg, Routes{Rides: &fakeQuery{}})

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, runWithin(t, s))
}

func TestRunReturnsWhenContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &config.Config{
		Srv:  &config.Serviceconfig{Port: "0"},
		Auth: &config.Authconfig{JwtSecret: secret},
	}
	s := NewServer(ctx, mylogger.Nop(), cfg, Routes{Rides: &fakeQuery{}})

	assert.NoError(t, runWithin(t, s))
}
