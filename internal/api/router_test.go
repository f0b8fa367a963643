package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/momento/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/scheduler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stateFunc func() model.State

func (f stateFunc) State() model.State { return f() }

type fakeFaces struct{}

func (fakeFaces) Enroll(ctx context.Context, name string, frame domain.Frame) error { return nil }
func (fakeFaces) Remove(ctx context.Context, name string) error                     { return nil }
func (fakeFaces) Known() []string                                                   { return []string{"Alice"} }

type fakeRecognizer struct{}

func (fakeRecognizer) Recognize(ctx context.Context, frame domain.Frame) (domain.Recognition, error) {
	return domain.Recognition{Matches: []domain.MatchResult{}}, nil
}

func newEngineRouter(t *testing.T, state *atomic.Int32) *Router {
	t.Helper()

	sched := scheduler.New(fakeRecognizer{}, nil, time.Second, testLogger())

	r := NewRouter(testLogger(), "Momento Engine Test")
	r.SetupEngine(&EngineDependencies{
		EngineDeps: handler.EngineDeps{
			Faces:     fakeFaces{},
			Scheduler: sched,
			Models:    stateFunc(func() model.State { return model.State(state.Load()) }),
			Username:  "maria",
		},
	}, "localhost:3001")
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func TestEngineRouter_Ready(t *testing.T) {
	var state atomic.Int32
	state.Store(int32(model.StateLoading))
	r := newEngineRouter(t, &state)

	resp, err := r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	state.Store(int32(model.StateReady))

	resp, err = r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestEngineRouter_Routes(t *testing.T) {
	var state atomic.Int32
	state.Store(int32(model.StateReady))
	r := newEngineRouter(t, &state)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", "GET", "/health", 200},
		{"faces", "GET", "/v1/faces", 200},
		{"status", "GET", "/v1/status", 200},
		{"recognize without camera", "POST", "/v1/recognize", 400},
		{"session without camera", "POST", "/v1/session/start", 400},
		{"websocket requires upgrade", "GET", "/v1/ws", 426},
		{"unknown route", "GET", "/v1/unknown", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.App().Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestEngineRouter_StatusBody(t *testing.T) {
	var state atomic.Int32
	state.Store(int32(model.StateReady))
	r := newEngineRouter(t, &state)

	resp, err := r.App().Test(httptest.NewRequest("GET", "/v1/status", nil))
	require.NoError(t, err)

	var status handler.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ready", status.ModelState)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Enrolled)
}

func TestEngineRouter_CreatesHub(t *testing.T) {
	var state atomic.Int32
	r := newEngineRouter(t, &state)

	require.NotNil(t, r.Hub())
	assert.Equal(t, 0, r.Hub().ConnectedClients("maria"))
}

func TestBackendRouter_HealthWithoutDatabase(t *testing.T) {
	r := NewRouter(testLogger(), "Momento Backend Test")
	r.SetupBackend(&BackendDependencies{RateLimitMax: 10}, "localhost:3000")
	t.Cleanup(func() { _ = r.Shutdown() })

	resp, err := r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
