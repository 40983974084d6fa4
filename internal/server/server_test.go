package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzzxajak-prog/FitnessApp/internal/config"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/service"
)

func newTestServer(t *testing.T, storage string) (*Server, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage = storage

	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv, cfg
}

// call sends a JSON request through the full router (middleware included).
func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_EndToEnd(t *testing.T) {
	for _, storage := range []string{config.StorageJSON, config.StorageSQLite} {
		t.Run(storage, func(t *testing.T) {
			srv, cfg := newTestServer(t, storage)
			h := srv.Handler()

			// Nothing behind RequireSession works before login.
			rec := call(t, h, http.MethodGet, "/api/state", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			// Public routes do.
			rec = call(t, h, http.MethodGet, "/api/foods", nil)
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = call(t, h, http.MethodPost, "/api/register", map[string]string{
				"username": "alice", "password": "pw", "confirm": "pw",
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec = call(t, h, http.MethodPost, "/api/login", map[string]string{
				"username": "alice", "password": "wrong",
			})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = call(t, h, http.MethodPost, "/api/login", map[string]string{
				"username": "alice", "password": "pw",
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = call(t, h, http.MethodPost, "/api/water", map[string]float64{"amount": 0.5})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			rec = call(t, h, http.MethodPost, "/api/steps", map[string]float64{"amount": 1200})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			rec = call(t, h, http.MethodPost, "/api/goals", map[string]any{"desc": "похудеть", "value": 5})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec = call(t, h, http.MethodGet, "/api/state", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var state service.State
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
			assert.Equal(t, "alice", state.Snapshot.Username)
			assert.InDelta(t, 0.5, state.Snapshot.WaterIntake, 1e-9)
			assert.InDelta(t, 1200, state.Snapshot.Steps, 1e-9)
			require.Len(t, state.Snapshot.Goals, 1)
			assert.Equal(t, model.DefaultPeriod, state.Snapshot.Goals[0].Period)

			rec = call(t, h, http.MethodPost, "/api/logout", nil)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			rec = call(t, h, http.MethodGet, "/api/state", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			// A second server over the same data sees what the first saved.
			require.NoError(t, srv.Close())
			again, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			require.NoError(t, err)
			t.Cleanup(func() { again.Close() })

			rec = call(t, again.Handler(), http.MethodPost, "/api/login", map[string]string{
				"username": "alice", "password": "pw",
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			state = service.State{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
			assert.InDelta(t, 0.5, state.Snapshot.WaterIntake, 1e-9)
			assert.InDelta(t, 1200, state.Snapshot.Steps, 1e-9)
			assert.Len(t, state.Snapshot.Goals, 1)
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.StorageJSON)
	rec := call(t, srv.Handler(), http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_BadStorage(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage = "postgres"
	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
