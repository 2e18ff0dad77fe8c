package settings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/playscore/internal/adapters/settings"
	"github.com/alejandrodnm/playscore/internal/domain"
	"github.com/alejandrodnm/playscore/internal/ports"
	"github.com/alejandrodnm/playscore/internal/profile"
)

var _ ports.ProfileRepository = (*settings.Client)(nil)

const configDoc = `{
  "config": {
    "stocks": {
      "calc_profile": {"atrWeight": 1.4, "useRsiFilter": false},
      "quick_settings": {"min_play_score": 55.0}
    },
    "dfs": {
      "calc_profile": {"edgeWeight": 2.0, "kellyCapPct": 10.0},
      "quick_settings": {"min_edge": 1.2, "plays_only": true, "side_filter": "all"}
    }
  }
}`

func newClient(srv *httptest.Server) *settings.Client {
	return settings.NewClient(srv.URL+"/api/v1/", settings.WithRetryWait(time.Millisecond))
}

func TestClient_LoadProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/settings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(configDoc))
	}))
	defer srv.Close()

	c := newClient(srv)
	ctx := context.Background()

	dfs, err := c.LoadProfile(ctx, domain.DFS)
	require.NoError(t, err)
	assert.Equal(t, 2.0, dfs["edgeWeight"])

	events, err := c.LoadProfile(ctx, domain.Events)
	require.NoError(t, err)
	assert.Nil(t, events, "missing section")

	quick, err := c.QuickSettings(ctx, domain.DFS)
	require.NoError(t, err)
	assert.Equal(t, true, quick["plays_only"])
}

func TestClient_FeedsProfileStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(configDoc))
	}))
	defer srv.Close()

	store := profile.NewStore()
	require.NoError(t, store.Load(context.Background(), newClient(srv)))

	assert.Equal(t, 2.0, store.DFS().EdgeWeight)
	assert.Equal(t, 10.0, store.DFS().KellyCapPct)
	assert.Equal(t, profile.DFS.Default.UseDevig, store.DFS().UseDevig, "absent fields keep defaults")
	assert.Equal(t, 1.4, store.Stocks().ATRWeight)
	assert.False(t, store.Stocks().UseRSIFilter)
	assert.Equal(t, profile.Events.Default, store.Events())
}

func TestClient_SaveProfile(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/settings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(configDoc))
	}))
	defer srv.Close()

	err := newClient(srv).SaveProfile(context.Background(), domain.DFS, map[string]any{"kellyCapPct": 5.0})
	require.NoError(t, err)

	want := map[string]any{
		"updates": map[string]any{
			"dfs": map[string]any{"calc_profile": map[string]any{"kellyCapPct": 5.0}},
		},
	}
	assert.Equal(t, want, body)
}

func TestClient_Reset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/settings/reset", r.URL.Path)
		w.Write([]byte(`{"config": {"dfs": {}}}`))
	}))
	defer srv.Close()

	cfg, err := newClient(srv).Reset(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cfg, "dfs")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(configDoc))
	}))
	defer srv.Close()

	cfg, err := newClient(srv).Config(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cfg, "dfs")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv).Config(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "bad update"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).Update(context.Background(), map[string]any{"x": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad update")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Disabled(t *testing.T) {
	c := settings.NewClient("")
	assert.False(t, c.Enabled())

	_, err := c.LoadProfile(context.Background(), domain.DFS)
	assert.ErrorIs(t, err, settings.ErrDisabled)
}
