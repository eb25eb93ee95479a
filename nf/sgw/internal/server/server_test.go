package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openepc/mme/nf/sgw/internal/config"
	sgwctx "github.com/openepc/mme/nf/sgw/internal/context"
)

func testServer(t *testing.T) (*Server, *sgwctx.Store) {
	t.Helper()
	store := sgwctx.NewStore()
	cfg := &config.Config{}
	cfg.NF.Name = "sgw-test"
	cfg.NF.InstanceID = "sgw-1"
	return NewServer(cfg, store, zap.NewNop()), store
}

func TestHealthAndReady(t *testing.T) {
	s, _ := testServer(t)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusReportsSessionCount(t *testing.T) {
	s, store := testServer(t)
	store.Create("001010000000001", 1)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["session_count"])
}

func TestGetSessionsListsTrackedSessions(t *testing.T) {
	s, store := testServer(t)
	store.Create("001010000000001", 7)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Sessions []map[string]interface{} `json:"sessions"`
		Count    int                       `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "001010000000001", body.Sessions[0]["imsi"])
}
