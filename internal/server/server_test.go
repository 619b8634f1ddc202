package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"career-bot/internal/pkg/logger"
	"career-bot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *session.Store) {
	t.Helper()
	store := session.NewStore("sys")
	return New("0", store, logger.NewNopLogger()), store
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestStats(t *testing.T) {
	s, store := newTestServer(t)
	store.Touch(1)
	store.Touch(2)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/stats", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		ActiveSessions int `json:"active_sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.ActiveSessions)
}

func TestMetrics(t *testing.T) {
	s, store := newTestServer(t)
	store.Touch(1)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "careerbot_active_sessions 1")
}

func TestUnknownRouteRendersJSONError(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["message"])
}
