package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/guesswho/core"
)

// stubGame returns canned results so handler behavior can be tested without
// the full orchestrator stack.
type stubGame struct {
	session *core.Session
	err     error
	phase   core.Phase
}

func (g *stubGame) StartSession(ctx context.Context, owner string, image []byte) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "sess-1", nil
}

func (g *stubGame) AssignName(ctx context.Context, sessionID, candidateID, name string) error {
	return g.err
}

func (g *stubGame) SubmitAnswer(ctx context.Context, sessionID string, answer core.Answer) error {
	return g.err
}

func (g *stubGame) SubmitGuessVerification(ctx context.Context, sessionID string, correct bool) error {
	return g.err
}

func (g *stubGame) Cancel(ctx context.Context, sessionID string) (core.Phase, error) {
	return g.phase, g.err
}

func (g *stubGame) Get(sessionID string) (*core.Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

func newTestServer(game Game) *httptest.Server {
	return httptest.NewServer(New(game).Router())
}

func TestServer_StartSession(t *testing.T) {
	ts := newTestServer(&stubGame{})
	defer ts.Close()

	body := `{"owner":"alice","imageBase64":"/9j/4A=="}`
	resp, err := http.Post(ts.URL+"/sessions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var out startSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "sess-1", out.SessionID)
}

func TestServer_StartSession_BadRequests(t *testing.T) {
	ts := newTestServer(&stubGame{})
	defer ts.Close()

	cases := map[string]string{
		"not json":      `not json at all`,
		"missing owner": `{"imageBase64":"/9j/4A=="}`,
		"bad base64":    `{"owner":"alice","imageBase64":"%%%"}`,
		"unknown field": `{"owner":"alice","imageBase64":"/9j/4A==","extra":1}`,
	}
	for name, body := range cases {
		resp, err := http.Post(ts.URL+"/sessions", "application/json", strings.NewReader(body))
		require.NoError(t, err, name)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{core.ErrNotFound, http.StatusNotFound, "not_found"},
		{core.ErrSessionExpired, http.StatusGone, "session_expired"},
		{core.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{core.ErrDuplicateActiveSession, http.StatusConflict, "duplicate_active_session"},
		{core.ErrInvalidName, http.StatusUnprocessableEntity, "invalid_name"},
		{core.ErrOracleUnavailable, http.StatusBadGateway, "oracle_unavailable"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		ts := newTestServer(&stubGame{err: tc.err})

		resp, err := http.Post(ts.URL+"/sessions/sess-1/names", "application/json",
			strings.NewReader(`{"candidateId":"p1","name":"Anna"}`))
		require.NoError(t, err)

		assert.Equal(t, tc.status, resp.StatusCode, tc.kind)

		var out errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, tc.kind, out.Kind)

		resp.Body.Close()
		ts.Close()
	}
}

func TestServer_SubmitAnswerValidation(t *testing.T) {
	ts := newTestServer(&stubGame{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/answers", "application/json",
		strings.NewReader(`{"answer":"maybe"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/sessions/sess-1/answers", "application/json",
		strings.NewReader(`{"answer":"yes"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestServer_Cancel(t *testing.T) {
	ts := newTestServer(&stubGame{phase: core.PhaseCancelled})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/sess-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out cancelResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "cancelled", out.Phase)
}

func TestEventHub_Websocket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	game := &stubGame{session: core.NewSession("alice", []core.Candidate{{ID: "p1"}, {ID: "p2"}}, 20, now)}
	game.session.ID = "sess-1"

	srv := New(game)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/sess-1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Emit until the subscription is live; duplicates are harmless here.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ev := core.NewPhaseChangedEvent("sess-1", core.PhasePlaying, now)
		for {
			select {
			case <-done:
				return
			default:
				srv.Hub().Emit(ev)
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var got core.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, core.EventTypePhaseChanged, got.Type)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, core.PhasePlaying, got.Phase)

	// Events for other sessions never reach this subscriber.
	srv.Hub().Emit(core.NewPhaseChangedEvent("other", core.PhaseCompleted, now))
}
