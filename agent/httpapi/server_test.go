package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orchestratorx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

type submitCall struct {
	sessionID string
	text      string
	opts      orchestratorx.TurnOptions
}

type fakeEngine struct {
	result     orchestratorx.TurnResult
	err        error
	history    []contractx.Turn
	historyErr error
	calls      []submitCall
}

func (f *fakeEngine) Submit(ctx context.Context, sessionID string, text string, opts orchestratorx.TurnOptions) (orchestratorx.TurnResult, error) {
	f.calls = append(f.calls, submitCall{sessionID: sessionID, text: text, opts: opts})
	if f.err != nil {
		return orchestratorx.TurnResult{}, f.err
	}
	res := f.result
	res.SessionID = sessionID
	return res, nil
}

func (f *fakeEngine) History(ctx context.Context, sessionID string) ([]contractx.Turn, error) {
	return f.history, f.historyErr
}

func newTestServer(t *testing.T, engine *fakeEngine) *Server {
	t.Helper()

	s, err := NewServer(engine, zerolog.Nop())
	require.NoError(t, err)
	s.newID = func() string { return "minted-session" }
	return s
}

func postTurn(t *testing.T, s *Server, body string, header string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(SessionHeader, header)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresEngine(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil, zerolog.Nop())
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPostTurnMintsSession(t *testing.T) {
	t.Parallel()

	temp := float32(0.2)
	engine := &fakeEngine{result: orchestratorx.TurnResult{
		Reply:         "Device 7 peaked at 88C.",
		Destination:   contractx.DestinationSQL,
		CorrelationID: "corr-1",
	}}
	s := newTestServer(t, engine)

	body := fmt.Sprintf(`{"message":"max temp for device 7?","model":"m1","max_tokens":64,"temperature":%v}`, temp)
	rec := postTurn(t, s, body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "minted-session", rec.Header().Get(SessionHeader))

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, TurnResponse{
		SessionID:     "minted-session",
		Reply:         "Device 7 peaked at 88C.",
		Destination:   "sql",
		CorrelationID: "corr-1",
	}, resp)

	require.Len(t, engine.calls, 1)
	call := engine.calls[0]
	assert.Equal(t, "minted-session", call.sessionID)
	assert.Equal(t, "max temp for device 7?", call.text)
	assert.Equal(t, "m1", call.opts.Model)
	assert.Equal(t, 64, call.opts.MaxTokens)
	require.NotNil(t, call.opts.Temperature)
	assert.InDelta(t, 0.2, *call.opts.Temperature, 1e-6)
}

func TestPostTurnSessionSources(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: orchestratorx.TurnResult{Reply: "hi", Destination: contractx.DestinationDefault}}
	s := newTestServer(t, engine)

	rec := postTurn(t, s, `{"message":"hello"}`, "from-header")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postTurn(t, s, `{"session_id":"from-body","message":"hello"}`, "from-header")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, engine.calls, 2)
	assert.Equal(t, "from-header", engine.calls[0].sessionID)
	assert.Equal(t, "from-body", engine.calls[1].sessionID)
}

func TestPostTurnFallbackAndFailureFlags(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: orchestratorx.TurnResult{
		Reply:          "Sorry, I couldn't complete that action request: boom",
		Destination:    contractx.DestinationAction,
		Fallback:       false,
		Failed:         true,
		FallbackReason: "",
	}}
	s := newTestServer(t, engine)

	rec := postTurn(t, s, `{"session_id":"s1","message":"restart 42"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed":true`)
	assert.NotContains(t, rec.Body.String(), "fallback_reason")
}

func TestPostTurnErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "bad json", body: `{"message":`, want: http.StatusBadRequest},
		{name: "validation", body: `{"message":" "}`, err: orchestratorx.ErrInvalidMessage, want: http.StatusBadRequest},
		{name: "persistence", body: `{"message":"hi"}`, err: fmt.Errorf("%w: disk full", contractx.ErrPersistence), want: http.StatusServiceUnavailable},
		{name: "cancelled", body: `{"message":"hi"}`, err: fmt.Errorf("%w: context canceled", contractx.ErrCancelled), want: 499},
		{name: "unexpected", body: `{"message":"hi"}`, err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, &fakeEngine{err: tt.err})
			rec := postTurn(t, s, tt.body, "s1")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetHistory(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{history: []contractx.Turn{
		{ID: "t1", Role: contractx.RoleUser, Content: "hello"},
		{ID: "t2", Role: contractx.RoleAssistant, Content: "hi there", Destination: contractx.DestinationDefault},
	}}
	s := newTestServer(t, engine)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/turns", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.Turns, 2)
	assert.Equal(t, "hi there", resp.Turns[1].Content)
	assert.Equal(t, contractx.DestinationDefault, resp.Turns[1].Destination)
}

func TestGetHistoryEmptySession(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/new/turns", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session_id":"new","turns":[]}`, rec.Body.String())
}

func TestGetHistoryPersistenceFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{historyErr: fmt.Errorf("%w: timeout", contractx.ErrPersistence)})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/turns", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
