package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	orchestratorx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	statex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/state"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string, params contractx.CompletionParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type stubQueries struct{}

func (stubQueries) RunQuery(ctx context.Context, sql string) ([]contractx.Row, error) {
	return nil, nil
}

type stubRetriever struct{}

func (stubRetriever) Retrieve(ctx context.Context, text string) ([]contractx.Document, error) {
	return nil, nil
}

type stubActions struct{}

func (stubActions) Invoke(ctx context.Context, action string, target string) (string, error) {
	return "ok", nil
}

type fakeSubmitter struct {
	texts []string
	err   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, sessionID string, text string, opts orchestratorx.TurnOptions) (orchestratorx.TurnResult, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return orchestratorx.TurnResult{}, f.err
	}
	return orchestratorx.TurnResult{
		SessionID:   sessionID,
		Reply:       "echo " + text,
		Destination: contractx.DestinationDefault,
	}, nil
}

func TestAppConfigValidate(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"memory", "SQLite", "upstash"} {
		conf := AppConfig{HTTPAddr: ":8080", SessionBackend: backend}
		if err := conf.Validate(); err != nil {
			t.Fatalf("Validate(%s) error = %v", backend, err)
		}
	}
	conf := AppConfig{HTTPAddr: ":8080", SessionBackend: "dynamo"}
	if err := conf.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want unknown backend")
	}
}

func TestConfigErrorWrapsOnce(t *testing.T) {
	t.Parallel()

	err := configError("llm", errors.New("api key missing"))
	if !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("configError() = %v, want ErrConfiguration", err)
	}
	again := configError("app", err)
	if again != err {
		t.Fatalf("configError() rewrapped: %v", again)
	}
}

func TestNewSessionStoreBackends(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "sessions.db"))

	a := &app{}
	store, err := newSessionStore("memory", a)
	if err != nil {
		t.Fatalf("newSessionStore(memory) error = %v", err)
	}
	if _, ok := store.(*statex.MemoryStore); !ok {
		t.Fatalf("store = %T, want *MemoryStore", store)
	}

	store, err = newSessionStore("sqlite", a)
	if err != nil {
		t.Fatalf("newSessionStore(sqlite) error = %v", err)
	}
	if _, ok := store.(*statex.SQLiteStore); !ok {
		t.Fatalf("store = %T, want *SQLiteStore", store)
	}
	if len(a.closers) != 1 {
		t.Fatalf("closers = %d, want 1", len(a.closers))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := newSessionStore("dynamo", a); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("newSessionStore(dynamo) error = %v, want ErrConfiguration", err)
	}
}

func TestNewEngineRunsTurn(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{replies: []string{
		"```json\n{\"destination\": \"default\", \"next_inputs\": \"hello there\"}\n```",
		"Hello! How can I help with your devices?",
	}}
	llmCfg := llmx.Config{Model: "m", RAGTemperature: -1, DefaultTemperature: -1}

	engine, err := newEngine(statex.NewMemoryStore(), completer, llmCfg, stubQueries{}, stubRetriever{}, stubActions{}, nil)
	if err != nil {
		t.Fatalf("newEngine() error = %v", err)
	}

	res, err := engine.Submit(context.Background(), "s1", "hello there", orchestratorx.TurnOptions{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Destination != contractx.DestinationDefault || res.Reply != "Hello! How can I help with your devices?" {
		t.Fatalf("Submit() = %+v", res)
	}
}

func TestRunChat(t *testing.T) {
	t.Parallel()

	engine := &fakeSubmitter{}
	in := strings.NewReader("hello\n\n  what is the max temp  \nexit\nignored\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), engine, "s1", in, &out); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if len(engine.texts) != 2 || engine.texts[1] != "what is the max temp" {
		t.Fatalf("submitted = %q", engine.texts)
	}
	if !strings.Contains(out.String(), "[default] echo hello") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunChatStopsOnPersistenceFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeSubmitter{err: fmt.Errorf("%w: disk full", contractx.ErrPersistence)}
	err := runChat(context.Background(), engine, "s1", strings.NewReader("hello\nagain\n"), &bytes.Buffer{})
	if !errors.Is(err, contractx.ErrPersistence) {
		t.Fatalf("runChat() error = %v, want ErrPersistence", err)
	}
	if len(engine.texts) != 1 {
		t.Fatalf("submitted = %q, want stop after first failure", engine.texts)
	}
}

func TestRunChatPrintsValidationErrors(t *testing.T) {
	t.Parallel()

	engine := &fakeSubmitter{err: orchestratorx.ErrInvalidMessage}
	var out bytes.Buffer
	if err := runChat(context.Background(), engine, "s1", strings.NewReader("x\n"), &out); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if !strings.Contains(out.String(), "error: ") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, time.Second) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer() did not return after cancel")
	}
}
