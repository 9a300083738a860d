package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
)

type fakeCompleter struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, params contractx.CompletionParams) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func newTestRouter(t *testing.T, completer *fakeCompleter) *Router {
	t.Helper()

	intents, err := promptx.LoadIntents()
	if err != nil {
		t.Fatalf("LoadIntents() error = %v", err)
	}
	r, err := New(completer, intents, contractx.CompletionParams{Model: "router-model"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRouteSQLQuestion(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "```json\n{\"destination\": \"sql\", \"next_inputs\": \"max temperature for device 7\"}\n```"}
	r := newTestRouter(t, completer)

	got := r.Route(context.Background(), Request{
		SessionID: "1a23b-4c",
		Utterance: "What is the max temperature for device 7?",
	})
	if got.Destination != contractx.DestinationSQL || got.Forced {
		t.Fatalf("Route() = %+v, want resolved sql", got)
	}
	if got.NextInput != "max temperature for device 7" {
		t.Fatalf("NextInput = %q", got.NextInput)
	}
	if completer.calls != 1 {
		t.Fatalf("completion calls = %d, want 1", completer.calls)
	}
}

func TestRouteUnfencedResponseFallsBack(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "I think this is about the weather."}
	r := newTestRouter(t, completer)

	got := r.Route(context.Background(), Request{SessionID: "s", Utterance: "what's the weather?"})
	if got.Destination != contractx.DestinationDefault || !got.Forced {
		t.Fatalf("Route() = %+v, want forced default", got)
	}
	if got.NextInput != "what's the weather?" {
		t.Fatalf("NextInput = %q, want original utterance", got.NextInput)
	}
	if got.Reason != contractx.ReasonExtractionFailed {
		t.Fatalf("Reason = %q", got.Reason)
	}
}

func TestRouteDestinationMatching(t *testing.T) {
	t.Parallel()

	cases := []struct {
		dest       string
		want       contractx.Destination
		wantForced bool
		reason     string
	}{
		{dest: "SQL", want: contractx.DestinationSQL},
		{dest: " Rag ", want: contractx.DestinationRAG},
		{dest: "sql: the sql prompt", want: contractx.DestinationSQL},
		{dest: "sequel", want: contractx.DestinationDefault, wantForced: true, reason: contractx.ReasonUnknownDestination},
		{dest: "physics", want: contractx.DestinationDefault, wantForced: true, reason: contractx.ReasonUnknownDestination},
		{dest: "sql or rag", want: contractx.DestinationDefault, wantForced: true, reason: contractx.ReasonAmbiguousDestination},
	}

	for _, tc := range cases {
		completer := &fakeCompleter{reply: "```json\n{\"destination\": \"" + tc.dest + "\", \"next_inputs\": \"rewritten\"}\n```"}
		r := newTestRouter(t, completer)

		got := r.Route(context.Background(), Request{SessionID: "s", Utterance: "original"})
		if got.Destination != tc.want || got.Forced != tc.wantForced {
			t.Fatalf("dest %q: Route() = %+v", tc.dest, got)
		}
		if tc.wantForced {
			if got.NextInput != "original" {
				t.Fatalf("dest %q: forced NextInput = %q, want original", tc.dest, got.NextInput)
			}
			if got.Reason != tc.reason {
				t.Fatalf("dest %q: Reason = %q, want %q", tc.dest, got.Reason, tc.reason)
			}
			if got.RawDestination != strings.TrimSpace(tc.dest) {
				t.Fatalf("dest %q: RawDestination = %q", tc.dest, got.RawDestination)
			}
		} else if got.NextInput != "rewritten" {
			t.Fatalf("dest %q: NextInput = %q", tc.dest, got.NextInput)
		}
	}
}

func TestRouteMissingFields(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeCompleter{reply: "```json\n{\"destination\": \"rag\"}\n```"})
	got := r.Route(context.Background(), Request{SessionID: "s", Utterance: "tell me about device 9"})
	if got.Destination != contractx.DestinationRAG || got.Forced {
		t.Fatalf("Route() = %+v", got)
	}
	if got.NextInput != "tell me about device 9" {
		t.Fatalf("NextInput = %q, want utterance", got.NextInput)
	}

	r = newTestRouter(t, &fakeCompleter{reply: "```json\n{\"next_inputs\": \"x\"}\n```"})
	got = r.Route(context.Background(), Request{SessionID: "s", Utterance: "hi"})
	if !got.Forced || got.Reason != contractx.ReasonMissingDestination || got.NextInput != "hi" {
		t.Fatalf("Route() = %+v", got)
	}
}

func TestRouteCompletionFailureFallsBack(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("upstream 503")}
	r := newTestRouter(t, completer)

	got := r.Route(context.Background(), Request{SessionID: "s", Utterance: "hello"})
	if !got.Forced || got.Destination != contractx.DestinationDefault || got.Reason != contractx.ReasonCompletionFailed {
		t.Fatalf("Route() = %+v", got)
	}
	if completer.calls != 1 {
		t.Fatalf("completion calls = %d, want 1 (no retry)", completer.calls)
	}
}

func TestRoutePromptCarriesCatalogHistoryAndUtterance(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "```json\n{\"destination\":\"default\",\"next_inputs\":\"x\"}\n```"}
	r := newTestRouter(t, completer)

	r.Route(context.Background(), Request{
		SessionID: "s",
		Utterance: "and the minimum?",
		History: []contractx.Turn{
			{Role: contractx.RoleUser, Content: "max pressure for device 3"},
			{Role: contractx.RoleAssistant, Content: "It was 91 psi."},
		},
	})

	p := completer.prompts[0]
	for _, want := range []string{
		"sql: ", "rag: ", "action: ", "default: ",
		"user: max pressure for device 3\nassistant: It was 91 psi.",
		"and the minimum?",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("router prompt missing %q:\n%s", want, p)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	if d, reason := Resolve("ACTION"); d != contractx.DestinationAction || reason != "" {
		t.Fatalf("Resolve(ACTION) = %q %q", d, reason)
	}
	if _, reason := Resolve("lambdachain"); reason != contractx.ReasonUnknownDestination {
		t.Fatalf("Resolve(lambdachain) reason = %q", reason)
	}
}
