package qstash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Destination: "https://example.com/hook"}); err == nil {
		t.Fatal("NewClient() error = nil, want missing url")
	}
	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("NewClient() error = nil, want missing destination")
	}
}

func TestNotifyPublishesMessage(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotMsg  Message
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotMsg); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Token: "tok", Destination: "ops-alerts"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Notify(context.Background(), "Action Performed: restartdevice on Device 42", "Hello"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if gotPath != "/v2/publish/ops-alerts" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotMsg.Subject != "Action Performed: restartdevice on Device 42" || gotMsg.Message != "Hello" {
		t.Fatalf("message = %+v", gotMsg)
	}
}

func TestNotifyReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL, Token: "tok", Destination: "ops-alerts"})
	err := client.Notify(context.Background(), "s", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("Notify() error = %v, want status 429", err)
	}
}
