package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAsk_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/1/agent_service" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "what is RAG?" {
			t.Errorf("query param = %q", got)
		}
		if got := r.URL.Query().Get("session_id"); got != "sess-42" {
			t.Errorf("session_id param = %q", got)
		}
		if r.ContentLength > 0 {
			t.Errorf("expected empty body, got %d bytes", r.ContentLength)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{
			TraceInfo: TraceInfo{
				FinalAnswer:  "Retrieval-augmented generation. [1]",
				PlannerAgent: json.RawMessage(`[{"step":"search"}]`),
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	resp, err := c.Ask(context.Background(), "what is RAG?", "sess-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error {
		t.Error("expected non-error response")
	}
	if resp.TraceInfo.FinalAnswer != "Retrieval-augmented generation. [1]" {
		t.Errorf("final answer = %q", resp.TraceInfo.FinalAnswer)
	}
	if !HasTrace(resp.TraceInfo.PlannerAgent) {
		t.Error("planner trace should be present")
	}
}

func TestAsk_DomainErrorIsNotTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"error":        true,
			"user_message": "The pipeline could not answer this question.",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	resp, err := c.Ask(context.Background(), "q", "s")
	if err != nil {
		t.Fatalf("domain failure must not be a Go error: %v", err)
	}
	if !resp.Error {
		t.Error("expected Error=true")
	}
	if resp.UserMessage != "The pipeline could not answer this question." {
		t.Errorf("user_message = %q", resp.UserMessage)
	}
}

func TestAsk_ServerStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	_, err := c.Ask(context.Background(), "q", "s")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrUnreachable) || errors.Is(err, ErrCancelled) {
		t.Errorf("status error should be generic, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention the status: %v", err)
	}
}

func TestAsk_Unreachable(t *testing.T) {
	// Grab a port that nothing listens on.
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c := NewClient(addr, time.Second)
	_, err := c.Ask(context.Background(), "q", "s")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestAsk_Cancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	c := NewClient(server.URL, 10*time.Second)
	_, err := c.Ask(ctx, "q", "s")
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"cancelled", ErrCancelled, "Request was cancelled."},
		{"unreachable", ErrUnreachable, "Could not connect to the Genie service. Please check your connection and try again."},
		{"wrapped unreachable", errors.Join(errors.New("dial tcp"), ErrUnreachable), "Could not connect to the Genie service. Please check your connection and try again."},
		{"generic", errors.New("boom"), "Something went wrong while processing your question. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasTrace(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"nil", "", false},
		{"null", "null", false},
		{"empty array", "[]", false},
		{"empty object", "{}", false},
		{"whitespace", "  null  ", false},
		{"array", `[{"step":1}]`, true},
		{"object", `{"plan":"x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			if got := HasTrace(raw); got != tt.want {
				t.Errorf("HasTrace(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
