// Package conversation holds the pure state machine behind a Q&A session:
// an append-only history of question/answer items plus the reducer that
// advances it. Nothing here does I/O; the mentor coordinator owns the
// async side and drives this package through Reduce alone.
package conversation

import (
	"time"

	"github.com/genie-mentor/genied/internal/agent"
)

// Item is one question/answer exchange. It is created loading, then
// patched exactly once with either an answer or an error; items are never
// removed from a history.
type Item struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer,omitempty"`
	Response  *agent.Response `json:"api_response,omitempty"`
	IsLoading bool            `json:"is_loading"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// State is the full conversation state. History is in insertion order,
// which is also chronological order; the top-level fields mirror the
// in-flight status of the most recent exchange.
type State struct {
	History   []Item          `json:"history"`
	IsLoading bool            `json:"is_loading"`
	Error     string          `json:"error,omitempty"`
	Response  *agent.Response `json:"response,omitempty"`
}
