package agent

import (
	"bytes"
	"encoding/json"
)

// Response is the agent service's answer envelope. Error=true marks a
// domain-level failure inside an otherwise successful HTTP exchange; the
// message fields then carry the explanation, user_message preferred.
type Response struct {
	Error       bool      `json:"error,omitempty"`
	UserMessage string    `json:"user_message,omitempty"`
	Message     string    `json:"message,omitempty"`
	TraceInfo   TraceInfo `json:"trace_info"`
}

// TraceInfo is the research trace for one question. The per-stage agent
// fields are opaque pass-through JSON: clients render them as-is and this
// service only ever asks whether they are present.
type TraceInfo struct {
	FinalAnswer string `json:"final_answer"`
	SkipReason  string `json:"skip_reason,omitempty"`

	PlannerAgent    json.RawMessage `json:"planner_agent,omitempty"`
	ExecutorAgent   json.RawMessage `json:"executor_agent,omitempty"`
	EvaluationAgent json.RawMessage `json:"evaluation_agent,omitempty"`
	EditorAgent     json.RawMessage `json:"editor_agent,omitempty"`

	// Sources holds one list per source type, in the order the citation
	// grammar's letter tags address them: [A] is Sources[0], [B] is
	// Sources[1], and so on. Single-source answers use Sources[0].
	Sources []SourceList `json:"sources,omitempty"`
}

// SourceList groups the retrieved documents of one source type.
type SourceList struct {
	Type      string     `json:"type"`
	Documents []Document `json:"documents"`
}

// Document is one retrieved source a citation marker can point at.
type Document struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// HasTrace reports whether a raw agent-trace field is present and
// non-empty. Backends send null, [], or {} interchangeably for "nothing".
func HasTrace(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]", "{}", `""`:
		return false
	}
	return true
}
