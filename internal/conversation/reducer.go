package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/genie-mentor/genied/internal/agent"
)

// defaultErrorMessage is the fallback when a failed response carries no
// usable message of its own.
const defaultErrorMessage = "The Genie service reported an error. Please try again."

// Action is the closed set of reducer inputs.
type Action interface {
	isAction()
}

// AddQuestion appends a new loading item. Build it with NewQuestion so
// the id and timestamp are fixed before reduction; Reduce itself stays
// deterministic.
type AddQuestion struct {
	ID       string
	Question string
	At       time.Time
}

// UpdateResponse patches the last item with the outcome of its call.
type UpdateResponse struct {
	Response *agent.Response
}

// UpdateError patches the last item with a transport-level failure.
type UpdateError struct {
	Message string
}

// SetLoading toggles the top-level loading flag only.
type SetLoading struct {
	IsLoading bool
}

// Reset discards the whole conversation.
type Reset struct{}

func (AddQuestion) isAction()    {}
func (UpdateResponse) isAction() {}
func (UpdateError) isAction()    {}
func (SetLoading) isAction()     {}
func (Reset) isAction()          {}

// NewQuestion builds an AddQuestion with a fresh id and creation time.
func NewQuestion(question string) AddQuestion {
	return AddQuestion{
		ID:       uuid.NewString(),
		Question: question,
		At:       time.Now().UTC(),
	}
}

// Reduce applies one action and returns the next state. The input state
// is never mutated. Unknown or invalid inputs return the state unchanged:
// a blank question is a no-op, and response/error updates on an empty
// history only touch the top-level fields.
//
// History is append-only and patches always target the last item — the
// mentor coordinator guarantees the last item is the one whose call just
// finished.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case AddQuestion:
		question := strings.TrimSpace(act.Question)
		if question == "" {
			return s
		}
		next := s
		next.History = appendItem(s.History, Item{
			ID:        act.ID,
			Question:  question,
			IsLoading: true,
			Timestamp: act.At,
		})
		next.IsLoading = true
		next.Error = ""
		next.Response = nil
		return next

	case UpdateResponse:
		if act.Response == nil {
			return s
		}
		next := s
		next.History = copyItems(s.History)
		if n := len(next.History); n > 0 {
			last := &next.History[n-1]
			last.IsLoading = false
			if act.Response.Error {
				last.Error = ErrorMessage(act.Response)
			} else {
				last.Answer = act.Response.TraceInfo.FinalAnswer
				last.Response = act.Response
				last.Error = ""
			}
		}
		next.IsLoading = false
		next.Response = act.Response
		return next

	case UpdateError:
		if act.Message == "" {
			return s
		}
		next := s
		next.History = copyItems(s.History)
		if n := len(next.History); n > 0 {
			last := &next.History[n-1]
			last.IsLoading = false
			last.Error = act.Message
		}
		next.IsLoading = false
		next.Error = act.Message
		return next

	case SetLoading:
		next := s
		next.IsLoading = act.IsLoading
		return next

	case Reset:
		return State{}
	}
	return s
}

// ErrorMessage extracts the user-facing message from a failed response:
// user_message first, then message, then the generic fallback.
func ErrorMessage(resp *agent.Response) string {
	if resp == nil {
		return defaultErrorMessage
	}
	if resp.UserMessage != "" {
		return resp.UserMessage
	}
	if resp.Message != "" {
		return resp.Message
	}
	return defaultErrorMessage
}

// SimplifiedAnswer reports whether a response should render as a plain
// answer instead of the tabbed research view: true when the backend
// skipped the pipeline for a greeting, or when no stage produced a trace.
func SimplifiedAnswer(resp *agent.Response) bool {
	if resp == nil {
		return true
	}
	t := resp.TraceInfo
	if strings.Contains(strings.ToLower(t.SkipReason), "greeting") {
		return true
	}
	return !agent.HasTrace(t.PlannerAgent) &&
		!agent.HasTrace(t.ExecutorAgent) &&
		!agent.HasTrace(t.EvaluationAgent) &&
		!agent.HasTrace(t.EditorAgent)
}

func appendItem(items []Item, item Item) []Item {
	next := make([]Item, 0, len(items)+1)
	next = append(next, items...)
	return append(next, item)
}

func copyItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	next := make([]Item, len(items))
	copy(next, items)
	return next
}
