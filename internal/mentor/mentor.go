// Package mentor coordinates one conversation per session: it drives the
// pure conversation reducer, issues the agent call, and enforces the
// single-authoritative-request rule — a new question cancels the prior
// in-flight call, and a superseded call's outcome never touches state.
package mentor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/genie-mentor/genied/internal/agent"
	"github.com/genie-mentor/genied/internal/conversation"
	"github.com/genie-mentor/genied/internal/events"
	"github.com/genie-mentor/genied/internal/session"
	"github.com/genie-mentor/genied/internal/store"
)

var (
	// ErrEmptyQuestion rejects blank questions before they reach the
	// reducer (which would no-op on them anyway).
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrSuperseded means a newer question for the same session arrived
	// while this one was in flight. The caller's result was dropped.
	ErrSuperseded = errors.New("superseded by a newer question")
)

// Asker is the slice of the agent client the mentor needs.
type Asker interface {
	Ask(ctx context.Context, query, sessionID string) (*agent.Response, error)
}

// inflight tracks the authoritative call for one session. Only the call
// holding the current generation may patch conversation state.
type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

type Mentor struct {
	agent    Asker
	sessions *session.Registry
	store    *store.Store      // optional — nil disables persistence
	events   *events.Publisher // optional — nil disables the event bus
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflight
	nextGen  uint64
}

func New(a Asker, sessions *session.Registry, db *store.Store, pub *events.Publisher, logger *slog.Logger) *Mentor {
	return &Mentor{
		agent:    a,
		sessions: sessions,
		store:    db,
		events:   pub,
		logger:   logger,
		inflight: make(map[string]*inflight),
	}
}

// Result is one completed exchange: the patched item plus the state the
// conversation ended in.
type Result struct {
	Item  conversation.Item
	State conversation.State
}

// Ask runs one question through the conversation: append a loading item,
// call the agent service, patch the item with the answer or error. The
// returned item is terminal (answered or failed) unless the ask was
// superseded, in which case ErrSuperseded comes back and the newer ask
// owns the conversation.
func (m *Mentor) Ask(ctx context.Context, sessionID, question string) (Result, error) {
	sessionID = session.OrDefault(sessionID)
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}

	act := conversation.NewQuestion(question)
	callCtx, gen, state := m.begin(ctx, sessionID, act)
	defer m.end(sessionID, gen)

	if m.store != nil {
		item := state.History[len(state.History)-1]
		if err := m.store.InsertItem(ctx, sessionID, item); err != nil {
			m.logger.Warn("failed to persist question", "session_id", sessionID, "error", err)
		}
	}
	m.publish(events.SubjectQuestionAsked, events.QuestionAsked{
		SessionID: sessionID,
		ItemID:    act.ID,
		Question:  question,
		AskedAt:   act.At,
	})

	resp, err := m.agent.Ask(callCtx, question, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(sessionID, gen) {
		// A newer question cancelled this call; whatever came back —
		// including the cancellation error itself — must not patch the
		// item that superseded us.
		return Result{}, ErrSuperseded
	}

	state = m.loadStateLocked(ctx, sessionID)
	if err != nil {
		if errors.Is(err, agent.ErrCancelled) {
			// Cancelled without being superseded: the caller went away.
			return Result{}, ErrSuperseded
		}
		msg := agent.UserMessage(err)
		m.logger.Error("agent call failed", "session_id", sessionID, "error", err)
		state = conversation.Reduce(state, conversation.UpdateError{Message: msg})
		m.saveStateLocked(ctx, sessionID, state)
		m.recordFailure(sessionID, act.ID, msg)
		return Result{Item: lastItem(state), State: state}, nil
	}

	state = conversation.Reduce(state, conversation.UpdateResponse{Response: resp})
	m.saveStateLocked(ctx, sessionID, state)

	item := lastItem(state)
	if resp.Error {
		m.recordFailure(sessionID, act.ID, item.Error)
	} else {
		if m.store != nil {
			if serr := m.store.MarkAnswered(context.WithoutCancel(ctx), act.ID, item.Answer, resp); serr != nil {
				m.logger.Warn("failed to persist answer", "item_id", act.ID, "error", serr)
			}
		}
		m.publish(events.SubjectAnswerReceived, events.AnswerReceived{
			SessionID:  sessionID,
			ItemID:     act.ID,
			Simplified: conversation.SimplifiedAnswer(resp),
			SkipReason: resp.TraceInfo.SkipReason,
		})
	}
	return Result{Item: item, State: state}, nil
}

// History returns the current conversation state for a session, falling
// back to the database when the session registry has nothing.
func (m *Mentor) History(ctx context.Context, sessionID string) (conversation.State, error) {
	sessionID = session.OrDefault(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok, err := m.sessions.Load(ctx, sessionID)
	if err != nil {
		return conversation.State{}, err
	}
	if ok {
		return state, nil
	}
	if m.store == nil {
		return conversation.State{}, nil
	}

	items, err := m.store.History(ctx, sessionID)
	if err != nil {
		return conversation.State{}, err
	}
	state = conversation.State{History: items}
	if len(items) > 0 {
		m.saveStateLocked(ctx, sessionID, state)
	}
	return state, nil
}

// Reset discards a session's conversation everywhere.
func (m *Mentor) Reset(ctx context.Context, sessionID string) error {
	sessionID = session.OrDefault(sessionID)

	m.mu.Lock()
	if call, ok := m.inflight[sessionID]; ok {
		call.cancel()
		delete(m.inflight, sessionID)
	}
	m.mu.Unlock()

	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if m.store != nil {
		return m.store.DeleteSession(ctx, sessionID)
	}
	return nil
}

// begin makes this call the session's authoritative one and appends its
// item, cancelling any call it supersedes. Registration and append form
// one critical section: were they separate, a superseded ask could slip
// its item in after its superseder's, and the last-item patch would land
// on the wrong exchange — or leave the newest item pending forever.
func (m *Mentor) begin(ctx context.Context, sessionID string, act conversation.AddQuestion) (context.Context, uint64, conversation.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.inflight[sessionID]; ok {
		prev.cancel()
	}
	m.nextGen++
	gen := m.nextGen
	callCtx, cancel := context.WithCancel(ctx)
	m.inflight[sessionID] = &inflight{gen: gen, cancel: cancel}

	state := m.loadStateLocked(ctx, sessionID)
	state = conversation.Reduce(state, act)
	m.saveStateLocked(ctx, sessionID, state)
	return callCtx, gen, state
}

// end releases the in-flight slot if this call still owns it.
func (m *Mentor) end(sessionID string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if call, ok := m.inflight[sessionID]; ok && call.gen == gen {
		call.cancel()
		delete(m.inflight, sessionID)
	}
}

func (m *Mentor) currentLocked(sessionID string, gen uint64) bool {
	call, ok := m.inflight[sessionID]
	return ok && call.gen == gen
}

func (m *Mentor) loadStateLocked(ctx context.Context, sessionID string) conversation.State {
	state, _, err := m.sessions.Load(ctx, sessionID)
	if err != nil {
		m.logger.Warn("failed to load session state", "session_id", sessionID, "error", err)
	}
	return state
}

func (m *Mentor) saveStateLocked(ctx context.Context, sessionID string, state conversation.State) {
	if err := m.sessions.Save(context.WithoutCancel(ctx), sessionID, state); err != nil {
		m.logger.Warn("failed to save session state", "session_id", sessionID, "error", err)
	}
}

func (m *Mentor) recordFailure(sessionID, itemID, msg string) {
	if m.store != nil {
		if err := m.store.MarkFailed(context.Background(), itemID, msg); err != nil {
			m.logger.Warn("failed to persist error", "item_id", itemID, "error", err)
		}
	}
	m.publish(events.SubjectAskFailed, events.AskFailed{
		SessionID: sessionID,
		ItemID:    itemID,
		Error:     msg,
	})
}

func (m *Mentor) publish(subject string, data any) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(subject, data); err != nil {
		m.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func lastItem(s conversation.State) conversation.Item {
	if len(s.History) == 0 {
		return conversation.Item{}
	}
	return s.History[len(s.History)-1]
}
