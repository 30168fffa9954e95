// Package events publishes conversation lifecycle events to NATS so other
// agents in the swarm can observe Q&A traffic without polling the API.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectQuestionAsked  = "genie.conversation.question.asked"
	SubjectAnswerReceived = "genie.conversation.answer.received"
	SubjectAskFailed      = "genie.conversation.ask.failed"
)

// QuestionAsked is emitted when a new item enters a conversation.
type QuestionAsked struct {
	SessionID string    `json:"session_id"`
	ItemID    string    `json:"item_id"`
	Question  string    `json:"question"`
	AskedAt   time.Time `json:"asked_at"`
}

// AnswerReceived is emitted when the agent service answers.
type AnswerReceived struct {
	SessionID  string `json:"session_id"`
	ItemID     string `json:"item_id"`
	Simplified bool   `json:"simplified"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// AskFailed is emitted when an item ends in an error instead of an
// answer. Cancelled (superseded) asks are not failures and emit nothing.
type AskFailed struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	Error     string `json:"error"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
