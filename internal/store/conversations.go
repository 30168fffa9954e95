package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/genie-mentor/genied/internal/agent"
	"github.com/genie-mentor/genied/internal/conversation"
)

// InsertItem records a freshly asked question.
// Table: conversation_items.
func (s *Store) InsertItem(ctx context.Context, sessionID string, item conversation.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_items (id, session_id, question, is_loading, created_at)
		VALUES ($1, $2, $3, true, $4)`,
		item.ID, sessionID, item.Question, item.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// MarkAnswered patches an item with its final answer and the full trace
// payload for later replay.
func (s *Store) MarkAnswered(ctx context.Context, itemID string, answer string, resp *agent.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE conversation_items
		SET answer = $1, response = $2, is_loading = false, error = NULL, answered_at = now()
		WHERE id = $3`,
		answer, payload, itemID,
	)
	if err != nil {
		return fmt.Errorf("mark answered: %w", err)
	}
	return nil
}

// MarkFailed patches an item with the user-facing error string.
func (s *Store) MarkFailed(ctx context.Context, itemID string, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversation_items
		SET error = $1, is_loading = false, answered_at = now()
		WHERE id = $2`,
		message, itemID,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// History returns a session's items in insertion order.
func (s *Store) History(ctx context.Context, sessionID string) ([]conversation.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, question, COALESCE(answer, ''), COALESCE(error, ''), is_loading, response, created_at
		FROM conversation_items
		WHERE session_id = $1
		ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var items []conversation.Item
	for rows.Next() {
		var (
			item      conversation.Item
			payload   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&item.ID, &item.Question, &item.Answer, &item.Error, &item.IsLoading, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Timestamp = createdAt
		if len(payload) > 0 {
			var resp agent.Response
			if err := json.Unmarshal(payload, &resp); err != nil {
				return nil, fmt.Errorf("decode response for item %s: %w", item.ID, err)
			}
			item.Response = &resp
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteSession removes all items of one session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conversation_items WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
