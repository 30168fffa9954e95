// Package session keeps per-session conversation state across requests.
// Redis is the backing store when configured; a bounded in-process LRU
// fronts it either way, so the gateway also runs standalone with
// memory-only sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/genie-mentor/genied/internal/conversation"
)

// DefaultSessionID is the fixed placeholder used when a client supplies
// no session of its own.
const DefaultSessionID = "genie-default-session"

const (
	keyPrefix         = "genie:session:"
	maxCachedSessions = 4096
)

// OrDefault substitutes the placeholder session id for blank input.
func OrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSessionID
	}
	return id
}

type Registry struct {
	client *redis.Client // nil in memory-only mode
	cache  *lru.Cache[string, conversation.State]
	ttl    time.Duration
	logger *slog.Logger
}

// NewRegistry connects to Redis at redisAddr, or builds a memory-only
// registry when the address is empty.
func NewRegistry(redisAddr string, logger *slog.Logger) (*Registry, error) {
	cache, err := lru.New[string, conversation.State](maxCachedSessions)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	r := &Registry{
		cache:  cache,
		ttl:    24 * time.Hour,
		logger: logger,
	}
	if redisAddr == "" {
		logger.Warn("redis not configured — sessions are memory-only")
		return r, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	r.client = client
	return r, nil
}

// Load returns the stored conversation state for a session. The second
// return is false when the session is unknown.
func (r *Registry) Load(ctx context.Context, sessionID string) (conversation.State, bool, error) {
	if state, ok := r.cache.Get(sessionID); ok {
		return state, true, nil
	}
	if r.client == nil {
		return conversation.State{}, false, nil
	}

	data, err := r.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return conversation.State{}, false, nil
	}
	if err != nil {
		return conversation.State{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var state conversation.State
	if err := json.Unmarshal(data, &state); err != nil {
		return conversation.State{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	r.cache.Add(sessionID, state)
	return state, true, nil
}

// Save stores the conversation state and refreshes the session TTL.
func (r *Registry) Save(ctx context.Context, sessionID string, state conversation.State) error {
	r.cache.Add(sessionID, state)
	if r.client == nil {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, keyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes a session everywhere.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	r.cache.Remove(sessionID)
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Registry) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
}
