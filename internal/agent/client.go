// Package agent is the HTTP client for the Genie agent service. One call
// per question; the backend runs its planner/executor/evaluator pipeline
// and returns the whole research trace in a single JSON payload.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const askPath = "/1/agent_service"

// Sentinel errors for the transport failure modes callers need to tell
// apart. Everything else surfaces as a wrapped generic error.
var (
	// ErrCancelled means the request's context was cancelled, which only
	// happens when a newer question superseded it. Callers are expected to
	// drop this rather than surface it.
	ErrCancelled = errors.New("request was cancelled")

	// ErrUnreachable means the service could not be reached at all, as
	// opposed to the service answering with an error status.
	ErrUnreachable = errors.New("could not connect to the Genie service")
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ask submits one question for the given session and returns the full
// trace response. Parameters travel in the query string; the POST body is
// empty — that is the service's contract, not an oversight.
//
// A response with Error=true is a domain-level failure and is returned
// without a Go error: transport succeeded, the pipeline did not.
func (c *Client) Ask(ctx context.Context, query, sessionID string) (*Response, error) {
	u, err := url.Parse(c.baseURL + askPath)
	if err != nil {
		return nil, fmt.Errorf("parse agent url: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("agent service returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// UserMessage converts a transport error into the string shown to the
// user. Domain errors carry their own messages inside the response and
// never reach this function.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "Request was cancelled."
	case errors.Is(err, ErrUnreachable):
		return "Could not connect to the Genie service. Please check your connection and try again."
	default:
		return "Something went wrong while processing your question. Please try again."
	}
}
