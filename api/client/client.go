// Package client is a small HTTP client for the tabletalk turn API, used by
// the chat and search commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/checkpoint"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
)

// DefaultTimeout covers a full turn: a classification plus up to two
// generation calls.
const DefaultTimeout = 5 * time.Minute

// ErrThreadNotFound is returned by Thread for an unknown thread id.
var ErrThreadNotFound = errors.New("thread not found")

// StatusError is a non-200 API response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to one API server.
type Client struct {
	target string
	http   *http.Client
}

// New builds a Client for target, e.g. "http://localhost:8081".
func New(target string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL %q: scheme and host are required", target)
	}

	return &Client{
		target: target,
		http:   &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Turn posts one user turn.
func (c *Client) Turn(ctx context.Context, threadID, userInput string) (*orchestrator.TurnResult, error) {
	body, err := json.Marshal(map[string]string{
		"thread_id":  threadID,
		"user_input": userInput,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var result orchestrator.TurnResult
	if err := c.do(ctx, http.MethodPost, "/v1/turn", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Retrieve runs a retrieval-only query.
func (c *Client) Retrieve(ctx context.Context, query string, k int) (*search.Output, error) {
	q := url.Values{}
	q.Set("query", query)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}

	var out search.Output
	if err := c.do(ctx, http.MethodGet, "/v1/retrieve", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Thread fetches a thread's checkpoint.
func (c *Client) Thread(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	err := c.do(ctx, http.MethodGet, "/v1/threads/"+url.PathEscape(id), nil, nil, &cp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u, err := url.Parse(c.target)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	u = u.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to tabletalk API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr llm.ErrorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
