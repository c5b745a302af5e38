// Package chatclient talks to a running /api/chat endpoint.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ixra/ixra-api/internal/chat"
)

// DefaultMaxAttempts is the number of tries for one message, first included.
const DefaultMaxAttempts = 2

const maxErrorBody = 4 << 10

// RateLimitedError is returned when the server rejects the request for quota.
// It is never retried.
type RateLimitedError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError is returned for non-2xx responses other than 429.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat request failed: status %d: %s", e.StatusCode, e.Message)
}

// Reply is the assistant's answer.
type Reply struct {
	Content  string
	Streamed bool
	Attempts int
}

// Client sends conversations to the chat endpoint.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts int
	// ClientID is sent as X-Forwarded-For so local testing can pose as distinct visitors.
	ClientID string
}

// New returns a client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 90 * time.Second},
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Send posts the conversation. onDelta, when non-nil, receives streamed text
// as it arrives; complete-mode replies are delivered in one call.
//
// Transport errors and 5xx responses are retried up to MaxAttempts. A retry
// after a partially streamed reply is not attempted.
func (c *Client) Send(ctx context.Context, turns []chat.Turn, onDelta func(string)) (*Reply, error) {
	payload, err := json.Marshal(map[string]any{"messages": turns})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, retry, err := c.send(ctx, payload, onDelta)
		if err == nil {
			reply.Attempts = attempt
			return reply, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, payload []byte, onDelta func(string)) (*Reply, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ClientID != "" {
		req.Header.Set("X-Forwarded-For", c.ClientID)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		body := decodeBody(resp.Body)
		return nil, false, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Message: body.Content}
	case resp.StatusCode >= 500:
		body := decodeBody(resp.Body)
		return nil, true, &StatusError{StatusCode: resp.StatusCode, Message: body.message()}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body := decodeBody(resp.Body)
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Message: body.message()}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body responseBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, true, fmt.Errorf("decode reply: %w", err)
		}
		if onDelta != nil {
			onDelta(body.Content)
		}
		return &Reply{Content: body.Content}, false, nil
	}

	var sb strings.Builder
	buf := make([]byte, 1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			sb.WriteString(chunk)
			if onDelta != nil {
				onDelta(chunk)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			// Text was already shown; the caller decides what to do.
			return nil, sb.Len() == 0, fmt.Errorf("read stream: %w", readErr)
		}
	}
	return &Reply{Content: sb.String(), Streamed: true}, false, nil
}

type responseBody struct {
	Content string `json:"content"`
	Error   any    `json:"error"`
}

func (b responseBody) message() string {
	switch v := b.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return b.Content
}

func decodeBody(r io.Reader) responseBody {
	var body responseBody
	_ = json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body)
	return body
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
