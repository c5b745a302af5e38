package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ixra/ixra-api/internal/ailink/content"
	"github.com/ixra/ixra-api/internal/ailink/driver"
	"github.com/ixra/ixra-api/internal/ailink/sse"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
)

// Client implements the OpenAI chat completions driver via direct HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsStreaming: true}
}

// Complete sends a chat completion request and waits for the full answer.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	ctx, cancel := withTimeout(ctx, c.timeout())
	if cancel != nil {
		defer cancel()
	}

	resp, body, endpoint, start, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	entry := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       req.Model,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if json.Valid(respBody) {
		entry.Response = respBody
	}
	driver.Trace(entry)

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toDriverResponse(&parsed)
}

// Stream sends a streaming chat completion request and forwards text deltas to emit.
func (c *Client) Stream(ctx context.Context, req *driver.Request, emit func(delta string) error) (*driver.Response, error) {
	if emit == nil {
		return nil, errors.New("stream callback is required")
	}

	ctx, cancel := withTimeout(ctx, c.timeout())
	if cancel != nil {
		defer cancel()
	}

	resp, body, endpoint, start, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	entry := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       req.Model,
		RequestBody: body,
		StatusCode:  resp.StatusCode,
		Streamed:    true,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		entry.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(entry)
		return nil, checkStatus(resp.StatusCode, respBody)
	}

	var (
		text   strings.Builder
		result = &driver.Response{}
		reader = sse.NewReader(resp.Body)
	)
	streamErr := func() error {
		for {
			ev, err := reader.Next()
			if err != nil {
				return fmt.Errorf("read stream: %w", err)
			}
			if ev == nil || ev.Done() {
				return nil
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			if chunk.Error != nil {
				return &driver.ProviderError{Provider: providerName, Message: chunk.Error.Message, RawResponse: []byte(ev.Data)}
			}
			if chunk.Usage != nil {
				result.Usage = chunk.Usage.toDriver()
			}
			for _, ch := range chunk.Choices {
				if ch.FinishReason != "" {
					result.FinishReason = ch.FinishReason
				}
				if ch.Delta.Content == "" {
					continue
				}
				entry.Chunks++
				text.WriteString(ch.Delta.Content)
				if err := emit(ch.Delta.Content); err != nil {
					return err
				}
			}
		}
	}()

	entry.DurationMs = time.Since(start).Milliseconds()
	if streamErr != nil {
		entry.Error = streamErr.Error()
	}
	driver.Trace(entry)

	if streamErr != nil {
		return nil, streamErr
	}

	result.Content = []content.ContentBlock{{Type: content.ContentTypeText, Text: text.String()}}
	return result, nil
}

func (c *Client) post(ctx context.Context, req *driver.Request, stream bool) (*http.Response, []byte, string, time.Time, error) {
	var start time.Time
	if c == nil {
		return nil, nil, "", start, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, nil, "", start, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req, stream)
	if err != nil {
		return nil, nil, "", start, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, "", start, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, "", start, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start = time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		driver.Trace(driver.TraceEntry{
			Driver:      providerName,
			Endpoint:    endpoint,
			Method:      http.MethodPost,
			Model:       payload.Model,
			RequestBody: body,
			Streamed:    stream,
			Error:       err.Error(),
			DurationMs:  time.Since(start).Milliseconds(),
		})
		return nil, nil, "", start, fmt.Errorf("request failed: %w", err)
	}

	return resp, body, endpoint, start, nil
}

func (c *Client) timeout() time.Duration {
	if c == nil {
		return 0
	}
	return c.Timeout
}

func checkStatus(status int, body []byte) error {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}
	return &driver.ProviderError{Provider: providerName, StatusCode: status, Message: strings.TrimSpace(string(body)), RawResponse: body}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
