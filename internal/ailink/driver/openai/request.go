package openai

import (
	"fmt"
	"strings"

	"github.com/ixra/ixra-api/internal/ailink/content"
	"github.com/ixra/ixra-api/internal/ailink/driver"
)

type chatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	Temperature         *float64       `json:"temperature,omitempty"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string         `json:"reasoning_effort,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildChatRequest(req *driver.Request, stream bool) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	payload := &chatCompletionRequest{
		Model:               req.Model,
		Messages:            messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxCompletionTokens,
		ReasoningEffort:     strings.TrimSpace(req.ReasoningEffort),
	}
	if stream {
		payload.Stream = true
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	return payload, nil
}

func convertMessages(messages []content.Message) ([]chatMessage, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	result := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		for _, block := range msg.Content {
			if block.Type != content.ContentTypeText {
				return nil, fmt.Errorf("unsupported content type: %s", block.Type)
			}
		}
		result = append(result, chatMessage{Role: msg.Role, Content: msg.Text()})
	}
	return result, nil
}
