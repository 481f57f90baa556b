package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the Groq-hosted model used for chat completions.
	DefaultChatModel = "llama-3.3-70b-versatile"

	chatTemperature = 0.3
)

// ChatMessage is one prompt message sent to the completion provider.
type ChatMessage struct {
	Role    string
	Content string
}

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatClient calls an OpenAI-compatible chat completion endpoint (Groq in
// production).
type ChatClient struct {
	api   chatAPI
	model string
}

// NewChatClient creates a chat client. baseURL overrides the OpenAI endpoint
// so the same client speaks to Groq's compatible API.
func NewChatClient(apiKey, baseURL, model string) *ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatClient{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Complete sends the full prompt and returns the generated text. A transport
// failure or an empty completion is a terminal error for the request; it is
// never silently replaced with fabricated content.
func (c *ChatClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: chatTemperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamFailure, "chat completion failed", fmt.Errorf("create chat completion: %w", err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", domain.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
