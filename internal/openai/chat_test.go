package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

type fakeChatAPI struct {
	request  openai.ChatCompletionRequest
	response openai.ChatCompletionResponse
	err      error
}

func (f *fakeChatAPI) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = request
	return f.response, f.err
}

func TestComplete_SendsPromptAndReturnsContent(t *testing.T) {
	api := &fakeChatAPI{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "O prazo encerra em 30/09/2026."}},
			},
		},
	}
	client := &ChatClient{api: api, model: DefaultChatModel}

	content, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "Voce e a Iana."},
		{Role: "user", Content: "Qual o prazo?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "O prazo encerra em 30/09/2026.", content)
	assert.Equal(t, DefaultChatModel, api.request.Model)
	assert.InDelta(t, chatTemperature, api.request.Temperature, 0.001)
	require.Len(t, api.request.Messages, 2)
	assert.Equal(t, "system", api.request.Messages[0].Role)
	assert.Equal(t, "user", api.request.Messages[1].Role)
}

func TestComplete_TransportErrorIsUpstreamFailure(t *testing.T) {
	api := &fakeChatAPI{err: errors.New("connection refused")}
	client := &ChatClient{api: api, model: DefaultChatModel}

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "oi"}})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUpstreamFailure, domainErr.Code)
}

func TestComplete_EmptyCompletion(t *testing.T) {
	cases := []struct {
		name     string
		response openai.ChatCompletionResponse
	}{
		{name: "no choices", response: openai.ChatCompletionResponse{}},
		{
			name: "blank content",
			response: openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: "  \n "}},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeChatAPI{response: tc.response}
			client := &ChatClient{api: api, model: DefaultChatModel}

			_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "oi"}})

			assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
		})
	}
}
