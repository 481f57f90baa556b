package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
)

// MockChatCompleter is a mock implementation of ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, messages []openai.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockSettingsStore is a mock implementation of SettingsStore
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) GetRAGSettings(ctx context.Context) (domain.RAGSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.RAGSettings), args.Error(1)
}

func newChatFixture(t *testing.T) (*ChatService, *MockNoticeStore, *MockChunkSearchStore, *MockChatCompleter, *MockSettingsStore) {
	t.Helper()
	notices := new(MockNoticeStore)
	store := new(MockChunkSearchStore)
	llm := new(MockChatCompleter)
	settings := new(MockSettingsStore)
	svc := NewChatService(newTestAssembler(notices, store), llm, settings)
	return svc, notices, store, llm, settings
}

func userTurn(content string) domain.ChatTurn {
	return domain.ChatTurn{Role: domain.ChatRoleUser, Content: content}
}

func TestChat_EmptyHistory(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(t)

	_, err := svc.Chat(context.Background(), ChatInput{})
	assert.ErrorIs(t, err, domain.ErrEmptyChatHistory)
}

func TestChat_InvalidRole(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(t)

	_, err := svc.Chat(context.Background(), ChatInput{
		History: []domain.ChatTurn{{Role: "system", Content: "oi"}},
	})
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestChat_GroundedFlow(t *testing.T) {
	svc, notices, store, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(mediumSettings(), nil)
	notices.On("GetNotice", mock.Anything, "notice-1").Return(&domain.Notice{ID: "notice-1", Title: "Edital X"}, nil)
	store.On("HybridSearchChunks", mock.Anything, "notice-1", "qual o prazo final?", []float32(nil), 8).
		Return([]domain.ChunkMatch{{Content: "Prazo: 30/09.", FileName: "edital.txt", Rank: rankOf(0.6)}}, nil)

	var captured []openai.ChatMessage
	llm.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]openai.ChatMessage)
	}).Return("O prazo final e 30/09 [1].", nil)

	out, err := svc.Chat(context.Background(), ChatInput{
		History:       []domain.ChatTurn{userTurn("qual o prazo final?")},
		AssistantName: "a Iana",
		NoticeID:      "notice-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "O prazo final e 30/09 [1].", out.Content)
	assert.Equal(t, []string{"edital.txt"}, out.Sources)

	// system prompt, context block, then the history
	require.Len(t, captured, 3)
	assert.Equal(t, "system", captured[0].Role)
	assert.Contains(t, captured[0].Content, "a Iana")
	assert.Contains(t, captured[0].Content, "Use apenas o contexto fornecido")
	assert.Equal(t, "system", captured[1].Role)
	assert.Contains(t, captured[1].Content, "Trechos dos documentos do edital:")
	assert.Equal(t, "user", captured[2].Role)
}

func TestChat_UngroundedPromptWhenNothingRetrieved(t *testing.T) {
	svc, notices, _, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(mediumSettings(), nil)
	notices.On("ListNotices", mock.Anything).Return([]*domain.Notice{}, nil)

	var captured []openai.ChatMessage
	llm.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]openai.ChatMessage)
	}).Return("Nao encontrei editais para o seu perfil.", nil)

	out, err := svc.Chat(context.Background(), ChatInput{
		History: []domain.ChatTurn{userTurn("tem edital de drones?")},
	})

	require.NoError(t, err)
	assert.Empty(t, out.Sources)
	require.Len(t, captured, 2)
	assert.Contains(t, captured[0].Content, "Nenhum contexto de edital foi recuperado")
	assert.Contains(t, captured[0].Content, "um assistente")
}

func TestChat_HistoryTruncatedToLastTwelve(t *testing.T) {
	svc, notices, _, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(mediumSettings(), nil)
	notices.On("ListNotices", mock.Anything).Return([]*domain.Notice{}, nil)

	var captured []openai.ChatMessage
	llm.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]openai.ChatMessage)
	}).Return("ok", nil)

	history := make([]domain.ChatTurn, 0, 20)
	for i := 0; i < 20; i++ {
		role := domain.ChatRoleUser
		if i%2 == 1 {
			role = domain.ChatRoleAssistant
		}
		history = append(history, domain.ChatTurn{Role: role, Content: fmt.Sprintf("turno %d", i)})
	}

	_, err := svc.Chat(context.Background(), ChatInput{History: history})
	require.NoError(t, err)

	// 1 system prompt + the last 12 turns
	require.Len(t, captured, 13)
	assert.Equal(t, "turno 8", captured[1].Content)
	assert.Equal(t, "turno 19", captured[12].Content)
}

func TestChat_SettingsFailureFallsBackToDefaults(t *testing.T) {
	svc, notices, store, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(domain.RAGSettings{}, errors.New("db down"))
	notices.On("GetNotice", mock.Anything, "n1").Return(&domain.Notice{ID: "n1", Title: "t"}, nil)
	// defaults are medium strictness, so topK must be 8
	store.On("HybridSearchChunks", mock.Anything, "n1", "pergunta", []float32(nil), 8).
		Return([]domain.ChunkMatch{{Content: "trecho", FileName: "a.txt", Rank: rankOf(0.5)}}, nil)
	llm.On("Complete", mock.Anything, mock.Anything).Return("resposta", nil)

	out, err := svc.Chat(context.Background(), ChatInput{
		History:  []domain.ChatTurn{userTurn("pergunta")},
		NoticeID: "n1",
	})

	require.NoError(t, err)
	assert.Equal(t, "resposta", out.Content)
	store.AssertExpectations(t)
}

func TestChat_CompletionFailureIsTerminal(t *testing.T) {
	svc, notices, _, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(mediumSettings(), nil)
	notices.On("ListNotices", mock.Anything).Return([]*domain.Notice{}, nil)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", domain.ErrAssistantUnavailable)

	_, err := svc.Chat(context.Background(), ChatInput{
		History: []domain.ChatTurn{userTurn("oi")},
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUpstreamFailure, domainErr.Code)
}

func TestChat_QueryIsLatestUserTurn(t *testing.T) {
	svc, notices, store, llm, settings := newChatFixture(t)

	settings.On("GetRAGSettings", mock.Anything).Return(mediumSettings(), nil)
	notices.On("GetNotice", mock.Anything, "n1").Return(&domain.Notice{ID: "n1"}, nil)
	store.On("HybridSearchChunks", mock.Anything, "n1", "e qual o valor?", []float32(nil), 8).
		Return([]domain.ChunkMatch{{Content: "R$ 2 milhoes", FileName: "a.txt", Rank: rankOf(0.5)}}, nil)
	llm.On("Complete", mock.Anything, mock.Anything).Return("R$ 2 milhoes", nil)

	_, err := svc.Chat(context.Background(), ChatInput{
		History: []domain.ChatTurn{
			userTurn("qual o prazo?"),
			{Role: domain.ChatRoleAssistant, Content: "30/09"},
			userTurn("e qual o valor?"),
		},
		NoticeID: "n1",
	})

	require.NoError(t, err)
	store.AssertExpectations(t)
}
