package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatOutput), args.Error(1)
}

func TestChatHandler_Success(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Chat", mock.Anything, mock.MatchedBy(func(input service.ChatInput) bool {
		return input.NoticeID == "n1" &&
			input.AssistantName == "Iana" &&
			len(input.History) == 1 &&
			input.History[0].Role == domain.ChatRoleUser
	})).Return(&service.ChatOutput{
		Content: "O prazo encerra em setembro.",
		Sources: []string{"edital.pdf"},
	}, nil)

	handler := NewChatHandler(svc)
	body := `{"messages":[{"role":"user","content":"Qual o prazo?"}],"assistantName":"Iana","noticeId":"n1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "O prazo encerra em setembro.", data["content"])
	assert.Equal(t, []interface{}{"edital.pdf"}, data["sources"])
}

func TestChatHandler_SourcesNeverNull(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Chat", mock.Anything, mock.Anything).Return(&service.ChatOutput{
		Content: "Nao encontrei essa informacao.",
		Sources: nil,
	}, nil)

	handler := NewChatHandler(svc)
	body := `{"messages":[{"role":"user","content":"oi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sources":[]`)
	assert.NotContains(t, w.Body.String(), `"sources":null`)
}

func TestChatHandler_InvalidBody(t *testing.T) {
	handler := NewChatHandler(new(MockChatService))
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestChatHandler_EmptyHistory(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Chat", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyChatHistory)

	handler := NewChatHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages":[]}`))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "chat history cannot be empty")
}

func TestChatHandler_UpstreamFailure(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Chat", mock.Anything, mock.Anything).Return(nil, domain.ErrAssistantUnavailable)

	handler := NewChatHandler(svc)
	body := `{"messages":[{"role":"user","content":"oi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
