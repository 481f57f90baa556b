package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatMessageRequest mirrors the shape the web client sends.
type ChatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages      []ChatMessageRequest `json:"messages"`
	AssistantName string               `json:"assistantName"`
	NoticeID      string               `json:"noticeId"`
}

type ChatResponse struct {
	Content string   `json:"content"`
	Sources []string `json:"sources"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history := make([]domain.ChatTurn, len(req.Messages))
	for i, msg := range req.Messages {
		history[i] = domain.ChatTurn{
			Role:    domain.ChatRole(msg.Role),
			Content: msg.Content,
		}
	}

	output, err := h.svc.Chat(r.Context(), service.ChatInput{
		History:       history,
		AssistantName: req.AssistantName,
		NoticeID:      req.NoticeID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := output.Sources
	if sources == nil {
		sources = []string{}
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Content: output.Content,
		Sources: sources,
	})
}
