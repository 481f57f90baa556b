package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

type SettingsStore interface {
	GetRAGSettings(ctx context.Context) (domain.RAGSettings, error)
	UpsertRAGSettings(ctx context.Context, s domain.RAGSettings) error
}

type SettingsHandler struct {
	store SettingsStore
}

func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

type RAGSettingsPayload struct {
	SearchLevel       string `json:"search_level"`
	UseLegacyFallback *bool  `json:"use_legacy_fallback"`
}

type RAGSettingsResponse struct {
	SearchLevel       string `json:"search_level"`
	UseLegacyFallback bool   `json:"use_legacy_fallback"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetRAGSettings(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RAGSettingsResponse{
		SearchLevel:       string(settings.SearchLevel),
		UseLegacyFallback: settings.UseLegacyFallback,
	})
}

// Update applies a partial settings change. Omitted fields keep their
// current value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req RAGSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.store.GetRAGSettings(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if req.SearchLevel != "" {
		level := domain.SearchLevel(req.SearchLevel)
		if !domain.IsValidSearchLevel(level) {
			api.HandleError(w, domain.ErrInvalidSearchLevel)
			return
		}
		settings.SearchLevel = level
	}
	if req.UseLegacyFallback != nil {
		settings.UseLegacyFallback = *req.UseLegacyFallback
	}

	if err := h.store.UpsertRAGSettings(r.Context(), settings); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RAGSettingsResponse{
		SearchLevel:       string(settings.SearchLevel),
		UseLegacyFallback: settings.UseLegacyFallback,
	})
}
