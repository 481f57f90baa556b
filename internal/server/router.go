package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api/handlers"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api/middleware"
)

type RouterConfig struct {
	AdminToken      string
	ChatHandler     *handlers.ChatHandler
	NoticeHandler   *handlers.NoticeHandler
	FileHandler     *handlers.FileHandler
	SettingsHandler *handlers.SettingsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public portal surface: browse notices, download attachments, chat.
	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/notices", func(r chi.Router) {
		r.Get("/", cfg.NoticeHandler.List)
		r.Get("/{id}", cfg.NoticeHandler.Get)
		r.Get("/{id}/files", cfg.FileHandler.List)
	})
	r.Get("/files/{fileID}/download", cfg.FileHandler.DownloadURL)
	r.Get("/agencies", cfg.NoticeHandler.ListAgencies)

	// Management surface behind the admin token.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken))

		r.Route("/notices", func(r chi.Router) {
			r.Post("/", cfg.NoticeHandler.Create)
			r.Put("/{id}", cfg.NoticeHandler.Update)
			r.Delete("/{id}", cfg.NoticeHandler.Delete)
			r.Post("/{id}/files", cfg.FileHandler.Upload)
		})
		r.Delete("/files/{fileID}", cfg.FileHandler.Delete)

		r.Get("/rag-settings", cfg.SettingsHandler.Get)
		r.Patch("/rag-settings", cfg.SettingsHandler.Update)
	})

	return r
}
