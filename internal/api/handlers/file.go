package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/service"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

// maxUploadBytes bounds a single attachment upload.
const maxUploadBytes = 20 << 20

type FileIngester interface {
	IngestFile(ctx context.Context, input service.UploadInput) (*service.UploadResult, error)
}

type FileMetadataStore interface {
	GetNoticeFile(ctx context.Context, id string) (*domain.NoticeFile, error)
	ListNoticeFiles(ctx context.Context, noticeID string) ([]domain.NoticeFile, error)
	DeleteNoticeFile(ctx context.Context, id string) error
}

type FileBlobStore interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type FileHandler struct {
	ingester FileIngester
	store    FileMetadataStore
	blobs    FileBlobStore
}

// NewFileHandler wires the attachment endpoints. blobs may be nil when no
// object storage is configured; downloads then return 404.
func NewFileHandler(ingester FileIngester, store FileMetadataStore, blobs FileBlobStore) *FileHandler {
	return &FileHandler{ingester: ingester, store: store, blobs: blobs}
}

type UploadFileResponse struct {
	File    NoticeFileResponse `json:"file"`
	Warning string             `json:"warning,omitempty"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "id")
	if noticeID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	result, err := h.ingester.IngestFile(r.Context(), service.UploadInput{
		NoticeID:    noticeID,
		FileName:    header.Filename,
		DisplayName: r.FormValue("display_name"),
		MimeType:    header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadFileResponse{
		File:    noticeFileToResponse(*result.File),
		Warning: result.Warning,
	})
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "id")
	if noticeID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	files, err := h.store.ListNoticeFiles(r.Context(), noticeID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]NoticeFileResponse, len(files))
	for i, f := range files {
		resp[i] = noticeFileToResponse(f)
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *FileHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		api.Error(w, http.StatusBadRequest, "fileID is required")
		return
	}

	file, err := h.store.GetNoticeFile(r.Context(), fileID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if h.blobs == nil {
		api.Error(w, http.StatusNotFound, "object storage not configured")
		return
	}

	url, err := h.blobs.GenerateDownloadURL(r.Context(), file.StoragePath)
	if err != nil {
		api.HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to sign download url", err))
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{URL: url})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		api.Error(w, http.StatusBadRequest, "fileID is required")
		return
	}

	file, err := h.store.GetNoticeFile(r.Context(), fileID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// Chunks and document rows go with the metadata via FK cascade. The
	// blob delete is best-effort; a failure orphans the object, so it is
	// logged and reported but never fails the request.
	if err := h.store.DeleteNoticeFile(r.Context(), fileID); err != nil {
		api.HandleError(w, err)
		return
	}

	if h.blobs != nil {
		if err := h.blobs.DeleteObject(r.Context(), file.StoragePath); err != nil {
			log.Printf("blob delete failed for %s (object orphaned): %v", file.StoragePath, err)
			telemetry.CaptureError(r.Context(), err)
		}
	}

	api.JSON(w, http.StatusNoContent, nil)
}
