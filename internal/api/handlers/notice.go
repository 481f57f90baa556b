package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

const dateLayout = "2006-01-02"

type NoticeStore interface {
	Create(ctx context.Context, n *domain.Notice) error
	Update(ctx context.Context, n *domain.Notice) error
	Delete(ctx context.Context, id string) error
	GetNotice(ctx context.Context, id string) (*domain.Notice, error)
	ListNotices(ctx context.Context) ([]*domain.Notice, error)
	ReplaceTags(ctx context.Context, noticeID string, tags []string) error
	ListAgencies(ctx context.Context) ([]*domain.Agency, error)
}

type NoticeFileLister interface {
	ListNoticeFiles(ctx context.Context, noticeID string) ([]domain.NoticeFile, error)
}

type NoticeHandler struct {
	store NoticeStore
	files NoticeFileLister
}

func NewNoticeHandler(store NoticeStore, files NoticeFileLister) *NoticeHandler {
	return &NoticeHandler{store: store, files: files}
}

type NoticeRequest struct {
	AgencyID     string   `json:"agency_id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Description  string   `json:"description"`
	AccessLink   string   `json:"access_link"`
	Status       string   `json:"status"`
	PublishDate  string   `json:"publish_date"`
	DeadlineDate string   `json:"deadline_date"`
	BudgetMin    *float64 `json:"budget_min"`
	BudgetMax    *float64 `json:"budget_max"`
	TRLMin       *int     `json:"trl_min"`
	TRLMax       *int     `json:"trl_max"`
	Tags         []string `json:"tags"`
}

type NoticeFileResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	DisplayName string `json:"display_name"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

type NoticeResponse struct {
	ID           string               `json:"id"`
	AgencyID     string               `json:"agency_id"`
	AgencyName   string               `json:"agency_name"`
	Title        string               `json:"title"`
	Summary      string               `json:"summary"`
	Description  string               `json:"description"`
	AccessLink   string               `json:"access_link,omitempty"`
	Status       string               `json:"status"`
	PublishDate  string               `json:"publish_date"`
	DeadlineDate string               `json:"deadline_date"`
	BudgetMin    *float64             `json:"budget_min"`
	BudgetMax    *float64             `json:"budget_max"`
	TRLMin       *int                 `json:"trl_min"`
	TRLMax       *int                 `json:"trl_max"`
	Tags         []string             `json:"tags"`
	Files        []NoticeFileResponse `json:"files,omitempty"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
}

type AgencyResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Acronym     string `json:"acronym"`
	Description string `json:"description,omitempty"`
}

func noticeToResponse(n *domain.Notice) *NoticeResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}

	resp := &NoticeResponse{
		ID:           n.ID,
		AgencyID:     n.AgencyID,
		AgencyName:   n.AgencyName,
		Title:        n.Title,
		Summary:      n.Summary,
		Description:  n.Description,
		AccessLink:   n.AccessLink,
		Status:       string(n.Status),
		PublishDate:  n.PublishDate.Format(dateLayout),
		DeadlineDate: n.DeadlineDate.Format(dateLayout),
		BudgetMin:    n.BudgetMin,
		BudgetMax:    n.BudgetMax,
		TRLMin:       n.TRLMin,
		TRLMax:       n.TRLMax,
		Tags:         tags,
		CreatedAt:    n.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    n.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, f := range n.Files {
		resp.Files = append(resp.Files, noticeFileToResponse(f))
	}
	return resp
}

func noticeFileToResponse(f domain.NoticeFile) NoticeFileResponse {
	return NoticeFileResponse{
		ID:          f.ID,
		FileName:    f.FileName,
		DisplayName: f.DisplayName,
		MimeType:    f.MimeType,
		SizeBytes:   f.SizeBytes,
		CreatedAt:   f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func noticeFromRequest(req NoticeRequest) (*domain.Notice, error) {
	publish, err := time.Parse(dateLayout, req.PublishDate)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "publish_date must be YYYY-MM-DD")
	}
	deadline, err := time.Parse(dateLayout, req.DeadlineDate)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "deadline_date must be YYYY-MM-DD")
	}

	return &domain.Notice{
		AgencyID:     req.AgencyID,
		Title:        req.Title,
		Summary:      req.Summary,
		Description:  req.Description,
		AccessLink:   req.AccessLink,
		Status:       domain.NoticeStatus(req.Status),
		PublishDate:  publish,
		DeadlineDate: deadline,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		TRLMin:       req.TRLMin,
		TRLMax:       req.TRLMax,
		Tags:         req.Tags,
	}, nil
}

func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	notice, err := noticeFromRequest(req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	notice.ID = uuid.NewString()

	if err := h.store.Create(r.Context(), notice); err != nil {
		api.HandleError(w, err)
		return
	}
	if len(req.Tags) > 0 {
		if err := h.store.ReplaceTags(r.Context(), notice.ID, req.Tags); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	created, err := h.store.GetNotice(r.Context(), notice.ID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, noticeToResponse(created))
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	notice, err := noticeFromRequest(req)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	notice.ID = id

	if err := h.store.Update(r.Context(), notice); err != nil {
		api.HandleError(w, err)
		return
	}
	if err := h.store.ReplaceTags(r.Context(), id, req.Tags); err != nil {
		api.HandleError(w, err)
		return
	}

	updated, err := h.store.GetNotice(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, noticeToResponse(updated))
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	notice, err := h.store.GetNotice(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if h.files != nil {
		files, err := h.files.ListNoticeFiles(r.Context(), id)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		notice.Files = files
	}

	api.Success(w, http.StatusOK, noticeToResponse(notice))
}

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	notices, err := h.store.ListNotices(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*NoticeResponse, len(notices))
	for i, n := range notices {
		resp[i] = noticeToResponse(n)
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *NoticeHandler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.store.ListAgencies(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*AgencyResponse, len(agencies))
	for i, a := range agencies {
		resp[i] = &AgencyResponse{
			ID:          a.ID,
			Name:        a.Name,
			Acronym:     a.Acronym,
			Description: a.Description,
		}
	}

	api.Success(w, http.StatusOK, resp)
}
