package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

const contentPreviewChars = 500

// DocumentStore persists ingested documents and their chunks.
type DocumentStore interface {
	// UpsertDocument creates or replaces the document for a notice-file
	// slot and returns its id.
	UpsertDocument(ctx context.Context, doc *domain.Document) (string, error)
	// ReplaceChunks deletes the document's chunks and inserts the new set.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
}

// FileStore persists notice file metadata and the raw blob.
type FileStore interface {
	CreateNoticeFile(ctx context.Context, file *domain.NoticeFile) error
}

// BlobStore is the opaque object storage for uploaded files.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) error
}

// IngestService turns uploaded notice files into searchable chunks.
type IngestService struct {
	files    FileStore
	docs     DocumentStore
	blobs    BlobStore
	chunkCfg ChunkConfig
}

func NewIngestService(files FileStore, docs DocumentStore, blobs BlobStore) *IngestService {
	return &IngestService{
		files:    files,
		docs:     docs,
		blobs:    blobs,
		chunkCfg: DefaultChunkConfig(),
	}
}

// UploadInput is one file of an admin upload request.
type UploadInput struct {
	NoticeID    string
	FileName    string
	DisplayName string
	MimeType    string
	Data        []byte
}

// UploadResult reports the stored file and any RAG processing warning. A
// warning never fails the upload: the file is kept even when its text cannot
// be indexed.
type UploadResult struct {
	File    *domain.NoticeFile
	Warning string
}

// IngestFile stores the blob and metadata, then extracts, chunks and indexes
// the file's text. Re-uploading the same slot replaces the document and
// regenerates its chunks.
func (s *IngestService) IngestFile(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestFile", telemetry.SpanAttributes{
		NoticeID:  input.NoticeID,
		Operation: "upload",
	})
	defer span.End()

	if input.NoticeID == "" || input.FileName == "" || len(input.Data) == 0 {
		return nil, domain.ErrMissingRequiredField
	}

	ext := strings.TrimPrefix(filepath.Ext(input.FileName), ".")
	if ext == "" {
		ext = "bin"
	}
	mime := input.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}

	file := &domain.NoticeFile{
		ID:          uuid.NewString(),
		NoticeID:    input.NoticeID,
		FileName:    input.FileName,
		DisplayName: strings.TrimSpace(input.DisplayName),
		StoragePath: fmt.Sprintf("%s/%s.%s", input.NoticeID, uuid.NewString(), ext),
		MimeType:    mime,
		SizeBytes:   int64(len(input.Data)),
		CreatedAt:   time.Now().UTC(),
	}
	if file.DisplayName == "" {
		file.DisplayName = input.FileName
	}

	if s.blobs != nil {
		if err := s.blobs.PutObject(ctx, file.StoragePath, mime, input.Data); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store file", err)
		}
	}
	if err := s.files.CreateNoticeFile(ctx, file); err != nil {
		return nil, err
	}

	warning := s.indexFile(ctx, file, input.Data)
	return &UploadResult{File: file, Warning: warning}, nil
}

// indexFile is the best-effort RAG half of ingestion: every failure becomes a
// warning on the upload response, never an upload error.
func (s *IngestService) indexFile(ctx context.Context, file *domain.NoticeFile, data []byte) string {
	text := ExtractText(file.FileName, file.MimeType, data)
	if text == "" {
		return fmt.Sprintf("arquivo %s sem texto extraivel", file.FileName)
	}

	doc := &domain.Document{
		NoticeID:       file.NoticeID,
		NoticeFileID:   file.ID,
		FileName:       file.FileName,
		ContentPreview: truncateContent(text, contentPreviewChars),
		Status:         domain.DocumentStatusReady,
	}
	docID, err := s.docs.UpsertDocument(ctx, doc)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		return fmt.Sprintf("falha ao registrar documento para %s", file.FileName)
	}

	fragments, err := ChunkText(text, s.chunkCfg)
	if err != nil || len(fragments) == 0 {
		return fmt.Sprintf("arquivo %s sem conteudo util para chunks", file.FileName)
	}

	chunks := make([]domain.DocumentChunk, 0, len(fragments))
	for _, fragment := range fragments {
		chunks = append(chunks, domain.DocumentChunk{
			DocumentID: docID,
			ChunkIndex: fragment.Index,
			Content:    fragment.Content,
			TokenCount: fragment.TokenCount,
		})
	}
	if err := s.docs.ReplaceChunks(ctx, docID, chunks); err != nil {
		telemetry.CaptureError(ctx, err)
		return fmt.Sprintf("falha ao salvar chunks para %s", file.FileName)
	}

	return ""
}
