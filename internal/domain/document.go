package domain

import "time"

// DocumentStatus tracks whether a document's text was extracted.
type DocumentStatus string

const (
	DocumentStatusReady DocumentStatus = "ready"
	DocumentStatusEmpty DocumentStatus = "empty"
)

// Document is the extracted text of one uploaded notice file. It is keyed by
// its notice-file slot: re-uploading the same slot replaces the document and
// all of its chunks.
type Document struct {
	ID             string
	NoticeID       string
	NoticeFileID   string
	FileName       string
	ContentPreview string
	Status         DocumentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentChunk is an ordered fragment of a document's text, the unit of
// retrieval. Embedding is nil until the backfill worker processes the chunk
// (or forever, when no embedding provider is configured).
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	TokenCount int
	Embedding  []float32
	CreatedAt  time.Time
}

// ChunkMatch is a search hit against document_chunks. Rank is nil when the
// producing tier does not score results (raw fetch, some FTS paths); a nil
// rank means "treat as relevant".
type ChunkMatch struct {
	Content  string
	FileName string
	Rank     *float64
}
