package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DocumentRepository persists notice files, extracted documents and their
// chunks, and serves the chunk search tiers.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) CreateNoticeFile(ctx context.Context, f *domain.NoticeFile) error {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO notice_files
			(id, notice_id, file_name, display_name, storage_path, mime_type, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.NoticeID, f.FileName, nullableString(f.DisplayName),
		f.StoragePath, f.MimeType, f.SizeBytes, createdAt,
	)
	return err
}

func (r *DocumentRepository) GetNoticeFile(ctx context.Context, id string) (*domain.NoticeFile, error) {
	var f domain.NoticeFile
	var displayName *string
	err := r.db.QueryRow(ctx,
		`SELECT id, notice_id, file_name, display_name, storage_path, mime_type, size_bytes, created_at
		 FROM notice_files WHERE id = $1`, id,
	).Scan(&f.ID, &f.NoticeID, &f.FileName, &displayName, &f.StoragePath, &f.MimeType, &f.SizeBytes, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoticeFileNotFound
		}
		return nil, err
	}
	if displayName != nil {
		f.DisplayName = *displayName
	} else {
		f.DisplayName = f.FileName
	}
	return &f, nil
}

func (r *DocumentRepository) ListNoticeFiles(ctx context.Context, noticeID string) ([]domain.NoticeFile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, notice_id, file_name, display_name, storage_path, mime_type, size_bytes, created_at
		 FROM notice_files WHERE notice_id = $1 ORDER BY created_at DESC`, noticeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.NoticeFile
	for rows.Next() {
		var f domain.NoticeFile
		var displayName *string
		if err := rows.Scan(&f.ID, &f.NoticeID, &f.FileName, &displayName, &f.StoragePath, &f.MimeType, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, err
		}
		if displayName != nil {
			f.DisplayName = *displayName
		} else {
			f.DisplayName = f.FileName
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteNoticeFile removes the file row; its document and chunks cascade.
func (r *DocumentRepository) DeleteNoticeFile(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notice_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoticeFileNotFound
	}
	return nil
}

// UpsertDocument creates or replaces the document for a notice-file slot.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *domain.Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	var documentID string
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (id, notice_id, notice_file_id, file_name, content_preview, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (notice_file_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			content_preview = EXCLUDED.content_preview,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		id, doc.NoticeID, doc.NoticeFileID, doc.FileName, doc.ContentPreview, doc.Status, now,
	).Scan(&documentID)
	if err != nil {
		return "", err
	}
	return documentID, nil
}

// ReplaceChunks deletes the document's existing chunks and inserts the new
// set in order.
func (r *DocumentRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			vec := pgvector.NewVector(c.Embedding)
			embedding = &vec
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, documentID, c.ChunkIndex, c.Content, c.TokenCount, embedding, time.Now().UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

// HybridSearchChunks calls the store-side hybrid ranking function, which
// fuses vector similarity (when a query vector is given) with full-text
// relevance. embedding may be nil; the function then ranks on text alone.
func (r *DocumentRepository) HybridSearchChunks(ctx context.Context, noticeID, query string, embedding []float32, limit int) ([]domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 8
	}

	var vectorLiteral *string
	if len(embedding) > 0 {
		literal := openai.VectorLiteral(embedding)
		vectorLiteral = &literal
	}

	rows, err := r.db.Query(ctx,
		`SELECT content, file_name, rank
		 FROM hybrid_match_chunks($1, $2, $3::vector, $4)`,
		noticeID, query, vectorLiteral, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkMatches(rows, true)
}

// SearchChunksFTS is the plain full-text tier: Portuguese-configured tsquery
// relevance, no rank surfaced.
func (r *DocumentRepository) SearchChunksFTS(ctx context.Context, noticeID, query string, limit int) ([]domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 8
	}
	rows, err := r.db.Query(ctx,
		`SELECT dc.content, d.file_name
		 FROM document_chunks dc
		 JOIN documents d ON d.id = dc.document_id
		 WHERE d.notice_id = $1
		   AND dc.tsv @@ plainto_tsquery('portuguese', $2)
		 ORDER BY ts_rank(dc.tsv, plainto_tsquery('portuguese', $2)) DESC
		 LIMIT $3`,
		noticeID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkMatches(rows, false)
}

// ListChunks fetches raw chunks for the in-memory lexical tier, in storage
// order.
func (r *DocumentRepository) ListChunks(ctx context.Context, noticeID string, limit int) ([]domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 300
	}
	rows, err := r.db.Query(ctx,
		`SELECT dc.content, d.file_name
		 FROM document_chunks dc
		 JOIN documents d ON d.id = dc.document_id
		 WHERE d.notice_id = $1
		 ORDER BY d.created_at, dc.chunk_index
		 LIMIT $2`,
		noticeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkMatches(rows, false)
}

// ListChunksMissingEmbedding feeds the backfill worker.
func (r *DocumentRepository) ListChunksMissingEmbedding(ctx context.Context, limit int) ([]domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, token_count, created_at
		 FROM document_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *DocumentRepository) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), chunkID)
	return err
}

func scanChunkMatches(rows pgx.Rows, withRank bool) ([]domain.ChunkMatch, error) {
	var matches []domain.ChunkMatch
	for rows.Next() {
		var m domain.ChunkMatch
		var err error
		if withRank {
			err = rows.Scan(&m.Content, &m.FileName, &m.Rank)
		} else {
			err = rows.Scan(&m.Content, &m.FileName)
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
