package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

const (
	// BackfillBatchSize bounds how many chunks a single poll picks up.
	BackfillBatchSize = 50
)

// ChunkEmbeddingRepository defines the persistence side of the backfill
type ChunkEmbeddingRepository interface {
	ListChunksMissingEmbedding(ctx context.Context, limit int) ([]domain.DocumentChunk, error)
	UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// BatchEmbedder generates embeddings for a batch of texts
type BatchEmbedder interface {
	Enabled() bool
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
}

// EmbeddingWorker backfills embeddings for chunks indexed before an
// embedding provider was configured, or whose embedding call failed
// at ingest time.
type EmbeddingWorker struct {
	repo     ChunkEmbeddingRepository
	embedder BatchEmbedder
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo ChunkEmbeddingRepository, embedder BatchEmbedder) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:     repo,
		embedder: embedder,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	if !w.embedder.Enabled() {
		return nil
	}

	chunks, err := w.repo.ListChunksMissingEmbedding(ctx, BackfillBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch chunks pending embedding: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("backfilling embeddings for %d chunks", len(chunks))

	inputs := make([]string, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = chunk.Content
	}

	vectors, err := w.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("failed to embed chunk batch: %w", err)
	}

	for i, chunk := range chunks {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		if err := w.repo.UpdateChunkEmbedding(ctx, chunk.ID, vectors[i]); err != nil {
			log.Printf("failed to store embedding for chunk %s: %v", chunk.ID, err)
		}
	}

	return nil
}
