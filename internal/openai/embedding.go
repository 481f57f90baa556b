package openai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// embeddingBatchSize is the provider-side limit per embeddings request.
	embeddingBatchSize = 50
)

// EmbeddingProvider generates query/chunk embeddings. The provider is a
// capability: when no credential is configured the NullEmbeddingProvider is
// wired instead and every Embed call reports "no vector available" without
// error.
type EmbeddingProvider interface {
	Enabled() bool
	// Embed returns the vector for text, or nil when the provider is
	// disabled or the text is blank.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, preserving input order.
	// Blank inputs yield a nil vector at their position.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NullEmbeddingProvider is the disabled-feature variant: it never errors and
// never produces a vector, so retrieval degrades to keyword-only search.
type NullEmbeddingProvider struct{}

func (NullEmbeddingProvider) Enabled() bool { return false }

func (NullEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (NullEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

// embeddingsAPI is the slice of the OpenAI client the embedding client needs.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// EmbeddingClient wraps the OpenAI embeddings API.
type EmbeddingClient struct {
	api   embeddingsAPI
	model openai.EmbeddingModel
}

// NewEmbeddingClient creates an embedding client for the given credential.
func NewEmbeddingClient(apiKey, model string) *EmbeddingClient {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingClient{
		api:   openai.NewClient(apiKey),
		model: openai.EmbeddingModel(model),
	}
}

func (c *EmbeddingClient) Enabled() bool { return true }

// Embed generates an embedding for a single text. Blank text yields nil
// without calling the provider.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	vectors, err := c.requestEmbeddings(ctx, []string{trimmed})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in provider-sized batches. The provider may return
// results out of order; each batch is re-sorted by the returned index before
// results are stitched back into input positions.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	pending := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		pending = append(pending, trimmed)
		positions = append(positions, i)
	}

	for start := 0; start < len(pending); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		vectors, err := c.requestEmbeddings(ctx, pending[start:end])
		if err != nil {
			return nil, err
		}
		for i, vec := range vectors {
			out[positions[start+i]] = vec
		}
	}

	return out, nil
}

func (c *EmbeddingClient) requestEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          inputs,
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// VectorLiteral renders a vector in the textual form a pgvector column or
// function parameter accepts: a bracketed comma-separated decimal list.
func VectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
