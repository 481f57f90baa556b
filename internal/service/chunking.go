package service

import (
	"strings"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

// ChunkConfig controls chunking of extracted document text. Token counting is
// deliberately approximate: a token is a whitespace-delimited word, not a
// subword unit.
type ChunkConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkConfig provides the ingestion defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     220,
		OverlapTokens: 40,
	}
}

// TextChunk is one produced window of the source text.
type TextChunk struct {
	Index      int
	Content    string
	TokenCount int
}

// ErrChunkConfig rejects configurations whose window can never advance.
var ErrChunkConfig = domain.NewDomainError(domain.ErrCodeValidation, "chunk overlap must be non-negative and smaller than the window size")

// ChunkText splits text into overlapping word windows of at most
// cfg.MaxTokens words; each window after the first starts cfg.OverlapTokens
// words before the end of the previous one so context survives chunk
// boundaries. Empty input yields an empty slice.
func ChunkText(text string, cfg ChunkConfig) ([]TextChunk, error) {
	if cfg.MaxTokens <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.OverlapTokens < 0 || cfg.MaxTokens <= cfg.OverlapTokens {
		// A window that never advances past the overlap, or a negative
		// overlap that would skip words between windows.
		return nil, ErrChunkConfig
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []TextChunk{}, nil
	}

	chunks := make([]TextChunk, 0, len(words)/cfg.MaxTokens+1)
	start := 0
	index := 0

	for start < len(words) {
		end := start + cfg.MaxTokens
		if end > len(words) {
			end = len(words)
		}

		content := strings.TrimSpace(strings.Join(words[start:end], " "))
		if content != "" {
			chunks = append(chunks, TextChunk{
				Index:      index,
				Content:    content,
				TokenCount: len(strings.Fields(content)),
			})
			index++
		}

		if end >= len(words) {
			break
		}
		start = end - cfg.OverlapTokens
		if start < 0 {
			start = 0
		}
	}

	return chunks, nil
}
