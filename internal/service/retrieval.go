package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

const (
	// maxChunkChars bounds the prompt contribution of a single chunk.
	maxChunkChars  = 1100
	truncationMark = "..."

	// rawChunkFetchLimit caps how many chunks the local lexical tier loads.
	rawChunkFetchLimit = 300

	// chunkTokenMinLen drops query tokens too short to be meaningful when
	// matching against chunk text.
	chunkTokenMinLen = 3
)

// ChunkSearchStore is the slice of the relational store the retriever needs.
type ChunkSearchStore interface {
	// HybridSearchChunks combines vector similarity and keyword relevance in
	// one ranked store-side query. embedding may be nil.
	HybridSearchChunks(ctx context.Context, noticeID, query string, embedding []float32, limit int) ([]domain.ChunkMatch, error)
	// SearchChunksFTS is the store's plain full-text search over chunks.
	SearchChunksFTS(ctx context.Context, noticeID, query string, limit int) ([]domain.ChunkMatch, error)
	// ListChunks fetches raw chunks in storage order.
	ListChunks(ctx context.Context, noticeID string, limit int) ([]domain.ChunkMatch, error)
}

// RetrievedChunk is one excerpt handed to the prompt assembler.
type RetrievedChunk struct {
	Content  string
	FileName string
}

// ChunkRetriever resolves the most relevant document chunks of a notice.
type ChunkRetriever struct {
	store      ChunkSearchStore
	embeddings openai.EmbeddingProvider
}

func NewChunkRetriever(store ChunkSearchStore, embeddings openai.EmbeddingProvider) *ChunkRetriever {
	if embeddings == nil {
		embeddings = openai.NullEmbeddingProvider{}
	}
	return &ChunkRetriever{store: store, embeddings: embeddings}
}

type retrievalTier struct {
	name string
	run  func(ctx context.Context) ([]domain.ChunkMatch, error)
}

// Retrieve runs the ordered retrieval tiers until one yields results. Tier
// errors are logged and treated as an empty tier: callers only ever observe
// total emptiness, never why a tier failed. Returned chunk content is
// truncated to the per-chunk character budget; sources are the distinct file
// names in first-appearance order.
func (r *ChunkRetriever) Retrieve(ctx context.Context, noticeID, query string, settings domain.RAGSettings) ([]RetrievedChunk, []string) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkRetriever.Retrieve", telemetry.SpanAttributes{
		NoticeID:  noticeID,
		Operation: "retrieve",
	})
	defer span.End()

	cfg := settings.SearchLevel.RetrievalConfig()

	tiers := []retrievalTier{
		{name: "hybrid", run: func(ctx context.Context) ([]domain.ChunkMatch, error) {
			return r.hybridTier(ctx, noticeID, query, cfg)
		}},
	}
	if settings.UseLegacyFallback {
		tiers = append(tiers,
			retrievalTier{name: "fts", run: func(ctx context.Context) ([]domain.ChunkMatch, error) {
				return r.store.SearchChunksFTS(ctx, noticeID, query, cfg.TopK)
			}},
			retrievalTier{name: "lexical", run: func(ctx context.Context) ([]domain.ChunkMatch, error) {
				return r.lexicalTier(ctx, noticeID, query, cfg.TopK)
			}},
		)
	}

	var matches []domain.ChunkMatch
	for _, tier := range tiers {
		results, err := tier.run(ctx)
		if err != nil {
			log.Printf("chunk retrieval tier %s failed (treating as empty): %v", tier.name, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
		if len(results) > 0 {
			matches = results
			break
		}
	}

	chunks := make([]RetrievedChunk, 0, len(matches))
	sources := make([]string, 0, len(matches))
	seenSources := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		chunks = append(chunks, RetrievedChunk{
			Content:  truncateContent(m.Content, maxChunkChars),
			FileName: m.FileName,
		})
		if m.FileName == "" {
			continue
		}
		if _, ok := seenSources[m.FileName]; !ok {
			seenSources[m.FileName] = struct{}{}
			sources = append(sources, m.FileName)
		}
	}
	return chunks, sources
}

// hybridTier awaits the query embedding (failures degrade to a nil vector),
// runs the store's hybrid search and drops scored results below the rank
// threshold. Unscored results pass through, and a blank query skips filtering
// entirely.
func (r *ChunkRetriever) hybridTier(ctx context.Context, noticeID, query string, cfg domain.RetrievalConfig) ([]domain.ChunkMatch, error) {
	var embedding []float32
	if r.embeddings.Enabled() {
		vec, err := r.embeddings.Embed(ctx, query)
		if err != nil {
			log.Printf("query embedding failed (continuing without vector): %v", err)
			telemetry.CaptureError(ctx, err)
		} else {
			embedding = vec
		}
	}

	results, err := r.store.HybridSearchChunks(ctx, noticeID, query, embedding, cfg.TopK)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return results, nil
	}

	filtered := results[:0]
	for _, m := range results {
		if m.Rank != nil && *m.Rank < cfg.MinRank {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

// lexicalTier fetches raw chunks and scores them in memory by how many
// distinct query tokens occur as substrings of the lowercased chunk text.
// With no usable query tokens it returns chunks in storage order.
func (r *ChunkRetriever) lexicalTier(ctx context.Context, noticeID, query string, topK int) ([]domain.ChunkMatch, error) {
	chunks, err := r.store.ListChunks(ctx, noticeID, rawChunkFetchLimit)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	tokens := queryTokens(query, chunkTokenMinLen)
	if len(tokens) == 0 {
		if len(chunks) > topK {
			chunks = chunks[:topK]
		}
		return chunks, nil
	}

	type scored struct {
		match domain.ChunkMatch
		score int
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		haystack := strings.ToLower(c.Content)
		hits := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				hits++
			}
		}
		ranked = append(ranked, scored{match: c, score: hits})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]domain.ChunkMatch, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.match)
	}
	return out, nil
}

func truncateContent(content string, maxChars int) string {
	clean := strings.TrimSpace(content)
	runes := []rune(clean)
	if len(runes) <= maxChars {
		return clean
	}
	return strings.TrimSpace(string(runes[:maxChars])) + truncationMark
}
