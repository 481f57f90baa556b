package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

// MockChunkSearchStore is a mock implementation of ChunkSearchStore
type MockChunkSearchStore struct {
	mock.Mock
}

func (m *MockChunkSearchStore) HybridSearchChunks(ctx context.Context, noticeID, query string, embedding []float32, limit int) ([]domain.ChunkMatch, error) {
	args := m.Called(ctx, noticeID, query, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkMatch), args.Error(1)
}

func (m *MockChunkSearchStore) SearchChunksFTS(ctx context.Context, noticeID, query string, limit int) ([]domain.ChunkMatch, error) {
	args := m.Called(ctx, noticeID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkMatch), args.Error(1)
}

func (m *MockChunkSearchStore) ListChunks(ctx context.Context, noticeID string, limit int) ([]domain.ChunkMatch, error) {
	args := m.Called(ctx, noticeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkMatch), args.Error(1)
}

// MockEmbeddingProvider is a mock implementation of openai.EmbeddingProvider
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, input string) ([]float32, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingProvider) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func rankOf(v float64) *float64 { return &v }

func mediumSettings() domain.RAGSettings {
	return domain.RAGSettings{SearchLevel: domain.SearchLevelMedium, UseLegacyFallback: true}
}

func TestRetrieve_HybridResults(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "notice-1", "prazo de submissao", []float32(nil), 8).
		Return([]domain.ChunkMatch{
			{Content: "O prazo de submissao e 30/09.", FileName: "edital.txt", Rank: rankOf(0.4)},
			{Content: "Anexo II detalha o orcamento.", FileName: "anexo2.txt", Rank: rankOf(0.2)},
		}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "notice-1", "prazo de submissao", mediumSettings())

	require.Len(t, chunks, 2)
	assert.Equal(t, "O prazo de submissao e 30/09.", chunks[0].Content)
	assert.Equal(t, []string{"edital.txt", "anexo2.txt"}, sources)
	store.AssertNotCalled(t, "SearchChunksFTS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieve_RankFilter(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "notice-1", "tema", []float32(nil), 8).
		Return([]domain.ChunkMatch{
			{Content: "relevante", FileName: "a.txt", Rank: rankOf(0.5)},
			{Content: "abaixo do corte", FileName: "b.txt", Rank: rankOf(0.05)},
			{Content: "sem pontuacao", FileName: "c.txt", Rank: nil},
		}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "notice-1", "tema", mediumSettings())

	// medium cut is 0.08: scored results below it drop, unscored pass through
	require.Len(t, chunks, 2)
	assert.Equal(t, "relevante", chunks[0].Content)
	assert.Equal(t, "sem pontuacao", chunks[1].Content)
	assert.Equal(t, []string{"a.txt", "c.txt"}, sources)
}

func TestRetrieve_BlankQuerySkipsRankFilter(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "notice-1", "  ", []float32(nil), 8).
		Return([]domain.ChunkMatch{
			{Content: "qualquer", FileName: "a.txt", Rank: rankOf(0.01)},
		}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, _ := retriever.Retrieve(context.Background(), "notice-1", "  ", mediumSettings())

	require.Len(t, chunks, 1)
}

func TestRetrieve_StrictnessLevels(t *testing.T) {
	tests := []struct {
		level   domain.SearchLevel
		topK    int
		minRank float64
	}{
		{domain.SearchLevelLow, 4, 0.16},
		{domain.SearchLevelMedium, 8, 0.08},
		{domain.SearchLevelHigh, 12, 0.03},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			store := new(MockChunkSearchStore)
			store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), tt.topK).
				Return([]domain.ChunkMatch{
					{Content: "na borda", FileName: "a.txt", Rank: rankOf(tt.minRank)},
					{Content: "logo abaixo", FileName: "b.txt", Rank: rankOf(tt.minRank - 0.001)},
				}, nil)

			retriever := NewChunkRetriever(store, nil)
			settings := domain.RAGSettings{SearchLevel: tt.level, UseLegacyFallback: true}
			chunks, _ := retriever.Retrieve(context.Background(), "n", "q", settings)

			require.Len(t, chunks, 1)
			assert.Equal(t, "na borda", chunks[0].Content)
		})
	}
}

func TestRetrieve_EmbeddingFailureDegradesToNilVector(t *testing.T) {
	embeddings := new(MockEmbeddingProvider)
	embeddings.On("Enabled").Return(true)
	embeddings.On("Embed", mock.Anything, "pergunta").Return(nil, errors.New("api down"))

	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "pergunta", []float32(nil), 8).
		Return([]domain.ChunkMatch{{Content: "achado", FileName: "a.txt", Rank: rankOf(0.3)}}, nil)

	retriever := NewChunkRetriever(store, embeddings)
	chunks, _ := retriever.Retrieve(context.Background(), "n", "pergunta", mediumSettings())

	require.Len(t, chunks, 1)
	store.AssertExpectations(t)
}

func TestRetrieve_FallsThroughToFTS(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), 8).
		Return(nil, errors.New("function hybrid_match_chunks does not exist"))
	store.On("SearchChunksFTS", mock.Anything, "n", "q", 8).
		Return([]domain.ChunkMatch{{Content: "via fts", FileName: "a.txt"}}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "n", "q", mediumSettings())

	require.Len(t, chunks, 1)
	assert.Equal(t, "via fts", chunks[0].Content)
	assert.Equal(t, []string{"a.txt"}, sources)
	store.AssertNotCalled(t, "ListChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieve_FallsThroughToLexical(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "valor do edital", []float32(nil), 8).
		Return([]domain.ChunkMatch{}, nil)
	store.On("SearchChunksFTS", mock.Anything, "n", "valor do edital", 8).
		Return([]domain.ChunkMatch{}, nil)
	store.On("ListChunks", mock.Anything, "n", rawChunkFetchLimit).
		Return([]domain.ChunkMatch{
			{Content: "Nada a ver com a pergunta.", FileName: "a.txt"},
			{Content: "O valor total do edital e de R$ 2 milhoes.", FileName: "b.txt"},
		}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "n", "valor do edital", mediumSettings())

	require.NotEmpty(t, chunks)
	assert.Equal(t, "O valor total do edital e de R$ 2 milhoes.", chunks[0].Content)
	assert.Contains(t, sources, "b.txt")
}

func TestRetrieve_FallbackDisabled(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), 8).
		Return([]domain.ChunkMatch{}, nil)

	retriever := NewChunkRetriever(store, nil)
	settings := domain.RAGSettings{SearchLevel: domain.SearchLevelMedium, UseLegacyFallback: false}
	chunks, sources := retriever.Retrieve(context.Background(), "n", "q", settings)

	assert.Empty(t, chunks)
	assert.Empty(t, sources)
	store.AssertNotCalled(t, "SearchChunksFTS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "ListChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieve_AllTiersFail(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), 8).Return(nil, errors.New("down"))
	store.On("SearchChunksFTS", mock.Anything, "n", "q", 8).Return(nil, errors.New("down"))
	store.On("ListChunks", mock.Anything, "n", rawChunkFetchLimit).Return(nil, errors.New("down"))

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "n", "q", mediumSettings())

	assert.Empty(t, chunks)
	assert.Empty(t, sources)
}

func TestRetrieve_TruncatesLongChunks(t *testing.T) {
	long := strings.Repeat("a", maxChunkChars+200)
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), 8).
		Return([]domain.ChunkMatch{{Content: long, FileName: "a.txt", Rank: rankOf(0.9)}}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, _ := retriever.Retrieve(context.Background(), "n", "q", mediumSettings())

	require.Len(t, chunks, 1)
	assert.Len(t, []rune(chunks[0].Content), maxChunkChars+len(truncationMark))
	assert.True(t, strings.HasSuffix(chunks[0].Content, truncationMark))
}

func TestRetrieve_DedupesSources(t *testing.T) {
	store := new(MockChunkSearchStore)
	store.On("HybridSearchChunks", mock.Anything, "n", "q", []float32(nil), 8).
		Return([]domain.ChunkMatch{
			{Content: "um", FileName: "edital.txt", Rank: rankOf(0.5)},
			{Content: "dois", FileName: "edital.txt", Rank: rankOf(0.4)},
			{Content: "tres", FileName: "", Rank: rankOf(0.3)},
		}, nil)

	retriever := NewChunkRetriever(store, nil)
	chunks, sources := retriever.Retrieve(context.Background(), "n", "q", mediumSettings())

	assert.Len(t, chunks, 3)
	assert.Equal(t, []string{"edital.txt"}, sources)
}

func TestLexicalTier_NoTokensStorageOrder(t *testing.T) {
	store := new(MockChunkSearchStore)
	many := make([]domain.ChunkMatch, 10)
	for i := range many {
		many[i] = domain.ChunkMatch{Content: "chunk", FileName: "a.txt"}
	}
	store.On("ListChunks", mock.Anything, "n", rawChunkFetchLimit).Return(many, nil)

	retriever := NewChunkRetriever(store, nil)
	out, err := retriever.lexicalTier(context.Background(), "n", "de a o", 4)

	require.NoError(t, err)
	assert.Len(t, out, 4)
}
