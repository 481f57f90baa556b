package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository reads and writes the retrieval settings singleton.
type SettingsRepository struct {
	db dbtx
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: pool}
}

// GetRAGSettings returns the stored settings, or the defaults when the row
// has never been written. A missing row is configuration absence, not an
// error.
func (r *SettingsRepository) GetRAGSettings(ctx context.Context) (domain.RAGSettings, error) {
	var s domain.RAGSettings
	err := r.db.QueryRow(ctx,
		`SELECT search_level, use_legacy_fallback FROM rag_settings WHERE id = TRUE`,
	).Scan(&s.SearchLevel, &s.UseLegacyFallback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultRAGSettings(), nil
		}
		return domain.RAGSettings{}, err
	}
	if !domain.IsValidSearchLevel(s.SearchLevel) {
		s.SearchLevel = domain.SearchLevelMedium
	}
	return s, nil
}

// UpsertRAGSettings replaces the singleton row.
func (r *SettingsRepository) UpsertRAGSettings(ctx context.Context, s domain.RAGSettings) error {
	if !domain.IsValidSearchLevel(s.SearchLevel) {
		return domain.ErrInvalidSearchLevel
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO rag_settings (id, search_level, use_legacy_fallback, updated_at)
		 VALUES (TRUE, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
			search_level = EXCLUDED.search_level,
			use_legacy_fallback = EXCLUDED.use_legacy_fallback,
			updated_at = EXCLUDED.updated_at`,
		s.SearchLevel, s.UseLegacyFallback, time.Now().UTC(),
	)
	return err
}
