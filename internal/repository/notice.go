package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NoticeRepository struct {
	db dbtx
}

func NewNoticeRepository(pool *pgxpool.Pool) *NoticeRepository {
	return &NoticeRepository{db: pool}
}

func NewNoticeRepositoryWithTx(tx pgx.Tx) *NoticeRepository {
	return &NoticeRepository{db: tx}
}

const noticeSelect = `
	SELECT n.id, n.agency_id, a.name, n.title, n.summary, n.description,
	       COALESCE(n.access_link, ''), n.status, n.publish_date, n.deadline_date,
	       n.budget_min, n.budget_max, n.trl_min, n.trl_max,
	       n.created_at, n.updated_at,
	       COALESCE(array_agg(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
	FROM notices n
	JOIN agencies a ON a.id = n.agency_id
	LEFT JOIN notice_tags nt ON nt.notice_id = n.id
	LEFT JOIN tags t ON t.id = nt.tag_id`

func (r *NoticeRepository) Create(ctx context.Context, n *domain.Notice) error {
	if err := domain.ValidateNotice(n); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO notices
			(id, agency_id, title, summary, description, access_link, status,
			 publish_date, deadline_date, budget_min, budget_max, trl_min, trl_max,
			 created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		n.ID, n.AgencyID, n.Title, n.Summary, n.Description, nullableString(n.AccessLink),
		n.Status, n.PublishDate, n.DeadlineDate, n.BudgetMin, n.BudgetMax,
		n.TRLMin, n.TRLMax, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (r *NoticeRepository) Update(ctx context.Context, n *domain.Notice) error {
	if err := domain.ValidateNotice(n); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE notices SET
			agency_id = $1, title = $2, summary = $3, description = $4,
			access_link = $5, status = $6, publish_date = $7, deadline_date = $8,
			budget_min = $9, budget_max = $10, trl_min = $11, trl_max = $12,
			updated_at = $13
		 WHERE id = $14`,
		n.AgencyID, n.Title, n.Summary, n.Description, nullableString(n.AccessLink),
		n.Status, n.PublishDate, n.DeadlineDate, n.BudgetMin, n.BudgetMax,
		n.TRLMin, n.TRLMax, time.Now().UTC(), n.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoticeNotFound
	}
	return nil
}

// Delete removes the notice; files, documents and chunks cascade.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoticeNotFound
	}
	return nil
}

func (r *NoticeRepository) GetNotice(ctx context.Context, id string) (*domain.Notice, error) {
	rows, err := r.db.Query(ctx, noticeSelect+` WHERE n.id = $1 GROUP BY n.id, a.name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices, err := scanNoticeRows(rows)
	if err != nil {
		return nil, err
	}
	if len(notices) == 0 {
		return nil, domain.ErrNoticeNotFound
	}
	return notices[0], nil
}

// ListNotices returns every notice with its agency and tags; this feeds the
// recommendation path, which scores the whole collection.
func (r *NoticeRepository) ListNotices(ctx context.Context) ([]*domain.Notice, error) {
	rows, err := r.db.Query(ctx, noticeSelect+` GROUP BY n.id, a.name ORDER BY n.publish_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNoticeRows(rows)
}

// ReplaceTags upserts tags by slug and rebinds the notice to exactly the
// given set.
func (r *NoticeRepository) ReplaceTags(ctx context.Context, noticeID string, tags []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM notice_tags WHERE notice_id = $1`, noticeID); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(tags))
	for _, name := range tags {
		slug := slugify(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}

		var tagID string
		err := r.db.QueryRow(ctx,
			`INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
			 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			uuid.NewString(), name, slug,
		).Scan(&tagID)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(ctx,
			`INSERT INTO notice_tags (notice_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			noticeID, tagID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *NoticeRepository) GetAgency(ctx context.Context, id string) (*domain.Agency, error) {
	var a domain.Agency
	err := r.db.QueryRow(ctx,
		`SELECT id, name, acronym, COALESCE(description, '') FROM agencies WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Acronym, &a.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAgencyNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *NoticeRepository) CreateAgency(ctx context.Context, a *domain.Agency) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agencies (id, name, acronym, description) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Name, a.Acronym, nullableString(a.Description),
	)
	return err
}

func (r *NoticeRepository) ListAgencies(ctx context.Context) ([]*domain.Agency, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, acronym, COALESCE(description, '') FROM agencies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []*domain.Agency
	for rows.Next() {
		var a domain.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Acronym, &a.Description); err != nil {
			return nil, err
		}
		agencies = append(agencies, &a)
	}
	return agencies, rows.Err()
}

func scanNoticeRows(rows pgx.Rows) ([]*domain.Notice, error) {
	var results []*domain.Notice
	for rows.Next() {
		var n domain.Notice
		if err := rows.Scan(
			&n.ID, &n.AgencyID, &n.AgencyName, &n.Title, &n.Summary, &n.Description,
			&n.AccessLink, &n.Status, &n.PublishDate, &n.DeadlineDate,
			&n.BudgetMin, &n.BudgetMax, &n.TRLMin, &n.TRLMax,
			&n.CreatedAt, &n.UpdatedAt, &n.Tags,
		); err != nil {
			return nil, err
		}
		results = append(results, &n)
	}
	return results, rows.Err()
}
