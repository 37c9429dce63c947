package credit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/altscore/altscore/internal/model"
	"github.com/altscore/altscore/internal/pagination"
	"github.com/altscore/altscore/internal/scoring"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed score store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the credit_scores table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credit_scores (
			id             UUID PRIMARY KEY,
			user_id        VARCHAR(128) NOT NULL,
			score          INTEGER NOT NULL CHECK (score BETWEEN 300 AND 850),
			tier           VARCHAR(10) NOT NULL,
			prob_good      DOUBLE PRECISION NOT NULL,
			source         VARCHAR(10) NOT NULL,
			model_version  VARCHAR(64) NOT NULL DEFAULT '',
			explanation    VARCHAR(32) NOT NULL DEFAULT '',
			features       JSONB NOT NULL,
			contributions  JSONB NOT NULL DEFAULT '[]',
			summary        JSONB NOT NULL DEFAULT '[]',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_credit_scores_user_created
			ON credit_scores(user_id, created_at DESC, id DESC);
	`)
	return err
}

const selectColumns = `
	SELECT id, user_id, score, tier, prob_good, source, model_version,
		explanation, features, contributions, summary, created_at
	FROM credit_scores`

// Save inserts a score. Saving the same ID twice is a no-op.
func (p *PostgresStore) Save(ctx context.Context, r *Result) error {
	feats, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	contribs, err := json.Marshal(r.Contributions)
	if err != nil {
		return fmt.Errorf("marshal contributions: %w", err)
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO credit_scores (
			id, user_id, score, tier, prob_good, source, model_version,
			explanation, features, contributions, summary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		r.ID, r.UserID, r.Score, string(r.Tier), r.ProbGood, string(r.Source), r.ModelVersion,
		r.Explanation, feats, contribs, summary, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit score: %w", err)
	}
	return nil
}

// Get retrieves a score by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Result, error) {
	row := p.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credit score: %w", err)
	}
	return r, nil
}

// ListByUser returns a user's scores newest first.
func (p *PostgresStore) ListByUser(ctx context.Context, userID string, limit int, cursor *pagination.Cursor) ([]*Result, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == nil {
		rows, err = p.db.QueryContext(ctx, selectColumns+`
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		`, userID, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, selectColumns+`
			WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC LIMIT $4
		`, userID, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list credit scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scannable) (*Result, error) {
	var (
		r                        Result
		tier, source             string
		feats, contribs, summary []byte
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.Score, &tier, &r.ProbGood, &source, &r.ModelVersion,
		&r.Explanation, &feats, &contribs, &summary, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Tier = scoring.Tier(tier)
	r.Source = model.Source(source)
	r.CreatedAt = r.CreatedAt.UTC()

	if err := json.Unmarshal(feats, &r.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal(contribs, &r.Contributions); err != nil {
		return nil, fmt.Errorf("decode contributions: %w", err)
	}
	if err := json.Unmarshal(summary, &r.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &r, nil
}
