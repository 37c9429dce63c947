package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore persists every assessment in PostgreSQL. The newest row per
// user is that user's profile.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore creates a PostgreSQL-backed risk store. Profiles older
// than ttl are ignored by Latest; a non-positive ttl disables expiry.
func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id                 VARCHAR(40) PRIMARY KEY,
			user_id            VARCHAR(128) NOT NULL,
			risk_score         DOUBLE PRECISION NOT NULL CHECK (risk_score >= 0 AND risk_score <= 1),
			engine             VARCHAR(20) NOT NULL,
			alerts             JSONB NOT NULL DEFAULT '[]',
			stats_avg          DOUBLE PRECISION NOT NULL DEFAULT 0,
			stats_last         DOUBLE PRECISION NOT NULL DEFAULT 0,
			transaction_count  INTEGER NOT NULL DEFAULT 0,
			assessed_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_user
			ON risk_assessments (user_id, assessed_at DESC);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, a *Assessment) error {
	alertsJSON, err := json.Marshal(a.Alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments
			(id, user_id, risk_score, engine, alerts, stats_avg, stats_last, transaction_count, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID,
		a.UserID,
		a.RiskScore,
		string(a.Engine),
		alertsJSON,
		a.Stats.Avg,
		a.Stats.Last,
		a.Count,
		a.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, userID string) (*Assessment, error) {
	// Zero time disables the expiry filter.
	var since time.Time
	if s.ttl > 0 {
		since = time.Now().Add(-s.ttl)
	}

	var (
		a          Assessment
		engine     string
		alertsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, risk_score, engine, alerts, stats_avg, stats_last, transaction_count, assessed_at
		FROM risk_assessments
		WHERE user_id = $1 AND assessed_at >= $2
		ORDER BY assessed_at DESC, id DESC
		LIMIT 1
	`, userID, since).Scan(
		&a.ID, &a.UserID, &a.RiskScore, &engine, &alertsJSON,
		&a.Stats.Avg, &a.Stats.Last, &a.Count, &a.AssessedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load risk profile: %w", err)
	}
	a.Engine = Engine(engine)
	a.AssessedAt = a.AssessedAt.UTC()
	if err := json.Unmarshal(alertsJSON, &a.Alerts); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return &a, nil
}
