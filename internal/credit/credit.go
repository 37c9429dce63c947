// Package credit scores a user's creditworthiness from transaction history.
//
// A score request runs the feature extractor, asks a classifier for the
// probability of a good outcome, maps it onto the 300–850 scale and explains
// it with ranked per-feature contributions. Every issued score is recorded.
package credit

import (
	"context"
	"errors"
	"time"

	"github.com/altscore/altscore/internal/attribution"
	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/model"
	"github.com/altscore/altscore/internal/pagination"
	"github.com/altscore/altscore/internal/scoring"
)

var (
	ErrNotFound         = errors.New("credit score not found")
	ErrInvalidMode      = errors.New("mode must be ml or fallback")
	ErrModelUnavailable = errors.New("no credit model available")
)

// Mode selects which classifier is tried first.
type Mode string

const (
	// ModeML tries the remote model and falls back to the local one.
	ModeML Mode = "ml"
	// ModeFallback uses the local model only.
	ModeFallback Mode = "fallback"
)

// ExplanationUnavailable marks a result scored without attributions.
const ExplanationUnavailable = "unavailable"

// DefaultUserID is used when a request carries no user.
const DefaultUserID = "anonymous"

// Request is the body of a score request. When Features is set it is used
// as-is and Transactions are ignored.
type Request struct {
	UserID       string                    `json:"userId"`
	Transactions []features.RawTransaction `json:"transactions"`
	Features     *features.Vector          `json:"features,omitempty"`
	Mode         Mode                      `json:"mode,omitempty"`
}

// Result is an issued credit score.
type Result struct {
	ID            string                     `json:"id"`
	UserID        string                     `json:"userId"`
	Score         int                        `json:"score"`
	Tier          scoring.Tier               `json:"tier"`
	ProbGood      float64                    `json:"prob_good"`
	Contributions []attribution.Contribution `json:"contributions"`
	Features      features.Vector            `json:"features"`
	Summary       []string                   `json:"summary"`
	Source        model.Source               `json:"source"`
	ModelVersion  string                     `json:"modelVersion,omitempty"`
	Explanation   string                     `json:"explanation,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
}

// Store persists issued scores.
type Store interface {
	Save(ctx context.Context, r *Result) error
	Get(ctx context.Context, id string) (*Result, error)
	// ListByUser returns up to limit results newest first, strictly after
	// cursor when it is non-nil.
	ListByUser(ctx context.Context, userID string, limit int, cursor *pagination.Cursor) ([]*Result, error)
}

// Publisher is notified of every issued score.
type Publisher interface {
	PublishCreditScored(r *Result)
}
