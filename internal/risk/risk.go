// Package risk assesses fraud risk for a user's transaction batch.
//
// A batch is scored by the isolation-forest anomaly model when it is enabled
// and by a rule-based heuristic otherwise. The latest assessment per user is
// kept as that user's risk profile and feeds the combined risk summary.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/altscore/altscore/internal/anomaly"
)

var ErrNotFound = errors.New("risk profile not found")

// Engine names the scorer that produced an assessment.
type Engine string

const (
	EngineAnomaly   Engine = "isolation_forest"
	EngineHeuristic Engine = "heuristic"
)

// DefaultUserID is used when a request carries no user.
const DefaultUserID = "anon"

// AlertDeviation is raised when the latest amount is far above the average.
const AlertDeviation = "Spending deviation > 3x average"

// Summary weights and thresholds.
const (
	deviationMultiplier = 3.0
	deviationScore      = 0.7
	weightTransaction   = 0.5
	weightBehaviour     = 0.1
)

// Assessment is the risk verdict for one transaction batch.
type Assessment struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	RiskScore  float64       `json:"transaction_risk_score"`
	Alerts     []string      `json:"alerts"`
	Stats      anomaly.Stats `json:"stats"`
	Engine     Engine        `json:"engine"`
	Count      int           `json:"transaction_count"`
	AssessedAt time.Time     `json:"assessed_at"`
}

// Summary combines the latest assessment with behavioural checks.
type Summary struct {
	UserID         string      `json:"user_id"`
	TotalRiskScore float64     `json:"total_risk_score"`
	BehaviourScore float64     `json:"behaviour_score"`
	Alerts         []string    `json:"alerts"`
	Transactions   *Assessment `json:"transactions"`
}

// Store keeps assessments. Latest returns the newest assessment for a user
// that has not expired, or ErrNotFound.
type Store interface {
	Save(ctx context.Context, a *Assessment) error
	Latest(ctx context.Context, userID string) (*Assessment, error)
}

// Publisher is notified of assessments above the alert threshold.
type Publisher interface {
	PublishRiskAlert(a *Assessment)
}

func copyAssessment(a *Assessment) *Assessment {
	cp := *a
	cp.Alerts = append([]string{}, a.Alerts...)
	return &cp
}
