// Package anomaly turns per-transaction anomaly scores into a single bounded
// risk value with alerts, and provides the isolation-forest model that
// produces those scores.
package anomaly

import "math"

// Alert messages.
const (
	AlertNoTransactions = "No transactions provided"
	AlertHighRisk       = "High anomaly risk detected"
)

const (
	// HighRiskThreshold is exclusive: a score must exceed it to alert.
	HighRiskThreshold = 0.7

	epsilon = 1e-9
)

// Model scores transaction amounts. Higher scores are more normal.
// Implementations must be safe for concurrent use.
type Model interface {
	DecisionFunction(amounts []float64) []float64
}

// Stats summarizes the raw amounts that were scored.
type Stats struct {
	Avg  float64 `json:"avg"`
	Last float64 `json:"last"`
}

// Result is the normalized anomaly risk for a batch of transactions.
type Result struct {
	RiskScore float64  `json:"transaction_risk_score"`
	Alerts    []string `json:"alerts"`
	Stats     *Stats   `json:"stats,omitempty"`
}

// Normalize inverts and min-max scales decision scores into per-transaction
// risk, averages them and raises alerts. amounts are the raw inputs that were
// scored and feed only the summary stats.
func Normalize(scores, amounts []float64) Result {
	if len(scores) == 0 {
		return Result{RiskScore: 0, Alerts: []string{AlertNoTransactions}}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		inv := -s
		lo = math.Min(lo, inv)
		hi = math.Max(hi, inv)
	}
	span := hi - lo + epsilon

	var sum float64
	for _, s := range scores {
		sum += (-s - lo) / span
	}
	risk := clamp01(sum / float64(len(scores)))

	alerts := []string{}
	if risk > HighRiskThreshold {
		alerts = append(alerts, AlertHighRisk)
	}
	st := Summarize(amounts)
	return Result{RiskScore: risk, Alerts: alerts, Stats: &st}
}

// Summarize returns the mean and last element of amounts, zero when empty.
func Summarize(amounts []float64) Stats {
	if len(amounts) == 0 {
		return Stats{}
	}
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	return Stats{Avg: sum / float64(len(amounts)), Last: amounts[len(amounts)-1]}
}

// Score runs a model over amounts and normalizes the result.
func Score(m Model, amounts []float64) Result {
	if len(amounts) == 0 {
		return Normalize(nil, nil)
	}
	return Normalize(m.DecisionFunction(amounts), amounts)
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
