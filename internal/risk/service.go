package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/altscore/altscore/internal/anomaly"
	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/idgen"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/metrics"
	"github.com/altscore/altscore/internal/traces"
)

// Service assesses transaction batches and summarizes per-user risk.
type Service struct {
	store     Store
	model     anomaly.Model
	heuristic Heuristic
	publisher Publisher
	now       func() time.Time
}

// NewService creates a risk service. A nil model selects the heuristic
// engine.
func NewService(store Store, model anomaly.Model) *Service {
	return &Service{
		store: store,
		model: model,
		now:   time.Now,
	}
}

// WithPublisher sets a publisher notified of high-risk assessments.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

// Engine reports which scorer the service runs.
func (s *Service) Engine() Engine {
	if s.model == nil {
		return EngineHeuristic
	}
	return EngineAnomaly
}

// AssessTransactions scores a batch, records it as the user's profile and
// returns it. Unparseable amounts count as zero.
func (s *Service) AssessTransactions(ctx context.Context, userID string, raw []features.RawTransaction) (*Assessment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = DefaultUserID
	}

	ctx, span := traces.StartSpan(ctx, "risk.AssessTransactions",
		traces.UserID(userID),
		traces.TransactionCount(len(raw)),
	)
	defer span.End()

	engine := s.Engine()
	var res anomaly.Result
	if engine == EngineAnomaly {
		res = anomaly.Score(s.model, features.Amounts(raw))
	} else {
		res = s.heuristic.Score(raw)
	}

	a := &Assessment{
		ID:         idgen.WithPrefix("risk_"),
		UserID:     userID,
		RiskScore:  res.RiskScore,
		Alerts:     res.Alerts,
		Engine:     engine,
		Count:      len(raw),
		AssessedAt: s.now().UTC(),
	}
	if a.Alerts == nil {
		a.Alerts = []string{}
	}
	if res.Stats != nil {
		a.Stats = *res.Stats
	}

	span.SetAttributes(traces.RiskScore(a.RiskScore))
	metrics.RiskAssessmentsTotal.WithLabelValues(string(engine)).Inc()
	metrics.RiskScoreValue.Observe(a.RiskScore)

	if err := s.store.Save(ctx, a); err != nil {
		traces.RecordError(span, err)
		return nil, fmt.Errorf("save risk profile: %w", err)
	}

	if a.RiskScore > anomaly.HighRiskThreshold {
		metrics.RiskAlertsTotal.WithLabelValues("high_risk").Inc()
		if s.publisher != nil {
			s.publisher.PublishRiskAlert(copyAssessment(a))
		}
	}

	logging.L(ctx).Info("transactions assessed",
		"user_id", userID,
		"count", len(raw),
		"risk_score", a.RiskScore,
		"engine", engine,
		"alerts", len(a.Alerts),
	)
	return a, nil
}

// Latest returns the user's current profile.
func (s *Service) Latest(ctx context.Context, userID string) (*Assessment, error) {
	return s.store.Latest(ctx, userID)
}

// Summary combines the user's latest assessment with the spending deviation
// check. A user with no profile has zero risk.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	sum := &Summary{UserID: userID, Alerts: []string{}}

	a, err := s.store.Latest(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return sum, nil
	}
	if err != nil {
		return nil, err
	}
	sum.Transactions = a
	sum.Alerts = append(sum.Alerts, a.Alerts...)

	if a.Stats.Avg > 0 && a.Stats.Last > deviationMultiplier*a.Stats.Avg {
		sum.BehaviourScore = deviationScore
		sum.Alerts = append(sum.Alerts, AlertDeviation)
		metrics.RiskAlertsTotal.WithLabelValues("deviation").Inc()
	}

	total := weightTransaction*a.RiskScore + weightBehaviour*sum.BehaviourScore
	sum.TotalRiskScore = math.Max(0, math.Min(1, total))
	return sum, nil
}
