package credit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/altscore/altscore/internal/attribution"
	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/idgen"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/metrics"
	"github.com/altscore/altscore/internal/model"
	"github.com/altscore/altscore/internal/pagination"
	"github.com/altscore/altscore/internal/scoring"
	"github.com/altscore/altscore/internal/traces"
)

// Models are the collaborators used to score. Remote and RemoteAttributor
// may be nil. Local must be set for fallback scoring.
type Models struct {
	Remote           model.Classifier
	RemoteAttributor model.Attributor
	Local            model.Classifier
	LocalAttributor  model.Attributor
	LocalVersion     string
	Temperature      float64 // applied to remote probabilities
}

// ModelsFrom takes the credit models out of a registry.
func ModelsFrom(r *model.Registry) Models {
	return Models{
		Remote:           r.Remote,
		RemoteAttributor: r.RemoteAttributor,
		Local:            r.Local,
		LocalAttributor:  r.LocalAttributor,
		LocalVersion:     r.LocalVersion,
		Temperature:      r.Temperature,
	}
}

// Service issues and records credit scores.
type Service struct {
	store     Store
	models    Models
	publisher Publisher
	now       func() time.Time
}

// NewService creates a new credit service.
func NewService(store Store, models Models) *Service {
	return &Service{
		store:  store,
		models: models,
		now:    time.Now,
	}
}

// WithPublisher sets a publisher notified of every issued score.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

// ExtractFeatures computes the feature vector for raw transactions.
func (s *Service) ExtractFeatures(raw []features.RawTransaction) features.Vector {
	return features.ExtractRaw(raw)
}

// Score computes, records and returns a credit score.
func (s *Service) Score(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeML
	}
	if mode != ModeML && mode != ModeFallback {
		return nil, ErrInvalidMode
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	ctx, span := traces.StartSpan(ctx, "credit.Score",
		traces.UserID(userID),
		traces.TransactionCount(len(req.Transactions)),
	)
	defer span.End()

	var vec features.Vector
	if req.Features != nil {
		vec = *req.Features
	} else {
		vec = features.ExtractRaw(req.Transactions)
		if vec.IsZero() && len(req.Transactions) > 0 {
			logging.L(ctx).Warn("no usable transactions, scoring the empty feature vector",
				"user_id", userID,
				"received", len(req.Transactions),
			)
		}
	}

	prob, source, err := s.predict(ctx, mode, vec)
	if err != nil {
		traces.RecordError(span, err)
		return nil, err
	}

	score, tier := scoring.MapScore(prob)
	result := &Result{
		ID:            idgen.New(),
		UserID:        userID,
		Score:         score,
		Tier:          tier,
		ProbGood:      scoring.Round4(scoring.Clamp01(prob)),
		Contributions: []attribution.Contribution{},
		Features:      vec,
		Source:        source,
		CreatedAt:     s.now().UTC().Truncate(time.Microsecond),
	}
	if source == model.SourceLocal {
		result.ModelVersion = s.models.LocalVersion
	}

	if raw, ok := s.attribute(ctx, source, vec); ok {
		result.Contributions = attribution.Rank(features.Names, raw)
	} else {
		result.Explanation = ExplanationUnavailable
	}
	result.Summary = attribution.Summary(result.Contributions)

	span.SetAttributes(traces.Score(score), traces.ModelSource(string(source)))
	metrics.CreditScoresTotal.WithLabelValues(string(tier), string(source)).Inc()
	metrics.CreditScoreValue.Observe(float64(score))

	if err := s.store.Save(ctx, result); err != nil {
		// History is best effort.
		logging.L(ctx).Error("failed to record credit score", "user_id", userID, "error", err)
	}
	if s.publisher != nil {
		s.publisher.PublishCreditScored(result)
	}

	logging.L(ctx).Info("credit scored",
		"user_id", userID,
		"score", score,
		"tier", tier,
		"source", source,
	)
	return result, nil
}

// predict returns a probability and the model that produced it.
func (s *Service) predict(ctx context.Context, mode Mode, vec features.Vector) (float64, model.Source, error) {
	if mode == ModeML && s.models.Remote != nil {
		p, err := s.models.Remote.PredictProbability(ctx, vec)
		if err == nil {
			return scoring.ApplyTemperature(p, s.models.Temperature), model.SourceRemote, nil
		}
		metrics.ModelFallbacksTotal.WithLabelValues("predict").Inc()
		logging.L(ctx).Warn("remote model unavailable, using local model", "error", err)
	}

	if s.models.Local == nil {
		return 0, "", ErrModelUnavailable
	}
	p, err := s.models.Local.PredictProbability(ctx, vec)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return p, model.SourceLocal, nil
}

// attribute asks the attributor paired with source. A missing or failing
// attributor yields ok=false.
func (s *Service) attribute(ctx context.Context, source model.Source, vec features.Vector) ([]float64, bool) {
	a := s.models.LocalAttributor
	if source == model.SourceRemote {
		a = s.models.RemoteAttributor
	}
	if a == nil {
		return nil, false
	}
	raw, err := a.Attribute(ctx, vec)
	if err != nil {
		logging.L(ctx).Warn("attribution failed", "source", source, "error", err)
		return nil, false
	}
	return raw, true
}

// Get returns a recorded score by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	return s.store.Get(ctx, id)
}

// History returns a page of a user's scores, newest first, with the cursor
// for the next page.
func (s *Service) History(ctx context.Context, userID string, limit int, cursor string) ([]*Result, string, bool, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", false, err
	}
	items, err := s.store.ListByUser(ctx, userID, limit+1, cur)
	if err != nil {
		return nil, "", false, fmt.Errorf("list credit history: %w", err)
	}
	page, next, more := pagination.ComputePage(items, limit, func(r *Result) (time.Time, string) {
		return r.CreatedAt, r.ID
	})
	return page, next, more, nil
}
