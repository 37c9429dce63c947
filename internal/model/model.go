// Package model defines the classifier and attribution contracts consumed by
// the credit service, and the local and remote implementations behind them.
//
// Every implementation must be safe for concurrent read-only inference.
package model

import (
	"context"
	"errors"

	"github.com/altscore/altscore/internal/features"
)

//go:generate mockgen -destination=mocks/mock_model.go -package=mocks -source=model.go

// Classifier predicts the probability of a good credit outcome.
type Classifier interface {
	PredictProbability(ctx context.Context, v features.Vector) (float64, error)
}

// Attributor returns one attribution value per feature, aligned with
// features.Names.
type Attributor interface {
	Attribute(ctx context.Context, v features.Vector) ([]float64, error)
}

// Source labels which model produced a result.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

var (
	// ErrBadResponse is returned when a model answers with an unusable payload.
	ErrBadResponse = errors.New("model: malformed response")
	// ErrInvalidArtifact is returned for a model file that cannot be used.
	ErrInvalidArtifact = errors.New("model: invalid artifact")
)
