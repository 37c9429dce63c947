package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/altscore/altscore/internal/features"
)

// Default weights and caps of the local logistic model. Features are clamped
// to [0, cap] and divided by cap before weighting, so every input is in [0,1].
var (
	defaultWeights = map[string]float64{
		features.MonthlyAvgIncome:  1.2,
		features.IncomeVolatility:  -1.0,
		features.OntimePct:         1.2,
		features.CashRatio:         -1.0,
		features.MerchantDiversity: 0.6,
		features.NightTxnRatio:     -0.8,
	}
	defaultCaps = map[string]float64{
		features.MonthlyAvgIncome:  100000,
		features.IncomeVolatility:  1.5,
		features.OntimePct:         1,
		features.CashRatio:         1,
		features.MerchantDiversity: 12,
		features.NightTxnRatio:     1,
	}
)

// Artifact is the on-disk form of a LinearModel.
type Artifact struct {
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
	Caps    map[string]float64 `json:"caps,omitempty"`
}

// LinearModel is a logistic model over capped, scaled features. Its
// attribution for a feature is weight times scaled value, so attributions sum
// to the logit minus the bias. Immutable after construction.
type LinearModel struct {
	version string
	bias    float64
	weights []float64
	caps    []float64
}

// DefaultLinearModel returns the built-in model.
func DefaultLinearModel() *LinearModel {
	m, err := FromArtifact(Artifact{Version: "default", Weights: defaultWeights, Caps: defaultCaps})
	if err != nil {
		panic(err)
	}
	return m
}

// FromArtifact validates a and builds the model. Every feature needs a
// finite weight; missing caps use the defaults.
func FromArtifact(a Artifact) (*LinearModel, error) {
	if math.IsNaN(a.Bias) || math.IsInf(a.Bias, 0) {
		return nil, fmt.Errorf("%w: bias is not finite", ErrInvalidArtifact)
	}
	m := &LinearModel{
		version: a.Version,
		bias:    a.Bias,
		weights: make([]float64, len(features.Names)),
		caps:    make([]float64, len(features.Names)),
	}
	for i, name := range features.Names {
		w, ok := a.Weights[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing weight for %s", ErrInvalidArtifact, name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight for %s is not finite", ErrInvalidArtifact, name)
		}
		c, ok := a.Caps[name]
		if !ok {
			c = defaultCaps[name]
		}
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: cap for %s must be positive", ErrInvalidArtifact, name)
		}
		m.weights[i] = w
		m.caps[i] = c
	}
	if m.version == "" {
		m.version = "custom"
	}
	return m, nil
}

// ReadArtifact decodes a JSON artifact from r.
func ReadArtifact(r io.Reader) (*LinearModel, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return FromArtifact(a)
}

// LoadLinearModel reads a JSON artifact from path.
func LoadLinearModel(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credit model: %w", err)
	}
	defer f.Close()

	m, err := ReadArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// Version identifies the loaded weights.
func (m *LinearModel) Version() string { return m.version }

// Contributions returns weight times scaled value per feature, in
// features.Names order.
func (m *LinearModel) Contributions(v features.Vector) []float64 {
	vals := v.Values()
	out := make([]float64, len(vals))
	for i, x := range vals {
		if math.IsNaN(x) {
			x = 0
		}
		scaled := math.Max(0, math.Min(x, m.caps[i])) / m.caps[i]
		out[i] = m.weights[i] * scaled
	}
	return out
}

// PredictProbability implements Classifier.
func (m *LinearModel) PredictProbability(_ context.Context, v features.Vector) (float64, error) {
	z := m.bias
	for _, c := range m.Contributions(v) {
		z += c
	}
	return sigmoid(z), nil
}

// Attribute implements Attributor.
func (m *LinearModel) Attribute(_ context.Context, v features.Vector) ([]float64, error) {
	return m.Contributions(v), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
