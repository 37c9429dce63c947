// Package scoring maps a classifier's good-outcome probability onto the
// 300–850 credit score scale and its tiers.
package scoring

import (
	"math"
	"strconv"
)

// Score range bounds.
const (
	MinScore = 300
	MaxScore = 850
)

// Tier is a discrete creditworthiness bucket.
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

// Tier lower bounds, inclusive.
const (
	GoldThreshold   = 720
	SilverThreshold = 640
)

// Clamp01 bounds p to [0,1]. NaN maps to 0.
func Clamp01(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ProbabilityToScore maps a probability onto [MinScore, MaxScore].
// Rounds half to even.
func ProbabilityToScore(p float64) int {
	p = Clamp01(p)
	return int(math.RoundToEven(MinScore + p*(MaxScore-MinScore)))
}

// TierFor returns the tier for a score. Thresholds are checked high to low.
func TierFor(score int) Tier {
	switch {
	case score >= GoldThreshold:
		return TierGold
	case score >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// MapScore converts a probability into a score and tier.
func MapScore(p float64) (int, Tier) {
	s := ProbabilityToScore(p)
	return s, TierFor(s)
}

// ApplyTemperature softens (t > 1) or sharpens (t < 1) a probability in logit
// space. p is kept away from 0 and 1 and t is floored at 0.5.
func ApplyTemperature(p, t float64) float64 {
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(1e-6, math.Min(1-1e-6, p))
	if math.IsNaN(t) || t == 0 {
		t = 1
	}
	t = math.Max(0.5, t)
	logit := math.Log(p / (1 - p))
	return 1 / (1 + math.Exp(-logit/t))
}

// Round4 rounds the exact binary value of x to four decimal places, so
// 0.00035 (stored just below the tie) becomes 0.0003.
func Round4(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 4, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
