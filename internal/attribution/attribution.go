// Package attribution converts per-feature attribution values into signed
// integer points and selects the most impactful ones for display.
package attribution

import (
	"math"
	"sort"
	"strconv"
)

const (
	// Scale converts a raw attribution into display points.
	Scale = 40.0
	// MaxContributions caps the ranked list.
	MaxContributions = 6
)

// Contribution is one feature's share of a prediction.
type Contribution struct {
	Feature        string  `json:"feature"`
	RawAttribution float64 `json:"shap"`
	Points         int     `json:"points"`
	Label          string  `json:"description"`
}

// Points converts a raw attribution into display points, rounding half to
// even (2.5 -> 2, 3.5 -> 4, -2.5 -> -2).
func Points(raw float64) int {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	return int(math.RoundToEven(raw * Scale))
}

func signed(points int) string {
	if points >= 0 {
		return "+" + strconv.Itoa(points)
	}
	return strconv.Itoa(points)
}

// Label renders "<name> <sign><points>", e.g. "cash_ratio -12".
func Label(name string, points int) string {
	return name + " " + signed(points)
}

// New builds a contribution from a feature name and raw attribution.
func New(name string, raw float64) Contribution {
	p := Points(raw)
	return Contribution{
		Feature:        name,
		RawAttribution: raw,
		Points:         p,
		Label:          Label(name, p),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Rank pairs names with raw attributions, orders them by absolute points
// descending and keeps at most MaxContributions. Ties keep input order.
// Extra names or values beyond the shorter slice are ignored.
func Rank(names []string, raw []float64) []Contribution {
	n := min(len(names), len(raw))
	out := make([]Contribution, n)
	for i := 0; i < n; i++ {
		out[i] = New(names[i], raw[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].Points) > abs(out[j].Points)
	})
	if len(out) > MaxContributions {
		out = out[:MaxContributions]
	}
	return out
}

// Summary renders one "<sign><points> <name>" line per contribution, in order.
func Summary(contribs []Contribution) []string {
	lines := make([]string, len(contribs))
	for i, c := range contribs {
		lines[i] = signed(c.Points) + " " + c.Feature
	}
	return lines
}
