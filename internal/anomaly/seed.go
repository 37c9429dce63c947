package anomaly

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

// Synthetic seed distribution used when no seed file is configured.
const (
	seedSamples = 500
	seedMean    = 1500.0
	seedStdDev  = 400.0
	seedMin     = 10.0
	seedMax     = 10000.0
)

// SyntheticAmounts draws a deterministic normal sample of typical transaction
// amounts, clipped to a plausible range.
func SyntheticAmounts(seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]float64, seedSamples)
	for i := range out {
		v := seedMean + seedStdDev*rng.NormFloat64()
		out[i] = math.Min(seedMax, math.Max(seedMin, v))
	}
	return out
}

// ReadSeedCSV reads the "amount" column from a CSV with a header row. Rows
// with a non-numeric amount are skipped.
func ReadSeedCSV(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read seed header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "amount") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New("seed csv has no amount column")
	}

	var out []float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed row: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadSeed returns seed amounts from path, or the synthetic sample when path
// is empty. A configured path that cannot be read is an error.
func LoadSeed(path string, seed uint64) ([]float64, error) {
	if path == "" {
		return SyntheticAmounts(seed), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open anomaly seed: %w", err)
	}
	defer f.Close()

	amounts, err := ReadSeedCSV(f)
	if err != nil {
		return nil, err
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("anomaly seed %s: %w", path, ErrNoTrainingData)
	}
	return amounts, nil
}

// NewDefaultForest fits the default forest on the configured seed.
func NewDefaultForest(seedPath string) (*IsolationForest, error) {
	cfg := DefaultForestConfig()
	amounts, err := LoadSeed(seedPath, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return Fit(column(amounts), cfg)
}
