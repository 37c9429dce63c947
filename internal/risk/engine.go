package risk

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/altscore/altscore/internal/anomaly"
	"github.com/altscore/altscore/internal/features"
)

const (
	// largeAbsThreshold is the floor for the large-transaction threshold.
	largeAbsThreshold = 50000
	zSigmas           = 3
	zSaturation       = 6

	weightZ         = 0.5
	cryptoScore     = 0.4
	largeStep       = 0.2
	maxLargeCounted = 3
)

var cryptoMerchant = regexp.MustCompile(`(?i)crypto|binance|coin|exchange`)

// Heuristic scores a batch without a trained model. It combines the largest
// z-score, the presence of crypto merchants and the count of unusually large
// transactions. Only positive amounts contribute to the mean and spread.
type Heuristic struct{}

// Score assesses raw transactions. It never fails.
func (Heuristic) Score(raw []features.RawTransaction) anomaly.Result {
	var positive []float64
	for _, r := range raw {
		if a := float64(r.Amount); a > 0 {
			positive = append(positive, a)
		}
	}
	mean, std := meanStd(positive)
	large := math.Max(largeAbsThreshold, mean+zSigmas*std)

	alerts := []string{}
	var cryptoCount, largeCount int
	var maxZ float64
	for _, r := range raw {
		amt := float64(r.Amount)
		merchant := ""
		if r.Merchant != nil {
			merchant = *r.Merchant
		}
		if cryptoMerchant.MatchString(merchant) {
			cryptoCount++
			alerts = append(alerts, fmt.Sprintf("Crypto txn: %s @ %s", formatAmount(amt), merchant))
		}
		if amt >= large {
			largeCount++
			alerts = append(alerts, fmt.Sprintf("Large txn: %s on %s", formatAmount(amt), r.TS))
		}
		if std > 0 {
			maxZ = math.Max(maxZ, math.Abs((amt-mean)/std))
		}
	}

	score := weightZ*zFactor(maxZ) + cryptoFactor(cryptoCount) + largeFactor(largeCount)

	stats := anomaly.Stats{Avg: mean}
	if n := len(positive); n > 0 {
		stats.Last = positive[n-1]
	}
	return anomaly.Result{
		RiskScore: math.Min(1, score),
		Alerts:    alerts,
		Stats:     &stats,
	}
}

// zFactor: 6 standard deviations saturates at 1.
func zFactor(maxZ float64) float64 {
	return math.Min(1, maxZ/zSaturation)
}

// cryptoFactor: any crypto merchant adds a flat 0.4.
func cryptoFactor(count int) float64 {
	if count > 0 {
		return cryptoScore
	}
	return 0
}

// largeFactor: 0.2 per large transaction, counting at most three.
func largeFactor(count int) float64 {
	return math.Min(1, float64(min(maxLargeCounted, count))*largeStep)
}

// meanStd returns the mean and population standard deviation.
func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(vals)))
}

func formatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
