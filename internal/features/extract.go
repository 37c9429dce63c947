package features

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	nightStartHour = 22
	nightEndHour   = 6
)

// monthKey identifies a UTC calendar month as year*12+month so keys sort
// chronologically.
type monthKey int

func keyOf(t Transaction) monthKey {
	return monthKey(t.Timestamp.Year()*12 + int(t.Timestamp.Month()) - 1)
}

// IsNight reports whether a transaction falls in the 22:00–06:00 UTC window.
func IsNight(t Transaction) bool {
	h := t.Timestamp.Hour()
	return h < nightEndHour || h >= nightStartHour
}

// Extract computes the feature vector for a set of parsed transactions.
// It never fails; empty input yields the zero vector.
func Extract(txns []Transaction) Vector {
	if len(txns) == 0 {
		return Vector{}
	}

	// Fixed accumulation order keeps float sums reproducible regardless of
	// the order records arrived in.
	sorted := make([]Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	creditsByMonth := make(map[monthKey]float64)
	merchantsByMonth := make(map[monthKey]map[string]struct{})

	var cashDebit, totalDebit float64
	var nightCount, dayCount int

	for _, t := range sorted {
		if IsNight(t) {
			nightCount++
		} else {
			dayCount++
		}

		mk := keyOf(t)
		if t.Kind == KindCredit {
			creditsByMonth[mk] += math.Max(0, t.Amount)
		} else {
			amt := math.Abs(t.Amount)
			totalDebit += amt
			if strings.EqualFold(strings.TrimSpace(t.Channel), "cash") {
				cashDebit += amt
			}
		}

		set, ok := merchantsByMonth[mk]
		if !ok {
			set = make(map[string]struct{})
			merchantsByMonth[mk] = set
		}
		set[t.Merchant] = struct{}{}
	}

	income, volatility := incomeStats(creditsByMonth)

	months := len(merchantsByMonth)
	if months == 0 {
		months = 1
	}
	uniqueMerchants := 0
	for _, set := range merchantsByMonth {
		uniqueMerchants += len(set)
	}

	total := float64(len(sorted))
	cashRatio := 0.0
	if totalDebit > 0 {
		cashRatio = cashDebit / totalDebit
	}

	return Vector{
		MonthlyAvgIncome:  roundTo(income, 2),
		IncomeVolatility:  roundTo(volatility, 4),
		OntimePct:         roundTo(float64(dayCount)/total, 4),
		CashRatio:         roundTo(cashRatio, 4),
		MerchantDiversity: roundTo(float64(uniqueMerchants)/float64(months), 2),
		NightTxnRatio:     roundTo(float64(nightCount)/total, 4),
	}
}

// ExtractRaw parses raw records and extracts their features.
func ExtractRaw(raw []RawTransaction) Vector {
	return Extract(Parse(raw))
}

// incomeStats returns the mean of monthly credit totals and their
// coefficient of variation (population stddev / mean).
func incomeStats(byMonth map[monthKey]float64) (mean, volatility float64) {
	if len(byMonth) == 0 {
		return 0, 0
	}
	keys := make([]monthKey, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	n := float64(len(keys))
	var sum float64
	for _, k := range keys {
		sum += byMonth[k]
	}
	mean = sum / n

	var sq float64
	for _, k := range keys {
		d := byMonth[k] - mean
		sq += d * d
	}
	if mean > 0 {
		volatility = math.Sqrt(sq/n) / mean
	}
	return mean, volatility
}

// roundTo rounds to a fixed number of decimal places via the correctly
// rounded decimal representation.
func roundTo(x float64, places int) float64 {
	if !isFinite(x) {
		return 0
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return 0
	}
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
