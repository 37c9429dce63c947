// Package features turns raw transaction history into the fixed behavioural
// feature vector consumed by the credit model.
//
// The extractor is the serving-side half of a training/serving contract: the
// rounding, clamping and degenerate-input rules here must match the training
// pipeline exactly, so changes to any of them invalidate deployed models.
package features

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind is the direction of a transaction.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// Feature names in model column order.
const (
	MonthlyAvgIncome  = "monthly_avg_income"
	IncomeVolatility  = "income_volatility"
	OntimePct         = "ontime_pct"
	CashRatio         = "cash_ratio"
	MerchantDiversity = "merchant_diversity"
	NightTxnRatio     = "night_txn_ratio"
)

// Names is the fixed feature order shared by the classifier, the attribution
// engine and the ranker. Do not reorder.
var Names = []string{
	MonthlyAvgIncome,
	IncomeVolatility,
	OntimePct,
	CashRatio,
	MerchantDiversity,
	NightTxnRatio,
}

// Transaction is a parsed transaction record. Timestamp is always UTC.
type Transaction struct {
	Timestamp time.Time `json:"ts"`
	Amount    float64   `json:"amount"`
	Kind      Kind      `json:"type"`
	Merchant  string    `json:"merchant,omitempty"`
	Channel   string    `json:"channel,omitempty"`
}

// RawTransaction is a transaction as received on the wire. Every field is
// optional; parsing never fails on a malformed field, it defaults it.
type RawTransaction struct {
	TS       string  `json:"ts"`
	Amount   Amount  `json:"amount"`
	Type     string  `json:"type"`
	Merchant *string `json:"merchant,omitempty"`
	Channel  *string `json:"channel,omitempty"`
}

// Amount decodes a JSON number, a numeric string or null. Anything that is
// not a finite number decodes to zero instead of failing the whole payload.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*a = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

// Vector is the six-feature behavioural summary of a transaction history.
// The zero value is the canonical vector for empty input.
type Vector struct {
	MonthlyAvgIncome  float64 `json:"monthly_avg_income"`
	IncomeVolatility  float64 `json:"income_volatility"`
	OntimePct         float64 `json:"ontime_pct"` // daytime share, not payment punctuality
	CashRatio         float64 `json:"cash_ratio"`
	MerchantDiversity float64 `json:"merchant_diversity"`
	NightTxnRatio     float64 `json:"night_txn_ratio"`
}

// Values returns the vector in Names order.
func (v Vector) Values() []float64 {
	return []float64{
		v.MonthlyAvgIncome,
		v.IncomeVolatility,
		v.OntimePct,
		v.CashRatio,
		v.MerchantDiversity,
		v.NightTxnRatio,
	}
}

// Get returns a feature by name.
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range Names {
		if n == name {
			return v.Values()[i], true
		}
	}
	return 0, false
}

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(Names))
	for i, val := range v.Values() {
		out[Names[i]] = val
	}
	return out
}

// IsZero reports whether v is the canonical empty vector.
func (v Vector) IsZero() bool {
	return v == Vector{}
}
