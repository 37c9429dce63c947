package features

import (
	"math"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
// Offsets may be written with or without a colon, and the time part may stop
// at the hour or minute.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15Z07:00",
	"2006-01-02T15Z0700",
	"2006-01-02T15",
	"2006-01-02 15",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseOne converts a raw record. The boolean is false when the timestamp
// cannot be parsed; every other malformed field is defaulted.
func ParseOne(r RawTransaction) (Transaction, bool) {
	ts, ok := ParseTimestamp(r.TS)
	if !ok {
		return Transaction{}, false
	}
	kind := KindDebit
	if r.Type == string(KindCredit) {
		kind = KindCredit
	}
	return Transaction{
		Timestamp: ts,
		Amount:    float64(r.Amount),
		Kind:      kind,
		Merchant:  trimmed(r.Merchant),
		Channel:   trimmed(r.Channel),
	}, true
}

// Parse converts raw records, silently dropping those with unparseable
// timestamps.
func Parse(raw []RawTransaction) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for _, r := range raw {
		if t, ok := ParseOne(r); ok {
			out = append(out, t)
		}
	}
	return out
}

// Amounts extracts the amount of every raw record, including those whose
// timestamp would not parse.
func Amounts(raw []RawTransaction) []float64 {
	out := make([]float64, len(raw))
	for i, r := range raw {
		out[i] = float64(r.Amount)
	}
	return out
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
