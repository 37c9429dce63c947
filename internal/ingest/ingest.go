// Package ingest turns uploaded bank statements into raw transactions.
//
// Two formats are understood: CSV exports whose columns are discovered from
// the header row, and plain text with one transaction per line. Rows that
// cannot be understood are skipped and counted, never fatal.
package ingest

import (
	"errors"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/validation"
	"github.com/microcosm-cc/bluemonday"
)

// Format is a statement encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

var (
	ErrEmpty    = errors.New("statement is empty")
	ErrNoHeader = errors.New("statement has no recognizable header")
)

// maxFieldLength bounds merchant and channel text.
const maxFieldLength = 256

// Statement is the result of parsing one upload.
type Statement struct {
	Format       Format                    `json:"format"`
	Transactions []features.RawTransaction `json:"transactions"`
	Skipped      int                       `json:"skipped"`
}

var (
	creditWords = regexp.MustCompile(`(?i)credit|deposit|\bcr\b`)
	debitWords  = regexp.MustCompile(`(?i)debit|withdraw|\bdr\b`)
	nonNumeric  = regexp.MustCompile(`[^0-9.\-]`)

	// Statement text can carry markup from HTML exports.
	textPolicy = bluemonday.StrictPolicy()
)

// classify resolves a transaction kind from a free-text type column,
// falling back to the sign of the amount.
func classify(raw string, amount float64) string {
	switch {
	case creditWords.MatchString(raw):
		return string(features.KindCredit)
	case debitWords.MatchString(raw):
		return string(features.KindDebit)
	case amount < 0:
		return string(features.KindDebit)
	case raw == "" && amount > 0:
		return string(features.KindCredit)
	default:
		return string(features.KindDebit)
	}
}

// parseAmount reads amounts such as "1,250.00", "₹650" or "-". Blank and
// placeholder values are zero.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "--" {
		return 0, true
	}
	f, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(s, ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func cleanText(s string) string {
	return validation.SanitizeString(html.UnescapeString(textPolicy.Sanitize(s)), maxFieldLength)
}

func optional(s string) *string {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

var dmyDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})(?:\s+(\d{1,2}:\d{2}(?::\d{2})?))?$`)

// normalizeDate rewrites day-first dates (02/01/2024 [10:30]) as ISO UTC so
// the feature parser accepts them. Other values pass through unchanged.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	m := dmyDate.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	day, month, year := pad2(m[1]), pad2(m[2]), m[3]
	if m[4] == "" {
		return year + "-" + month + "-" + day
	}
	hour, rest, _ := strings.Cut(m[4], ":")
	if !strings.Contains(rest, ":") {
		rest += ":00"
	}
	return year + "-" + month + "-" + day + "T" + pad2(hour) + ":" + rest + "Z"
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
