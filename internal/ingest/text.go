package ingest

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/altscore/altscore/internal/features"
)

const (
	defaultMerchant = "Unknown"
	defaultChannel  = "Card"
)

var (
	fieldSep    = regexp.MustCompile(`\s*[|,]\s*`)
	isoZ        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
	spacedClock = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}$`)
	amountToken = regexp.MustCompile(`(?i)(?:₹|INR|Rs\.?)?\s*-?\d+(?:\.\d+)?`)
)

// ParseText reads a plain-text statement with one transaction per line:
//
//	ts, amount, type, merchant, channel
//
// Fields may be separated by commas or pipes. "YYYY-MM-DD HH:MM" timestamps
// are promoted to ISO UTC; lines without a usable timestamp or amount are
// skipped. Amounts are taken as magnitudes and the type decides direction.
func ParseText(r io.Reader) (*Statement, error) {
	st := &Statement{Format: FormatText, Transactions: []features.RawTransaction{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines++
		txn, ok := textLine(line)
		if !ok {
			st.Skipped++
			continue
		}
		st.Transactions = append(st.Transactions, txn)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	if lines == 0 {
		return nil, ErrEmpty
	}
	return st, nil
}

func textLine(line string) (features.RawTransaction, bool) {
	parts := fieldSep.Split(line, -1)
	if len(parts) < 3 {
		return features.RawTransaction{}, false
	}

	ts := strings.TrimSpace(parts[0])
	if spacedClock.MatchString(ts) {
		ts = strings.Join(strings.Fields(ts), "T") + ":00Z"
	}
	if !isoZ.MatchString(ts) {
		return features.RawTransaction{}, false
	}

	tok := amountToken.FindString(strings.ReplaceAll(parts[1], ",", ""))
	if tok == "" {
		return features.RawTransaction{}, false
	}
	amount, ok := parseAmount(tok)
	if !ok {
		return features.RawTransaction{}, false
	}

	kind := string(features.KindDebit)
	if strings.Contains(strings.ToLower(parts[2]), "credit") {
		kind = string(features.KindCredit)
	}

	merchant, channel := defaultMerchant, defaultChannel
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		merchant = parts[3]
	}
	if len(parts) > 4 && strings.TrimSpace(parts[4]) != "" {
		channel = parts[4]
	}

	return features.RawTransaction{
		TS:       ts,
		Amount:   features.Amount(math.Abs(amount)),
		Type:     kind,
		Merchant: optional(merchant),
		Channel:  optional(channel),
	}, true
}
