package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/altscore/altscore/internal/features"
)

var openingBalance = regexp.MustCompile(`(?i)opening\s*balance`)

// columns holds header positions; -1 means absent.
type columns struct {
	date, merchant, kind, debit, credit, amount, channel int
}

func detectColumns(header []string) columns {
	cols := columns{-1, -1, -1, -1, -1, -1, -1}
	set := func(dst *int, i int) {
		if *dst < 0 {
			*dst = i
		}
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date", "timestamp", "ts", "txn date", "transaction date":
			set(&cols.date, i)
		case "merchant", "description", "narration", "particulars":
			set(&cols.merchant, i)
		case "transaction type", "type", "direction":
			set(&cols.kind, i)
		case "debit", "withdrawal":
			set(&cols.debit, i)
		case "credit", "deposit":
			set(&cols.credit, i)
		case "amount", "amt":
			set(&cols.amount, i)
		case "channel", "mode":
			set(&cols.channel, i)
		}
	}
	return cols
}

func (c columns) usable() bool {
	return c.date >= 0 && (c.amount >= 0 || c.debit >= 0 || c.credit >= 0)
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseCSV reads a CSV statement. Columns are found by header name. When
// debit or credit columns carry a value the amount is credit minus debit;
// otherwise the amount column is used and signed by the type column.
// Opening-balance rows without movement are dropped.
func ParseCSV(r io.Reader) (*Statement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := detectColumns(header)
	if !cols.usable() {
		return nil, ErrNoHeader
	}

	st := &Statement{Format: FormatCSV, Transactions: []features.RawTransaction{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				st.Skipped++
				continue
			}
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		txn, ok := csvRow(record, cols)
		if !ok {
			st.Skipped++
			continue
		}
		if txn != nil {
			st.Transactions = append(st.Transactions, *txn)
		}
	}
	return st, nil
}

// csvRow converts a record. A nil transaction with ok=true is a row that is
// deliberately ignored.
func csvRow(record []string, cols columns) (*features.RawTransaction, bool) {
	date := field(record, cols.date)
	if date == "" {
		return nil, false
	}
	kindRaw := field(record, cols.kind)
	merchant := field(record, cols.merchant)

	debit, okD := parseAmount(field(record, cols.debit))
	credit, okC := parseAmount(field(record, cols.credit))
	if !okD || !okC {
		return nil, false
	}

	var amount float64
	if debit != 0 || credit != 0 {
		amount = credit - debit
	} else {
		a, ok := parseAmount(field(record, cols.amount))
		if !ok {
			return nil, false
		}
		amount = a
		if amount > 0 && debitWords.MatchString(kindRaw) {
			amount = -amount
		}
	}

	label := kindRaw
	if label == "" {
		label = merchant
	}
	if openingBalance.MatchString(label) && debit == 0 && credit == 0 {
		return nil, true
	}

	return &features.RawTransaction{
		TS:       normalizeDate(date),
		Amount:   features.Amount(amount),
		Type:     classify(kindRaw, amount),
		Merchant: optional(merchant),
		Channel:  optional(field(record, cols.channel)),
	}, true
}
