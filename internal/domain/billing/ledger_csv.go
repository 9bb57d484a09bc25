package billing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/csvfile"
)

var ledgerHeader = []string{"PatientID", "Service", "Cost", "Total", "DiscountedTotal", "PaymentMethod", "Date"}

// CSVLedger appends payment records to a flat CSV file with amounts written
// to two decimals.
type CSVLedger struct {
	path   string
	logger zerolog.Logger
}

func NewCSVLedger(path string, logger zerolog.Logger) *CSVLedger {
	return &CSVLedger{path: path, logger: logger}
}

func (l *CSVLedger) Append(ctx context.Context, records []PaymentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.PatientID,
			r.Service,
			r.Cost.StringFixed(2),
			r.Total.StringFixed(2),
			r.DiscountedTotal.StringFixed(2),
			string(r.Method),
			r.Date,
		}
	}
	if err := csvfile.Append(l.path, ledgerHeader, rows); err != nil {
		return fmt.Errorf("append payment records: %w", err)
	}
	return nil
}

func (l *CSVLedger) History(ctx context.Context) ([]PaymentRecord, error) {
	records := []PaymentRecord{}

	reader, err := csvfile.Open(l.path)
	if err != nil {
		if csvfile.IsMissing(err) {
			l.logger.Info().Str("path", l.path).Msg("no payment history")
			return records, nil
		}
		return records, fmt.Errorf("open ledger: %w", err)
	}
	defer reader.Close()

	if err := reader.Require(ledgerHeader...); err != nil {
		return records, &apperr.IntegrityError{Source: l.path, Row: 1, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, &apperr.IntegrityError{Source: l.path, Row: reader.RowNum() + 1, Err: err}
		}
		rec, err := recordFromRow(row)
		if err != nil {
			return records, &apperr.IntegrityError{Source: l.path, Row: reader.RowNum(), Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordFromRow(row csvfile.Row) (PaymentRecord, error) {
	rec := PaymentRecord{
		PatientID: row.Get("PatientID"),
		Service:   row.Get("Service"),
		Date:      row.Get("Date"),
	}
	if rec.PatientID == "" || rec.Service == "" {
		return rec, fmt.Errorf("patient id and service are required")
	}

	amounts := []struct {
		col string
		dst *decimal.Decimal
	}{
		{"Cost", &rec.Cost},
		{"Total", &rec.Total},
		{"DiscountedTotal", &rec.DiscountedTotal},
	}
	for _, a := range amounts {
		v, err := decimal.NewFromString(row.Get(a.col))
		if err != nil {
			return rec, fmt.Errorf("%s %q is not a number", a.col, row.Get(a.col))
		}
		*a.dst = v
	}

	method, err := ParsePaymentMethod(row.Get("PaymentMethod"))
	if err != nil {
		return rec, err
	}
	rec.Method = method

	if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return rec, fmt.Errorf("date %q is not YYYY-MM-DD", rec.Date)
	}
	return rec, nil
}
