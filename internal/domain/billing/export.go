package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/platform/export"
)

// RowWriter receives exported ledger rows.
type RowWriter interface {
	Write(row export.LedgerRow) error
}

var hundred = decimal.NewFromInt(100)

func cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ToLedgerRow converts a record to its export schema.
func ToLedgerRow(r PaymentRecord) export.LedgerRow {
	return export.LedgerRow{
		PatientID:            r.PatientID,
		Service:              r.Service,
		CostCents:            cents(r.Cost),
		TotalCents:           cents(r.Total),
		DiscountedTotalCents: cents(r.DiscountedTotal),
		PaymentMethod:        string(r.Method),
		Date:                 r.Date,
	}
}

// Export writes the whole ledger to w and returns the number of rows.
// History integrity errors abort the export.
func (e *Engine) Export(ctx context.Context, w RowWriter) (int, error) {
	records, err := e.PaymentHistory(ctx)
	if err != nil {
		return 0, err
	}
	for i, r := range records {
		if err := w.Write(ToLedgerRow(r)); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
