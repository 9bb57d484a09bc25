// Package export writes the payment ledger as Parquet for downstream
// reporting.
package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

const flushInterval = 10_000

// LedgerRow is the Parquet schema of one payment record. Amounts are stored
// in cents so the file carries no floating point rounding.
type LedgerRow struct {
	PatientID            string `parquet:"patient_id"`
	Service              string `parquet:"service"`
	CostCents            int64  `parquet:"cost_cents"`
	TotalCents           int64  `parquet:"total_cents"`
	DiscountedTotalCents int64  `parquet:"discounted_total_cents"`
	PaymentMethod        string `parquet:"payment_method"`
	Date                 string `parquet:"date"`
}

// LedgerWriter writes ledger rows to a Parquet file.
type LedgerWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[LedgerRow]
	count  int
}

func NewLedgerWriter(path string) (*LedgerWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create ledger parquet: %w", err)
	}
	writer := parquet.NewGenericWriter[LedgerRow](file,
		parquet.Compression(&parquet.Snappy),
	)
	return &LedgerWriter{file: file, writer: writer}, nil
}

func (w *LedgerWriter) Write(row LedgerRow) error {
	if _, err := w.writer.Write([]LedgerRow{row}); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.count++
	if w.count%flushInterval == 0 {
		if err := w.writer.Flush(); err != nil {
			return fmt.Errorf("flush ledger rows: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the writer.
func (w *LedgerWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close ledger writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written.
func (w *LedgerWriter) Count() int { return w.count }
