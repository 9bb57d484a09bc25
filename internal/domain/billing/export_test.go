package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/medledger/internal/platform/export"
)

type sliceWriter struct {
	rows []export.LedgerRow
	err  error
}

func (w *sliceWriter) Write(row export.LedgerRow) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, row)
	return nil
}

func TestToLedgerRow(t *testing.T) {
	row := ToLedgerRow(PaymentRecord{
		PatientID: "P1001", Service: ServiceEmergency,
		Cost: dec("150.5"), Total: dec("280.505"), DiscountedTotal: dec("56.101"),
		Method: MethodCash, Date: "2026-03-14",
	})
	if row.CostCents != 15050 || row.TotalCents != 28051 || row.DiscountedTotalCents != 5610 {
		t.Errorf("unexpected cents %+v", row)
	}
	if row.PaymentMethod != "cash" || row.Date != "2026-03-14" {
		t.Errorf("unexpected row %+v", row)
	}
}

func TestEngine_Export(t *testing.T) {
	e, ledger, _ := newTestEngine(t, testCatalog(t))
	ledger.records = sampleRecords()

	w := &sliceWriter{}
	n, err := e.Export(context.Background(), w)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if n != 2 || len(w.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d (%d written)", n, len(w.rows))
	}
	if w.rows[1].Service != ServiceEmergency || w.rows[1].CostCents != 15050 {
		t.Errorf("unexpected row %+v", w.rows[1])
	}

	if _, err := e.Export(context.Background(), &sliceWriter{err: errors.New("disk full")}); err == nil {
		t.Error("expected writer error")
	}
}
