package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/domain/billing"
	"github.com/ehr/medledger/internal/domain/catalog"
	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T) (*billing.Engine, *patient.Registry) {
	t.Helper()
	pool := requireDB(t)

	cat, err := catalog.New(
		catalog.Entry{Name: "Regular Checkup", MinPrice: dec("50"), MaxPrice: dec("100")},
		catalog.Entry{Name: "Emergency Services", MinPrice: dec("100"), MaxPrice: dec("200")},
		catalog.Entry{Name: "Specialist Consultation", MinPrice: dec("80"), MaxPrice: dec("120")},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	reg := patient.NewRegistry(patient.NewPGRepository(pool), zerolog.Nop())
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	eng := billing.NewEngine(cat, billing.DefaultPolicy(""), billing.NewPGLedger(pool), reg, zerolog.Nop())
	eng.SetClock(func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) })
	return eng, reg
}

func TestPGLedger_RecordAndReplay(t *testing.T) {
	eng, reg := newEngine(t)
	ctx := context.Background()

	p, err := reg.Create(ctx, patient.Fields{
		Name: "Dan", Age: 41, UrgentCare: true, RegularCheckup: true,
		HasInsurance: true, InsuranceType: "private",
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	q, err := eng.QuotePatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("QuotePatient: %v", err)
	}
	if !q.Total.Equal(dec("200")) || !q.DiscountedTotal.Equal(dec("20")) {
		t.Fatalf("quote = %s / %s, want 200 / 20", q.Total, q.DiscountedTotal)
	}

	if _, err := eng.RecordPayment(ctx, billing.RequestFor(q, "Card")); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	history, err := eng.HistoryFor(ctx, p.ID)
	if err != nil {
		t.Fatalf("HistoryFor: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].Service != "Regular Checkup" || history[1].Service != "Emergency Services" {
		t.Errorf("unexpected order: %s, %s", history[0].Service, history[1].Service)
	}
	for _, r := range history {
		if r.Method != billing.MethodCard || r.Date != "2026-03-14" {
			t.Errorf("unexpected record %+v", r)
		}
		if !r.Total.Equal(dec("200")) || !r.DiscountedTotal.Equal(dec("20")) {
			t.Errorf("totals not shared: %+v", r)
		}
	}
	if !history[1].Cost.Equal(dec("150")) {
		t.Errorf("emergency cost = %s, want 150", history[1].Cost)
	}
}

func TestPGLedger_RejectedPaymentWritesNothing(t *testing.T) {
	eng, reg := newEngine(t)
	ctx := context.Background()

	p, err := reg.Create(ctx, patient.Fields{Name: "Anna", Age: 30, RegularCheckup: true}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	q, err := eng.QuotePatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("QuotePatient: %v", err)
	}

	_, err = eng.RecordPayment(ctx, billing.RequestFor(q, "check"))
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	history, err := eng.PaymentHistory(ctx)
	if err != nil {
		t.Fatalf("PaymentHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty ledger, got %d rows", len(history))
	}
}
