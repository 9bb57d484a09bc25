package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/domain/catalog"
	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/metrics"
)

// Engine prices patients against the catalog and policy and records
// payments to the ledger.
type Engine struct {
	catalog  *catalog.Catalog
	policy   Policy
	ledger   Ledger
	patients *patient.Registry
	logger   zerolog.Logger
	metrics  *metrics.Collector
	now      func() time.Time

	mu sync.Mutex
}

func NewEngine(cat *catalog.Catalog, policy Policy, ledger Ledger, patients *patient.Registry, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog:  cat,
		policy:   policy,
		ledger:   ledger,
		patients: patients,
		logger:   logger,
		now:      time.Now,
	}
}

// SetCollector attaches metrics. A nil collector disables them.
func (e *Engine) SetCollector(c *metrics.Collector) {
	e.metrics = c
}

// SetClock replaces the clock used to date payments.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func (e *Engine) Policy() Policy { return e.policy }

// Quote bills p: one line item per matching rule, in rule order. A service
// missing from the catalog is charged at zero.
func (e *Engine) Quote(p *patient.Patient) *Quote {
	q := &Quote{
		PatientID:     p.ID,
		InsuranceType: p.InsuranceType,
		Items:         []LineItem{},
		Total:         decimal.Zero,
	}

	for _, rule := range e.policy.Rules {
		if !p.Has(rule.Flag) {
			continue
		}
		item := LineItem{Service: rule.Service, Cost: decimal.Zero}
		if entry, ok := e.catalog.Lookup(rule.Service); ok {
			item.Cost = rule.Price.Apply(entry)
			item.Priced = true
		} else {
			e.logger.Warn().Str("patient_id", p.ID).Str("service", rule.Service).
				Msg("service not in catalog, charging zero")
		}
		q.Items = append(q.Items, item)
		q.Total = q.Total.Add(item.Cost)
	}

	q.DiscountedTotal = q.Total
	if p.HasInsurance {
		q.DiscountedTotal = q.Total.Mul(e.policy.PayableFraction(p.InsuranceType))
	}

	e.metrics.Quoted()
	return q
}

// QuotePatient quotes a registered patient and stores the total on the
// registry record.
func (e *Engine) QuotePatient(ctx context.Context, patientID string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := e.patients.Get(patientID)
	if err != nil {
		return nil, err
	}
	q := e.Quote(p)
	if err := e.patients.SetBillTotal(p.ID, q.Total); err != nil {
		return nil, err
	}
	return q, nil
}

// RecordPayment validates req and appends one record per line item. Every
// check runs before the ledger is touched, so a rejected request writes
// nothing. Retried calls are not deduplicated.
func (e *Engine) RecordPayment(ctx context.Context, req PaymentRequest) ([]PaymentRecord, error) {
	method, err := ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, apperr.Invalid("items", "at least one line item is required")
	}
	if req.Total.IsNegative() || req.DiscountedTotal.IsNegative() {
		return nil, apperr.Invalid("total", "amounts must not be negative")
	}
	if req.DiscountedTotal.GreaterThan(req.Total) {
		return nil, apperr.Invalid("discounted_total", "%s exceeds total %s",
			req.DiscountedTotal.StringFixed(2), req.Total.StringFixed(2))
	}
	if _, err := e.patients.Get(req.PatientID); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	sum := decimal.Zero
	for _, it := range req.Items {
		if it.Cost.IsNegative() {
			return nil, apperr.Invalid("cost", "%s has a negative cost", it.Service)
		}
		if !e.catalog.Has(it.Service) {
			return nil, fmt.Errorf("record payment: %w", apperr.NotFound("service", it.Service))
		}
		sum = sum.Add(it.Cost)
	}
	if !sum.Equal(req.Total) {
		return nil, apperr.Invalid("total", "%s does not match the line items sum %s",
			req.Total.StringFixed(2), sum.StringFixed(2))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	date := e.now().Format(DateLayout)
	records := make([]PaymentRecord, len(req.Items))
	for i, it := range req.Items {
		records[i] = PaymentRecord{
			PatientID:       req.PatientID,
			Service:         it.Service,
			Cost:            it.Cost,
			Total:           req.Total,
			DiscountedTotal: req.DiscountedTotal,
			Method:          method,
			Date:            date,
		}
	}
	if err := e.ledger.Append(ctx, records); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	e.metrics.PaymentRecorded(string(method), len(records), req.DiscountedTotal.InexactFloat64())
	e.logger.Info().Str("patient_id", req.PatientID).Str("method", string(method)).
		Int("items", len(records)).Str("amount", req.DiscountedTotal.StringFixed(2)).
		Msg("payment recorded")
	return records, nil
}

// PaymentHistory replays the ledger. A missing ledger is an empty history.
func (e *Engine) PaymentHistory(ctx context.Context) ([]PaymentRecord, error) {
	records, err := e.ledger.History(ctx)
	if err != nil && apperr.IsIntegrity(err) {
		e.metrics.IntegrityError("ledger")
	}
	return records, err
}

func (e *Engine) HistoryFor(ctx context.Context, patientID string) ([]PaymentRecord, error) {
	records, err := e.PaymentHistory(ctx)
	return ForPatient(records, patientID), err
}
