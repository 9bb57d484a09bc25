package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
)

// DateLayout is the ledger's date format.
const DateLayout = "2006-01-02"

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

// ParsePaymentMethod accepts cash or card in any case and returns the
// lower-case form.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodCash, MethodCard:
		return m, nil
	}
	return "", apperr.Invalid("method", "must be cash or card, got %q", s)
}

// LineItem is one billable service in a quote. Priced is false when the
// service was missing from the catalog and charged at zero.
type LineItem struct {
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
	Priced  bool            `json:"priced"`
}

// Quote is a computed bill. Amounts keep full precision; Display rounds.
type Quote struct {
	PatientID       string                `json:"patient_id"`
	InsuranceType   patient.InsuranceType `json:"insurance_type,omitempty"`
	Items           []LineItem            `json:"items"`
	Total           decimal.Decimal       `json:"total"`
	DiscountedTotal decimal.Decimal       `json:"discounted_total"`
}

// Display renders the bill with amounts rounded to two decimals.
func (q *Quote) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bill for %s\n", q.PatientID)
	for _, it := range q.Items {
		fmt.Fprintf(&b, "  %-28s %10s\n", it.Service, it.Cost.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", q.Total.StringFixed(2))
	fmt.Fprintf(&b, "Discounted Total: %s\n", q.DiscountedTotal.StringFixed(2))
	return b.String()
}

// PaymentRequest asks the engine to record a confirmed payment.
type PaymentRequest struct {
	PatientID       string
	Method          string
	Items           []LineItem
	Total           decimal.Decimal
	DiscountedTotal decimal.Decimal
}

// RequestFor builds the payment request settling q with method.
func RequestFor(q *Quote, method string) PaymentRequest {
	return PaymentRequest{
		PatientID:       q.PatientID,
		Method:          method,
		Items:           append([]LineItem(nil), q.Items...),
		Total:           q.Total,
		DiscountedTotal: q.DiscountedTotal,
	}
}

// PaymentRecord is one ledger row. A payment writes one record per line item
// sharing the same date and totals.
type PaymentRecord struct {
	PatientID       string          `json:"patient_id"`
	Service         string          `json:"service"`
	Cost            decimal.Decimal `json:"cost"`
	Total           decimal.Decimal `json:"total"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	Method          PaymentMethod   `json:"payment_method"`
	Date            string          `json:"date"`
}

// ForPatient keeps the records of one patient in ledger order.
func ForPatient(records []PaymentRecord, patientID string) []PaymentRecord {
	out := []PaymentRecord{}
	for _, r := range records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out
}
