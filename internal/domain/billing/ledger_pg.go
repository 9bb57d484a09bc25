package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/db"
)

const ledgerPGSource = "table payment_records"

// PGLedger stores payment records in the payment_records table. All rows of
// one payment are inserted in a single transaction.
type PGLedger struct {
	conn db.TxBeginner
}

func NewPGLedger(conn db.TxBeginner) *PGLedger {
	return &PGLedger{conn: conn}
}

func (l *PGLedger) Append(ctx context.Context, records []PaymentRecord) error {
	tx, err := l.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO payment_records (patient_id, service, cost, total, discounted_total, payment_method, paid_on)
			VALUES ($1, $2, CAST($3::text AS NUMERIC), CAST($4::text AS NUMERIC), CAST($5::text AS NUMERIC), $6, CAST($7::text AS DATE))`,
			r.PatientID, r.Service,
			r.Cost.StringFixed(2), r.Total.StringFixed(2), r.DiscountedTotal.StringFixed(2),
			string(r.Method), r.Date,
		)
		if err != nil {
			return fmt.Errorf("insert payment record for %s: %w", r.PatientID, err)
		}
	}
	return tx.Commit(ctx)
}

func (l *PGLedger) History(ctx context.Context) ([]PaymentRecord, error) {
	records := []PaymentRecord{}

	rows, err := l.conn.Query(ctx, `
		SELECT patient_id, service, cost::text, total::text, discounted_total::text,
			payment_method, to_char(paid_on, 'YYYY-MM-DD')
		FROM payment_records ORDER BY seq`)
	if err != nil {
		return records, fmt.Errorf("query payment records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec                     PaymentRecord
			method                  string
			cost, total, discounted string
		)
		if err := rows.Scan(&rec.PatientID, &rec.Service, &cost, &total, &discounted, &method, &rec.Date); err != nil {
			return records, fmt.Errorf("scan payment record: %w", err)
		}
		if err := rec.setAmounts(cost, total, discounted); err != nil {
			return records, &apperr.IntegrityError{Source: ledgerPGSource, Row: len(records) + 1, Err: err}
		}
		if rec.Method, err = ParsePaymentMethod(method); err != nil {
			return records, &apperr.IntegrityError{Source: ledgerPGSource, Row: len(records) + 1, Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return records, fmt.Errorf("iterate payment records: %w", err)
	}
	return records, nil
}

func (r *PaymentRecord) setAmounts(cost, total, discounted string) error {
	var err error
	if r.Cost, err = decimal.NewFromString(cost); err != nil {
		return fmt.Errorf("cost: %w", err)
	}
	if r.Total, err = decimal.NewFromString(total); err != nil {
		return fmt.Errorf("total: %w", err)
	}
	if r.DiscountedTotal, err = decimal.NewFromString(discounted); err != nil {
		return fmt.Errorf("discounted total: %w", err)
	}
	return nil
}
