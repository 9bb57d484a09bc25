package billing

import "context"

// Ledger is the append-only payment store. History returns records in write
// order; on a corrupt record it returns the records read before it together
// with an *apperr.IntegrityError.
type Ledger interface {
	Append(ctx context.Context, records []PaymentRecord) error
	History(ctx context.Context) ([]PaymentRecord, error)
}
