package patient

import "context"

// Repository persists patients append-only. LoadAll returns records in
// insertion order; on a corrupt record it returns the records read before it
// together with an *apperr.IntegrityError.
type Repository interface {
	Append(ctx context.Context, p *Patient) error
	LoadAll(ctx context.Context) ([]*Patient, error)
}
