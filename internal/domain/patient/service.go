package patient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/metrics"
)

// Registry is the in-memory patient collection backed by a Repository.
// Writes are serialized; readers get copies.
type Registry struct {
	repo    Repository
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	patients []*Patient
	byID     map[string]*Patient
	highest  int
}

func NewRegistry(repo Repository, logger zerolog.Logger) *Registry {
	return &Registry{
		repo:     repo,
		logger:   logger,
		patients: []*Patient{},
		byID:     make(map[string]*Patient),
	}
}

// SetCollector attaches metrics. A nil collector disables them.
func (r *Registry) SetCollector(c *metrics.Collector) {
	r.metrics = c
}

// Load replaces the collection with the repository contents. On an integrity
// failure the records read before the bad one are kept and the error is
// returned.
func (r *Registry) Load(ctx context.Context) error {
	loaded, loadErr := r.repo.LoadAll(ctx)
	if loadErr != nil && !apperr.IsIntegrity(loadErr) {
		return fmt.Errorf("load patients: %w", loadErr)
	}

	patients := make([]*Patient, 0, len(loaded))
	byID := make(map[string]*Patient, len(loaded))
	highest := 0
	for i, p := range loaded {
		if _, dup := byID[p.ID]; dup {
			loadErr = &apperr.IntegrityError{
				Source: "patients",
				Err:    fmt.Errorf("duplicate patient id %q at record %d", p.ID, i+1),
			}
			break
		}
		patients = append(patients, p)
		byID[p.ID] = p
		if n, ok := idNumber(p.ID); ok && n > highest {
			highest = n
		}
	}

	r.mu.Lock()
	r.patients = patients
	r.byID = byID
	r.highest = highest
	r.mu.Unlock()

	r.metrics.SetPatientsLoaded(len(patients))
	if loadErr != nil {
		r.metrics.IntegrityError("patients")
		r.logger.Error().Err(loadErr).Int("kept", len(patients)).Msg("patient records are corrupt")
		return loadErr
	}
	r.logger.Info().Int("count", len(patients)).Msg("patients loaded")
	return nil
}

// Create validates f, allocates the next id and persists the patient before
// adding it to the registry. Nothing changes when validation or persistence
// fails.
func (r *Registry) Create(ctx context.Context, f Fields, directory doctor.Directory) (*Patient, error) {
	p, err := fromFields(f, directory)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = FormatID(r.nextNumber())
	if err := r.repo.Append(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	r.patients = append(r.patients, p)
	r.byID[p.ID] = p
	if n, ok := idNumber(p.ID); ok && n > r.highest {
		r.highest = n
	}

	r.metrics.PatientCreated()
	r.metrics.SetPatientsLoaded(len(r.patients))
	r.logger.Info().Str("patient_id", p.ID).Msg("patient created")
	return p.clone(), nil
}

// nextNumber stays ahead of both the record count and the highest id seen,
// so a file with gaps never yields a reused id. Caller holds mu.
func (r *Registry) nextNumber() int {
	n := len(r.patients)
	if h := r.highest - idOffset; h > n {
		n = h
	}
	return n + 1
}

func fromFields(f Fields, directory doctor.Directory) (*Patient, error) {
	insuranceType, err := ParseInsuranceType(f.InsuranceType)
	if err != nil {
		return nil, &apperr.ValidationError{Field: "insurance_type", Reason: err.Error()}
	}

	p := &Patient{
		Name:             strings.TrimSpace(f.Name),
		Age:              f.Age,
		UrgentCare:       f.UrgentCare,
		SpecialistNeeded: f.SpecialistNeeded,
		RegularCheckup:   f.RegularCheckup,
		FollowUp:         f.FollowUp,
		ChronicCondition: f.ChronicCondition,
		HasInsurance:     f.HasInsurance,
		InsuranceType:    insuranceType,
	}

	if id := strings.TrimSpace(f.DoctorID); id != "" {
		if !f.SpecialistNeeded {
			return nil, apperr.Invalid("doctor_id", "only allowed when a specialist is needed")
		}
		ref, ok := directory.Lookup(id)
		if !ok {
			return nil, &apperr.ValidationError{
				Field:  "doctor_id",
				Reason: fmt.Sprintf("no doctor %q in the directory", id),
				Err:    apperr.NotFound("doctor", id),
			}
		}
		p.AssignedDoctor = &ref
	}

	if verr := p.validate(); verr != nil {
		return nil, verr
	}
	return p, nil
}

// All returns every patient in insertion order.
func (r *Registry) All() []*Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, len(r.patients))
	for i, p := range r.patients {
		out[i] = p.clone()
	}
	return out
}

func (r *Registry) Get(id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p.clone(), nil
}

// FindByNameSubstring returns the patients whose name contains term,
// ignoring case, in insertion order. A blank term matches nothing.
func (r *Registry) FindByNameSubstring(term string) []*Patient {
	return FilterByName(r.All(), term)
}

// SetBillTotal records the latest quoted total for a patient. It is not
// persisted.
func (r *Registry) SetBillTotal(id string, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return apperr.NotFound("patient", id)
	}
	p.BillTotal = total
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients)
}
