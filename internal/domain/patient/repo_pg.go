package patient

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/db"
)

const pgSource = "table patients"

// PGRepository stores patients in the patients table created by the
// 001_patients migration. Rows are inserted once and read back in insertion
// order.
type PGRepository struct {
	conn db.Querier
}

func NewPGRepository(conn db.Querier) *PGRepository {
	return &PGRepository{conn: conn}
}

const patientCols = `patient_id, name, age, urgent_care, specialist_needed, regular_checkup,
	follow_up, insurance, chronic_condition, doctor_id, doctor_name, insurance_type`

func (r *PGRepository) Append(ctx context.Context, p *Patient) error {
	var doctorID, doctorName, insuranceType *string
	if p.AssignedDoctor != nil {
		doctorID, doctorName = &p.AssignedDoctor.ID, &p.AssignedDoctor.Name
	}
	if p.InsuranceType != InsuranceNone {
		s := string(p.InsuranceType)
		insuranceType = &s
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO patients (`+patientCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Name, p.Age, p.UrgentCare, p.SpecialistNeeded, p.RegularCheckup,
		p.FollowUp, p.HasInsurance, p.ChronicCondition, doctorID, doctorName, insuranceType,
	)
	if err != nil {
		return fmt.Errorf("insert patient %s: %w", p.ID, err)
	}
	return nil
}

func (r *PGRepository) LoadAll(ctx context.Context) ([]*Patient, error) {
	patients := []*Patient{}

	rows, err := r.conn.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY seq`)
	if err != nil {
		return patients, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return patients, &apperr.IntegrityError{Source: pgSource, Row: len(patients) + 1, Err: err}
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return patients, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

func scanPatientRow(rows pgx.Rows) (*Patient, error) {
	var (
		p                                   Patient
		doctorID, doctorName, insuranceType *string
	)
	err := rows.Scan(
		&p.ID, &p.Name, &p.Age, &p.UrgentCare, &p.SpecialistNeeded, &p.RegularCheckup,
		&p.FollowUp, &p.HasInsurance, &p.ChronicCondition, &doctorID, &doctorName, &insuranceType,
	)
	if err != nil {
		return nil, err
	}

	if doctorID != nil {
		ref := &doctor.Ref{ID: *doctorID}
		if doctorName != nil {
			ref.Name = *doctorName
		}
		p.AssignedDoctor = ref
	}
	if insuranceType != nil {
		if p.InsuranceType, err = ParseInsuranceType(*insuranceType); err != nil {
			return nil, err
		}
	}
	if verr := p.validate(); verr != nil {
		return nil, verr
	}
	return &p, nil
}
