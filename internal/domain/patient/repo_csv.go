package patient

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/csvfile"
	"github.com/ehr/medledger/internal/platform/literal"
)

const (
	colID               = "patient_id"
	colName             = "name"
	colAge              = "age"
	colUrgentCare       = "urgent_care"
	colSpecialistNeeded = "specialist_needed"
	colRegularCheckup   = "regular_checkup"
	colFollowUp         = "follow_up"
	colInsurance        = "insurance"
	colChronicCondition = "chronic_condition"
	colDoctor           = "specific_doctor"
	colInsuranceType    = "insurance_type"

	doctorIDKey   = "DoctorID"
	doctorNameKey = "DoctorName"
)

var csvHeader = []string{
	colID, colName, colAge, colUrgentCare, colSpecialistNeeded, colRegularCheckup,
	colFollowUp, colInsurance, colChronicCondition, colDoctor, colInsuranceType,
}

// CSVRepository stores patients in a flat CSV file. Rows are only ever
// appended; the header is written once when the file is created.
type CSVRepository struct {
	path   string
	logger zerolog.Logger
}

func NewCSVRepository(path string, logger zerolog.Logger) *CSVRepository {
	return &CSVRepository{path: path, logger: logger}
}

func (r *CSVRepository) Append(ctx context.Context, p *Patient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := csvfile.Append(r.path, csvHeader, [][]string{toRecord(p)}); err != nil {
		return fmt.Errorf("append patient %s: %w", p.ID, err)
	}
	return nil
}

func toRecord(p *Patient) []string {
	return []string{
		p.ID,
		p.Name,
		strconv.Itoa(p.Age),
		FormatFlag(p.UrgentCare),
		FormatFlag(p.SpecialistNeeded),
		FormatFlag(p.RegularCheckup),
		FormatFlag(p.FollowUp),
		FormatFlag(p.HasInsurance),
		FormatFlag(p.ChronicCondition),
		FormatDoctor(p.AssignedDoctor),
		string(p.InsuranceType),
	}
}

// FormatDoctor renders the structured literal stored in the doctor column,
// or "" when no doctor is assigned.
func FormatDoctor(ref *doctor.Ref) string {
	if ref == nil {
		return ""
	}
	return literal.FormatMapping(
		literal.Pair{Key: doctorIDKey, Value: ref.ID},
		literal.Pair{Key: doctorNameKey, Value: ref.Name},
	)
}

// ParseDoctor decodes a doctor cell. It accepts a mapping with DoctorID (and
// optionally DoctorName) or a two-element (id, name) tuple or list. An empty
// cell is no doctor.
func ParseDoctor(cell string) (*doctor.Ref, error) {
	if cell == "" {
		return nil, nil
	}
	v, err := literal.Parse(cell)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		id, ok := val[doctorIDKey].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("doctor mapping has no %s", doctorIDKey)
		}
		name, _ := val[doctorNameKey].(string)
		return &doctor.Ref{ID: id, Name: name}, nil
	case literal.Tuple:
		return pairToRef([]interface{}(val))
	case []interface{}:
		return pairToRef(val)
	}
	return nil, fmt.Errorf("doctor must be a mapping or pair, got %T", v)
}

func pairToRef(items []interface{}) (*doctor.Ref, error) {
	if len(items) != 2 {
		return nil, fmt.Errorf("doctor pair must have 2 elements, got %d", len(items))
	}
	id, ok1 := items[0].(string)
	name, ok2 := items[1].(string)
	if !ok1 || !ok2 || id == "" {
		return nil, fmt.Errorf("doctor pair must hold an id and a name")
	}
	return &doctor.Ref{ID: id, Name: name}, nil
}

func (r *CSVRepository) LoadAll(ctx context.Context) ([]*Patient, error) {
	patients := []*Patient{}

	reader, err := csvfile.Open(r.path)
	if err != nil {
		if csvfile.IsMissing(err) {
			r.logger.Warn().Str("path", r.path).Msg("patient file not found, starting with an empty registry")
			return patients, nil
		}
		return patients, fmt.Errorf("open patients: %w", err)
	}
	defer reader.Close()

	if err := reader.Require(csvHeader...); err != nil {
		return patients, &apperr.IntegrityError{Source: r.path, Row: 1, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return patients, err
		}
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return patients, &apperr.IntegrityError{Source: r.path, Row: reader.RowNum() + 1, Err: err}
		}

		p, err := r.fromRow(row, reader.RowNum())
		if err != nil {
			return patients, &apperr.IntegrityError{Source: r.path, Row: reader.RowNum(), Err: err}
		}
		patients = append(patients, p)
	}
	return patients, nil
}

func (r *CSVRepository) fromRow(row csvfile.Row, rowNum int) (*Patient, error) {
	age, err := strconv.Atoi(row.Get(colAge))
	if err != nil {
		return nil, fmt.Errorf("age %q is not an integer", row.Get(colAge))
	}

	p := &Patient{
		ID:   row.Get(colID),
		Name: row.Get(colName),
		Age:  age,
	}

	flags := []struct {
		col string
		dst *bool
	}{
		{colUrgentCare, &p.UrgentCare},
		{colSpecialistNeeded, &p.SpecialistNeeded},
		{colRegularCheckup, &p.RegularCheckup},
		{colFollowUp, &p.FollowUp},
		{colInsurance, &p.HasInsurance},
		{colChronicCondition, &p.ChronicCondition},
	}
	for _, f := range flags {
		v, err := ParseFlag(row.Get(f.col))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = v
	}

	p.InsuranceType, err = ParseInsuranceType(row.Get(colInsuranceType))
	if err != nil {
		return nil, err
	}

	ref, err := ParseDoctor(row.Get(colDoctor))
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Int("row", rowNum).Str("patient_id", p.ID).
			Msg("unreadable doctor assignment, treating as none")
		ref = nil
	}
	if ref != nil && !p.SpecialistNeeded {
		r.logger.Warn().Str("path", r.path).Int("row", rowNum).Str("patient_id", p.ID).
			Msg("doctor assigned without specialist referral, treating as none")
		ref = nil
	}
	p.AssignedDoctor = ref

	if p.ID == "" {
		return nil, fmt.Errorf("patient id is empty")
	}
	if verr := p.validate(); verr != nil {
		return nil, verr
	}
	return p, nil
}
