package patient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
)

const (
	MinAge = 0
	MaxAge = 150

	idPrefix = "P"
	idOffset = 1000
)

// InsuranceType is the kind of cover an insured patient holds.
type InsuranceType string

const (
	InsuranceNone    InsuranceType = ""
	InsurancePrivate InsuranceType = "private"
	InsurancePublic  InsuranceType = "public"
)

func (t InsuranceType) IsValid() bool {
	switch t {
	case InsurancePrivate, InsurancePublic:
		return true
	}
	return false
}

// ParseInsuranceType normalizes s. Blank and "none" mean no insurance type.
func ParseInsuranceType(s string) (InsuranceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return InsuranceNone, nil
	}
	t := InsuranceType(s)
	if !t.IsValid() {
		return InsuranceNone, fmt.Errorf("insurance type must be private or public, got %q", s)
	}
	return t, nil
}

// CareFlag names one of the yes/no care attributes of a patient.
type CareFlag string

const (
	FlagUrgentCare       CareFlag = "urgent_care"
	FlagSpecialistNeeded CareFlag = "specialist_needed"
	FlagRegularCheckup   CareFlag = "regular_checkup"
	FlagFollowUp         CareFlag = "follow_up"
	FlagChronicCondition CareFlag = "chronic_condition"
	FlagInsurance        CareFlag = "insurance"
)

func (f CareFlag) IsValid() bool {
	switch f {
	case FlagUrgentCare, FlagSpecialistNeeded, FlagRegularCheckup, FlagFollowUp, FlagChronicCondition, FlagInsurance:
		return true
	}
	return false
}

// ParseFlag decodes the stored yes/no encoding. y/n, yes/no and true/false
// are accepted in any case.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected y or n, got %q", s)
}

// FormatFlag encodes b as y or n.
func FormatFlag(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// Patient is one registry record. Everything except BillTotal is fixed at
// creation.
type Patient struct {
	ID               string          `json:"patient_id"`
	Name             string          `json:"name"`
	Age              int             `json:"age"`
	UrgentCare       bool            `json:"urgent_care"`
	SpecialistNeeded bool            `json:"specialist_needed"`
	RegularCheckup   bool            `json:"regular_checkup"`
	FollowUp         bool            `json:"follow_up"`
	ChronicCondition bool            `json:"chronic_condition"`
	HasInsurance     bool            `json:"insurance"`
	InsuranceType    InsuranceType   `json:"insurance_type,omitempty"`
	AssignedDoctor   *doctor.Ref     `json:"assigned_doctor,omitempty"`
	BillTotal        decimal.Decimal `json:"bill_total"`
}

// Has reports the value of a care flag.
func (p *Patient) Has(f CareFlag) bool {
	switch f {
	case FlagUrgentCare:
		return p.UrgentCare
	case FlagSpecialistNeeded:
		return p.SpecialistNeeded
	case FlagRegularCheckup:
		return p.RegularCheckup
	case FlagFollowUp:
		return p.FollowUp
	case FlagChronicCondition:
		return p.ChronicCondition
	case FlagInsurance:
		return p.HasInsurance
	}
	return false
}

func (p *Patient) clone() *Patient {
	c := *p
	if p.AssignedDoctor != nil {
		d := *p.AssignedDoctor
		c.AssignedDoctor = &d
	}
	return &c
}

func (p *Patient) String() string {
	s := fmt.Sprintf("Patient ID: %s, Name: %s, Age: %d, Urgent Care: %s",
		p.ID, p.Name, p.Age, FormatFlag(p.UrgentCare))
	if p.AssignedDoctor != nil {
		s += ", Doctor: " + p.AssignedDoctor.ID
	}
	return s
}

// validate checks the record invariants shared by creation and loading.
func (p *Patient) validate() *apperr.ValidationError {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name", "is required")
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return apperr.Invalid("age", "must be between %d and %d, got %d", MinAge, MaxAge, p.Age)
	}
	if !p.HasInsurance && p.InsuranceType != InsuranceNone {
		return apperr.Invalid("insurance_type", "set without insurance")
	}
	if p.HasInsurance && !p.InsuranceType.IsValid() {
		return apperr.Invalid("insurance_type", "must be private or public when insured, got %q", p.InsuranceType)
	}
	if p.AssignedDoctor != nil && !p.SpecialistNeeded {
		return apperr.Invalid("assigned_doctor", "only allowed when a specialist is needed")
	}
	return nil
}

// Fields are the primitive intake values a caller supplies to Create.
type Fields struct {
	Name             string `json:"name"`
	Age              int    `json:"age"`
	UrgentCare       bool   `json:"urgent_care"`
	SpecialistNeeded bool   `json:"specialist_needed"`
	RegularCheckup   bool   `json:"regular_checkup"`
	FollowUp         bool   `json:"follow_up"`
	ChronicCondition bool   `json:"chronic_condition"`
	HasInsurance     bool   `json:"insurance"`
	InsuranceType    string `json:"insurance_type,omitempty"`
	DoctorID         string `json:"doctor_id,omitempty"`
}

// FormatID renders the n-th allocated id, e.g. 1 -> P1001.
func FormatID(n int) string {
	return idPrefix + strconv.Itoa(idOffset+n)
}

// idNumber returns the numeric part of an id such as P1001, or false when id
// does not follow the scheme.
func idNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(idPrefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}
