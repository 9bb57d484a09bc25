// Package intake models patient registration as an ordered list of typed
// questions, each with a precondition over earlier answers.
package intake

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
)

type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindYesNo
	KindChoice
)

// Question keys, in asking order.
const (
	KeyName             = "name"
	KeyAge              = "age"
	KeyUrgentCare       = "urgent_care"
	KeySpecialistNeeded = "specialist_needed"
	KeyDepartment       = "department"
	KeyDoctor           = "doctor"
	KeyRegularCheckup   = "regular_checkup"
	KeyFollowUp         = "follow_up"
	KeyChronicCondition = "chronic_condition"
	KeyInsurance        = "insurance"
	KeyInsuranceType    = "insurance_type"
)

// Question is one prompt. Choices holds the accepted values of a KindChoice
// question; Labels, when set, describe each choice for display.
type Question struct {
	Key     string
	Prompt  string
	Kind    Kind
	Choices []string
	Labels  []string
	Min     int
	Max     int
}

type step struct {
	key    string
	prompt string
	kind   Kind
	when   func(s *Session) bool
}

var steps = []step{
	{key: KeyName, prompt: "Patient name", kind: KindText},
	{key: KeyAge, prompt: "Age", kind: KindNumber},
	{key: KeyUrgentCare, prompt: "Urgent care needed? (y/n)", kind: KindYesNo},
	{key: KeySpecialistNeeded, prompt: "Specialist needed? (y/n)", kind: KindYesNo,
		when: func(s *Session) bool { return s.answers[KeyUrgentCare] == "n" }},
	{key: KeyDepartment, prompt: "Department", kind: KindChoice,
		when: func(s *Session) bool { return s.answers[KeySpecialistNeeded] == "y" && len(s.directory) > 0 }},
	{key: KeyDoctor, prompt: "Doctor", kind: KindChoice,
		when: func(s *Session) bool { return s.answered(KeyDepartment) }},
	{key: KeyRegularCheckup, prompt: "Regular checkup? (y/n)", kind: KindYesNo},
	{key: KeyFollowUp, prompt: "Follow-up visit? (y/n)", kind: KindYesNo},
	{key: KeyChronicCondition, prompt: "Chronic condition? (y/n)", kind: KindYesNo},
	{key: KeyInsurance, prompt: "Has insurance? (y/n)", kind: KindYesNo},
	{key: KeyInsuranceType, prompt: "Insurance type", kind: KindChoice,
		when: func(s *Session) bool { return s.answers[KeyInsurance] == "y" }},
}

// Session walks one patient through the questions. Answers are normalized
// as they are accepted: yes/no to y/n, choices to their canonical value.
type Session struct {
	directory doctor.Directory
	answers   map[string]string
}

func NewSession(directory doctor.Directory) *Session {
	return &Session{directory: directory, answers: make(map[string]string)}
}

// Next returns the first unanswered question whose precondition holds, or
// false once the session is complete.
func (s *Session) Next() (Question, bool) {
	for _, st := range steps {
		if s.answered(st.key) {
			continue
		}
		if st.when != nil && !st.when(s) {
			continue
		}
		return s.question(st), true
	}
	return Question{}, false
}

func (s *Session) answered(key string) bool {
	_, ok := s.answers[key]
	return ok
}

func (s *Session) Done() bool {
	_, more := s.Next()
	return !more
}

func (s *Session) question(st step) Question {
	q := Question{Key: st.key, Prompt: st.prompt, Kind: st.kind}
	switch st.key {
	case KeyAge:
		q.Min, q.Max = patient.MinAge, patient.MaxAge
	case KeyDepartment:
		q.Choices = s.directory.Departments()
	case KeyDoctor:
		for _, ref := range s.directory.InDepartment(s.answers[KeyDepartment]) {
			q.Choices = append(q.Choices, ref.ID)
			q.Labels = append(q.Labels, ref.ID+" "+ref.Name)
		}
	case KeyInsuranceType:
		q.Choices = []string{string(patient.InsurancePrivate), string(patient.InsurancePublic)}
	}
	return q
}

// Answer validates raw against the current question and records it. A
// rejected answer leaves the session unchanged.
func (s *Session) Answer(raw string) error {
	q, ok := s.Next()
	if !ok {
		return apperr.Invalid("", "intake is already complete")
	}
	v, err := normalize(q, strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	s.answers[q.Key] = v
	return nil
}

func normalize(q Question, raw string) (string, error) {
	switch q.Kind {
	case KindText:
		if raw == "" {
			return "", apperr.Invalid(q.Key, "is required")
		}
		return raw, nil
	case KindNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", apperr.Invalid(q.Key, "must be a whole number, got %q", raw)
		}
		if n < q.Min || n > q.Max {
			return "", apperr.Invalid(q.Key, "must be between %d and %d, got %d", q.Min, q.Max, n)
		}
		return strconv.Itoa(n), nil
	case KindYesNo:
		b, err := patient.ParseFlag(raw)
		if err != nil {
			return "", apperr.Invalid(q.Key, "answer y or n")
		}
		return patient.FormatFlag(b), nil
	case KindChoice:
		return choose(q, raw)
	}
	return "", fmt.Errorf("question %s has unknown kind %d", q.Key, q.Kind)
}

// choose accepts a choice by value, ignoring case, or by its 1-based
// position.
func choose(q Question, raw string) (string, error) {
	for _, c := range q.Choices {
		if strings.EqualFold(c, raw) {
			return c, nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(q.Choices) {
		return q.Choices[n-1], nil
	}
	return "", apperr.Invalid(q.Key, "must be one of %s, got %q", strings.Join(q.Choices, ", "), raw)
}

// Fields converts a completed session into registry input.
func (s *Session) Fields() (patient.Fields, error) {
	if !s.Done() {
		q, _ := s.Next()
		return patient.Fields{}, apperr.Invalid(q.Key, "has not been answered")
	}
	age, _ := strconv.Atoi(s.answers[KeyAge])
	return patient.Fields{
		Name:             s.answers[KeyName],
		Age:              age,
		UrgentCare:       s.answers[KeyUrgentCare] == "y",
		SpecialistNeeded: s.answers[KeySpecialistNeeded] == "y",
		RegularCheckup:   s.answers[KeyRegularCheckup] == "y",
		FollowUp:         s.answers[KeyFollowUp] == "y",
		ChronicCondition: s.answers[KeyChronicCondition] == "y",
		HasInsurance:     s.answers[KeyInsurance] == "y",
		InsuranceType:    s.answers[KeyInsuranceType],
		DoctorID:         s.answers[KeyDoctor],
	}, nil
}
