package intake

import (
	"errors"
	"strings"
	"testing"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
)

func testDirectory() doctor.Directory {
	return doctor.Directory{
		"Cardiology": {{ID: "D001", Name: "Ravi Kumar"}, {ID: "D002", Name: "Alice Hart"}},
		"Neurology":  {{ID: "D003", Name: "Mei Chen"}},
	}
}

func answerAll(t *testing.T, s *Session, answers ...string) []string {
	t.Helper()
	var keys []string
	for _, a := range answers {
		q, ok := s.Next()
		if !ok {
			t.Fatalf("session finished early, %q left over", a)
		}
		keys = append(keys, q.Key)
		if err := s.Answer(a); err != nil {
			t.Fatalf("Answer(%s=%q) error: %v", q.Key, a, err)
		}
	}
	return keys
}

func TestSession_SpecialistPath(t *testing.T) {
	s := NewSession(testDirectory())
	keys := answerAll(t, s, "Dan", "41", "n", "y", "cardiology", "2", "n", "y", "n", "yes", "PUBLIC")

	want := []string{
		KeyName, KeyAge, KeyUrgentCare, KeySpecialistNeeded, KeyDepartment, KeyDoctor,
		KeyRegularCheckup, KeyFollowUp, KeyChronicCondition, KeyInsurance, KeyInsuranceType,
	}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, keys)
	}
	if !s.Done() {
		t.Fatal("expected session to be complete")
	}

	f, err := s.Fields()
	if err != nil {
		t.Fatalf("Fields() error: %v", err)
	}
	if f.Name != "Dan" || f.Age != 41 || f.UrgentCare || !f.SpecialistNeeded || !f.FollowUp {
		t.Errorf("unexpected fields %+v", f)
	}
	if f.DoctorID != "D002" {
		t.Errorf("expected doctor D002, got %q", f.DoctorID)
	}
	if !f.HasInsurance || f.InsuranceType != "public" {
		t.Errorf("expected public insurance, got %+v", f)
	}
}

func TestSession_UrgentCareSkipsSpecialist(t *testing.T) {
	s := NewSession(testDirectory())
	keys := answerAll(t, s, "Anna", "30", "y", "y", "n", "n", "n")

	for _, k := range keys {
		if k == KeySpecialistNeeded || k == KeyDepartment || k == KeyDoctor || k == KeyInsuranceType {
			t.Errorf("question %s should have been skipped", k)
		}
	}
	f, err := s.Fields()
	if err != nil {
		t.Fatalf("Fields() error: %v", err)
	}
	if !f.UrgentCare || f.SpecialistNeeded || f.DoctorID != "" || f.HasInsurance || f.InsuranceType != "" {
		t.Errorf("unexpected fields %+v", f)
	}
}

func TestSession_EmptyDirectorySkipsDoctor(t *testing.T) {
	s := NewSession(nil)
	keys := answerAll(t, s, "Ben", "7", "n", "y", "n", "n", "n", "n")

	for _, k := range keys {
		if k == KeyDepartment || k == KeyDoctor {
			t.Errorf("question %s needs a directory", k)
		}
	}
	f, _ := s.Fields()
	if !f.SpecialistNeeded || f.DoctorID != "" {
		t.Errorf("unexpected fields %+v", f)
	}
}

func TestSession_DoctorChoicesFollowDepartment(t *testing.T) {
	s := NewSession(testDirectory())
	answerAll(t, s, "Dan", "41", "n", "y", "Neurology")

	q, ok := s.Next()
	if !ok || q.Key != KeyDoctor {
		t.Fatalf("expected doctor question, got %+v", q)
	}
	if len(q.Choices) != 1 || q.Choices[0] != "D003" || q.Labels[0] != "D003 Mei Chen" {
		t.Errorf("unexpected choices %v %v", q.Choices, q.Labels)
	}
}

func TestSession_RejectedAnswers(t *testing.T) {
	tests := []struct {
		name    string
		prefix  []string
		answer  string
		wantKey string
	}{
		{"blank name", nil, "  ", KeyName},
		{"age not a number", []string{"A"}, "old", KeyAge},
		{"age too high", []string{"A"}, "151", KeyAge},
		{"age negative", []string{"A"}, "-1", KeyAge},
		{"not yes or no", []string{"A", "30"}, "maybe", KeyUrgentCare},
		{"unknown department", []string{"A", "30", "n", "y"}, "Oncology", KeyDepartment},
		{"choice out of range", []string{"A", "30", "n", "y"}, "3", KeyDepartment},
		{"doctor from other department", []string{"A", "30", "n", "y", "Neurology"}, "D001", KeyDoctor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(testDirectory())
			answerAll(t, s, tt.prefix...)

			err := s.Answer(tt.answer)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantKey {
				t.Errorf("expected field %s, got %s", tt.wantKey, verr.Field)
			}
			if q, _ := s.Next(); q.Key != tt.wantKey {
				t.Errorf("rejected answer must re-ask %s, got %s", tt.wantKey, q.Key)
			}
		})
	}
}

func TestSession_FieldsBeforeDone(t *testing.T) {
	s := NewSession(nil)
	answerAll(t, s, "Anna")

	if _, err := s.Fields(); !apperr.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestSession_AnswerAfterDone(t *testing.T) {
	s := NewSession(nil)
	answerAll(t, s, "Anna", "30", "y", "n", "n", "n", "n")

	if err := s.Answer("extra"); !apperr.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
