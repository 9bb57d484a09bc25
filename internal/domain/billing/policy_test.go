package billing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ehr/medledger/internal/domain/catalog"
	"github.com/ehr/medledger/internal/domain/patient"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy("")
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	if p.Rules[2].Service != DefaultSpecialistService {
		t.Errorf("expected %s, got %s", DefaultSpecialistService, p.Rules[2].Service)
	}
	if got := DefaultPolicy("Laboratory Services").Rules[2].Service; got != "Laboratory Services" {
		t.Errorf("expected specialist override, got %s", got)
	}
	if !p.PayableFraction(patient.InsurancePrivate).Equal(dec("0.1")) {
		t.Errorf("expected private 0.1, got %s", p.PayableFraction(patient.InsurancePrivate))
	}
	if !p.PayableFraction(patient.InsuranceNone).Equal(dec("1")) {
		t.Error("uninsured patients pay in full")
	}
}

func TestPriceRule_Apply(t *testing.T) {
	e := catalog.Entry{Name: "X", MinPrice: dec("100"), MaxPrice: dec("201")}
	tests := []struct {
		rule PriceRule
		want string
	}{
		{PriceMin, "100"},
		{PriceMax, "201"},
		{PriceMidpoint, "150.5"},
	}
	for _, tt := range tests {
		if got := tt.rule.Apply(e); !got.Equal(dec(tt.want)) {
			t.Errorf("%s: expected %s, got %s", tt.rule, tt.want, got)
		}
	}
}

func TestLoadPolicy(t *testing.T) {
	path := writePolicy(t, `
specialist_service: Laboratory Services
rules:
  - {flag: regular_checkup, service: Regular Checkup, price: min}
  - {flag: follow_up, service: Follow-up Visit, price: max}
  - {flag: specialist_needed, service: Laboratory Services, price: midpoint}
payable:
  private: 0.9
  Public: 0.25
`)

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if len(p.Rules) != 3 || p.Rules[1].Flag != patient.FlagFollowUp || p.Rules[1].Price != PriceMax {
		t.Errorf("unexpected rules %+v", p.Rules)
	}
	if !p.PayableFraction(patient.InsurancePrivate).Equal(dec("0.9")) {
		t.Errorf("expected private 0.9, got %s", p.PayableFraction(patient.InsurancePrivate))
	}
	if !p.PayableFraction(patient.InsurancePublic).Equal(dec("0.25")) {
		t.Errorf("expected public 0.25, got %s", p.PayableFraction(patient.InsurancePublic))
	}
}

func TestLoadPolicy_DefaultsForOmittedSections(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, "specialist_service: Laboratory Services\n"))
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}
	if len(p.Rules) != 3 || p.Rules[2].Service != "Laboratory Services" {
		t.Errorf("expected default rules with override, got %+v", p.Rules)
	}
	if !p.PayableFraction(patient.InsurancePublic).Equal(dec("0.2")) {
		t.Errorf("expected default public fraction, got %s", p.PayableFraction(patient.InsurancePublic))
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown flag", "rules:\n  - {flag: insurance, service: X, price: min}\n", "not billable"},
		{"bad price", "rules:\n  - {flag: urgent_care, service: X, price: average}\n", "price must be"},
		{"blank service", "rules:\n  - {flag: urgent_care, service: '', price: min}\n", "service is required"},
		{"fraction too big", "payable:\n  private: 1.5\n", "outside [0, 1]"},
		{"negative fraction", "payable:\n  public: -0.1\n", "outside [0, 1]"},
		{"unknown insurance", "payable:\n  gold: 0.5\n", "unknown insurance type"},
		{"not yaml", "rules: [\n", "parse billing policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for a configured but missing policy file")
	}
}
