package billing

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ehr/medledger/internal/domain/catalog"
	"github.com/ehr/medledger/internal/domain/patient"
)

const (
	ServiceRegularCheckup    = "Regular Checkup"
	ServiceEmergency         = "Emergency Services"
	DefaultSpecialistService = "Specialist Consultation"
)

// PriceRule picks the charged price from a catalog entry's range.
type PriceRule string

const (
	PriceMin      PriceRule = "min"
	PriceMax      PriceRule = "max"
	PriceMidpoint PriceRule = "midpoint"
)

func (r PriceRule) IsValid() bool {
	switch r {
	case PriceMin, PriceMax, PriceMidpoint:
		return true
	}
	return false
}

// Apply returns the price r selects from e.
func (r PriceRule) Apply(e catalog.Entry) decimal.Decimal {
	switch r {
	case PriceMax:
		return e.MaxPrice
	case PriceMidpoint:
		return e.Midpoint()
	}
	return e.MinPrice
}

// Rule charges Service at Price whenever the patient has Flag set.
type Rule struct {
	Flag    patient.CareFlag `yaml:"flag"`
	Service string           `yaml:"service"`
	Price   PriceRule        `yaml:"price"`
}

// Policy is the deployment's service-selection table plus the fraction of
// the total each insurance type leaves the patient to pay.
type Policy struct {
	Rules   []Rule
	Payable map[patient.InsuranceType]decimal.Decimal
}

var billableFlags = map[patient.CareFlag]bool{
	patient.FlagRegularCheckup:   true,
	patient.FlagUrgentCare:       true,
	patient.FlagSpecialistNeeded: true,
	patient.FlagFollowUp:         true,
	patient.FlagChronicCondition: true,
}

// DefaultPolicy charges a regular checkup at the minimum price, emergency
// services at the midpoint and the given specialist service at the minimum.
// Private cover pays 10% and public cover 20% of the total.
func DefaultPolicy(specialistService string) Policy {
	if specialistService == "" {
		specialistService = DefaultSpecialistService
	}
	return Policy{
		Rules: []Rule{
			{Flag: patient.FlagRegularCheckup, Service: ServiceRegularCheckup, Price: PriceMin},
			{Flag: patient.FlagUrgentCare, Service: ServiceEmergency, Price: PriceMidpoint},
			{Flag: patient.FlagSpecialistNeeded, Service: specialistService, Price: PriceMin},
		},
		Payable: defaultPayable(),
	}
}

func defaultPayable() map[patient.InsuranceType]decimal.Decimal {
	return map[patient.InsuranceType]decimal.Decimal{
		patient.InsurancePrivate: decimal.RequireFromString("0.10"),
		patient.InsurancePublic:  decimal.RequireFromString("0.20"),
	}
}

// Validate rejects unknown flags and price rules, blank services and payable
// fractions outside [0, 1].
func (p Policy) Validate() error {
	var errs []error
	for i, r := range p.Rules {
		if !billableFlags[r.Flag] {
			errs = append(errs, fmt.Errorf("rule %d: flag %q is not billable", i+1, r.Flag))
		}
		if r.Service == "" {
			errs = append(errs, fmt.Errorf("rule %d: service is required", i+1))
		}
		if !r.Price.IsValid() {
			errs = append(errs, fmt.Errorf("rule %d: price must be min, max or midpoint, got %q", i+1, r.Price))
		}
	}
	for t, f := range p.Payable {
		if !t.IsValid() {
			errs = append(errs, fmt.Errorf("payable: unknown insurance type %q", t))
		}
		if f.IsNegative() || f.GreaterThan(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Errorf("payable: %s fraction %s is outside [0, 1]", t, f))
		}
	}
	return errors.Join(errs...)
}

// PayableFraction returns the share of the total the patient pays. Uninsured
// patients and insurance types missing from the table pay in full.
func (p Policy) PayableFraction(t patient.InsuranceType) decimal.Decimal {
	if f, ok := p.Payable[t]; ok && t != patient.InsuranceNone {
		return f
	}
	return decimal.NewFromInt(1)
}

type policyFile struct {
	SpecialistService string             `yaml:"specialist_service"`
	Rules             []Rule             `yaml:"rules"`
	Payable           map[string]float64 `yaml:"payable"`
}

// LoadPolicy reads a YAML policy file. Omitted sections keep their defaults:
//
//	specialist_service: Laboratory Services
//	rules:
//	  - {flag: regular_checkup, service: Regular Checkup, price: min}
//	payable:
//	  private: 0.10
//	  public: 0.20
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read billing policy: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Policy{}, fmt.Errorf("parse billing policy %s: %w", path, err)
	}

	policy := DefaultPolicy(pf.SpecialistService)
	if len(pf.Rules) > 0 {
		policy.Rules = pf.Rules
	}
	if len(pf.Payable) > 0 {
		policy.Payable = make(map[patient.InsuranceType]decimal.Decimal, len(pf.Payable))
		for k, v := range pf.Payable {
			t, err := patient.ParseInsuranceType(k)
			if err != nil || t == patient.InsuranceNone {
				return Policy{}, fmt.Errorf("billing policy %s: unknown insurance type %q", path, k)
			}
			policy.Payable[t] = decimal.NewFromFloat(v)
		}
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("billing policy %s: %w", path, err)
	}
	return policy, nil
}
