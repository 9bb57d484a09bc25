package patient

import "github.com/ehr/medledger/internal/ordering"

func patientAge(p *Patient) int     { return p.Age }
func patientName(p *Patient) string { return p.Name }

// SortByAge returns patients ordered by ascending age; equal ages keep their
// input order.
func SortByAge(patients []*Patient) []*Patient {
	return ordering.ByAge(patients, patientAge)
}

// SortByName returns patients ordered by case-insensitive name; equal names
// keep their input order.
func SortByName(patients []*Patient) []*Patient {
	return ordering.ByName(patients, patientName)
}

// FilterByName keeps the patients whose name contains term, ignoring case.
func FilterByName(patients []*Patient, term string) []*Patient {
	return ordering.FilterByName(patients, patientName, term)
}
