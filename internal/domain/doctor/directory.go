// Package doctor loads the read-only doctor directory consumed by patient
// intake.
package doctor

import (
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ehr/medledger/internal/platform/csvfile"
)

// Ref identifies an assigned doctor.
type Ref struct {
	ID   string `json:"doctor_id"`
	Name string `json:"doctor_name"`
}

// Directory maps department to its doctors in file order. It is used as an
// immutable snapshot once loaded.
type Directory map[string][]Ref

// Lookup finds a doctor by id, searching departments in sorted order. Loaded
// directories hold each id once.
func (d Directory) Lookup(id string) (Ref, bool) {
	for _, dept := range d.Departments() {
		for _, r := range d[dept] {
			if r.ID == id {
				return r, true
			}
		}
	}
	return Ref{}, false
}

// Departments returns department names sorted alphabetically.
func (d Directory) Departments() []string {
	out := make([]string, 0, len(d))
	for dept := range d {
		out = append(out, dept)
	}
	sort.Strings(out)
	return out
}

// InDepartment returns a copy of the doctors listed under dept.
func (d Directory) InDepartment(dept string) []Ref {
	return append([]Ref(nil), d[dept]...)
}

// Load groups DoctorID,DoctorName,Department rows by department. A missing or
// unreadable file yields an empty directory and a warning.
func Load(path string, logger zerolog.Logger) Directory {
	dir, dups, err := read(path)
	if err != nil {
		if csvfile.IsMissing(err) {
			logger.Warn().Str("path", path).Msg("doctor directory not found, specialist assignment disabled")
		} else {
			logger.Warn().Err(err).Str("path", path).Msg("doctor directory is malformed, specialist assignment disabled")
		}
		return Directory{}
	}
	for _, d := range dups {
		logger.Warn().Str("path", path).Int("row", d.row).Str("doctor_id", d.id).Str("department", d.dept).
			Msg("duplicate doctor id ignored, the first listing wins")
	}
	if len(dir) == 0 {
		logger.Warn().Str("path", path).Msg("no doctors found in directory")
	}
	return dir
}

type duplicate struct {
	row  int
	id   string
	dept string
}

// read keeps the first row for each doctor id and reports the rest.
func read(path string) (Directory, []duplicate, error) {
	r, err := csvfile.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	if err := r.Require("DoctorID", "DoctorName", "Department"); err != nil {
		return nil, nil, err
	}

	dir := Directory{}
	seen := make(map[string]bool)
	var dups []duplicate
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", r.RowNum(), err)
		}
		id, dept := row.Get("DoctorID"), row.Get("Department")
		if seen[id] {
			dups = append(dups, duplicate{row: r.RowNum(), id: id, dept: dept})
			continue
		}
		seen[id] = true
		dir[dept] = append(dir[dept], Ref{ID: id, Name: row.Get("DoctorName")})
	}
	return dir, dups, nil
}
