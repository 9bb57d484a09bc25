package intake

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
)

// ErrAborted is returned when input ends before the session completes.
var ErrAborted = errors.New("intake aborted")

// Run asks every applicable question on out, reading answers line by line
// from in. Rejected answers are explained and asked again.
func Run(in io.Reader, out io.Writer, s *Session) (patient.Fields, error) {
	return RunLines(bufio.NewScanner(in), out, s)
}

// RunLines is Run over a scanner the caller keeps reading from afterwards.
func RunLines(scanner *bufio.Scanner, out io.Writer, s *Session) (patient.Fields, error) {
	for {
		q, ok := s.Next()
		if !ok {
			return s.Fields()
		}
		fmt.Fprint(out, render(q))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return patient.Fields{}, fmt.Errorf("read answer: %w", err)
			}
			return patient.Fields{}, ErrAborted
		}
		if err := s.Answer(scanner.Text()); err != nil {
			if !apperr.IsValidation(err) {
				return patient.Fields{}, err
			}
			fmt.Fprintf(out, "  %v\n", err)
		}
	}
}

func render(q Question) string {
	var b strings.Builder
	if q.Kind == KindChoice {
		labels := q.Labels
		if len(labels) == 0 {
			labels = q.Choices
		}
		for i, l := range labels {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, l)
		}
	}
	b.WriteString(q.Prompt)
	if q.Kind == KindNumber {
		fmt.Fprintf(&b, " (%d-%d)", q.Min, q.Max)
	}
	b.WriteString(": ")
	return b.String()
}
