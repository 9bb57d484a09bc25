package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "\xEF\xBB\xBFService,MinPrice,MaxPrice\n"+
		"Regular Checkup,50,100\n"+
		"Emergency Services,100.50,200\n"+
		"Specialist Consultation, 80 , 160\n")

	c := Load(path, zerolog.Nop())
	if c.Len() != 3 {
		t.Fatalf("expected 3 services, got %d", c.Len())
	}

	e, ok := c.Lookup("Emergency Services")
	if !ok {
		t.Fatal("expected Emergency Services")
	}
	if !e.MinPrice.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("expected min 100.50, got %s", e.MinPrice)
	}
	if !e.Midpoint().Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("expected midpoint 150.25, got %s", e.Midpoint())
	}

	s, _ := c.Lookup("Specialist Consultation")
	if !s.MaxPrice.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected trimmed max 160, got %s", s.MaxPrice)
	}
}

func TestLoad_MissingFileIsEmptyWithWarning(t *testing.T) {
	var buf bytes.Buffer
	c := Load(filepath.Join(t.TempDir(), "nope.csv"), zerolog.New(&buf))

	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d", c.Len())
	}
	if !strings.Contains(buf.String(), "not found") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestLoad_MalformedIsEmptyWithWarning(t *testing.T) {
	tests := map[string]string{
		"bad price":     "Service,MinPrice,MaxPrice\nX-Ray,abc,10\n",
		"negative":      "Service,MinPrice,MaxPrice\nX-Ray,-1,10\n",
		"min over max":  "Service,MinPrice,MaxPrice\nX-Ray,20,10\n",
		"missing col":   "Service,MinPrice\nX-Ray,20\n",
		"empty service": "Service,MinPrice,MaxPrice\n,1,2\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			c := Load(writeFile(t, content), zerolog.New(&buf))
			if c.Len() != 0 {
				t.Errorf("expected empty catalog, got %d", c.Len())
			}
			if !strings.Contains(buf.String(), "malformed") {
				t.Errorf("expected malformed warning, got %q", buf.String())
			}
		})
	}
}

func TestNew_LastDuplicateWins(t *testing.T) {
	c, err := New(
		Entry{Name: "Lab", MinPrice: decimal.NewFromInt(1), MaxPrice: decimal.NewFromInt(2)},
		Entry{Name: "Lab", MinPrice: decimal.NewFromInt(5), MaxPrice: decimal.NewFromInt(9)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := c.Lookup("Lab")
	if !e.MinPrice.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected later entry, got min %s", e.MinPrice)
	}
}

func TestCatalog_NilAndEntriesSorted(t *testing.T) {
	var nilCat *Catalog
	if nilCat.Has("anything") || nilCat.Len() != 0 {
		t.Error("nil catalog should be empty")
	}

	c, _ := New(
		Entry{Name: "Zeta", MinPrice: decimal.Zero, MaxPrice: decimal.Zero},
		Entry{Name: "Alpha", MinPrice: decimal.Zero, MaxPrice: decimal.Zero},
	)
	entries := c.Entries()
	if entries[0].Name != "Alpha" || entries[1].Name != "Zeta" {
		t.Errorf("expected sorted entries, got %v", entries)
	}
}
