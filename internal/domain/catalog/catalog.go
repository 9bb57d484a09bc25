package catalog

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Entry is one billable service with its price band.
type Entry struct {
	Name     string          `json:"service"`
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
}

// Midpoint returns (min + max) / 2.
func (e Entry) Midpoint() decimal.Decimal {
	return e.MinPrice.Add(e.MaxPrice).Div(decimal.NewFromInt(2))
}

func (e Entry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if e.MinPrice.IsNegative() || e.MaxPrice.IsNegative() {
		return fmt.Errorf("service %q: prices must be non-negative", e.Name)
	}
	if e.MinPrice.GreaterThan(e.MaxPrice) {
		return fmt.Errorf("service %q: min price %s exceeds max price %s", e.Name, e.MinPrice, e.MaxPrice)
	}
	return nil
}

// Catalog is the read-only price table keyed by service name. The zero value
// and a nil *Catalog are both empty catalogs.
type Catalog struct {
	entries map[string]Entry
}

// New builds a catalog from entries. A later entry with the same name
// replaces an earlier one.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		c.entries[e.Name] = e
	}
	return c, nil
}

// Empty returns a catalog with no services.
func Empty() *Catalog {
	return &Catalog{entries: map[string]Entry{}}
}

func (c *Catalog) Lookup(name string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.entries[name]
	return e, ok
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of all entries sorted by name.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
