package catalog

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/medledger/internal/platform/csvfile"
)

const (
	colService  = "Service"
	colMinPrice = "MinPrice"
	colMaxPrice = "MaxPrice"
)

// Load reads a catalog file of Service,MinPrice,MaxPrice rows. It never
// fails: a missing or malformed source yields an empty catalog and a warning,
// and pricing downstream degrades to zero-cost services.
func Load(path string, logger zerolog.Logger) *Catalog {
	c, err := read(path)
	if err != nil {
		if csvfile.IsMissing(err) {
			logger.Warn().Str("path", path).Msg("service catalog not found, starting with an empty catalog")
		} else {
			logger.Warn().Err(err).Str("path", path).Msg("service catalog is malformed, starting with an empty catalog")
		}
		return Empty()
	}
	logger.Info().Str("path", path).Int("services", c.Len()).Msg("service catalog loaded")
	return c
}

func read(path string) (*Catalog, error) {
	r, err := csvfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.Require(colService, colMinPrice, colMaxPrice); err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.RowNum(), err)
		}

		minPrice, err := decimal.NewFromString(row.Get(colMinPrice))
		if err != nil {
			return nil, fmt.Errorf("row %d: min price: %w", r.RowNum(), err)
		}
		maxPrice, err := decimal.NewFromString(row.Get(colMaxPrice))
		if err != nil {
			return nil, fmt.Errorf("row %d: max price: %w", r.RowNum(), err)
		}
		entries = append(entries, Entry{
			Name:     row.Get(colService),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		})
	}

	c, err := New(entries...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
