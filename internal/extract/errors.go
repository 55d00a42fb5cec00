package extract

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/maltedev/pet-products-scraper/internal/models"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrNoRows        = errors.New("no product rows extracted")
	ErrInvalidRecord = errors.New("invalid product record")
)

func Missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// ExtractionError is the typed failure of one transform call.
type ExtractionError struct {
	Shop  string
	URL   string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s %s: %v", e.Shop, e.URL, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Run invokes fn and turns every failure mode into an *ExtractionError:
// returned errors, panics, empty results and rows breaking the price rules.
func Run(shop, url string, fn func() ([]models.ProductRecord, error)) (rows []models.ProductRecord, xerr *ExtractionError) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			xerr = &ExtractionError{
				Shop:  shop,
				URL:   url,
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	rows, err := fn()
	if err != nil {
		return nil, &ExtractionError{Shop: shop, URL: url, Cause: err}
	}
	if len(rows) == 0 {
		return nil, &ExtractionError{Shop: shop, URL: url, Cause: ErrNoRows}
	}
	if err := Validate(rows); err != nil {
		return nil, &ExtractionError{Shop: shop, URL: url, Cause: err}
	}
	return rows, nil
}

// Validate checks the invariants every product row must hold.
func Validate(rows []models.ProductRecord) error {
	for i, r := range rows {
		switch {
		case r.Name == "":
			return fmt.Errorf("%w: row %d has no name", ErrInvalidRecord, i)
		case r.Price <= 0:
			return fmt.Errorf("%w: row %d has price %v", ErrInvalidRecord, i, r.Price)
		case (r.DiscountedPrice == nil) != (r.DiscountPercentage == nil):
			return fmt.Errorf("%w: row %d has discounted price without percentage", ErrInvalidRecord, i)
		case r.DiscountPercentage != nil && (*r.DiscountPercentage < 0 || *r.DiscountPercentage >= 1):
			return fmt.Errorf("%w: row %d discount %v outside [0,1)", ErrInvalidRecord, i, *r.DiscountPercentage)
		case r.DiscountedPrice != nil && *r.DiscountedPrice >= r.Price:
			return fmt.Errorf("%w: row %d discounted price not below price", ErrInvalidRecord, i)
		}
	}
	return nil
}
