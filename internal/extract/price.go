package extract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoPrice = errors.New("no price found")

	numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParsePrice returns the first amount in s, ignoring currency symbols,
// labels like "RRP:" and thousands separators.
func ParsePrice(s string) (float64, error) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("%w in %q", ErrNoPrice, strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", s, err)
	}
	return v, nil
}

// Price is one variant's normalized price triple.
type Price struct {
	Price      float64
	Discounted *float64
	Percentage *float64
}

// NormalizePrice applies the was/now rule. With both a reference and a lower
// current price the reference is the list price and the current price the
// discount. A current price at or above the reference is not a discount.
func NormalizePrice(reference, current *float64) (Price, error) {
	if reference != nil && *reference <= 0 {
		reference = nil
	}

	switch {
	case reference == nil && current == nil:
		return Price{}, ErrNoPrice
	case reference == nil:
		return Price{Price: *current}, nil
	case current == nil || *current >= *reference:
		if current != nil {
			return Price{Price: *current}, nil
		}
		return Price{Price: *reference}, nil
	}

	ref, cur := *reference, *current
	pct := Round2((ref - cur) / ref)
	if pct >= 1 {
		pct = 0.99
	}
	return Price{Price: ref, Discounted: &cur, Percentage: &pct}, nil
}

// NormalizePriceText parses the was/now strings and normalizes them. An empty
// string means the price is absent.
func NormalizePriceText(reference, current string) (Price, error) {
	var ref, cur *float64
	if strings.TrimSpace(reference) != "" {
		v, err := ParsePrice(reference)
		if err != nil {
			return Price{}, err
		}
		ref = &v
	}
	if strings.TrimSpace(current) != "" {
		v, err := ParsePrice(current)
		if err != nil {
			return Price{}, err
		}
		cur = &v
	}
	return NormalizePrice(ref, cur)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Float(v float64) *float64 {
	return &v
}
