package models

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is an exact decimal that remembers the literal it was parsed from.
// decimal.Decimal prints "100.50" as "100.5"; the batch fingerprint treats
// those as distinct payload texts, so the source form is kept alongside the
// numeric value and carried verbatim across the JSON wire.
type Price struct {
	decimal.Decimal
	text string
}

// PriceFromString parses a decimal literal, keeping the text as written.
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, err
	}
	return Price{Decimal: d, text: s}, nil
}

// MustPrice is PriceFromString for literals known to be valid.
func MustPrice(s string) Price {
	p, err := PriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Text returns the literal the price was parsed from, falling back to the
// normalized decimal form for prices built numerically.
func (p Price) Text() string {
	if p.text != "" {
		return p.text
	}
	return p.Decimal.String()
}

// MarshalJSON writes the source text, quoted. A decimal literal never needs
// JSON escaping.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.Text() + `"`), nil
}

// UnmarshalJSON accepts a quoted or bare decimal literal and keeps its text.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "null" {
		return nil
	}
	parsed, err := PriceFromString(s)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	*p = parsed
	return nil
}
