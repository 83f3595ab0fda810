package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FiatCode is the fiat currency asset values are displayed in.
type FiatCode string

const (
	USD FiatCode = "USD"
	HKD FiatCode = "HKD"

	// DefaultFiat is used until a persisted or native value says otherwise.
	DefaultFiat = USD
)

// ErrUnsupportedFiat is returned for any code other than USD or HKD.
var ErrUnsupportedFiat = errors.New("unsupported fiat code")

// SupportedFiats lists the display currencies in toggle order.
var SupportedFiats = []FiatCode{USD, HKD}

// ParseFiatCode normalizes s (trim, upper-case) and validates it.
func ParseFiatCode(s string) (FiatCode, error) {
	code := FiatCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFiat, s)
	}
	return code, nil
}

// Valid reports whether c is one of the supported codes.
func (c FiatCode) Valid() bool {
	return c == USD || c == HKD
}

// Toggle returns the other supported code.
func (c FiatCode) Toggle() FiatCode {
	if c == USD {
		return HKD
	}
	return USD
}

func (c FiatCode) String() string { return string(c) }
