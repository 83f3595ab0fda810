// Package format turns amounts and rate strings into display values.
// All functions are pure and never panic: bad input degrades to "0" or "0.00".
package format

import (
	"math"
	"strings"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

var (
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
	thousand = decimal.New(1, 3)

	money = accounting.Accounting{Symbol: "", Precision: 2, Thousand: ",", Decimal: "."}
)

// parse accepts a plain decimal string. Empty or malformed input is rejected.
func parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// CalculateTotalValue returns amount * rate as an unrounded decimal string.
// Zero, NaN or infinite amounts and empty, malformed or zero rates give "0".
func CalculateTotalValue(amount float64, rate string) string {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}
	r, ok := parse(rate)
	if !ok || r.IsZero() {
		return "0"
	}
	return decimal.NewFromFloat(amount).Mul(r).String()
}

// FormatCurrencyValue renders value with thousands separators and two decimals.
func FormatCurrencyValue(value string) string {
	d, ok := parse(value)
	if !ok {
		return "0.00"
	}
	f, _ := d.Round(2).Float64()
	if math.IsInf(f, 0) {
		// beyond float64 range; keep the digits, drop the grouping
		return d.StringFixed(2)
	}
	return money.FormatMoneyFloat64(f)
}

// FormatLargeNumber abbreviates value with B, M or K suffixes at two decimals.
// Values below 1000 are fixed to two decimals without a suffix.
func FormatLargeNumber(value string) string {
	d, ok := parse(value)
	if !ok {
		return "0.00"
	}
	switch {
	case d.GreaterThanOrEqual(billion):
		return d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return d.Div(million).StringFixed(2) + "M"
	case d.GreaterThanOrEqual(thousand):
		return d.Div(thousand).StringFixed(2) + "K"
	}
	return d.StringFixed(2)
}

// SumValues adds decimal strings. Unparseable entries count as zero.
func SumValues(values ...string) string {
	total := decimal.Zero
	for _, v := range values {
		if d, ok := parse(v); ok {
			total = total.Add(d)
		}
	}
	return total.String()
}
