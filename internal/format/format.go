// Package format renders calculation output for human display.
package format

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer is the locale-aware message printer for number formatting.
// Uses English locale for consistent thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// tonneThreshold is where emission display switches from kgCO2e to tCO2e.
const tonneThreshold = 1000.0

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats a float with the given precision and thousand
// separators. Example: FormatFloat(1234.567, 2) returns "1,234.57".
func FormatFloat(f float64, precision int) string {
	const base = 10
	multiplier := math.Pow(base, float64(precision))
	rounded := math.Round(f*multiplier) / multiplier

	if precision == 0 {
		return FormatNumber(int64(rounded))
	}

	format := fmt.Sprintf("%%.%df", precision)
	formatted := fmt.Sprintf(format, rounded)

	const decimalPartCount = 2
	parts := splitDecimal(formatted)
	if len(parts) == decimalPartCount {
		intPart, err := parseIntPart(parts[0])
		if err == nil {
			return printer.Sprintf("%d", intPart) + "." + parts[1]
		}
	}

	return formatted
}

// FormatEmissions renders an emission total with its display unit.
// Totals of a tonne or more switch to tCO2e.
// Example: FormatEmissions(decimal 139) returns "139.00 kgCO2e";
// FormatEmissions(decimal 2500) returns "2.50 tCO2e".
func FormatEmissions(total decimal.Decimal) string {
	v := total.InexactFloat64()
	if math.Abs(v) >= tonneThreshold {
		return FormatFloat(v/tonneThreshold, 2) + " tCO2e"
	}
	return FormatFloat(v, 2) + " kgCO2e"
}

// FormatConfidence renders a confidence ratio as a percentage.
// Example: FormatConfidence(0.935) returns "93.5%".
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

// splitDecimal splits a formatted number string into integer and decimal parts.
func splitDecimal(s string) []string {
	for i, c := range s {
		if c == '.' {
			return []string{s[:i], s[i+1:]}
		}
	}
	return []string{s}
}

// parseIntPart parses an integer string, handling negative numbers.
func parseIntPart(s string) (int64, error) {
	const base = 10
	var n int64
	negative := false

	for i, c := range s {
		if i == 0 && c == '-' {
			negative = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character: %c", c)
		}
		n = n*base + int64(c-'0')
	}

	if negative {
		n = -n
	}
	return n, nil
}
