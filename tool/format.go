package tool

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown instead of a value that cannot or should not be
// displayed yet.
const Placeholder = "—"

var displayPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatValue renders a value for display:
//
//	currency    $1,234.50 / -$1,234.50
//	percentage  60.0%
//	number      1,234.57 (at most two fraction digits)
//
// Non-finite values render as Placeholder. Unknown formats render as number.
func FormatValue(v float64, format ValueType) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}

	switch format {
	case TypeCurrency:
		amount := displayPrinter.Sprintf("%v", number.Decimal(roundHalfAway(math.Abs(v), 2),
			number.MinFractionDigits(2),
			number.MaxFractionDigits(2),
		))
		if v < 0 {
			return "-$" + amount
		}
		return "$" + amount
	case TypePercentage:
		return displayPrinter.Sprintf("%v", number.Decimal(roundHalfAway(v, 1),
			number.NoSeparator(),
			number.MinFractionDigits(1),
			number.MaxFractionDigits(1),
		)) + "%"
	default:
		return displayPrinter.Sprintf("%v", number.Decimal(roundHalfAway(v, 2), number.MaxFractionDigits(2)))
	}
}

// roundHalfAway rounds v to digits fraction digits, resolving ties away
// from zero. The printer would otherwise round ties to even.
func roundHalfAway(v float64, digits int) float64 {
	scale := math.Pow10(digits)
	scaled := v * scale
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / scale
}

// InputPrefix returns the adornment shown before an input field.
func InputPrefix(t ValueType) string {
	if t == TypeCurrency {
		return "$"
	}
	return ""
}

// InputSuffix returns the adornment shown after an input field.
func InputSuffix(t ValueType) string {
	if t == TypePercentage {
		return "%"
	}
	return ""
}
