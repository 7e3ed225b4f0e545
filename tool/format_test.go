package tool

import (
	"math"
	"testing"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		format ValueType
		want   string
	}{
		{"currency", 1234.5, TypeCurrency, "$1,234.50"},
		{"currency negative", -1234.5, TypeCurrency, "-$1,234.50"},
		{"currency zero", 0, TypeCurrency, "$0.00"},
		{"currency millions", 2500000, TypeCurrency, "$2,500,000.00"},
		{"percentage", 60, TypePercentage, "60.0%"},
		{"percentage fraction", 12.345, TypePercentage, "12.3%"},
		{"number", 1234.567, TypeNumber, "1,234.57"},
		{"number integer", 1000, TypeNumber, "1,000"},
		{"number fraction", 0.5, TypeNumber, "0.5"},
		{"percentage half rounds up", 0.25, TypePercentage, "0.3%"},
		{"percentage half rounds up again", 12.25, TypePercentage, "12.3%"},
		{"percentage negative half", -0.25, TypePercentage, "-0.3%"},
		{"percentage no grouping", 12345.6, TypePercentage, "12345.6%"},
		{"currency half rounds up", 0.125, TypeCurrency, "$0.13"},
		{"currency negative half", -0.125, TypeCurrency, "-$0.13"},
		{"number half rounds up", 0.125, TypeNumber, "0.13"},
		{"unknown format", 42, ValueType("other"), "42"},
		{"nan", math.NaN(), TypeCurrency, Placeholder},
		{"inf", math.Inf(1), TypeNumber, Placeholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value, tt.format); got != tt.want {
				t.Errorf("FormatValue(%v, %s) = %q, want %q", tt.value, tt.format, got, tt.want)
			}
		})
	}
}

func TestInputAdornments(t *testing.T) {
	if InputPrefix(TypeCurrency) != "$" || InputPrefix(TypeNumber) != "" {
		t.Error("unexpected prefix")
	}
	if InputSuffix(TypePercentage) != "%" || InputSuffix(TypeCurrency) != "" {
		t.Error("unexpected suffix")
	}
}
