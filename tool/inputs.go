package tool

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/opsacademy/toolcalc/formula"
)

var leadingFloatPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// InitialValues returns the raw input strings a fresh tool starts with:
// each input's default, or "" when it has none.
func InitialValues(cfg Config) map[string]string {
	values := make(map[string]string, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		if in.Default != nil {
			values[in.ID] = strconv.FormatFloat(*in.Default, 'f', -1, 64)
			continue
		}
		values[in.ID] = ""
	}
	return values
}

// ParseInputs converts raw input strings to the base environment. Every
// declared input gets an entry; missing, empty or unparsable values are 0.
// Keys that are not declared inputs are ignored.
func ParseInputs(cfg Config, raw map[string]string) formula.Env {
	env := make(formula.Env, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		env[in.ID] = ParseNumber(raw[in.ID])
	}
	return env
}

// ParseNumber reads the longest leading decimal literal of s, ignoring
// leading whitespace and anything after the literal. It returns 0 when
// there is no literal or the value is not finite.
func ParseNumber(s string) float64 {
	match := leadingFloatPattern.FindString(strings.TrimLeft(s, " \t\n\r\v\f"))
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// HasAnyInput reports whether the learner has entered something other than
// an empty value or a bare "0".
func HasAnyInput(raw map[string]string) bool {
	for _, v := range raw {
		if v != "" && v != "0" {
			return true
		}
	}
	return false
}
