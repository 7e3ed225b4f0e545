package formula

import "math"

// Program is a parsed formula ready for repeated evaluation. Programs are
// immutable and safe for concurrent use.
type Program struct {
	src      string
	root     Expr
	overflow bool
}

// Compile lexes and parses src once.
func Compile(src string) *Program {
	root, ok := Parse(src)
	return &Program{src: src, root: root, overflow: !ok}
}

// Source returns the formula text the program was compiled from.
func (p *Program) Source() string {
	return p.src
}

// String returns the fully parenthesised form of the parsed formula.
func (p *Program) String() string {
	return p.root.String()
}

// Eval evaluates the program against vars. It always returns a finite
// number: runtime faults, NaN and infinities all become 0.
func (p *Program) Eval(vars Env) (result float64) {
	defer func() {
		if recover() != nil {
			result = 0
		}
	}()
	if p == nil || p.overflow {
		return 0
	}
	ev := &evaluator{vars: vars}
	return finite(ev.eval(p.root))
}

// Evaluate tokenizes, parses and evaluates formula against vars.
// It never panics and never returns NaN or an infinity.
func Evaluate(formula string, vars Env) (result float64) {
	defer func() {
		if recover() != nil {
			result = 0
		}
	}()
	return Compile(formula).Eval(vars)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// Collapse negative zero.
	if v == 0 {
		return 0
	}
	return v
}
