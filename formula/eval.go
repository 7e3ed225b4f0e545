package formula

import (
	"fmt"
	"math"
)

// Env maps variable names to their numeric values.
type Env map[string]float64

// Clone returns an independent copy of the environment.
func (env Env) Clone() Env {
	out := make(Env, len(env))
	for name, v := range env {
		out[name] = v
	}
	return out
}

type evaluator struct {
	vars Env
}

func (ev *evaluator) eval(e Expr) float64 {
	switch n := e.(type) {
	case *NumberExpr:
		return n.Value

	case *IdentExpr:
		// Unknown identifiers resolve to 0.
		return ev.vars[n.Name]

	case *NegateExpr:
		return -ev.eval(n.Operand)

	case *BinaryExpr:
		return applyBinary(n.Op, ev.eval(n.Left), ev.eval(n.Right))

	case *TernaryExpr:
		if IsTruthy(ev.eval(n.Cond)) {
			return ev.eval(n.Then)
		}
		return ev.eval(n.Else)

	default:
		panic(fmt.Sprintf("formula: unknown expression type %T", e))
	}
}

func applyBinary(op string, left, right float64) float64 {
	switch op {
	case "+":
		return left + right
	case "-":
		return left - right
	case "*":
		return left * right
	case "/":
		if right == 0 {
			return 0
		}
		return left / right
	case "%":
		if right == 0 {
			return 0
		}
		return math.Mod(left, right)
	case ">":
		return boolToFloat(left > right)
	case "<":
		return boolToFloat(left < right)
	case ">=":
		return boolToFloat(left >= right)
	case "<=":
		return boolToFloat(left <= right)
	case "==":
		return boolToFloat(left == right)
	case "!=":
		return boolToFloat(left != right)
	default:
		panic(fmt.Sprintf("formula: unknown operator %q", op))
	}
}

// IsTruthy reports whether a value selects the then-branch of a ternary.
// Zero and NaN are falsy.
func IsTruthy(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
