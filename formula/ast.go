// Package formula provides a closed, side-effect-free arithmetic language for
// Interactive Tool outputs. Formulas are parsed by a hand-written recursive
// descent parser and evaluated against a name-to-number environment. No
// general-purpose evaluator is ever involved.
package formula

import (
	"fmt"
	"strconv"
)

// Expr is the interface implemented by all AST nodes.
type Expr interface {
	expr() // marker method
	String() string
}

// NumberExpr is a numeric literal or a zero substituted by the parser.
type NumberExpr struct {
	Value float64
}

func (e *NumberExpr) expr() {}
func (e *NumberExpr) String() string {
	return strconv.FormatFloat(e.Value, 'g', -1, 64)
}

// IdentExpr is a variable reference.
type IdentExpr struct {
	Name string
}

func (e *IdentExpr) expr() {}
func (e *IdentExpr) String() string {
	return e.Name
}

// NegateExpr is unary minus applied to a primary.
type NegateExpr struct {
	Operand Expr
}

func (e *NegateExpr) expr() {}
func (e *NegateExpr) String() string {
	return fmt.Sprintf("(-%s)", e.Operand)
}

// BinaryExpr is an arithmetic or comparison operation.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

func (e *BinaryExpr) expr() {}
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// TernaryExpr is cond ? then : else. A missing else branch is a zero literal.
type TernaryExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (e *TernaryExpr) expr() {}
func (e *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Cond, e.Then, e.Else)
}
