package formula

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxDepth bounds the nesting of parenthesised groups and ternary branches.
// Deeper formulas evaluate to zero.
const MaxDepth = 256

// Parse parses a formula into an AST. It never fails: every structural
// anomaly is replaced by a zero literal or ignored, exactly as evaluation
// expects. The returned bool is false when the nesting limit was exceeded.
func Parse(src string) (Expr, bool) {
	l := &Lexer{src: src}
	l.lexAll()
	p := &parser{tokens: l.tokens}
	e := p.parse()
	return e, !p.overflow
}

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	overflow bool
	issues   []Issue
}

// parse runs the top-level rule. Tokens left over are ignored.
func (p *parser) parse() Expr {
	e := p.parseTernary()
	if !p.overflow && p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.note(tok.Pos, "unexpected %q, the rest of the formula is ignored", tok.Value)
	}
	return e
}

func (p *parser) current() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// accept consumes the current token when it matches kind and value.
func (p *parser) accept(kind TokenKind, value string) bool {
	tok, ok := p.current()
	if !ok || !tok.is(kind, value) {
		return false
	}
	p.pos++
	return true
}

// acceptOperator consumes the current token when it is one of ops.
func (p *parser) acceptOperator(ops ...string) (string, bool) {
	tok, ok := p.current()
	if !ok || tok.Kind != TokenOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.Value == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) note(pos int, format string, args ...any) {
	p.issues = append(p.issues, Issue{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.Pos + len(last.Value)
}

func zero() Expr {
	return &NumberExpr{Value: 0}
}

// Precedence levels (low to high):
// 1. ?: (ternary, right-associative)
// 2. >, <, >=, <=, ==, != (left fold)
// 3. +, -
// 4. *, /, %
// 5. unary - (applies to one primary)

func (p *parser) parseTernary() Expr {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		if !p.overflow {
			tok, _ := p.current()
			p.note(tok.Pos, "nesting deeper than %d levels", MaxDepth)
		}
		p.overflow = true
		p.pos = len(p.tokens)
		return zero()
	}

	cond := p.parseComparison()
	qTok, _ := p.current()
	if !p.accept(TokenTernary, "?") {
		return cond
	}
	then := p.parseTernary()
	if p.accept(TokenTernary, ":") {
		return &TernaryExpr{Cond: cond, Then: then, Else: p.parseTernary()}
	}
	if !p.overflow {
		p.note(qTok.Pos, "'?' without ':', the else value is 0")
	}
	return &TernaryExpr{Cond: cond, Then: then, Else: zero()}
}

func (p *parser) parseComparison() Expr {
	left := p.parseAddSub()
	for {
		op, ok := p.acceptOperator(">", "<", ">=", "<=", "==", "!=")
		if !ok {
			return left
		}
		left = &BinaryExpr{Left: left, Op: op, Right: p.parseAddSub()}
	}
}

func (p *parser) parseAddSub() Expr {
	left := p.parseMulDiv()
	for {
		op, ok := p.acceptOperator("+", "-")
		if !ok {
			return left
		}
		left = &BinaryExpr{Left: left, Op: op, Right: p.parseMulDiv()}
	}
}

func (p *parser) parseMulDiv() Expr {
	left := p.parseUnary()
	for {
		op, ok := p.acceptOperator("*", "/", "%")
		if !ok {
			return left
		}
		left = &BinaryExpr{Left: left, Op: op, Right: p.parseUnary()}
	}
}

func (p *parser) parseUnary() Expr {
	if _, ok := p.acceptOperator("-"); ok {
		return &NegateExpr{Operand: p.parsePrimary()}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Expr {
	tok, ok := p.current()
	if !ok {
		if !p.overflow {
			p.note(p.endPos(), "missing operand at end of formula, using 0")
		}
		return zero()
	}

	switch {
	case tok.Kind == TokenNumber:
		p.advance()
		if _, err := strconv.ParseFloat(tok.Value, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			p.note(tok.Pos, "malformed number %q", tok.Value)
		}
		return &NumberExpr{Value: tok.Num}

	case tok.Kind == TokenIdent:
		p.advance()
		return &IdentExpr{Name: tok.Value}

	case tok.is(TokenParen, "("):
		p.advance()
		inner := p.parseTernary()
		if !p.accept(TokenParen, ")") && !p.overflow {
			p.note(tok.Pos, "unclosed '('")
		}
		return inner

	default:
		p.advance()
		p.note(tok.Pos, "unexpected %q where a value was expected, using 0", tok.Value)
		return zero()
	}
}
