package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenNumber  TokenKind = iota // decimal literal
	TokenIdent                    // variable name
	TokenOperator                 // + - * / % > < >= <= == !=
	TokenParen                    // ( or )
	TokenTernary                  // ? or :
)

var tokenNames = map[TokenKind]string{
	TokenNumber:   "number",
	TokenIdent:    "identifier",
	TokenOperator: "operator",
	TokenParen:    "paren",
	TokenTernary:  "ternary",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a lexed token with position information.
type Token struct {
	Kind  TokenKind
	Value string  // raw text of the token
	Num   float64 // parsed value, only for TokenNumber
	Pos   int     // byte offset in source
}

func (t Token) is(kind TokenKind, value string) bool {
	return t.Kind == kind && t.Value == value
}

// Skip records a character the lexer dropped.
type Skip struct {
	Char byte
	Pos  int
}

// Lexer tokenizes formula strings. It never fails: characters outside the
// grammar are dropped and remembered in skipped.
type Lexer struct {
	src     string
	pos     int
	tokens  []Token
	skipped []Skip
}

// Lex tokenizes the input string and returns all tokens.
func Lex(src string) []Token {
	l := &Lexer{src: src}
	l.lexAll()
	return l.tokens
}

func (l *Lexer) lexAll() {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]

		switch {
		case isSpace(ch):
			l.pos++
		case isDigit(ch) || ch == '.':
			l.lexNumber()
		case isIdentStart(ch):
			l.lexIdent()
		case l.tryEmitDoubleCharOperator(ch):
		case l.tryEmitSingleCharToken(ch):
		default:
			l.skipped = append(l.skipped, Skip{Char: ch, Pos: l.pos})
			l.pos++
		}
	}
}

func (l *Lexer) tryEmitDoubleCharOperator(ch byte) bool {
	if l.peekNext() != '=' {
		return false
	}
	switch ch {
	case '>', '<', '=', '!':
		l.emit(TokenOperator, 2)
		return true
	}
	return false
}

func (l *Lexer) tryEmitSingleCharToken(ch byte) bool {
	switch ch {
	case '+', '-', '*', '/', '%', '>', '<':
		l.emit(TokenOperator, 1)
	case '(', ')':
		l.emit(TokenParen, 1)
	case '?', ':':
		l.emit(TokenTernary, 1)
	default:
		return false
	}
	return true
}

func (l *Lexer) peekNext() byte {
	next := l.pos + 1
	if next >= len(l.src) {
		return 0
	}
	return l.src[next]
}

func (l *Lexer) emit(kind TokenKind, width int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: l.src[l.pos : l.pos+width], Pos: l.pos})
	l.pos += width
}

// lexNumber consumes digits and dots greedily. The value is the longest
// leading float of the run, so "1.2.3" is 1.2, "." is NaN and a literal
// too large for float64 is +Inf.
func (l *Lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := l.src[start:l.pos]
	l.tokens = append(l.tokens, Token{Kind: TokenNumber, Value: text, Num: leadingFloat(text), Pos: start})
}

func (l *Lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	l.tokens = append(l.tokens, Token{Kind: TokenIdent, Value: l.src[start:l.pos], Pos: start})
}

// leadingFloat parses the longest prefix of a digits-and-dots run that forms
// a decimal literal.
func leadingFloat(text string) float64 {
	end := 0
	seenDot := false
	digits := 0
	for end < len(text) {
		ch := text[end]
		if ch == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else {
			digits++
		}
		end++
	}
	if digits == 0 {
		return math.NaN()
	}
	val, err := strconv.ParseFloat(text[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	// Out-of-range literals keep the ±Inf or 0 ParseFloat rounds them to.
	return val
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || isLetter(ch)
}

func isIdentPart(ch byte) bool {
	return ch == '_' || isLetter(ch) || isDigit(ch)
}
