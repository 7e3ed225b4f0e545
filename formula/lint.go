package formula

import (
	"fmt"
	"sort"
)

// Issue is one place where the runtime would silently substitute or drop
// part of a formula.
type Issue struct {
	Pos     int    `json:"pos"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("position %d: %s", i.Pos, i.Message)
}

// Lint reports every anomaly the evaluator would tolerate silently. It is
// meant for content-authoring checks; Evaluate never calls it.
func Lint(src string) []Issue {
	l := &Lexer{src: src}
	l.lexAll()

	var issues []Issue
	for _, s := range l.skipped {
		issues = append(issues, Issue{Pos: s.Pos, Message: fmt.Sprintf("unrecognized character %q is ignored", s.Char)})
	}

	if len(l.tokens) == 0 {
		issues = append(issues, Issue{Pos: 0, Message: "empty formula always evaluates to 0"})
		return issues
	}

	p := &parser{tokens: l.tokens}
	p.parse()
	issues = append(issues, p.issues...)

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Pos < issues[j].Pos
	})
	return issues
}

// Identifiers returns the distinct identifiers src references, in order of
// first use.
func Identifiers(src string) []string {
	seen := map[string]bool{}
	var names []string
	for _, tok := range Lex(src) {
		if tok.Kind != TokenIdent || seen[tok.Value] {
			continue
		}
		seen[tok.Value] = true
		names = append(names, tok.Value)
	}
	return names
}
