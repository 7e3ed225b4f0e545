package tool

import (
	"fmt"

	"github.com/opsacademy/toolcalc/formula"
)

// Severity defines diagnostic severity produced by Validate.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a structured validation finding.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Path, d.Message)
}

// HasErrors returns true when at least one error-severity diagnostic exists.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Warnings returns only warning-severity diagnostics.
func Warnings(diags []Diagnostic) []Diagnostic {
	var warns []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}

// Validate checks a configuration the way an authoring lint would. The
// runtime never calls it: Compute works on any configuration, however
// broken. Forward references and unknown names are warnings because the
// runtime resolves them to 0.
func Validate(cfg Config) []Diagnostic {
	var diags []Diagnostic
	add := func(code string, sev Severity, path, format string, args ...any) {
		diags = append(diags, Diagnostic{
			Code:     code,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
			Path:     path,
		})
	}

	if cfg.Title == "" {
		add("TC-001", SeverityWarning, "title", "tool has no title")
	}

	inputIDs := map[string]bool{}
	for i, in := range cfg.Inputs {
		path := fmt.Sprintf("inputs[%d]", i)
		switch {
		case in.ID == "":
			add("TC-002", SeverityError, path+".id", "input id is required")
		case inputIDs[in.ID]:
			add("TC-002", SeverityError, path+".id", "duplicate input id %q", in.ID)
		case !isIdentifier(in.ID):
			add("TC-002", SeverityWarning, path+".id", "input id %q cannot be referenced from a formula", in.ID)
		}
		if in.ID != "" {
			inputIDs[in.ID] = true
		}
		if !in.Type.Valid() {
			add("TC-006", SeverityError, path+".type", "unknown input type %q", in.Type)
		}
	}

	if len(cfg.Outputs) == 0 {
		add("TC-010", SeverityError, "outputs", "tool has no outputs")
	}

	// Position of each output id, for forward-reference detection.
	outputPos := map[string]int{}
	for i, out := range cfg.Outputs {
		if _, seen := outputPos[out.ID]; out.ID != "" && !seen {
			outputPos[out.ID] = i
		}
	}

	seenOutputs := map[string]bool{}
	for i, out := range cfg.Outputs {
		path := fmt.Sprintf("outputs[%d]", i)
		switch {
		case out.ID == "":
			add("TC-003", SeverityError, path+".id", "output id is required")
		case seenOutputs[out.ID]:
			add("TC-003", SeverityError, path+".id", "duplicate output id %q", out.ID)
		case inputIDs[out.ID]:
			add("TC-004", SeverityWarning, path+".id", "output %q replaces the input of the same name for later formulas", out.ID)
		}
		if out.ID != "" {
			seenOutputs[out.ID] = true
		}
		if !out.Format.Valid() {
			add("TC-006", SeverityError, path+".format", "unknown output format %q", out.Format)
		}

		if out.Formula == "" {
			add("TC-005", SeverityError, path+".formula", "output %q has an empty formula", out.ID)
			continue
		}
		for _, issue := range formula.Lint(out.Formula) {
			add("TC-007", SeverityWarning, path+".formula", "%s", issue)
		}
		for _, name := range formula.Identifiers(out.Formula) {
			if inputIDs[name] || (seenOutputs[name] && name != out.ID) {
				continue
			}
			if pos, ok := outputPos[name]; ok && pos >= i {
				add("TC-008", SeverityWarning, path+".formula",
					"%q refers to output %q declared at or after it; it will read 0", out.ID, name)
				continue
			}
			add("TC-009", SeverityWarning, path+".formula", "%q refers to unknown name %q; it will read 0", out.ID, name)
		}
	}

	return diags
}

func isIdentifier(s string) bool {
	toks := formula.Lex(s)
	return len(toks) == 1 && toks[0].Kind == formula.TokenIdent && toks[0].Value == s
}
