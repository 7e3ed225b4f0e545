package tool

import (
	"time"

	"github.com/opsacademy/toolcalc/formula"
)

// Evaluator evaluates one formula against an environment. Implementations
// must follow the formula totality contract: always a finite number.
type Evaluator interface {
	Evaluate(src string, vars formula.Env) float64
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(src string, vars formula.Env) float64

// Evaluate calls f(src, vars).
func (f EvaluatorFunc) Evaluate(src string, vars formula.Env) float64 {
	return f(src, vars)
}

// DefaultEvaluator parses every formula afresh.
var DefaultEvaluator Evaluator = EvaluatorFunc(formula.Evaluate)

// Resolution pairs an output with its computed value.
type Resolution struct {
	Output Output
	Value  float64
}

// Resolve evaluates outputs in declaration order. Each value is added to
// the environment under the output's id before the next formula runs, so a
// formula sees every input and every earlier output. A reference to a later
// output reads 0. The inputs map is not modified.
func Resolve(outputs []Output, inputs formula.Env) []Resolution {
	return ResolveWith(DefaultEvaluator, outputs, inputs)
}

// ResolveWith is Resolve with an explicit evaluator.
func ResolveWith(ev Evaluator, outputs []Output, inputs formula.Env) []Resolution {
	if ev == nil {
		ev = DefaultEvaluator
	}
	env := inputs.Clone()
	results := make([]Resolution, 0, len(outputs))
	for _, out := range outputs {
		value := ev.Evaluate(out.Formula, env)
		env[out.ID] = value
		results = append(results, Resolution{Output: out, Value: value})
	}
	return results
}

// Result is one output ready for display.
type Result struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Format    ValueType `json:"format"`
	Value     float64   `json:"value"`
	Display   string    `json:"display"`
	Highlight bool      `json:"highlight,omitempty"`
	Negative  bool      `json:"negative,omitempty"`
}

// Computation is the full state of a tool after one recompute.
type Computation struct {
	ToolType    string            `json:"tool_type"`
	Title       string            `json:"title"`
	Values      map[string]string `json:"values"`
	HasAnyInput bool              `json:"has_any_input"`
	Results     []Result          `json:"results"`
}

// Compute overlays raw onto the configured defaults, resolves every output
// and formats the results. Until some input is entered every display reads
// as a placeholder dash.
func Compute(cfg Config, raw map[string]string) Computation {
	return ComputeWith(DefaultEvaluator, cfg, raw)
}

// ComputeWith is Compute with an explicit evaluator.
func ComputeWith(ev Evaluator, cfg Config, raw map[string]string) Computation {
	start := time.Now()

	values := InitialValues(cfg)
	for id := range values {
		if v, ok := raw[id]; ok {
			values[id] = v
		}
	}
	hasAny := HasAnyInput(values)

	resolved := ResolveWith(ev, cfg.Outputs, ParseInputs(cfg, values))
	results := make([]Result, len(resolved))
	zeros := 0
	for i, r := range resolved {
		display := Placeholder
		if hasAny {
			display = FormatValue(r.Value, r.Output.Format)
		}
		if r.Value == 0 {
			zeros++
		}
		results[i] = Result{
			ID:        r.Output.ID,
			Label:     r.Output.Label,
			Format:    r.Output.Format,
			Value:     r.Value,
			Display:   display,
			Highlight: r.Output.Highlight,
			Negative:  hasAny && r.Value < 0,
		}
	}

	emitComputeObservation(ComputeObservation{
		ToolType:    cfg.ToolType,
		Title:       cfg.Title,
		Outputs:     len(results),
		ZeroOutputs: zeros,
		HasAnyInput: hasAny,
		Started:     start,
		Duration:    time.Since(start),
	})

	return Computation{
		ToolType:    cfg.ToolType,
		Title:       cfg.Title,
		Values:      values,
		HasAnyInput: hasAny,
		Results:     results,
	}
}
