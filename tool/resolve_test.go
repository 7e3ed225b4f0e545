package tool

import (
	"sync"
	"testing"

	"github.com/opsacademy/toolcalc/formula"
)

func profitOutputs() []Output {
	return []Output{
		{ID: "profit", Label: "Profit", Formula: "revenue - costs", Format: TypeCurrency},
		{ID: "margin", Label: "Margin", Formula: "profit / revenue * 100", Format: TypePercentage, Highlight: true},
	}
}

func profitConfig() Config {
	return Config{
		ToolType: "profit_calculator",
		Title:    "Profit Calculator",
		Inputs: []Input{
			{ID: "revenue", Label: "Revenue", Type: TypeCurrency},
			{ID: "costs", Label: "Costs", Type: TypeCurrency},
		},
		Outputs: profitOutputs(),
	}
}

func TestResolve_SequentialDependency(t *testing.T) {
	results := Resolve(profitOutputs(), formula.Env{"revenue": 1000, "costs": 400})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Output.ID != "profit" || results[0].Value != 600 {
		t.Errorf("profit: got %s=%v, want profit=600", results[0].Output.ID, results[0].Value)
	}
	if results[1].Output.ID != "margin" || results[1].Value != 60 {
		t.Errorf("margin: got %s=%v, want margin=60", results[1].Output.ID, results[1].Value)
	}
}

func TestResolve_ForwardReferenceReadsZero(t *testing.T) {
	outputs := profitOutputs()
	outputs[0], outputs[1] = outputs[1], outputs[0]

	results := Resolve(outputs, formula.Env{"revenue": 1000, "costs": 400})
	if results[0].Output.ID != "margin" || results[0].Value != 0 {
		t.Errorf("margin: got %s=%v, want margin=0", results[0].Output.ID, results[0].Value)
	}
	if results[1].Output.ID != "profit" || results[1].Value != 600 {
		t.Errorf("profit: got %s=%v, want profit=600", results[1].Output.ID, results[1].Value)
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	inputs := formula.Env{"revenue": 1000, "costs": 400}
	Resolve(profitOutputs(), inputs)
	if len(inputs) != 2 {
		t.Fatalf("inputs mutated: %v", inputs)
	}
}

func TestResolve_OutputShadowsInput(t *testing.T) {
	outputs := []Output{
		{ID: "x", Formula: "x * 2"},
		{ID: "y", Formula: "x + 1"},
	}
	results := Resolve(outputs, formula.Env{"x": 5})
	if results[0].Value != 10 || results[1].Value != 11 {
		t.Fatalf("got %v, %v; want 10, 11", results[0].Value, results[1].Value)
	}
}

func TestResolveWith_UsesEvaluator(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	ev := EvaluatorFunc(func(src string, vars formula.Env) float64 {
		mu.Lock()
		seen = append(seen, src)
		mu.Unlock()
		return float64(len(vars))
	})

	results := ResolveWith(ev, profitOutputs(), formula.Env{"revenue": 1, "costs": 1})
	if len(seen) != 2 || seen[0] != "revenue - costs" {
		t.Fatalf("evaluator saw %v", seen)
	}
	// Second formula sees the two inputs plus the first output.
	if results[1].Value != 3 {
		t.Errorf("got %v, want 3", results[1].Value)
	}
}

func TestResolveWith_Cache(t *testing.T) {
	cache := formula.NewCache()
	results := ResolveWith(cache, profitOutputs(), formula.Env{"revenue": 1000, "costs": 400})
	if results[1].Value != 60 {
		t.Fatalf("margin = %v, want 60", results[1].Value)
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d programs, want 2", cache.Len())
	}
}

func TestCompute_FormatsResults(t *testing.T) {
	comp := Compute(profitConfig(), map[string]string{"revenue": "1000", "costs": "400"})

	if !comp.HasAnyInput {
		t.Fatal("expected HasAnyInput")
	}
	if len(comp.Results) != 2 {
		t.Fatalf("got %d results", len(comp.Results))
	}
	if got := comp.Results[0].Display; got != "$600.00" {
		t.Errorf("profit display = %q, want $600.00", got)
	}
	if got := comp.Results[1].Display; got != "60.0%" {
		t.Errorf("margin display = %q, want 60.0%%", got)
	}
	if !comp.Results[1].Highlight {
		t.Error("margin should be highlighted")
	}
}

func TestCompute_NoInputShowsPlaceholder(t *testing.T) {
	comp := Compute(profitConfig(), nil)
	if comp.HasAnyInput {
		t.Fatal("expected no input")
	}
	for _, r := range comp.Results {
		if r.Display != Placeholder {
			t.Errorf("%s display = %q, want placeholder", r.ID, r.Display)
		}
		if r.Negative {
			t.Errorf("%s should not be negative before input", r.ID)
		}
	}
}

func TestCompute_NegativeFlag(t *testing.T) {
	comp := Compute(profitConfig(), map[string]string{"revenue": "100", "costs": "250"})
	if !comp.Results[0].Negative {
		t.Error("expected negative profit")
	}
	if got := comp.Results[0].Display; got != "-$150.00" {
		t.Errorf("display = %q, want -$150.00", got)
	}
}

func TestCompute_DefaultsAndOverrides(t *testing.T) {
	cfg := profitConfig()
	revenue := 500.0
	cfg.Inputs[0].Default = &revenue

	comp := Compute(cfg, map[string]string{"costs": "100", "ignored": "7"})
	if comp.Values["revenue"] != "500" {
		t.Errorf("revenue value = %q, want default 500", comp.Values["revenue"])
	}
	if _, ok := comp.Values["ignored"]; ok {
		t.Error("undeclared input should be dropped")
	}
	if comp.Results[0].Value != 400 {
		t.Errorf("profit = %v, want 400", comp.Results[0].Value)
	}
}

type recordingObserver struct {
	mu           sync.Mutex
	observations []ComputeObservation
}

func (r *recordingObserver) ObserveCompute(o ComputeObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, o)
}

func TestCompute_EmitsObservation(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	Compute(profitConfig(), map[string]string{"revenue": "400", "costs": "400"})

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs.observations))
	}
	o := obs.observations[0]
	if o.ToolType != "profit_calculator" || o.Outputs != 2 || o.ZeroOutputs != 2 || !o.HasAnyInput {
		t.Errorf("unexpected observation %+v", o)
	}
}
