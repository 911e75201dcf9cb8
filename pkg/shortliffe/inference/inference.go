package inference

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/cf"
	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
)

// Engine derives new facts from a knowledge base.
// This interface allows swapping implementations (forward chaining, tracing
// wrappers, etc.)
type Engine interface {
	// Infer applies rules until nothing improves and writes derived facts
	// back into k.
	Infer(k KnowledgeBase) Result
}

// KnowledgeBase is what an engine reads and writes. *kb.KnowledgeBase
// implements it.
type KnowledgeBase interface {
	FactSource
	AddFact(name string, v float64) error
	Facts() map[string]float64
	Rules() []kb.Rule
}

// ErrRuleFault marks a rule that could not be evaluated.
var ErrRuleFault = errors.New("rule evaluation failed")

// FactSource resolves fact names to certainty factors.
type FactSource interface {
	Fact(name string) (float64, bool)
}

// FactMap is a FactSource over a plain map.
type FactMap map[string]float64

// Fact implements FactSource.
func (m FactMap) Fact(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// Evaluate computes the certainty of a condition sequence.
//
// Each node is the min over its facts (missing facts count as 0, negated
// facts as 1-v). Nodes fold left to right: the previous node's joiner picks
// min for AND (and none) or max for OR. An empty sequence is 0.
func Evaluate(conds []condition.Condition, facts FactSource) (float64, error) {
	var result float64
	for i, c := range conds {
		v, err := evaluateNode(c, facts)
		if err != nil {
			return 0, fmt.Errorf("condition %d: %w", i, err)
		}
		if i == 0 {
			result = v
			continue
		}
		if conds[i-1].Joiner == condition.JoinOr {
			result = cf.Or(result, v)
		} else {
			result = cf.And(result, v)
		}
	}
	return result, nil
}

func evaluateNode(c condition.Condition, facts FactSource) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	result := 1.0
	for _, name := range c.Target.Names() {
		v, _ := facts.Fact(name)
		if c.Negate {
			v = cf.Not(v)
		}
		result = cf.And(result, v)
	}
	return result, nil
}

// Derivation records one rule firing that improved a fact.
type Derivation struct {
	Pass        int     `json:"pass"`
	RuleIndex   int     `json:"rule_index"`
	Rule        kb.Rule `json:"rule"`
	ConditionCF float64 `json:"condition_cf"`
	Previous    float64 `json:"previous"`
	Result      float64 `json:"result"`
}

// SkippedRule records a rule that failed during a pass.
type SkippedRule struct {
	Pass      int    `json:"pass"`
	RuleIndex int    `json:"rule_index"`
	Then      string `json:"then"`
	Error     string `json:"error"`
}

// Result is the outcome of one inference run.
type Result struct {
	RunID       string             `json:"run_id"`
	Inferred    map[string]float64 `json:"inferred"`
	Facts       map[string]float64 `json:"all_facts"`
	Passes      int                `json:"passes"`
	Fixpoint    bool               `json:"fixpoint"`
	Derivations []Derivation       `json:"derivations"`
	Skipped     []SkippedRule      `json:"skipped,omitempty"`
}

// InferredNames returns newly inferred fact names, sorted.
func (r Result) InferredNames() []string {
	names := make([]string, 0, len(r.Inferred))
	for name := range r.Inferred {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Explain generates a human-readable derivation chain for fact.
func (r Result) Explain(fact string) string {
	last := r.lastDerivations()
	if _, ok := last[fact]; !ok {
		if v, known := r.Facts[fact]; known {
			return fmt.Sprintf("%s (%.2f) is given, not inferred in this run", fact, v)
		}
		return fmt.Sprintf("Cannot derive %s", fact)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inference chain for %s:\n", fact)
	step := 0
	visited := make(map[string]bool)

	var walk func(name string)
	walk = func(name string) {
		d, ok := last[name]
		if !ok || visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range condition.Names(d.Rule.If) {
			walk(dep)
		}
		step++
		fmt.Fprintf(&b, "  %d. %s => %s = %.2f × %.2f = %.4f (pass %d)\n",
			step, condition.String(d.Rule.If), d.Rule.Then,
			d.ConditionCF, d.Rule.CF, d.Result, d.Pass)
	}
	walk(fact)

	return b.String()
}

// lastDerivations keeps the final (highest) derivation per conclusion.
func (r Result) lastDerivations() map[string]Derivation {
	out := make(map[string]Derivation, len(r.Derivations))
	for _, d := range r.Derivations {
		out[d.Rule.Then] = d
	}
	return out
}
