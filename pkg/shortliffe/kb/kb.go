// Package kb is the knowledge store: a fact table and an ordered rule list.
//
// A KnowledgeBase does no locking. Hosts that share one between goroutines
// must serialize access themselves (the shortliffe.System facade does).
package kb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/cf"
	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// Rule is IF conditions THEN conclusion, weighted by CF.
type Rule struct {
	If   []condition.Condition `json:"if" yaml:"if"`
	Then string                `json:"then" yaml:"then"`
	CF   float64               `json:"cf" yaml:"cf"`
}

// Validate checks the rule's certainty factor, conclusion and conditions.
func (r Rule) Validate() error {
	if err := cf.Validate(r.CF); err != nil {
		return fmt.Errorf("rule %q: %w", r.Then, err)
	}
	if strings.TrimSpace(r.Then) == "" {
		return fmt.Errorf("%w: empty conclusion", internalerr.ErrInvalidInput)
	}
	for _, c := range r.If {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Then, err)
		}
	}
	return nil
}

// String renders the rule as "IF ... THEN ... (cf)".
func (r Rule) String() string {
	return fmt.Sprintf("IF %s THEN %s (cf %.2f)", condition.String(r.If), r.Then, r.CF)
}

func (r Rule) clone() Rule {
	return Rule{If: condition.Clone(r.If), Then: r.Then, CF: r.CF}
}

// KnowledgeBase holds facts and rules.
type KnowledgeBase struct {
	parser *condition.Parser
	facts  map[string]float64
	rules  []Rule
}

// New creates an empty knowledge base. A nil parser means condition.DefaultParser().
func New(parser *condition.Parser) *KnowledgeBase {
	if parser == nil {
		parser = condition.DefaultParser()
	}
	return &KnowledgeBase{
		parser: parser,
		facts:  make(map[string]float64),
	}
}

// Parser returns the parser used for textual rule conditions.
func (k *KnowledgeBase) Parser() *condition.Parser { return k.parser }

// AddFact inserts or overwrites a fact.
func (k *KnowledgeBase) AddFact(name string, v float64) error {
	if err := cf.Validate(v); err != nil {
		return fmt.Errorf("fact %q: %w", name, err)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty fact name", internalerr.ErrInvalidInput)
	}
	k.facts[name] = v
	return nil
}

// EditFact renames and/or re-weights a fact. Nothing changes on error.
func (k *KnowledgeBase) EditFact(oldName, newName string, v float64) error {
	if err := cf.Validate(v); err != nil {
		return fmt.Errorf("fact %q: %w", newName, err)
	}
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("%w: empty fact name", internalerr.ErrInvalidInput)
	}
	delete(k.facts, oldName)
	k.facts[newName] = v
	return nil
}

// DeleteFact removes a fact; absent names are ignored.
func (k *KnowledgeBase) DeleteFact(name string) {
	delete(k.facts, name)
}

// Fact looks up one fact.
func (k *KnowledgeBase) Fact(name string) (float64, bool) {
	v, ok := k.facts[name]
	return v, ok
}

// Facts returns a copy of the fact table.
func (k *KnowledgeBase) Facts() map[string]float64 {
	out := make(map[string]float64, len(k.facts))
	for name, v := range k.facts {
		out[name] = v
	}
	return out
}

// FactNames returns fact names in sorted order.
func (k *KnowledgeBase) FactNames() []string {
	names := make([]string, 0, len(k.facts))
	for name := range k.facts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddRule parses conditions (text, list of names, mappings or nodes) and
// appends the rule.
func (k *KnowledgeBase) AddRule(conditions any, conclusion string, v float64) error {
	r, err := k.buildRule(conditions, conclusion, v)
	if err != nil {
		return err
	}
	k.rules = append(k.rules, r)
	return nil
}

// EditRule replaces the rule at index. Out-of-range indexes are ignored.
func (k *KnowledgeBase) EditRule(index int, conditions any, conclusion string, v float64) error {
	r, err := k.buildRule(conditions, conclusion, v)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(k.rules) {
		return nil
	}
	k.rules[index] = r
	return nil
}

func (k *KnowledgeBase) buildRule(conditions any, conclusion string, v float64) (Rule, error) {
	if err := cf.Validate(v); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", conclusion, err)
	}
	conclusion = strings.TrimSpace(conclusion)
	if conclusion == "" {
		return Rule{}, fmt.Errorf("%w: empty conclusion", internalerr.ErrInvalidInput)
	}
	conds, err := k.parser.Parse(conditions)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", conclusion, err)
	}
	if len(conds) == 0 {
		return Rule{}, fmt.Errorf("rule %q: %w: at least one condition is required",
			conclusion, internalerr.ErrInvalidCondition)
	}
	return Rule{If: conds, Then: conclusion, CF: v}, nil
}

// DeleteRule removes the rule at index. Out-of-range indexes are ignored.
func (k *KnowledgeBase) DeleteRule(index int) {
	if index < 0 || index >= len(k.rules) {
		return
	}
	k.rules = append(k.rules[:index], k.rules[index+1:]...)
}

// Rules returns a deep copy of the rule list.
func (k *KnowledgeBase) Rules() []Rule {
	out := make([]Rule, len(k.rules))
	for i, r := range k.rules {
		out[i] = r.clone()
	}
	return out
}

// RuleCount returns the number of rules.
func (k *KnowledgeBase) RuleCount() int { return len(k.rules) }

// Clear drops every fact and rule.
func (k *KnowledgeBase) Clear() {
	k.facts = make(map[string]float64)
	k.rules = nil
}
