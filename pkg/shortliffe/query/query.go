// Package query answers free-text questions against a knowledge base.
//
// A query is parsed with the knowledge base's condition parser, every phrase
// is fuzzily aligned with a stored fact, and rules whose conditions are met by
// the matched facts are reported as ranked conclusions. When nothing fires the
// report lists near misses: rules that are partly covered by the input.
package query

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/shortliffe/pkg/shortliffe/cf"
	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
)

// Strategy decides when a rule counts as satisfied by a query.
type Strategy string

const (
	// StrategyStructural requires the query to have the same condition
	// structure as the rule, with every rule fact matched positively.
	StrategyStructural Strategy = "structural"
	// StrategySubset only requires every rule fact to be matched positively.
	StrategySubset Strategy = "subset"
)

// ParseStrategy converts a config value into a Strategy. Empty means
// structural.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyStructural:
		return StrategyStructural, nil
	case StrategySubset:
		return StrategySubset, nil
	default:
		return "", fmt.Errorf("%w: unknown query strategy %q", internalerr.ErrInvalidInput, s)
	}
}

// emptyQueryHint is shown when the query has no usable phrases.
const emptyQueryHint = "enter facts separated by commas (for example: cough, fever, runny nose)"

// KnowledgeBase is what the matcher reads. It never writes.
type KnowledgeBase interface {
	Facts() map[string]float64
	Rules() []kb.Rule
	Parser() *condition.Parser
}

// MatchedItem links one query phrase to the stored fact it matched.
type MatchedItem struct {
	Input       string  `json:"input"`
	MatchedFact *string `json:"matched_fact"`
	CF          float64 `json:"cf"`
	Negated     bool    `json:"negated,omitempty"`
}

// Conclusion is a rule conclusion reached by the query.
type Conclusion struct {
	Fact        string             `json:"conclusion"`
	CF          float64            `json:"cf"`
	Level       cf.Level           `json:"confidence"`
	RuleIndex   int                `json:"rule_index"`
	RuleCF      float64            `json:"rule_cf"`
	ConditionCF float64            `json:"condition_cf"`
	Breakdown   map[string]float64 `json:"breakdown"`
	Explanation string             `json:"explanation"`
}

// NearMiss is a rule the input covered only in part.
type NearMiss struct {
	RuleIndex int      `json:"rule_index"`
	Then      string   `json:"conclusion"`
	Matched   []string `json:"matched"`
	Missing   []string `json:"missing"`
	Coverage  float64  `json:"coverage"`
}

// Report is the read-only outcome of one query.
type Report struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Items       []MatchedItem `json:"matched_items"`
	Conclusions []Conclusion  `json:"conclusions"`
	NearMisses  []NearMiss    `json:"near_misses,omitempty"`

	err error
}

// Err returns the failure behind an unsuccessful report, or nil.
func (r Report) Err() error { return r.err }

// Matcher builds query reports.
type Matcher struct {
	strategy Strategy

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithStrategy selects how rules are matched. Empty keeps the default.
func WithStrategy(s Strategy) Option {
	return func(m *Matcher) {
		if s != "" {
			m.strategy = s
		}
	}
}

// New creates a matcher using the structural strategy by default.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		strategy: StrategyStructural,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Strategy returns the configured rule-matching strategy.
func (m *Matcher) Strategy() Strategy { return m.strategy }

func (m *Matcher) newID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ulid.MustNew(ulid.Now(), m.entropy).String()
}

// Match answers text against k. User input problems are reported through an
// unsuccessful Report, never as an error.
func (m *Matcher) Match(text string, k KnowledgeBase) Report {
	rep := Report{
		ID:          m.newID(),
		Query:       text,
		Items:       []MatchedItem{},
		Conclusions: []Conclusion{},
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return rep.fail(fmt.Errorf("%w: %s", internalerr.ErrEmptyQuery, emptyQueryHint))
	}

	parser := k.Parser()
	if parser == nil {
		parser = condition.DefaultParser()
	}
	conds, err := parser.ParseText(trimmed)
	if err != nil {
		return rep.fail(err)
	}
	if len(conds) == 0 {
		return rep.fail(fmt.Errorf("%w: %s", internalerr.ErrEmptyQuery, emptyQueryHint))
	}

	facts := k.Facts()
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	sort.Strings(names)

	resolved := make(map[string]string)
	// positive maps a matched stored fact to the best item CF seen for it.
	positive := make(map[string]float64)
	matchedRaw := make(inference.FactMap)

	for _, c := range conds {
		for _, phrase := range c.Target.Names() {
			item := MatchedItem{Input: phrase, Negated: c.Negate}
			if name, ok := MatchFact(phrase, names); ok {
				resolved[phrase] = name
				matched := name
				item.MatchedFact = &matched
				item.CF = facts[name]
				if c.Negate {
					item.CF = cf.Not(item.CF)
				}
				matchedRaw[name] = facts[name]
				if item.CF > 0 && item.CF >= positive[name] {
					positive[name] = item.CF
				}
			}
			rep.Items = append(rep.Items, item)
		}
	}

	shape := condition.Map(conds, func(phrase string) string {
		if name, ok := resolved[phrase]; ok {
			return name
		}
		return phrase
	})

	rules := k.Rules()
	best := make(map[string]int)
	for i, r := range rules {
		if !m.satisfied(shape, r, positive) {
			continue
		}
		condCF, err := inference.Evaluate(r.If, matchedRaw)
		if err != nil {
			continue
		}
		c := Conclusion{
			Fact:        r.Then,
			CF:          condCF * r.CF,
			RuleIndex:   i,
			RuleCF:      r.CF,
			ConditionCF: condCF,
			Breakdown:   make(map[string]float64),
		}
		c.Level = cf.LevelOf(c.CF)
		for _, name := range condition.Names(r.If) {
			c.Breakdown[name] = positive[name]
		}
		c.Explanation = fmt.Sprintf("%s => %s: %.2f × %.2f = %.2f",
			condition.String(r.If), r.Then, condCF, r.CF, c.CF)

		if j, seen := best[r.Then]; seen {
			if c.CF > rep.Conclusions[j].CF {
				rep.Conclusions[j] = c
			}
			continue
		}
		best[r.Then] = len(rep.Conclusions)
		rep.Conclusions = append(rep.Conclusions, c)
	}

	sort.SliceStable(rep.Conclusions, func(i, j int) bool {
		a, b := rep.Conclusions[i], rep.Conclusions[j]
		if a.CF != b.CF {
			return a.CF > b.CF
		}
		return a.Fact < b.Fact
	})

	if len(rep.Conclusions) == 0 {
		rep.NearMisses = nearMisses(rules, positive)
	}

	rep.Success = true
	return rep
}

func (r Report) fail(err error) Report {
	r.Success = false
	r.Error = err.Error()
	r.err = err
	return r
}

func (m *Matcher) satisfied(shape []condition.Condition, r kb.Rule, positive map[string]float64) bool {
	names := condition.Names(r.If)
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		if _, ok := positive[name]; !ok {
			return false
		}
	}
	if m.strategy == StrategySubset {
		return true
	}
	return condition.Equivalent(shape, r.If)
}

func nearMisses(rules []kb.Rule, positive map[string]float64) []NearMiss {
	var out []NearMiss
	for i, r := range rules {
		seen := make(map[string]bool)
		var matched, missing []string
		for _, name := range condition.Names(r.If) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := positive[name]; ok {
				matched = append(matched, name)
			} else {
				missing = append(missing, name)
			}
		}
		if len(matched) == 0 || len(missing) == 0 {
			continue
		}
		out = append(out, NearMiss{
			RuleIndex: i,
			Then:      r.Then,
			Matched:   matched,
			Missing:   missing,
			Coverage:  float64(len(matched)) / float64(len(matched)+len(missing)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Coverage > out[j].Coverage
	})
	return out
}
