// Package condition models the left-hand side of a rule: an ordered sequence
// of condition nodes, each testing one fact or a conjunctive group of facts.
//
// A node carries two independent operators. Negate complements the node's own
// value; Joiner says how the node combines with the node that follows it.
package condition

import (
	"fmt"
	"strings"
)

// Joiner combines a node with the next node in the sequence.
type Joiner int

const (
	// JoinNone is the joiner of the last node. It behaves like JoinAnd.
	JoinNone Joiner = iota
	JoinAnd
	JoinOr
)

func (j Joiner) String() string {
	switch j {
	case JoinAnd:
		return "AND"
	case JoinOr:
		return "OR"
	default:
		return ""
	}
}

// Target is what a node tests: one fact, or a group of facts that are
// evaluated together as one conjunctive unit.
type Target struct {
	names []string
	group bool
}

// Single targets one fact.
func Single(name string) Target {
	return Target{names: []string{name}}
}

// Group targets several facts at once. A one-member group still reports
// IsGroup, which is kept for bookkeeping only.
func Group(names ...string) Target {
	return Target{names: append([]string(nil), names...), group: true}
}

// IsGroup reports whether the target came from a group.
func (t Target) IsGroup() bool { return t.group }

// Len returns the number of fact names in the target.
func (t Target) Len() int { return len(t.names) }

// Name returns the first fact name, which is the only one for a single target.
func (t Target) Name() string {
	if len(t.names) == 0 {
		return ""
	}
	return t.names[0]
}

// Names returns a copy of the fact names.
func (t Target) Names() []string {
	return append([]string(nil), t.names...)
}

// Condition is one node of a rule's condition sequence.
type Condition struct {
	Target Target
	Negate bool
	Joiner Joiner
}

// Fact is shorthand for a plain, non-negated single-fact node.
func Fact(name string) Condition {
	return Condition{Target: Single(name)}
}

// Validate checks that the node references at least one non-empty fact name.
func (c Condition) Validate() error {
	if c.Target.Len() == 0 {
		return &Error{Entry: c, Err: errEmptyTarget}
	}
	for _, n := range c.Target.names {
		if strings.TrimSpace(n) == "" {
			return &Error{Entry: c, Err: errEmptyTarget}
		}
	}
	return nil
}

// Names flattens every fact name referenced by conds, groups expanded, in order.
func Names(conds []Condition) []string {
	var out []string
	for _, c := range conds {
		out = append(out, c.Target.names...)
	}
	return out
}

// Map returns a copy of conds with every fact name passed through fn.
func Map(conds []Condition, fn func(string) string) []Condition {
	out := make([]Condition, len(conds))
	for i, c := range conds {
		names := make([]string, len(c.Target.names))
		for j, n := range c.Target.names {
			names[j] = fn(n)
		}
		out[i] = Condition{
			Target: Target{names: names, group: c.Target.group},
			Negate: c.Negate,
			Joiner: c.Joiner,
		}
	}
	return out
}

// Clone deep-copies conds.
func Clone(conds []Condition) []Condition {
	if conds == nil {
		return nil
	}
	return Map(conds, func(s string) string { return s })
}

// Equivalent reports whether two sequences are structurally identical: same
// length, same facts in the same positions (groups compared as sets), same
// negation, and equivalent joiners where JoinNone equals JoinAnd.
func Equivalent(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Negate != b[i].Negate {
			return false
		}
		if normalize(a[i].Joiner) != normalize(b[i].Joiner) {
			return false
		}
		if !sameTarget(a[i].Target, b[i].Target) {
			return false
		}
	}
	return true
}

func normalize(j Joiner) Joiner {
	if j == JoinNone {
		return JoinAnd
	}
	return j
}

func sameTarget(a, b Target) bool {
	if a.Len() == 1 && b.Len() == 1 {
		return a.names[0] == b.names[0]
	}
	set := make(map[string]int, len(a.names))
	for _, n := range a.names {
		set[n]++
	}
	for _, n := range b.names {
		if set[n] == 0 {
			return false
		}
		set[n]--
	}
	for _, left := range set {
		if left != 0 {
			return false
		}
	}
	return true
}

// String renders conds back into text the parser accepts.
func String(conds []Condition) string {
	var b strings.Builder
	for i, c := range conds {
		if c.Negate {
			b.WriteString("NOT ")
		}
		if c.Target.group && c.Target.Len() > 1 {
			fmt.Fprintf(&b, "(%s)", strings.Join(c.Target.names, ", "))
		} else {
			b.WriteString(c.Target.Name())
		}
		if i < len(conds)-1 {
			b.WriteString(" ")
			b.WriteString(normalize(c.Joiner).String())
			b.WriteString(" ")
		}
	}
	return b.String()
}
