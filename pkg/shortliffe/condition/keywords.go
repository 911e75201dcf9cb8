package condition

import (
	"fmt"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// Keywords is the operator token table. Matching is case-insensitive.
type Keywords struct {
	And []string `yaml:"and" mapstructure:"and"`
	Or  []string `yaml:"or" mapstructure:"or"`
	Not []string `yaml:"not" mapstructure:"not"`
}

// DefaultKeywords accepts English and Russian spellings.
func DefaultKeywords() Keywords {
	return Keywords{
		And: []string{"and", "и"},
		Or:  []string{"or", "или"},
		Not: []string{"not", "не"},
	}
}

type keyword int

const (
	kwNone keyword = iota
	kwAnd
	kwOr
	kwNot
)

type keywordTable map[string]keyword

func (k Keywords) table() keywordTable {
	t := make(keywordTable)
	add := func(words []string, kw keyword) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				t[w] = kw
			}
		}
	}
	// Canonical spellings are always understood.
	add([]string{"and"}, kwAnd)
	add([]string{"or"}, kwOr)
	add([]string{"not"}, kwNot)
	add(k.And, kwAnd)
	add(k.Or, kwOr)
	add(k.Not, kwNot)
	return t
}

func (t keywordTable) lookup(word string) keyword {
	return t[strings.ToLower(word)]
}

// operator decodes the wire "operator" field into negation and joiner.
func (t keywordTable) operator(op string) (negate bool, j Joiner, err error) {
	op = strings.TrimSpace(op)
	if op == "" {
		return false, JoinNone, nil
	}
	switch t.lookup(op) {
	case kwAnd:
		return false, JoinAnd, nil
	case kwOr:
		return false, JoinOr, nil
	case kwNot:
		return true, JoinNone, nil
	}
	return false, JoinNone, fmt.Errorf("%w: %q", internalerr.ErrUnknownOperator, op)
}
