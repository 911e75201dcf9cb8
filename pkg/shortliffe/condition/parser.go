package condition

import (
	"strings"
)

// Parser turns rule and query input into condition sequences.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	keywords keywordTable
}

// NewParser creates a parser for the given keyword table.
func NewParser(kw Keywords) *Parser {
	return &Parser{keywords: kw.table()}
}

// DefaultParser uses DefaultKeywords.
func DefaultParser() *Parser {
	return NewParser(DefaultKeywords())
}

// ParseText parses a free-text expression.
//
// Grammar:
//
//	sequence := item ( [ "," | AND | OR ] item )*
//	item     := NOT* ( phrase | "(" sequence ")" )
//	phrase   := word+            (adjacent non-keyword words)
//
// A comma is an implicit AND; an explicit keyword after it wins. Everything
// inside parentheses is flattened into one group node. Empty groups are
// dropped, stray separators are ignored.
func (p *Parser) ParseText(text string) ([]Condition, error) {
	st := &textParser{
		toks:     tokenize(text),
		keywords: p.keywords,
	}
	conds, err := st.sequence(0)
	if err != nil {
		return nil, &Error{Entry: text, Err: err}
	}
	return conds, nil
}

type textParser struct {
	toks     []token
	pos      int
	keywords keywordTable
}

// sequence parses until the end of input (depth 0) or the matching ")".
func (p *textParser) sequence(depth int) ([]Condition, error) {
	var (
		out     []Condition
		negate  bool
		pending = JoinNone
	)

	push := func(c Condition) {
		if len(out) > 0 {
			j := pending
			if j == JoinNone {
				j = JoinAnd
			}
			out[len(out)-1].Joiner = j
		}
		out = append(out, c)
		pending = JoinNone
		negate = false
	}

	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]

		switch tok.kind {
		case tokClose:
			if depth == 0 {
				return nil, errUnbalanced
			}
			p.pos++
			return out, nil

		case tokOpen:
			p.pos++
			inner, err := p.sequence(depth + 1)
			if err != nil {
				return nil, err
			}
			names := Names(inner)
			if len(names) == 0 {
				negate = false
				continue
			}
			push(Condition{Target: Group(names...), Negate: negate})

		case tokComma:
			p.pos++
			if len(out) > 0 && pending == JoinNone {
				pending = JoinAnd
			}

		case tokWord:
			switch p.keywords.lookup(tok.text) {
			case kwAnd:
				p.pos++
				if len(out) > 0 {
					pending = JoinAnd
				}
			case kwOr:
				p.pos++
				if len(out) > 0 {
					pending = JoinOr
				}
			case kwNot:
				p.pos++
				negate = !negate
			default:
				push(Condition{Target: Single(p.phrase()), Negate: negate})
			}
		}
	}

	if depth > 0 {
		return nil, errUnbalanced
	}
	return out, nil
}

// phrase consumes adjacent non-keyword words and joins them with one space.
func (p *textParser) phrase() string {
	var words []string
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		if tok.kind != tokWord || p.keywords.lookup(tok.text) != kwNone {
			break
		}
		words = append(words, tok.text)
		p.pos++
	}
	return strings.Join(words, " ")
}
