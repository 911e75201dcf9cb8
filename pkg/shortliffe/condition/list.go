package condition

import (
	"strings"
)

// Parse accepts any supported condition input:
//
//   - string: a free-text expression (see ParseText)
//   - []string: plain fact names joined with AND
//   - []Condition: already-built nodes, copied
//   - []map[string]any or []any: wire-form mappings and/or plain names
//
// Anything else, or any list entry that is neither a string nor a mapping,
// fails with an *Error wrapping internalerr.ErrInvalidCondition.
func (p *Parser) Parse(input any) ([]Condition, error) {
	switch v := input.(type) {
	case string:
		return p.ParseText(v)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return p.parseList(items)
	case []Condition:
		for _, c := range v {
			if err := c.Validate(); err != nil {
				return nil, err
			}
		}
		return Clone(v), nil
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return p.parseList(items)
	case []any:
		return p.parseList(v)
	default:
		return nil, &Error{Entry: input, Err: errUnsupported}
	}
}

func (p *Parser) parseList(items []any) ([]Condition, error) {
	out := make([]Condition, 0, len(items))
	plain := true

	for _, item := range items {
		switch v := item.(type) {
		case string:
			name := strings.TrimSpace(v)
			if name == "" {
				continue
			}
			out = append(out, Fact(name))
		case map[string]any:
			plain = false
			c, err := p.fromMap(v)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case Condition:
			plain = false
			if err := v.Validate(); err != nil {
				return nil, err
			}
			out = append(out, Clone([]Condition{v})[0])
		default:
			return nil, &Error{Entry: item, Err: errUnsupported}
		}
	}

	// A flat list of names is an implicit conjunction.
	if plain {
		for i := 0; i < len(out)-1; i++ {
			out[i].Joiner = JoinAnd
		}
	}
	return out, nil
}

func (p *Parser) fromMap(m map[string]any) (Condition, error) {
	fact, ok := m["fact"]
	if !ok {
		return Condition{}, &Error{Entry: m, Err: errMissingFact}
	}

	var op string
	if raw, ok := m["operator"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return Condition{}, &Error{Entry: m, Err: errUnknownOperatorType}
		}
		op = s
	}

	isGroup, _ := m["is_group"].(bool)
	negate, _ := m["negate"].(bool)

	return p.build(fact, op, isGroup, negate, m)
}

// build assembles a node from wire fields. entry is reported on failure.
func (p *Parser) build(fact any, op string, isGroup, negate bool, entry any) (Condition, error) {
	opNegate, joiner, err := p.keywords.operator(op)
	if err != nil {
		return Condition{}, &Error{Entry: entry, Err: err}
	}

	var target Target
	switch v := fact.(type) {
	case string:
		if isGroup {
			target = Group(v)
		} else {
			target = Single(v)
		}
	case []string:
		target = Group(v...)
	case []any:
		names := make([]string, 0, len(v))
		for _, n := range v {
			s, ok := n.(string)
			if !ok {
				return Condition{}, &Error{Entry: entry, Err: errBadFactValue}
			}
			names = append(names, s)
		}
		target = Group(names...)
	default:
		return Condition{}, &Error{Entry: entry, Err: errBadFactValue}
	}

	c := Condition{Target: target, Negate: negate || opNegate, Joiner: joiner}
	if err := c.Validate(); err != nil {
		return Condition{}, &Error{Entry: entry, Err: errEmptyTarget}
	}
	return c, nil
}
