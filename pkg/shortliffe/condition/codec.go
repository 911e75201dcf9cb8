package condition

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// wire is the snapshot form of a node:
//
//	{"fact": "name" | ["a", "b"], "operator": "AND"|"OR"|"NOT"|"", "is_group": bool}
//
// "operator" is the joiner to the next node, except "NOT", which negates the
// last node. A negated node that is joined to the next one keeps its joiner in
// "operator" and sets "negate": true. A bare string decodes as a plain fact.
type wire struct {
	Fact     any    `json:"fact" yaml:"fact"`
	Operator string `json:"operator" yaml:"operator"`
	IsGroup  bool   `json:"is_group" yaml:"is_group"`
	Negate   bool   `json:"negate,omitempty" yaml:"negate,omitempty"`
}

var wireParser = DefaultParser()

func (c Condition) toWire() wire {
	w := wire{IsGroup: c.Target.group}
	if c.Target.Len() == 1 {
		w.Fact = c.Target.names[0]
	} else {
		w.Fact = c.Target.Names()
	}

	switch {
	case c.Negate && c.Joiner != JoinNone:
		w.Operator = c.Joiner.String()
		w.Negate = true
	case c.Negate:
		w.Operator = "NOT"
	default:
		w.Operator = c.Joiner.String()
	}
	return w
}

func (c *Condition) fromWire(w wire) error {
	built, err := wireParser.build(w.Fact, w.Operator, w.IsGroup, w.Negate, w)
	if err != nil {
		return err
	}
	*c = built
	return nil
}

func (c *Condition) fromName(name string) error {
	built := Fact(strings.TrimSpace(name))
	if err := built.Validate(); err != nil {
		return err
	}
	*c = built
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toWire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return c.fromName(name)
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return c.fromWire(w)
}

// MarshalYAML implements yaml.Marshaler.
func (c Condition) MarshalYAML() (any, error) {
	return c.toWire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return c.fromName(value.Value)
	}

	var w wire
	if err := value.Decode(&w); err != nil {
		return err
	}
	return c.fromWire(w)
}
