package condition

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

func TestEquivalent(t *testing.T) {
	base := []Condition{
		{Target: Single("A"), Joiner: JoinAnd},
		{Target: Group("B", "C"), Joiner: JoinOr},
		{Target: Single("D"), Negate: true},
	}

	tests := []struct {
		name  string
		other []Condition
		want  bool
	}{
		{"identical", Clone(base), true},
		{
			name: "group order does not matter, none equals and",
			other: []Condition{
				{Target: Single("A")},
				{Target: Group("C", "B"), Joiner: JoinOr},
				{Target: Single("D"), Negate: true, Joiner: JoinAnd},
			},
			want: true,
		},
		{"shorter", base[:2], false},
		{
			name: "different joiner",
			other: []Condition{
				{Target: Single("A"), Joiner: JoinOr},
				{Target: Group("B", "C"), Joiner: JoinOr},
				{Target: Single("D"), Negate: true},
			},
			want: false,
		},
		{
			name: "different negation",
			other: []Condition{
				{Target: Single("A"), Joiner: JoinAnd},
				{Target: Group("B", "C"), Joiner: JoinOr},
				{Target: Single("D")},
			},
			want: false,
		},
		{
			name: "different group members",
			other: []Condition{
				{Target: Single("A"), Joiner: JoinAnd},
				{Target: Group("B", "X"), Joiner: JoinOr},
				{Target: Single("D"), Negate: true},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equivalent(base, tt.other))
		})
	}

	// A one-member group compares equal to a plain fact.
	assert.True(t, Equivalent([]Condition{{Target: Group("A")}}, []Condition{Fact("A")}))
}

func TestNamesAndMap(t *testing.T) {
	conds := []Condition{
		{Target: Single("a"), Joiner: JoinOr},
		{Target: Group("b", "c")},
	}
	assert.Equal(t, []string{"a", "b", "c"}, Names(conds))

	upper := Map(conds, func(s string) string { return s + "!" })
	assert.Equal(t, []string{"a!", "b!", "c!"}, Names(upper))
	assert.Equal(t, JoinOr, upper[0].Joiner)
	assert.True(t, upper[1].Target.IsGroup())

	// The source list is untouched.
	assert.Equal(t, []string{"a", "b", "c"}, Names(conds))
}

func TestStringRoundTrip(t *testing.T) {
	p := DefaultParser()
	inputs := []string{
		"A AND B",
		"high fever OR NOT cough",
		"NOT (A, B) AND C",
		"(x, y) OR z AND w",
	}
	for _, in := range inputs {
		conds, err := p.ParseText(in)
		require.NoError(t, err)

		again, err := p.ParseText(String(conds))
		require.NoError(t, err)
		assert.Truef(t, Equivalent(conds, again), "%q -> %q", in, String(conds))
	}
}

func TestJSONCodec(t *testing.T) {
	conds := []Condition{
		{Target: Single("A"), Joiner: JoinAnd},
		{Target: Group("B", "C"), Joiner: JoinOr},
		{Target: Single("D"), Negate: true, Joiner: JoinOr},
		{Target: Group("E"), Negate: true},
	}

	data, err := json.Marshal(conds)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"fact": "A", "operator": "AND", "is_group": false},
		{"fact": ["B", "C"], "operator": "OR", "is_group": true},
		{"fact": "D", "operator": "OR", "is_group": false, "negate": true},
		{"fact": "E", "operator": "NOT", "is_group": true}
	]`, string(data))

	var back []Condition
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equivalent(conds, back))
	assert.True(t, back[1].Target.IsGroup())
	assert.True(t, back[3].Target.IsGroup())
	assert.Equal(t, 1, back[3].Target.Len())
}

func TestJSONDecodeErrors(t *testing.T) {
	var c Condition
	err := json.Unmarshal([]byte(`{"fact": "A", "operator": "XOR"}`), &c)
	assert.True(t, errors.Is(err, internalerr.ErrUnknownOperator), "got %v", err)

	err = json.Unmarshal([]byte(`{"fact": 7, "operator": ""}`), &c)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidCondition), "got %v", err)
}

func TestYAMLCodec(t *testing.T) {
	conds := []Condition{
		{Target: Group("лихорадка", "озноб"), Joiner: JoinAnd},
		{Target: Single("кашель"), Negate: true},
	}

	data, err := yaml.Marshal(conds)
	require.NoError(t, err)

	var back []Condition
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.True(t, Equivalent(conds, back))
}

func TestDecodePlainNames(t *testing.T) {
	var back []Condition
	require.NoError(t, json.Unmarshal([]byte(`["кашель", {"fact": "B", "operator": "OR", "is_group": false}, " C "]`), &back))
	require.Len(t, back, 3)
	assert.Equal(t, Fact("кашель"), back[0])
	assert.Equal(t, JoinOr, back[1].Joiner)
	assert.Equal(t, Fact("C"), back[2])

	var ys []Condition
	require.NoError(t, yaml.Unmarshal([]byte("- кашель\n- температура\n"), &ys))
	assert.Equal(t, []Condition{Fact("кашель"), Fact("температура")}, ys)

	var c Condition
	err := json.Unmarshal([]byte(`"  "`), &c)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidCondition), "got %v", err)
}

func TestNegatedJoinerRoundTrip(t *testing.T) {
	conds, err := DefaultParser().ParseText("NOT (A, B) AND C")
	require.NoError(t, err)
	require.True(t, conds[0].Negate)
	require.Equal(t, JoinAnd, conds[0].Joiner)

	data, err := json.Marshal(conds)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operator":"AND","is_group":true,"negate":true`)

	var back []Condition
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, conds, back)

	ydata, err := yaml.Marshal(conds)
	require.NoError(t, err)
	var yback []Condition
	require.NoError(t, yaml.Unmarshal(ydata, &yback))
	assert.Equal(t, conds, yback)
}
