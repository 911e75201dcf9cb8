package kb

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

func TestAddFact(t *testing.T) {
	k := New(nil)

	require.NoError(t, k.AddFact("fever", 0.7))
	require.NoError(t, k.AddFact("fever", 0.9))

	v, ok := k.Fact("fever")
	assert.True(t, ok)
	assert.Equal(t, 0.9, v)

	err := k.AddFact("cough", 1.5)
	assert.True(t, errors.Is(err, internalerr.ErrOutOfRangeCF), "got %v", err)
	_, ok = k.Fact("cough")
	assert.False(t, ok, "rejected fact must not be stored")

	err = k.AddFact("  ", 0.5)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	for _, v := range k.Facts() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestDeleteFactMissingIsNoop(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("a", 0.5))

	k.DeleteFact("missing")
	k.DeleteFact("a")

	assert.Empty(t, k.Facts())
}

func TestEditFact(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("temp", 0.4))

	require.NoError(t, k.EditFact("temp", "high temperature", 0.6))
	_, ok := k.Fact("temp")
	assert.False(t, ok)
	v, ok := k.Fact("high temperature")
	assert.True(t, ok)
	assert.Equal(t, 0.6, v)

	// Editing a missing fact just adds the new one.
	require.NoError(t, k.EditFact("nope", "rash", 0.3))
	_, ok = k.Fact("rash")
	assert.True(t, ok)

	// Invalid CF leaves the old fact in place.
	err := k.EditFact("rash", "rash2", -1)
	assert.True(t, errors.Is(err, internalerr.ErrOutOfRangeCF))
	_, ok = k.Fact("rash")
	assert.True(t, ok)
}

func TestAddRule(t *testing.T) {
	k := New(nil)

	require.NoError(t, k.AddRule("fever AND cough", "flu", 0.8))
	require.NoError(t, k.AddRule([]string{"sneezing", "runny nose"}, "cold", 0.7))
	require.NoError(t, k.AddRule([]any{
		map[string]any{"fact": "rash", "operator": "OR"},
		map[string]any{"fact": "itch"},
	}, "allergy", 0.6))

	rules := k.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, "flu", rules[0].Then)
	assert.Equal(t, []string{"fever", "cough"}, condition.Names(rules[0].If))
	assert.Equal(t, condition.JoinAnd, rules[1].If[0].Joiner)
	assert.Equal(t, condition.JoinOr, rules[2].If[0].Joiner)

	// Copies are independent of the store.
	rules[0].Then = "changed"
	assert.Equal(t, "flu", k.Rules()[0].Then)
}

func TestAddRuleErrors(t *testing.T) {
	k := New(nil)

	tests := []struct {
		name       string
		conditions any
		conclusion string
		cf         float64
		wantErr    error
	}{
		{"cf out of range", "a", "b", 1.2, internalerr.ErrOutOfRangeCF},
		{"empty conclusion", "a", " ", 0.5, internalerr.ErrInvalidInput},
		{"bad entry", []any{"a", 3}, "b", 0.5, internalerr.ErrInvalidCondition},
		{"unknown operator", []any{map[string]any{"fact": "a", "operator": "XOR"}}, "b", 0.5, internalerr.ErrUnknownOperator},
		{"no conditions", " , ", "b", 0.5, internalerr.ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := k.AddRule(tt.conditions, tt.conclusion, tt.cf)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
	assert.Equal(t, 0, k.RuleCount(), "rejected rules must not be added")
}

func TestDeleteRuleBounds(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddRule("a", "x", 1))
	require.NoError(t, k.AddRule("b", "y", 1))
	require.NoError(t, k.AddRule("c", "z", 1))

	k.DeleteRule(-1)
	k.DeleteRule(k.RuleCount())
	assert.Equal(t, 3, k.RuleCount())

	k.DeleteRule(1)
	rules := k.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "x", rules[0].Then)
	assert.Equal(t, "z", rules[1].Then)
}

func TestEditRule(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddRule("a", "x", 0.5))

	require.NoError(t, k.EditRule(0, "a OR b", "y", 0.9))
	r := k.Rules()[0]
	assert.Equal(t, "y", r.Then)
	assert.Equal(t, 0.9, r.CF)
	assert.Equal(t, condition.JoinOr, r.If[0].Joiner)

	// Out of range: ignored.
	require.NoError(t, k.EditRule(5, "c", "z", 0.1))
	assert.Equal(t, 1, k.RuleCount())

	// Invalid input is still reported.
	err := k.EditRule(0, "c", "z", 2)
	assert.True(t, errors.Is(err, internalerr.ErrOutOfRangeCF))
}

func TestSnapshotRoundTrip(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("A", 0.8))
	require.NoError(t, k.AddFact("сильный кашель", 0.6))
	require.NoError(t, k.AddRule("A AND NOT (B, C)", "D", 0.9))
	require.NoError(t, k.AddRule("A OR B", "E", 1))

	data, err := json.Marshal(k.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	other := New(nil)
	require.NoError(t, other.LoadSnapshot(snap))

	assert.Equal(t, k.Facts(), other.Facts())
	assertSameRules(t, k.Rules(), other.Rules())

	// YAML too.
	ydata, err := yaml.Marshal(k.Snapshot())
	require.NoError(t, err)
	var ysnap Snapshot
	require.NoError(t, yaml.Unmarshal(ydata, &ysnap))
	third := New(nil)
	require.NoError(t, third.LoadSnapshot(ysnap))
	assert.Equal(t, k.Facts(), third.Facts())
	assertSameRules(t, k.Rules(), third.Rules())
}

func TestSnapshotWireFormat(t *testing.T) {
	raw := `{
		"facts": {"A": 0.8, "B": 0.6},
		"rules": [
			{"if": [{"fact": "A", "operator": "AND", "is_group": false},
			        {"fact": "B", "operator": "", "is_group": false}],
			 "then": "C", "cf": 0.9},
			{"if": [{"fact": ["A", "B"], "operator": "NOT", "is_group": true}],
			 "then": "D", "cf": 1.0}
		]
	}`

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))

	k := New(nil)
	require.NoError(t, k.LoadSnapshot(snap))
	rules := k.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "A AND B", condition.String(rules[0].If))
	assert.True(t, rules[1].If[0].Negate)
	assert.True(t, rules[1].If[0].Target.IsGroup())
}

func TestLoadSnapshotReplaces(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("old", 0.5))
	require.NoError(t, k.AddRule("old", "older", 0.5))

	require.NoError(t, k.LoadSnapshot(Snapshot{Facts: map[string]float64{"new": 0.1}}))
	assert.Equal(t, map[string]float64{"new": 0.1}, k.Facts())
	assert.Equal(t, 0, k.RuleCount())
}

func TestLoadSnapshotInvalidLeavesStateAlone(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("keep", 0.5))

	err := k.LoadSnapshot(Snapshot{Facts: map[string]float64{"bad": 3}})
	assert.True(t, errors.Is(err, internalerr.ErrOutOfRangeCF))

	err = k.LoadSnapshot(Snapshot{Rules: []Rule{{Then: "x", CF: -0.5}}})
	assert.True(t, errors.Is(err, internalerr.ErrOutOfRangeCF))

	err = k.LoadSnapshot(Snapshot{Rules: []Rule{{Then: "", CF: 0.5}}})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	assert.Equal(t, map[string]float64{"keep": 0.5}, k.Facts())
}

func TestClear(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("a", 0.5))
	require.NoError(t, k.AddRule("a", "b", 0.5))

	k.Clear()
	assert.Empty(t, k.Facts())
	assert.Equal(t, 0, k.RuleCount())

	snap := k.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"facts": {}, "rules": []}`, string(data))
}

func assertSameRules(t *testing.T, want, got []Rule) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Then, got[i].Then)
		assert.Equal(t, want[i].CF, got[i].CF)
		assert.Truef(t, condition.Equivalent(want[i].If, got[i].If),
			"rule %d: %s vs %s", i, want[i], got[i])
	}
}

func TestSnapshotRoundTripIsExact(t *testing.T) {
	k := New(nil)
	require.NoError(t, k.AddFact("C", 0.7))
	require.NoError(t, k.AddRule("NOT (A, B) AND C", "D", 0.8))
	require.NoError(t, k.AddRule("A OR NOT B OR C", "E", 0.5))
	snap := k.Snapshot()

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var fromJSON Snapshot
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, snap, fromJSON)

	ydata, err := yaml.Marshal(snap)
	require.NoError(t, err)
	var fromYAML Snapshot
	require.NoError(t, yaml.Unmarshal(ydata, &fromYAML))
	assert.Equal(t, snap, fromYAML)
}
