package condition

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

var cmpTarget = cmp.AllowUnexported(Target{})

func and(name string) Condition { return Condition{Target: Single(name), Joiner: JoinAnd} }
func or(name string) Condition  { return Condition{Target: Single(name), Joiner: JoinOr} }

func TestParseText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Condition
	}{
		{
			name:  "and",
			input: "A AND B",
			want:  []Condition{and("A"), Fact("B")},
		},
		{
			name:  "or lowercase",
			input: "A or B",
			want:  []Condition{or("A"), Fact("B")},
		},
		{
			name:  "not",
			input: "NOT A",
			want:  []Condition{{Target: Single("A"), Negate: true}},
		},
		{
			name:  "not binds to the following node",
			input: "A AND NOT B",
			want:  []Condition{and("A"), {Target: Single("B"), Negate: true}},
		},
		{
			name:  "double negation cancels",
			input: "NOT NOT A",
			want:  []Condition{Fact("A")},
		},
		{
			name:  "commas are implicit conjunctions",
			input: "кашель, температура, насморк",
			want:  []Condition{and("кашель"), and("температура"), Fact("насморк")},
		},
		{
			name:  "adjacent words form one phrase",
			input: "high fever, dry cough",
			want:  []Condition{and("high fever"), Fact("dry cough")},
		},
		{
			name:  "explicit keyword after comma wins",
			input: "A, OR B",
			want:  []Condition{or("A"), Fact("B")},
		},
		{
			name:  "stray separators are ignored",
			input: " , A,, B , ",
			want:  []Condition{and("A"), Fact("B")},
		},
		{
			name:  "leading operator is ignored",
			input: "OR A",
			want:  []Condition{Fact("A")},
		},
		{
			name:  "group",
			input: "(A, B) OR C",
			want: []Condition{
				{Target: Group("A", "B"), Joiner: JoinOr},
				Fact("C"),
			},
		},
		{
			name:  "negated group",
			input: "NOT (A, B)",
			want:  []Condition{{Target: Group("A", "B"), Negate: true}},
		},
		{
			name:  "nested groups flatten",
			input: "(A, (B, C))",
			want:  []Condition{{Target: Group("A", "B", "C")}},
		},
		{
			name:  "one-member group keeps bookkeeping",
			input: "(A)",
			want:  []Condition{{Target: Group("A")}},
		},
		{
			name:  "empty group is dropped",
			input: "A, (), B",
			want:  []Condition{and("A"), Fact("B")},
		},
		{
			name:  "implicit and between group and fact",
			input: "(A, B) C",
			want: []Condition{
				{Target: Group("A", "B"), Joiner: JoinAnd},
				Fact("C"),
			},
		},
		{
			name:  "localized keywords",
			input: "a и b или не c",
			want: []Condition{
				and("a"),
				or("b"),
				{Target: Single("c"), Negate: true},
			},
		},
		{
			name:  "empty input",
			input: "   ",
			want:  nil,
		},
	}

	p := DefaultParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseText(tt.input)
			if err != nil {
				t.Fatalf("ParseText(%q): %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got, cmpTarget); diff != "" {
				t.Errorf("ParseText(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseTextUnbalanced(t *testing.T) {
	p := DefaultParser()
	for _, input := range []string{"A (B", "A) B", "((A)"} {
		_, err := p.ParseText(input)
		if !errors.Is(err, internalerr.ErrInvalidCondition) {
			t.Errorf("ParseText(%q): expected ErrInvalidCondition, got %v", input, err)
		}
	}
}

func TestCustomKeywords(t *testing.T) {
	p := NewParser(Keywords{And: []string{"und"}, Or: []string{"oder"}, Not: []string{"nicht"}})

	got, err := p.ParseText("A und B oder nicht C")
	if err != nil {
		t.Fatal(err)
	}
	want := []Condition{and("A"), or("B"), {Target: Single("C"), Negate: true}}
	if diff := cmp.Diff(want, got, cmpTarget); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Russian spellings are not part of this table, so "и" is a word.
	got, err = p.ParseText("A и B")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Target.Name() != "A и B" {
		t.Errorf("expected a single phrase, got %+v", got)
	}
}

func TestParseList(t *testing.T) {
	p := DefaultParser()

	t.Run("plain names", func(t *testing.T) {
		got, err := p.Parse([]string{"A", " ", "B"})
		if err != nil {
			t.Fatal(err)
		}
		want := []Condition{and("A"), Fact("B")}
		if diff := cmp.Diff(want, got, cmpTarget); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mappings", func(t *testing.T) {
		got, err := p.Parse([]any{
			map[string]any{"fact": "A", "operator": "OR", "is_group": false},
			map[string]any{"fact": []any{"B", "C"}, "operator": "NOT", "is_group": true},
			map[string]any{"fact": "D", "is_group": true},
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []Condition{
			or("A"),
			{Target: Group("B", "C"), Negate: true},
			{Target: Group("D")},
		}
		if diff := cmp.Diff(want, got, cmpTarget); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("conditions are copied", func(t *testing.T) {
		in := []Condition{{Target: Group("A", "B")}}
		got, err := p.Parse(in)
		if err != nil {
			t.Fatal(err)
		}
		if !Equivalent(in, got) {
			t.Errorf("expected equivalent copy, got %+v", got)
		}
	})

	t.Run("text", func(t *testing.T) {
		got, err := p.Parse("A OR B")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Joiner != JoinOr {
			t.Errorf("unexpected result %+v", got)
		}
	})
}

func TestParseListErrors(t *testing.T) {
	p := DefaultParser()

	tests := []struct {
		name    string
		input   any
		wantErr error
		mention string
	}{
		{"non-string entry", []any{"A", 42}, internalerr.ErrInvalidCondition, "42"},
		{"unsupported input", 3.14, internalerr.ErrInvalidCondition, "3.14"},
		{"missing fact", []any{map[string]any{"operator": "AND"}}, internalerr.ErrInvalidCondition, "operator"},
		{"empty fact", []any{map[string]any{"fact": ""}}, internalerr.ErrInvalidCondition, ""},
		{"bad group member", []any{map[string]any{"fact": []any{"A", 1}}}, internalerr.ErrInvalidCondition, ""},
		{"unknown operator", []any{map[string]any{"fact": "A", "operator": "XOR"}}, internalerr.ErrUnknownOperator, "XOR"},
		{"operator not a string", []any{map[string]any{"fact": "A", "operator": 1}}, internalerr.ErrUnknownOperator, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q should mention %q", err.Error(), tt.mention)
			}
			if !IsConditionError(err) {
				t.Error("IsConditionError should be true")
			}
		})
	}
}
