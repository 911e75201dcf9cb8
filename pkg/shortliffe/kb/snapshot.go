package kb

import (
	"fmt"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/cf"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// Snapshot is the whole knowledge base as persisted and transmitted:
//
//	{"facts": {"name": 0.8}, "rules": [{"if": [...], "then": "x", "cf": 0.9}]}
type Snapshot struct {
	Facts map[string]float64 `json:"facts" yaml:"facts"`
	Rules []Rule             `json:"rules" yaml:"rules"`
}

// Validate checks every certainty factor, fact name and rule.
func (s Snapshot) Validate() error {
	for name, v := range s.Facts {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty fact name", internalerr.ErrInvalidInput)
		}
		if err := cf.Validate(v); err != nil {
			return fmt.Errorf("fact %q: %w", name, err)
		}
	}
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Snapshot exports a deep copy of the current state.
func (k *KnowledgeBase) Snapshot() Snapshot {
	return Snapshot{
		Facts: k.Facts(),
		Rules: k.Rules(),
	}
}

// LoadSnapshot replaces all facts and rules with s. It is not a merge.
// The snapshot is validated first; on error the knowledge base is unchanged.
func (k *KnowledgeBase) LoadSnapshot(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	facts := make(map[string]float64, len(s.Facts))
	for name, v := range s.Facts {
		facts[name] = v
	}
	rules := make([]Rule, len(s.Rules))
	for i, r := range s.Rules {
		rules[i] = r.clone()
	}

	k.facts = facts
	k.rules = rules
	return nil
}
