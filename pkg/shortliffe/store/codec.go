package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
)

// Encode renders snap as JSON (indent 2, no HTML escaping) or, for YAML
// names, as YAML.
func Encode(name string, snap kb.Snapshot) ([]byte, error) {
	snap = normalizeSnapshot(snap)
	if IsYAML(name) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Decode parses data according to the extension of name.
func Decode(name string, data []byte) (kb.Snapshot, error) {
	var snap kb.Snapshot
	var err error
	if IsYAML(name) {
		err = yaml.Unmarshal(data, &snap)
	} else {
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return kb.Snapshot{}, fmt.Errorf("%w: decode %s: %w", internalerr.ErrInvalidInput, name, err)
	}
	return normalizeSnapshot(snap), nil
}

func normalizeSnapshot(snap kb.Snapshot) kb.Snapshot {
	if snap.Facts == nil {
		snap.Facts = map[string]float64{}
	}
	if snap.Rules == nil {
		snap.Rules = []kb.Rule{}
	}
	return snap
}
