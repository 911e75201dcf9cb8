package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
)

// Repository persists knowledge-base snapshots under a name.
type Repository interface {
	// List returns stored names, sorted.
	List(ctx context.Context) ([]string, error)
	// Load returns the snapshot stored under name, or ErrNotFound.
	Load(ctx context.Context, name string) (kb.Snapshot, error)
	// Save stores snap and returns the name it was stored under.
	Save(ctx context.Context, name string, snap kb.Snapshot) (string, error)
	// Delete removes name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error
	Close() error
}

// Known snapshot extensions.
const (
	ExtJSON = ".json"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

// NormalizeName validates a knowledge-base name and appends ".json" unless it
// already carries a known extension. Names may not contain path separators.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty knowledge base name", internalerr.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: invalid knowledge base name %q", internalerr.ErrInvalidInput, name)
	}
	if HasKnownExt(name) {
		return name, nil
	}
	return name + ExtJSON, nil
}

// HasKnownExt reports whether name ends in .json, .yaml or .yml.
func HasKnownExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtJSON, ExtYAML, ExtYML:
		return true
	}
	return false
}

// IsYAML reports whether name should be encoded as YAML.
func IsYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtYAML, ExtYML:
		return true
	}
	return false
}

// NotFound wraps ErrNotFound with the missing name.
func NotFound(name string) error {
	return fmt.Errorf("knowledge base %q: %w", name, internalerr.ErrNotFound)
}
