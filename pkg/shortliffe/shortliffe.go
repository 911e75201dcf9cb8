// Package shortliffe ties the certainty-factor engine together: one
// knowledge base, an inference engine, a query matcher and a snapshot
// repository behind a single lock.
package shortliffe

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference/forward"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/query"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

// System is the expert-system facade. All methods are safe for concurrent
// use; they are serialized on one mutex.
type System struct {
	mu      sync.Mutex
	kb      *kb.KnowledgeBase
	repo    store.Repository
	engine  inference.Engine
	matcher *query.Matcher
	logger  *zap.Logger
	current string
}

// Options configures a System instance. Nil fields get defaults, except
// Repository: without one the persistence methods return ErrStoreUnavailable.
type Options struct {
	Repository store.Repository
	Engine     inference.Engine
	Matcher    *query.Matcher
	Parser     *condition.Parser
	Logger     *zap.Logger
}

// New creates a System with the given dependencies
func New(opts Options) *System {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = forward.New(forward.WithLogger(logger))
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = query.New()
	}
	return &System{
		kb:      kb.New(opts.Parser),
		repo:    opts.Repository,
		engine:  engine,
		matcher: matcher,
		logger:  logger,
	}
}

// Close cleanly shuts down the repository.
func (s *System) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

// Current returns the name of the knowledge base last loaded or saved.
func (s *System) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AddFact inserts or overwrites a fact.
func (s *System) AddFact(name string, v float64) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kb.AddFact(name, v); err != nil {
		return nil, err
	}
	return s.kb.Facts(), nil
}

// EditFact renames and re-weights a fact.
func (s *System) EditFact(oldName, newName string, v float64) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kb.EditFact(oldName, newName, v); err != nil {
		return nil, err
	}
	return s.kb.Facts(), nil
}

// DeleteFact removes a fact if present.
func (s *System) DeleteFact(name string) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb.DeleteFact(name)
	return s.kb.Facts()
}

// Facts returns a copy of the fact table.
func (s *System) Facts() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Facts()
}

// AddRule appends a rule. conditions is free text or a condition list.
func (s *System) AddRule(conditions any, conclusion string, v float64) ([]kb.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kb.AddRule(conditions, conclusion, v); err != nil {
		return nil, err
	}
	return s.kb.Rules(), nil
}

// EditRule replaces the rule at index. Out-of-range indexes are ignored.
func (s *System) EditRule(index int, conditions any, conclusion string, v float64) ([]kb.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kb.EditRule(index, conditions, conclusion, v); err != nil {
		return nil, err
	}
	return s.kb.Rules(), nil
}

// DeleteRule removes the rule at index. Out-of-range indexes are ignored.
func (s *System) DeleteRule(index int) []kb.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb.DeleteRule(index)
	return s.kb.Rules()
}

// Rules returns a copy of the rule list.
func (s *System) Rules() []kb.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Rules()
}

// State exports the current knowledge base.
func (s *System) State() kb.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Snapshot()
}

// Replace loads snap as the current knowledge base.
func (s *System) Replace(snap kb.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.LoadSnapshot(snap)
}

// Clear drops every fact and rule.
func (s *System) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb.Clear()
	s.current = ""
}

// Infer runs forward chaining and stores derived facts.
func (s *System) Infer() inference.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.engine.Infer(s.kb)
	s.logger.Info("inference run",
		zap.String("run_id", res.RunID),
		zap.String("kb", s.current),
		zap.Int("passes", res.Passes),
		zap.Bool("fixpoint", res.Fixpoint),
		zap.Int("inferred", len(res.Inferred)))
	return res
}

// Query answers free text against the current knowledge base.
func (s *System) Query(text string) query.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := s.matcher.Match(text, s.kb)
	s.logger.Debug("query",
		zap.String("report_id", rep.ID),
		zap.Bool("success", rep.Success),
		zap.Int("conclusions", len(rep.Conclusions)))
	return rep
}

// ListKnowledgeBases returns the stored knowledge-base names.
func (s *System) ListKnowledgeBases(ctx context.Context) ([]string, error) {
	if s.repo == nil {
		return nil, errNoRepository
	}
	return s.repo.List(ctx)
}

// LoadKnowledgeBase replaces the current knowledge base with the stored one.
func (s *System) LoadKnowledgeBase(ctx context.Context, name string) (kb.Snapshot, error) {
	if s.repo == nil {
		return kb.Snapshot{}, errNoRepository
	}
	snap, err := s.repo.Load(ctx, name)
	if err != nil {
		return kb.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kb.LoadSnapshot(snap); err != nil {
		return kb.Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}
	s.current = name
	s.logger.Info("knowledge base loaded",
		zap.String("kb", name),
		zap.Int("facts", len(snap.Facts)),
		zap.Int("rules", len(snap.Rules)))
	return s.kb.Snapshot(), nil
}

// SaveKnowledgeBase stores snap under name, or the current state when snap is
// nil. It returns the name actually used.
func (s *System) SaveKnowledgeBase(ctx context.Context, name string, snap *kb.Snapshot) (string, error) {
	if s.repo == nil {
		return "", errNoRepository
	}

	var data kb.Snapshot
	if snap != nil {
		if err := snap.Validate(); err != nil {
			return "", err
		}
		data = *snap
	} else {
		data = s.State()
	}

	stored, err := s.repo.Save(ctx, name, data)
	if err != nil {
		return "", err
	}
	if snap == nil {
		s.mu.Lock()
		s.current = stored
		s.mu.Unlock()
	}
	s.logger.Info("knowledge base saved", zap.String("kb", stored))
	return stored, nil
}

// DeleteKnowledgeBase removes a stored knowledge base.
func (s *System) DeleteKnowledgeBase(ctx context.Context, name string) error {
	if s.repo == nil {
		return errNoRepository
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info("knowledge base deleted", zap.String("kb", name))
	return nil
}

var errNoRepository = fmt.Errorf("%w: no repository configured", internalerr.ErrStoreUnavailable)
