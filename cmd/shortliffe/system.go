package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/shortliffe/pkg/shortliffe"
	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/config"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference/forward"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/query"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store/filestore"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store/memstore"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store/sqlite"
)

func openRepository(ctx context.Context, cfg config.StoreConfig) (store.Repository, error) {
	switch cfg.Backend {
	case "file":
		return filestore.Open(cfg.Dir)
	case "sqlite":
		return sqlite.OpenSQLite(ctx, cfg.SQLitePath)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", internalerr.ErrInvalidConfig, cfg.Backend)
	}
}

// buildSystem wires a System from cfg. The caller closes it.
func buildSystem(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*shortliffe.System, error) {
	repo, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	strategy, err := query.ParseStrategy(cfg.Query.Strategy)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return shortliffe.New(shortliffe.Options{
		Repository: repo,
		Engine: forward.New(
			forward.WithMaxPasses(cfg.Inference.MaxPasses),
			forward.WithLogger(logger),
		),
		Matcher: query.New(query.WithStrategy(strategy)),
		Parser:  condition.NewParser(cfg.Parser.Keywords),
		Logger:  logger,
	}), nil
}

// withSystem builds the system, optionally loads a stored knowledge base and
// runs fn.
func (a *app) withSystem(ctx context.Context, kbName string, fn func(*shortliffe.System) error) error {
	sys, err := buildSystem(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer sys.Close()

	if kbName != "" {
		if _, err := sys.LoadKnowledgeBase(ctx, kbName); err != nil {
			return err
		}
	}
	return fn(sys)
}
