package forward

import (
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
)

// DefaultMaxPasses bounds a run when no option overrides it.
const DefaultMaxPasses = 100

// Engine is a forward-chaining certainty-factor engine in pure Go.
// Each pass walks the rules in stored order against the live fact table, so
// a fact improved early in a pass is visible to later rules of that pass.
type Engine struct {
	maxPasses int
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPasses caps the number of passes per run. Values below 1 are ignored.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// WithLogger sets the logger used for skipped rules and pass-cap warnings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates a new forward-chaining engine
func New(opts ...Option) *Engine {
	e := &Engine{
		maxPasses: DefaultMaxPasses,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxPasses returns the configured pass cap.
func (e *Engine) MaxPasses() int { return e.maxPasses }

// Infer runs passes until one makes no strict improvement (fixpoint) or the
// pass cap is hit. Derived facts are written into k.
func (e *Engine) Infer(k inference.KnowledgeBase) inference.Result {
	res := inference.Result{
		RunID:    ulid.Make().String(),
		Inferred: make(map[string]float64),
	}
	rules := k.Rules()

	for pass := 1; pass <= e.maxPasses; pass++ {
		res.Passes = pass
		improved := false

		for i, r := range rules {
			d, fired, err := e.apply(k, pass, i, r)
			if err != nil {
				e.logger.Warn("skipping rule",
					zap.Int("pass", pass),
					zap.Int("rule", i),
					zap.String("then", r.Then),
					zap.Error(err))
				res.Skipped = append(res.Skipped, inference.SkippedRule{
					Pass:      pass,
					RuleIndex: i,
					Then:      r.Then,
					Error:     err.Error(),
				})
				continue
			}
			if !fired {
				continue
			}
			improved = true
			res.Inferred[r.Then] = d.Result
			res.Derivations = append(res.Derivations, d)
		}

		if !improved {
			res.Fixpoint = true
			break
		}
	}

	if !res.Fixpoint {
		e.logger.Warn("inference stopped at pass cap",
			zap.String("run_id", res.RunID),
			zap.Int("max_passes", e.maxPasses))
	}

	e.logger.Debug("inference finished",
		zap.String("run_id", res.RunID),
		zap.Int("passes", res.Passes),
		zap.Int("inferred", len(res.Inferred)),
		zap.Int("skipped", len(res.Skipped)))

	res.Facts = k.Facts()
	return res
}

// apply evaluates one rule and writes its conclusion on strict improvement.
// Panics from malformed rule data are turned into errors.
func (e *Engine) apply(k inference.KnowledgeBase, pass, index int, r kb.Rule) (d inference.Derivation, fired bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", inference.ErrRuleFault, p)
			fired = false
		}
	}()

	condCF, err := inference.Evaluate(r.If, k)
	if err != nil {
		return d, false, fmt.Errorf("%w: %w", inference.ErrRuleFault, err)
	}
	if condCF <= 0 {
		return d, false, nil
	}

	candidate := condCF * r.CF
	previous, known := k.Fact(r.Then)
	if known && candidate <= previous {
		return d, false, nil
	}

	if err := k.AddFact(r.Then, candidate); err != nil {
		return d, false, fmt.Errorf("%w: %w", inference.ErrRuleFault, err)
	}

	return inference.Derivation{
		Pass:        pass,
		RuleIndex:   index,
		Rule:        r,
		ConditionCF: condCF,
		Previous:    previous,
		Result:      candidate,
	}, true, nil
}
