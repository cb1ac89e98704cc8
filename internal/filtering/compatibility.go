package filtering

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/matching"
	"github.com/spigell/travel-buddy/internal/profile"
)

const defaultConcurrency = 4

// Evaluator scores one pair of normalized travelers.
type Evaluator interface {
	EvaluateProfiles(ctx context.Context, a, b profile.TravelerProfile) (*matching.Result, error)
}

type compatibilityFilter struct {
	enabled bool
	reason  string
	config  *CompatibilityConfig
	deps    *CompatibilityDeps
}

type CompatibilityDeps struct {
	Evaluator Evaluator
	Logger    *zap.Logger
}

type CompatibilityConfig struct {
	// MinimumScore drops candidates whose overall score is below it.
	MinimumScore int
	// Concurrency limits how many pairs are scored at once.
	Concurrency int
}

// NewCompatibility creates the scoring step. Every remaining candidate is
// scored against the subject; results are kept on the Candidates.
func NewCompatibility(cfg *CompatibilityConfig, deps *CompatibilityDeps) Filter {
	if cfg == nil {
		cfg = &CompatibilityConfig{}
	}
	return &compatibilityFilter{
		enabled: true,
		config:  cfg,
		deps:    deps,
	}
}

func (f *compatibilityFilter) Name() string { return "compatibility" }

func (f *compatibilityFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *compatibilityFilter) IsEnabled() bool { return f.enabled }

func (f *compatibilityFilter) Validate() error {
	if f.deps == nil || f.deps.Evaluator == nil {
		return fmt.Errorf("evaluator is required")
	}
	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if f.config.MinimumScore < 0 || f.config.MinimumScore > 100 {
		return fmt.Errorf("minimum score must be between 0 and 100, got %d", f.config.MinimumScore)
	}
	return nil
}

func (f *compatibilityFilter) concurrency() int {
	if f.config.Concurrency > 0 {
		return f.config.Concurrency
	}
	return defaultConcurrency
}

func (f *compatibilityFilter) Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()

	var (
		mu      sync.Mutex
		results = make(map[string]*matching.Result, initial)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())

	for _, candidate := range c.Items {
		g.Go(func() error {
			res, err := f.deps.Evaluator.EvaluateProfiles(gctx, c.Subject, candidate)
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", candidate.ID(), err)
			}

			mu.Lock()
			results[candidate.ID()] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return c, Step{}, err
	}

	var below []string
	for _, candidate := range c.Items {
		res := results[candidate.ID()]
		c.Results[candidate.ID()] = res

		fields := append(logger.MatchFields(c.Subject.ID(), candidate.ID(), ""),
			zap.Int("overall_score", res.Analysis.OverallScore),
			zap.String("method", string(res.Analysis.Method)),
		)
		if res.Analysis.OverallScore < f.config.MinimumScore {
			f.deps.Logger.Info("traveler below minimum score", append(fields, zap.Int("minimum_score", f.config.MinimumScore))...)
			below = append(below, candidate.ID())
			continue
		}
		f.deps.Logger.Debug("traveler scored", fields...)
	}

	removed := c.Exclude(below)

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *compatibilityFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{
			"minimum_score": strconv.Itoa(f.config.MinimumScore),
			"concurrency":   strconv.Itoa(f.concurrency()),
		},
	}
}
