package matching

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/metrics"
	"github.com/spigell/travel-buddy/internal/profile"
	"github.com/spigell/travel-buddy/internal/store"
)

// Result is one scored pair.
type Result struct {
	Subject     profile.TravelerProfile `json:"subject"`
	Counterpart profile.TravelerProfile `json:"counterpart"`
	Analysis    *compat.MatchAnalysis   `json:"analysis"`
	Summary     compat.Summary          `json:"summary"`
}

// Engine ties normalization, scoring and persistence together.
type Engine struct {
	analyzer *Analyzer
	repo     store.Repository
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

func NewEngine(analyzer *Analyzer, repo store.Repository, log *zap.Logger, rec *metrics.Recorder) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(nil, AnalyzerConfig{}, log, rec)
	}
	return &Engine{
		analyzer: analyzer,
		repo:     repo,
		logger:   log,
		metrics:  rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate normalizes both raw records and scores them. Only a
// profile.ValidationError can come back.
func (e *Engine) Evaluate(ctx context.Context, rawA, rawB map[string]any) (*Result, error) {
	a, err := profile.Normalize(rawA)
	if err != nil {
		return nil, err
	}
	b, err := profile.Normalize(rawB)
	if err != nil {
		return nil, err
	}
	return e.EvaluateProfiles(ctx, a, b)
}

func (e *Engine) EvaluateProfiles(ctx context.Context, a, b profile.TravelerProfile) (*Result, error) {
	if a.ID() == b.ID() {
		return nil, &profile.ValidationError{Field: "id", Reason: "a traveler cannot be matched with themselves"}
	}

	analysis := e.analyzer.Score(ctx, a, b)
	summary := compat.Summarize(analysis)

	e.logger.Debug("pair scored", append(logger.MatchFields(a.ID(), b.ID(), ""),
		zap.Int("overall_score", analysis.OverallScore),
		zap.String("method", string(analysis.Method)),
		zap.String("level", string(summary.Level)),
	)...)

	return &Result{Subject: a, Counterpart: b, Analysis: analysis, Summary: summary}, nil
}

// Record stores the result under the subject's aggregate for contextID.
func (e *Engine) Record(ctx context.Context, contextID string, res *Result) (store.Outcome, error) {
	if e.repo == nil {
		return "", errors.New("no repository configured")
	}
	if res == nil || res.Analysis == nil {
		return "", errors.New("nothing to record")
	}

	entry := store.MatchEntry{
		MatchedUserID: res.Counterpart.ID(),
		MatchScore:    res.Analysis.OverallScore,
		Analysis:      *res.Analysis,
		CreatedAt:     e.now(),
	}

	outcome, err := e.repo.UpsertEntry(ctx, res.Subject.ID(), strings.TrimSpace(contextID), entry)
	if err != nil {
		return "", err
	}

	e.metrics.Upsert(string(outcome))
	e.logger.Info("match recorded", append(logger.MatchFields(res.Subject.ID(), res.Counterpart.ID(), contextID),
		zap.String("outcome", string(outcome)),
		zap.Int("match_score", entry.MatchScore),
	)...)

	return outcome, nil
}

// Match evaluates the pair and records the result in one step.
func (e *Engine) Match(ctx context.Context, contextID string, rawA, rawB map[string]any) (*Result, store.Outcome, error) {
	res, err := e.Evaluate(ctx, rawA, rawB)
	if err != nil {
		return nil, "", err
	}

	outcome, err := e.Record(ctx, contextID, res)
	if err != nil {
		return res, "", err
	}
	return res, outcome, nil
}

// Matches lists what has been stored for userID within contextID.
func (e *Engine) Matches(ctx context.Context, userID, contextID string) ([]store.MatchEntry, error) {
	if e.repo == nil {
		return nil, errors.New("no repository configured")
	}
	return e.repo.ListEntries(ctx, userID, contextID)
}
