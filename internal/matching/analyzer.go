package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/ai"
	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/metrics"
	"github.com/spigell/travel-buddy/internal/profile"
)

const breakerName = "ai-assessor"

// errCallerCancelled marks assessments abandoned because the caller's own
// context was cancelled. The breaker does not count them as model failures.
var errCallerCancelled = errors.New("caller cancelled")

// Reason classifies why an AI assessment could not be used.
type Reason string

const (
	ReasonDisabled    Reason = "disabled"
	ReasonTimeout     Reason = "timeout"
	ReasonCancelled   Reason = "cancelled"
	ReasonCircuitOpen Reason = "circuit_open"
	ReasonTransport   Reason = "transport"
	ReasonMalformed   Reason = "malformed"
	ReasonSchema      Reason = "schema"
	ReasonInvalid     Reason = "invalid"
)

// UnavailableError is produced whenever the AI path fails. It never leaves the
// analyzer: Score logs it and answers with the deterministic scorer instead.
type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai assessment unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("ai assessment unavailable (%s): %v", e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

type AnalyzerConfig struct {
	// Timeout bounds a single assessment. Zero means no limit of its own.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the
	// circuit. Zero disables the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open before a probe.
	BreakerCooldown time.Duration
}

// Analyzer scores traveler pairs with an AI assessor and falls back to
// compat.ScoreFallback on any failure.
type Analyzer struct {
	assessor ai.Assessor
	breaker  *gobreaker.CircuitBreaker[*compat.MatchAnalysis]
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

// NewAnalyzer builds an Analyzer. A nil assessor is allowed and makes every
// call use the deterministic scorer.
func NewAnalyzer(assessor ai.Assessor, cfg AnalyzerConfig, log *zap.Logger, rec *metrics.Recorder) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}

	an := &Analyzer{
		assessor: assessor,
		timeout:  cfg.Timeout,
		logger:   log,
		metrics:  rec,
	}

	if assessor != nil && cfg.BreakerFailures > 0 {
		failures := cfg.BreakerFailures
		an.breaker = gobreaker.NewCircuitBreaker[*compat.MatchAnalysis](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errCallerCancelled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("ai circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return an
}

// Score always returns a valid analysis. The AI result is used when it
// arrives in time and passes validation; otherwise the deterministic one.
func (an *Analyzer) Score(ctx context.Context, a, b profile.TravelerProfile) *compat.MatchAnalysis {
	analysis, err := an.attempt(ctx, a, b)
	if err == nil {
		an.metrics.Analysis(string(compat.MethodAI))
		return analysis
	}

	reason := ReasonTransport
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		reason = unavailable.Reason
	}

	fields := append(logger.MatchFields(a.ID(), b.ID(), ""), zap.String("reason", string(reason)))
	if reason == ReasonDisabled {
		an.logger.Debug("ai assessment disabled, using deterministic scorer", fields...)
	} else {
		an.logger.Warn("ai assessment unavailable, using deterministic scorer", append(fields, zap.Error(err))...)
		an.metrics.AIUnavailable(string(reason))
	}

	an.metrics.Analysis(string(compat.MethodFallback))
	return compat.ScoreFallback(a, b)
}

func (an *Analyzer) attempt(ctx context.Context, a, b profile.TravelerProfile) (*compat.MatchAnalysis, error) {
	if an.assessor == nil {
		return nil, &UnavailableError{Reason: ReasonDisabled}
	}

	callCtx := ctx
	if an.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, an.timeout)
		defer cancel()
	}

	assess := func() (*compat.MatchAnalysis, error) {
		result, err := an.assess(callCtx, a, b)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("%w: %w", errCallerCancelled, err)
			}
			return nil, err
		}
		if result == nil {
			return nil, fmt.Errorf("%w: assessor returned no analysis", compat.ErrInvalidAnalysis)
		}
		result.Method = compat.MethodAI
		if err := result.Validate(); err != nil {
			return nil, err
		}
		return result, nil
	}

	started := time.Now()
	var (
		result *compat.MatchAnalysis
		err    error
	)
	if an.breaker != nil {
		result, err = an.breaker.Execute(assess)
	} else {
		result, err = assess()
	}
	an.metrics.AIDuration(time.Since(started))

	if err != nil {
		return nil, &UnavailableError{Reason: classify(err), Err: err}
	}
	return result, nil
}

// assess runs the assessor but stops waiting once ctx is done, even if the
// assessor itself ignores cancellation.
func (an *Analyzer) assess(ctx context.Context, a, b profile.TravelerProfile) (*compat.MatchAnalysis, error) {
	type outcome struct {
		analysis *compat.MatchAnalysis
		err      error
	}

	done := make(chan outcome, 1)
	go func() {
		analysis, err := an.assessor.Assess(ctx, a, b)
		done <- outcome{analysis, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.analysis, out.err
	}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, ai.ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, ai.ErrSchemaMismatch):
		return ReasonSchema
	case errors.Is(err, compat.ErrInvalidAnalysis):
		return ReasonInvalid
	default:
		return ReasonTransport
	}
}
