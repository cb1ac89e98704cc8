package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/metrics"
	"github.com/spigell/travel-buddy/internal/profile"
	"github.com/spigell/travel-buddy/internal/store"
)

func rawTraveler(id, location, dates string, interests ...any) map[string]any {
	return map[string]any{
		"id":           id,
		"location":     location,
		"travel_dates": dates,
		"interests":    interests,
	}
}

func TestEngineEvaluateFallbackScenario(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)

	res, err := engine.Evaluate(context.Background(),
		rawTraveler("a", "Paris", "2024-08-15 to 2024-08-20", "Hiking", "museums"),
		rawTraveler("b", "paris", "2024-08-16 to 2024-08-21", "hiking", "Museums"),
	)
	require.NoError(t, err)

	assert.Equal(t, 75, res.Analysis.OverallScore)
	assert.Equal(t, compat.LevelGood, res.Summary.Level)
	assert.Equal(t, compat.MethodFallback, res.Summary.Method)
	assert.Equal(t, "a", res.Subject.ID())
	assert.Equal(t, "b", res.Counterpart.ID())
}

func TestEngineEvaluateRejectsInvalidInput(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()

	_, err := engine.Evaluate(ctx, map[string]any{"name": "nobody"}, rawTraveler("b", "", ""))
	assert.ErrorIs(t, err, profile.ErrValidation)

	_, err = engine.Evaluate(ctx, rawTraveler("a", "", ""), map[string]any{"_id": "a"})
	var verr *profile.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "id", verr.Field)
}

func TestEngineMatchRecordsOncePerCounterpart(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	repo := store.NewMemory()
	engine := NewEngine(NewAnalyzer(nil, AnalyzerConfig{}, nil, rec), repo, nil, rec)
	ctx := context.Background()

	a := rawTraveler("a", "Paris", "2024-08-01 to 2024-08-05", "hiking")
	b := rawTraveler("b", "Tokyo", "2024-09-01 to 2024-09-05", "spa")
	c := rawTraveler("c", "Paris", "2024-08-03", "hiking")

	_, outcome, err := engine.Match(ctx, "event-1", a, b)
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeCreated, outcome)

	_, outcome, err = engine.Match(ctx, "event-1", a, c)
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeMerged, outcome)

	_, outcome, err = engine.Match(ctx, "event-1", a, b)
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeDuplicate, outcome)

	entries, err := engine.Matches(ctx, "a", "event-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].MatchedUserID)
	assert.Equal(t, entries[0].Analysis.OverallScore, entries[0].MatchScore)
	assert.Equal(t, "c", entries[1].MatchedUserID)

	others, err := engine.Matches(ctx, "b", "event-1")
	require.NoError(t, err)
	assert.Empty(t, others)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestEngineRecordRequiresContext(t *testing.T) {
	engine := NewEngine(nil, store.NewMemory(), nil, nil)

	_, _, err := engine.Match(context.Background(), "  ",
		rawTraveler("a", "Paris", ""), rawTraveler("b", "Paris", ""))
	assert.ErrorIs(t, err, profile.ErrValidation)
}

func TestEngineWithoutRepository(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)

	_, _, err := engine.Match(context.Background(), "trip", rawTraveler("a", "", ""), rawTraveler("b", "", ""))
	assert.Error(t, err)

	_, err = engine.Matches(context.Background(), "a", "trip")
	assert.Error(t, err)
}
