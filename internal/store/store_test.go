package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/profile"
)

const testRetries = 32

func backends(t *testing.T) map[string]Repository {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := newRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), testRetries)

	bdb, err := NewBadger(BadgerConfig{MaxRetries: testRetries}, nil)
	require.NoError(t, err)

	repos := map[string]Repository{
		BackendMemory: NewMemory(),
		BackendRedis:  rdb,
		BackendBadger: bdb,
	}
	t.Cleanup(func() {
		for _, r := range repos {
			r.Close()
		}
	})
	return repos
}

func entry(matched string, score int) MatchEntry {
	return MatchEntry{
		MatchedUserID: matched,
		MatchScore:    score,
		Analysis: compat.MatchAnalysis{
			OverallScore:        score,
			Recommendation:      "Go together",
			PotentialActivities: []string{"hiking"},
			PotentialConflicts:  []string{"Different travel pace preferences"},
			Method:              compat.MethodFallback,
		},
	}
}

func TestUpsertOutcomes(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			outcome, err := repo.UpsertEntry(ctx, "u1", "trip", entry("u2", 75))
			require.NoError(t, err)
			assert.Equal(t, OutcomeCreated, outcome)

			outcome, err = repo.UpsertEntry(ctx, "u1", "trip", entry("u3", 40))
			require.NoError(t, err)
			assert.Equal(t, OutcomeMerged, outcome)

			outcome, err = repo.UpsertEntry(ctx, "u1", "trip", entry("u2", 10))
			require.NoError(t, err)
			assert.Equal(t, OutcomeDuplicate, outcome)

			entries, err := repo.ListEntries(ctx, "u1", "trip")
			require.NoError(t, err)
			require.Len(t, entries, 2)

			assert.Equal(t, "u2", entries[0].MatchedUserID)
			assert.Equal(t, 75, entries[0].MatchScore, "duplicate must not overwrite")
			assert.Equal(t, "u3", entries[1].MatchedUserID)
			assert.False(t, entries[0].CreatedAt.IsZero())
			assert.Equal(t, []string{"hiking"}, entries[0].Analysis.PotentialActivities)
		})
	}
}

func TestListUnknownAggregate(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := repo.ListEntries(context.Background(), "nobody", "nowhere")
			require.NoError(t, err)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)
		})
	}
}

func TestAggregatesAreIsolated(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.UpsertEntry(ctx, "a:b", "c", entry("x", 1))
			require.NoError(t, err)

			outcome, err := repo.UpsertEntry(ctx, "a", "b:c", entry("x", 2))
			require.NoError(t, err)
			assert.Equal(t, OutcomeCreated, outcome)

			outcome, err = repo.UpsertEntry(ctx, "a:b", "other", entry("x", 3))
			require.NoError(t, err)
			assert.Equal(t, OutcomeCreated, outcome)
		})
	}
}

func TestUpsertRejectsBlankKeys(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		context string
		matched string
		field   string
	}{
		{"user", " ", "trip", "u2", "user_id"},
		{"context", "u1", "", "u2", "context_id"},
		{"counterpart", "u1", "trip", "", "matched_user_id"},
	}

	for name, repo := range backends(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				_, err := repo.UpsertEntry(context.Background(), tt.user, tt.context, entry(tt.matched, 1))

				var verr *profile.ValidationError
				require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	}
}

func TestConcurrentUpsertsKeepEveryCounterpart(t *testing.T) {
	const writers = 8

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				outcomes = map[Outcome]int{}
			)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					outcome, err := repo.UpsertEntry(ctx, "u1", "trip", entry(fmt.Sprintf("c%d", i), i))
					assert.NoError(t, err)

					mu.Lock()
					outcomes[outcome]++
					mu.Unlock()
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, outcomes[OutcomeCreated])
			assert.Equal(t, writers-1, outcomes[OutcomeMerged])

			entries, err := repo.ListEntries(ctx, "u1", "trip")
			require.NoError(t, err)
			assert.Len(t, entries, writers)
		})
	}
}

func TestConcurrentUpsertsOfSameCounterpart(t *testing.T) {
	const writers = 8

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				outcomes = map[Outcome]int{}
			)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					outcome, err := repo.UpsertEntry(ctx, "u1", "trip", entry("same", i))
					assert.NoError(t, err)

					mu.Lock()
					outcomes[outcome]++
					mu.Unlock()
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, outcomes[OutcomeCreated])
			assert.Equal(t, writers-1, outcomes[OutcomeDuplicate])

			entries, err := repo.ListEntries(ctx, "u1", "trip")
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestUpsertKeepsProvidedTimestamp(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			e := entry("u2", 50)
			e.CreatedAt = created

			_, err := repo.UpsertEntry(context.Background(), "u1", "trip", e)
			require.NoError(t, err)

			entries, err := repo.ListEntries(context.Background(), "u1", "trip")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, created.Equal(entries[0].CreatedAt))
		})
	}
}

func TestConflictErrorWrapsSentinel(t *testing.T) {
	err := conflictError("redis", 3, redis.TxFailedErr)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	repo, err := Open(ctx, Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)

	repo, err = Open(ctx, Config{Backend: "Redis", Redis: RedisConfig{Address: mr.Addr()}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, repo)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, Config{Backend: BackendBadger, Badger: BadgerConfig{Path: t.TempDir()}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, Config{Backend: "mongo"}, nil)
	assert.Error(t, err)
}
