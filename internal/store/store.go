// Package store persists match entries per (user, context) aggregate.
//
// Every backend appends an entry only when no entry for the same counterpart
// exists yet; an existing entry is never overwritten.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/travel-buddy/internal/compat"
	"github.com/spigell/travel-buddy/internal/profile"
	"github.com/spigell/travel-buddy/internal/utils"
)

// ErrConflict is returned when a backend could not apply an upsert atomically
// within its retry budget. The caller may retry.
var ErrConflict = errors.New("repository conflict")

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeMerged    Outcome = "merged"
	OutcomeDuplicate Outcome = "duplicate"
)

type MatchEntry struct {
	MatchedUserID string               `json:"matched_user_id"`
	MatchScore    int                  `json:"match_score"`
	Analysis      compat.MatchAnalysis `json:"analysis"`
	CreatedAt     time.Time            `json:"created_at"`
}

// MatchAggregate holds every entry stored for one user within one context.
type MatchAggregate struct {
	UserID    string       `json:"user_id"`
	ContextID string       `json:"context_id"`
	Entries   []MatchEntry `json:"entries"`
}

// Has reports whether the aggregate already holds an entry for matchedUserID.
func (a *MatchAggregate) Has(matchedUserID string) bool {
	for _, e := range a.Entries {
		if e.MatchedUserID == matchedUserID {
			return true
		}
	}
	return false
}

type Repository interface {
	UpsertEntry(ctx context.Context, userID, contextID string, entry MatchEntry) (Outcome, error)
	// ListEntries returns entries in insertion order. An unknown aggregate
	// yields an empty slice and no error.
	ListEntries(ctx context.Context, userID, contextID string) ([]MatchEntry, error)
	Close() error
}

func prepare(userID, contextID string, entry MatchEntry) (MatchEntry, error) {
	switch {
	case strings.TrimSpace(userID) == "":
		return entry, &profile.ValidationError{Field: "user_id", Reason: "user id is required"}
	case strings.TrimSpace(contextID) == "":
		return entry, &profile.ValidationError{Field: "context_id", Reason: "context id is required"}
	case strings.TrimSpace(entry.MatchedUserID) == "":
		return entry, &profile.ValidationError{Field: "matched_user_id", Reason: "matched user id is required"}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry, nil
}

// aggregateKey is unambiguous for ids containing the separator.
func aggregateKey(userID, contextID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + ":" + contextID
}

const defaultMaxRetries = 10

var retryBackoff = utils.Backoff{Base: 5 * time.Millisecond, Max: 200 * time.Millisecond}

func backoff(ctx context.Context, attempt int) error {
	return retryBackoff.Wait(ctx, attempt)
}

func conflictError(backend string, attempts int, err error) error {
	return fmt.Errorf("%w: %s gave up after %d attempts: %v", ErrConflict, backend, attempts, err)
}
