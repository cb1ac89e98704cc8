package store

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Repository. Each aggregate has its own lock, so
// writers to different aggregates never wait on each other.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu        sync.Mutex
	aggregate MatchAggregate
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) slot(userID, contextID string) *slot {
	key := aggregateKey(userID, contextID)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot{aggregate: MatchAggregate{UserID: userID, ContextID: contextID}}
		m.slots[key] = s
	}
	return s
}

func (m *Memory) UpsertEntry(ctx context.Context, userID, contextID string, entry MatchEntry) (Outcome, error) {
	entry, err := prepare(userID, contextID, entry)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s := m.slot(userID, contextID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aggregate.Has(entry.MatchedUserID) {
		return OutcomeDuplicate, nil
	}

	outcome := OutcomeMerged
	if len(s.aggregate.Entries) == 0 {
		outcome = OutcomeCreated
	}
	s.aggregate.Entries = append(s.aggregate.Entries, cloneEntry(entry))
	return outcome, nil
}

func (m *Memory) ListEntries(ctx context.Context, userID, contextID string) ([]MatchEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	s, ok := m.slots[aggregateKey(userID, contextID)]
	m.mu.Unlock()
	if !ok {
		return []MatchEntry{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MatchEntry, 0, len(s.aggregate.Entries))
	for _, e := range s.aggregate.Entries {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func cloneEntry(e MatchEntry) MatchEntry {
	e.Analysis.PotentialActivities = slices.Clone(e.Analysis.PotentialActivities)
	e.Analysis.PotentialConflicts = slices.Clone(e.Analysis.PotentialConflicts)
	return e
}
