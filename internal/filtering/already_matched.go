package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/store"
)

const rescoreFlagSetMsg = "rescore flag is set"

// EntryLister is the read side of store.Repository.
type EntryLister interface {
	ListEntries(ctx context.Context, userID, contextID string) ([]store.MatchEntry, error)
}

type alreadyMatchedFilter struct {
	deps      *AlreadyMatchedDeps
	contextID string
	ignore    bool
}

type AlreadyMatchedDeps struct {
	Store  EntryLister
	Logger *zap.Logger
}

type AlreadyMatchedConfig struct {
	ContextID string
	// Ignore keeps already stored counterparts in the list.
	Ignore bool
}

// NewAlreadyMatched creates a filter that removes counterparts already stored
// for the subject within the context.
func NewAlreadyMatched(cfg *AlreadyMatchedConfig, deps *AlreadyMatchedDeps) Filter {
	f := &alreadyMatchedFilter{deps: deps}
	if cfg != nil {
		f.contextID = strings.TrimSpace(cfg.ContextID)
		f.ignore = cfg.Ignore
	}
	return f
}

func (f *alreadyMatchedFilter) Name() string { return "already_matched" }

func (f *alreadyMatchedFilter) Disable(string) {}

func (f *alreadyMatchedFilter) IsEnabled() bool { return true }

func (f *alreadyMatchedFilter) Validate() error {
	if f.deps == nil || f.deps.Store == nil {
		return fmt.Errorf("match store is required")
	}
	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if f.contextID == "" {
		return fmt.Errorf("context id is required")
	}
	return nil
}

func (f *alreadyMatchedFilter) Apply(ctx context.Context, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if f.ignore {
		f.deps.Logger.Info("keeping already matched travelers", zap.String("reason", rescoreFlagSetMsg))
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	entries, err := f.deps.Store.ListEntries(ctx, c.Subject.ID(), f.contextID)
	if err != nil {
		return c, Step{}, fmt.Errorf("list stored matches: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MatchedUserID)
	}

	removed := c.Exclude(ids)
	if len(removed) > 0 {
		f.deps.Logger.Info("excluding already matched travelers",
			zap.Strings("excluded_travelers", removed),
			zap.Int("travelers_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *alreadyMatchedFilter) Status() Status {
	details := map[string]string{
		"exclude_matched": strconv.FormatBool(!f.ignore),
		"context_id":      f.contextID,
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
