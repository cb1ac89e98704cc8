package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "matches:"

type BadgerConfig struct {
	// Path is the data directory. Empty runs badger in memory.
	Path       string `mapstructure:"path"`
	MaxRetries int    `mapstructure:"max-retries"`
}

// Badger keeps each aggregate as a single JSON value and applies upserts as
// read-modify-write transactions. Concurrent writers to the same aggregate
// surface as badger.ErrConflict and are retried.
type Badger struct {
	db         *badger.DB
	maxRetries int
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

func NewBadger(cfg BadgerConfig, log *zap.Logger) (*Badger, error) {
	path := strings.TrimSpace(cfg.Path)

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	if log != nil {
		opts.Logger = badgerLogger{log.Named("badger").Sugar()}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}

	return newBadger(db, cfg.MaxRetries), nil
}

func newBadger(db *badger.DB, maxRetries int) *Badger {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Badger{db: db, maxRetries: maxRetries}
}

func (b *Badger) UpsertEntry(ctx context.Context, userID, contextID string, entry MatchEntry) (Outcome, error) {
	entry, err := prepare(userID, contextID, entry)
	if err != nil {
		return "", err
	}

	key := []byte(badgerKeyPrefix + aggregateKey(userID, contextID))

	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var outcome Outcome
		err := b.db.Update(func(txn *badger.Txn) error {
			agg, found, err := loadAggregate(txn, key)
			if err != nil {
				return err
			}
			if agg.Has(entry.MatchedUserID) {
				outcome = OutcomeDuplicate
				return nil
			}

			outcome = OutcomeMerged
			if !found {
				agg = MatchAggregate{UserID: userID, ContextID: contextID}
				outcome = OutcomeCreated
			}
			agg.Entries = append(agg.Entries, entry)

			data, err := json.Marshal(agg)
			if err != nil {
				return fmt.Errorf("marshal aggregate: %w", err)
			}
			return txn.Set(key, data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return outcome, err
		}

		lastErr = err
		if err := backoff(ctx, attempt); err != nil {
			return "", err
		}
	}

	return "", conflictError("badger", b.maxRetries, lastErr)
}

func (b *Badger) ListEntries(ctx context.Context, userID, contextID string) ([]MatchEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var agg MatchAggregate
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		agg, _, err = loadAggregate(txn, []byte(badgerKeyPrefix+aggregateKey(userID, contextID)))
		return err
	})
	if err != nil {
		return nil, err
	}

	if agg.Entries == nil {
		return []MatchEntry{}, nil
	}
	return agg.Entries, nil
}

func (b *Badger) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func loadAggregate(txn *badger.Txn, key []byte) (MatchAggregate, bool, error) {
	var agg MatchAggregate

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return agg, false, nil
	}
	if err != nil {
		return agg, false, fmt.Errorf("get aggregate: %w", err)
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &agg)
	})
	if err != nil {
		return agg, false, fmt.Errorf("decode aggregate: %w", err)
	}
	return agg, true, nil
}
