package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "travel-buddy:matches:"
	redisEntryPrefix = "entry:"
	redisSeqField    = "meta:seq"
)

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max-retries"`
}

// Redis stores one hash per aggregate. Each counterpart is a hash field, and a
// sequence field keeps insertion order. Upserts run as WATCH/MULTI/EXEC
// transactions and are retried when another writer touches the same hash.
type Redis struct {
	client     *redis.Client
	maxRetries int
}

type redisRecord struct {
	Seq   int64      `json:"seq"`
	Entry MatchEntry `json:"entry"`
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		address = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedis(client, cfg.MaxRetries), nil
}

func newRedis(client *redis.Client, maxRetries int) *Redis {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Redis{client: client, maxRetries: maxRetries}
}

func (r *Redis) UpsertEntry(ctx context.Context, userID, contextID string, entry MatchEntry) (Outcome, error) {
	entry, err := prepare(userID, contextID, entry)
	if err != nil {
		return "", err
	}

	key := redisKeyPrefix + aggregateKey(userID, contextID)
	field := redisEntryPrefix + entry.MatchedUserID

	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		outcome, err := r.upsertOnce(ctx, key, field, entry)
		if !errors.Is(err, redis.TxFailedErr) {
			return outcome, err
		}

		lastErr = err
		if err := backoff(ctx, attempt); err != nil {
			return "", err
		}
	}

	return "", conflictError("redis", r.maxRetries, lastErr)
}

func (r *Redis) upsertOnce(ctx context.Context, key, field string, entry MatchEntry) (Outcome, error) {
	var outcome Outcome

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check aggregate: %w", err)
		}

		dup, err := tx.HExists(ctx, key, field).Result()
		if err != nil {
			return fmt.Errorf("check entry: %w", err)
		}
		if dup {
			outcome = OutcomeDuplicate
			return nil
		}

		seq, err := tx.HGet(ctx, key, redisSeqField).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read sequence: %w", err)
		}

		payload, err := json.Marshal(redisRecord{Seq: seq + 1, Entry: entry})
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, payload)
			pipe.HSet(ctx, key, redisSeqField, seq+1)
			return nil
		})
		if err != nil {
			return err
		}

		outcome = OutcomeMerged
		if exists == 0 {
			outcome = OutcomeCreated
		}
		return nil
	}, key)

	return outcome, err
}

func (r *Redis) ListEntries(ctx context.Context, userID, contextID string) ([]MatchEntry, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+aggregateKey(userID, contextID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}

	records := make([]redisRecord, 0, len(fields))
	for name, value := range fields {
		if !strings.HasPrefix(name, redisEntryPrefix) {
			continue
		}
		var rec redisRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", name, err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	entries := make([]MatchEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Entry)
	}
	return entries, nil
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
