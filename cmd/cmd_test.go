package cmd

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/travel-buddy/internal/matching"
	"github.com/spigell/travel-buddy/internal/store"
)

func evaluated(t *testing.T, engine *matching.Engine) []*matching.Result {
	t.Helper()

	res, err := engine.Evaluate(context.Background(),
		map[string]any{"id": "a", "location": "Paris", "interests": "hiking"},
		map[string]any{"id": "b", "location": "Paris", "interests": "hiking"},
	)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return []*matching.Result{res}
}

func TestHandleAction(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	repo := store.NewMemory()
	engine := matching.NewEngine(nil, repo, log, nil)
	results := evaluated(t, engine)

	if err := handleAction(ctx, PromptReportByLevel, engine, log, "trip", results); err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := handleAction(ctx, PromptYes, engine, log, "trip", results); !errors.Is(err, errExit) {
		t.Fatalf("expected exit after storing, got %v", err)
	}
	entries, err := repo.ListEntries(ctx, "a", "trip")
	if err != nil || len(entries) != 1 || entries[0].MatchedUserID != "b" {
		t.Fatalf("expected stored entry for b, got %v (%v)", entries, err)
	}

	// a second store is a duplicate, not an error
	if err := handleAction(ctx, PromptYes, engine, log, "trip", results); !errors.Is(err, errExit) {
		t.Fatalf("expected exit, got %v", err)
	}
	stored := logs.FilterMessage("successfully stored matches").All()
	if len(stored) != 2 || stored[1].ContextMap()["duplicate"] != int64(1) {
		t.Fatalf("unexpected store logs: %v", stored)
	}

	if err := handleAction(ctx, PromptNo, engine, log, "trip", results); !errors.Is(err, errExit) {
		t.Fatalf("expected exit, got %v", err)
	}
	if err := handleAction(ctx, "bogus", engine, log, "trip", results); err == nil || errors.Is(err, errExit) {
		t.Fatalf("expected invalid action error, got %v", err)
	}
}

func TestDefaultStorePersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()

	config, err := getConfig()
	if err != nil {
		t.Fatalf("getting config: %v", err)
	}
	if config.Store.Backend != store.BackendBadger {
		t.Fatalf("expected badger as the default backend, got %q", config.Store.Backend)
	}
	if config.Store.Badger.Path == "" {
		t.Fatalf("expected an on-disk badger path by default")
	}

	cfg := config.Store
	cfg.Badger.Path = t.TempDir()

	first, err := store.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := first.UpsertEntry(ctx, "a", "trip", store.MatchEntry{MatchedUserID: "b", MatchScore: 75}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	second, err := store.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()

	entries, err := second.ListEntries(ctx, "a", "trip")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].MatchedUserID != "b" || entries[0].MatchScore != 75 {
		t.Fatalf("expected the stored entry after reopening, got %+v", entries)
	}
}

func TestRedacted(t *testing.T) {
	config := &Config{
		AI:    &AIConfig{Gemini: &GeminiConfig{APIKey: "secret", Model: "m"}},
		Store: store.Config{Redis: store.RedisConfig{Password: "pw"}},
	}

	out := redacted(config)
	if out.AI.Gemini.APIKey != "***" || out.Store.Redis.Password != "***" {
		t.Fatalf("secrets are not redacted: %+v %+v", out.AI.Gemini, out.Store.Redis)
	}
	if config.AI.Gemini.APIKey != "secret" || config.Store.Redis.Password != "pw" {
		t.Fatalf("original config must not change")
	}
	if out.AI.Gemini.Model != "m" {
		t.Fatalf("unexpected model: %s", out.AI.Gemini.Model)
	}
}

func TestNewAssessorRejectsConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *AIConfig
	}{
		{"nil", nil},
		{"disabled", &AIConfig{Enabled: false, Gemini: &GeminiConfig{APIKey: "k"}}},
		{"unknown provider", &AIConfig{Enabled: true, Provider: "other", Gemini: &GeminiConfig{APIKey: "k"}}},
		{"missing gemini", &AIConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessor, err := newAssessor(context.Background(), tt.cfg, zap.NewNop())
			if err == nil {
				t.Fatalf("expected error")
			}
			if assessor != nil {
				t.Fatalf("expected nil assessor, got %T", assessor)
			}
		})
	}
}
