package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/ai"
	"github.com/spigell/travel-buddy/internal/ai/gemini"
	"github.com/spigell/travel-buddy/internal/logger"
	"github.com/spigell/travel-buddy/internal/matching"
	"github.com/spigell/travel-buddy/internal/metrics"
	"github.com/spigell/travel-buddy/internal/roster"
	"github.com/spigell/travel-buddy/internal/secrets"
	"github.com/spigell/travel-buddy/internal/store"
)

// environment is everything a command needs, built once from the config.
type environment struct {
	config  *Config
	logger  *zap.Logger
	metrics *metrics.Recorder
	repo    store.Repository
	engine  *matching.Engine
}

func setup(ctx context.Context) *environment {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Match == nil {
		config.Match = &MatchConfig{}
	}

	logger.Info("starting the travel-buddy", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	rec := metrics.New(prometheus.DefaultRegisterer)
	serveMetrics(logger)

	repo, err := store.Open(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening match store", zap.Error(err), zap.String("backend", config.Store.Backend))
	}

	assessor, err := newAssessor(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("ai assessment disabled, only the deterministic scorer will be used", zap.Error(err))
		assessor = nil
	}

	analyzerCfg := matching.AnalyzerConfig{}
	if config.AI != nil {
		analyzerCfg = matching.AnalyzerConfig{
			Timeout:         config.AI.Timeout,
			BreakerFailures: config.AI.Breaker.Failures,
			BreakerCooldown: config.AI.Breaker.Cooldown,
		}
	}

	analyzer := matching.NewAnalyzer(assessor, analyzerCfg, logger, rec)

	return &environment{
		config:  config,
		logger:  logger,
		metrics: rec,
		repo:    repo,
		engine:  matching.NewEngine(analyzer, repo, logger, rec),
	}
}

func (e *environment) close() {
	if err := e.repo.Close(); err != nil {
		e.logger.Warn("closing match store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func (e *environment) loadRoster() *roster.Roster {
	r, err := roster.Load(e.config.Roster)
	if err != nil {
		e.logger.Fatal("loading roster", zap.Error(err), zap.String("roster", e.config.Roster))
	}
	e.logger.Info("roster loaded", zap.Int("count", r.Len()), zap.String("roster", e.config.Roster))
	return r
}

func newAssessor(ctx context.Context, cfg *AIConfig, baseLogger *zap.Logger) (ai.Assessor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("ai is not enabled in the configuration")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.Temperature, baseLogger)
	if err != nil {
		return nil, err
	}

	matcherLogger := logger.WithCommonFields(baseLogger, "gemini", generator.Model())
	matcher, err := gemini.NewMatcher(generator, matcherLogger, cfg.Gemini.MaxLogLength)
	if err != nil {
		return nil, err
	}
	return matcher, nil
}

// redacted returns a copy of the config that is safe to log.
func redacted(config *Config) *Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil {
		aiCfg := *config.AI
		gem := *config.AI.Gemini
		if gem.APIKey != "" {
			gem.APIKey = "***"
		}
		aiCfg.Gemini = &gem
		out.AI = &aiCfg
	}
	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = "***"
	}
	return &out
}
