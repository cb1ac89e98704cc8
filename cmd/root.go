package cmd

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/travel-buddy/internal/store"
)

const (
	app = "travel-buddy"
)

type Config struct {
	Roster string       `mapstructure:"roster"`
	Match  *MatchConfig `mapstructure:"match"`
	AI     *AIConfig    `mapstructure:"ai"`
	Store  store.Config `mapstructure:"store"`
}

type MatchConfig struct {
	MinimumScore int      `mapstructure:"minimum-score"`
	Exclude      []string `mapstructure:"exclude"`
	Concurrency  int      `mapstructure:"concurrency"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type BreakerConfig struct {
	Failures uint32        `mapstructure:"failures"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type GeminiConfig struct {
	APIKey       string  `mapstructure:"api-key"`
	APIKeyFile   string  `mapstructure:"api-key-file"`
	Model        string  `mapstructure:"model"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxLogLength int     `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "travel-buddy scores how well travelers would get along on a trip and keeps the matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"store.redis.password":   "REDIS_PASSWORD",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is travel-buddy.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090 (disabled by default)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("metrics-addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
}

func setDefaults() {
	viper.SetDefault("roster", "travelers.json")
	viper.SetDefault("match.minimum-score", 0)
	viper.SetDefault("match.concurrency", 4)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.timeout", 30*time.Second)
	viper.SetDefault("ai.breaker.failures", 3)
	viper.SetDefault("ai.breaker.cooldown", time.Minute)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("store.backend", store.BackendBadger)
	viper.SetDefault("store.redis.address", "localhost:6379")
	viper.SetDefault("store.badger.path", "data/matches")
}

func initConfig() {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults are enough to run.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// serveMetrics exposes the default prometheus registry when --metrics-addr is set.
func serveMetrics(logger *zap.Logger) {
	addr := viper.GetString("metrics-addr")
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}
