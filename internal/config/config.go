package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	DataDir      string
	Journal      string
	PGDSN        string
	Keypair      string
	Pool         string
	Listen       string
	CacheSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string

	// Aggregation settings.
	Window        time.Duration
	BatchSize     int
	StateFile     string
	RecomputeFrom string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", "./data/ledger")
	v.SetDefault("journal", "./data/operations.jsonl")
	v.SetDefault("listen", ":8080")
	v.SetDefault("cache-size", 128)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("window", 5*time.Minute)
	v.SetDefault("batch-size", 1000)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		DataDir:      v.GetString("data-dir"),
		Journal:      strings.TrimSpace(v.GetString("journal")),
		PGDSN:        v.GetString("pg-dsn"),
		Keypair:      v.GetString("keypair"),
		Pool:         strings.TrimSpace(v.GetString("pool")),
		Listen:       v.GetString("listen"),
		CacheSize:    v.GetInt("cache-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),

		Window:        v.GetDuration("window"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
	}

	if cfg.DataDir == "" {
		return Config{}, fmt.Errorf("data-dir is required")
	}
	if cfg.CacheSize <= 0 {
		return Config{}, fmt.Errorf("cache-size must be positive, got %d", cfg.CacheSize)
	}

	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
