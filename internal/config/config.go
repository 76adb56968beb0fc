package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
// Invalid values are rejected before the listener loop starts.
type Config struct {
	BlockchainURL     string
	PollInterval      time.Duration
	RetryDelays       []time.Duration
	PostgresDSN       string
	GenesisHeight     uint64
	MaxBlocksPerCycle uint64
	MetricsAddr       string
	AuditLogPath      string
	LogLevel          string
}

// env names are part of the deployment contract and bound explicitly,
// without a prefix.
var envBindings = map[string]string{
	"blockchain-url":          "BLOCKCHAIN_URL",
	"block-creation-interval": "BLOCK_CREATION_INTERVAL",
	"retry-delays":            "RETRY_DELAYS",
	"pg-dsn":                  "PG_DSN",
	"genesis-height":          "GENESIS_HEIGHT",
	"max-blocks-per-cycle":    "MAX_BLOCKS_PER_CYCLE",
	"metrics-addr":            "METRICS_ADDR",
	"audit-log":               "AUDIT_LOG_PATH",
	"log-level":               "LOG_LEVEL",
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	v.SetDefault("block-creation-interval", 6)
	v.SetDefault("retry-delays", "5,10,30,60,120")
	v.SetDefault("genesis-height", uint64(0))
	v.SetDefault("max-blocks-per-cycle", uint64(100))
	v.SetDefault("metrics-addr", ":9090")
	v.SetDefault("log-level", "info")

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

	interval := v.GetInt("block-creation-interval")
	if interval <= 0 {
		return Config{}, fmt.Errorf("block creation interval must be positive, got %d", interval)
	}

	delays, err := ParseRetryDelays(v.GetString("retry-delays"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BlockchainURL:     v.GetString("blockchain-url"),
		PollInterval:      time.Duration(interval) * time.Second,
		RetryDelays:       delays,
		PostgresDSN:       v.GetString("pg-dsn"),
		GenesisHeight:     v.GetUint64("genesis-height"),
		MaxBlocksPerCycle: v.GetUint64("max-blocks-per-cycle"),
		MetricsAddr:       v.GetString("metrics-addr"),
		AuditLogPath:      v.GetString("audit-log"),
		LogLevel:          v.GetString("log-level"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BlockchainURL == "" {
		return fmt.Errorf("blockchain url is required")
	}
	parsed, err := url.Parse(c.BlockchainURL)
	if err != nil {
		return fmt.Errorf("invalid blockchain url: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("invalid blockchain url scheme %q", parsed.Scheme)
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if c.MaxBlocksPerCycle == 0 {
		return fmt.Errorf("max blocks per cycle must be positive")
	}
	return nil
}

// ParseRetryDelays parses a comma-separated list of seconds, e.g.
// "5,10,30,60,120". The last value is reused for all further retries.
func ParseRetryDelays(input string) ([]time.Duration, error) {
	parts := strings.Split(input, ",")
	delays := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		secs, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay %q: %w", part, err)
		}
		if secs <= 0 {
			return nil, fmt.Errorf("retry delay must be positive, got %d", secs)
		}
		delays = append(delays, time.Duration(secs)*time.Second)
	}
	if len(delays) == 0 {
		return nil, fmt.Errorf("retry delays list is empty")
	}
	return delays, nil
}
