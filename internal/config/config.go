package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"shadowTrader/internal/registry"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL              string
	ChainID             int64
	Router              string
	WrappedNative       string
	OracleBaseURL       string
	OracleChain         string
	PGDSN               string
	JournalPath         string
	ApprovalTimeout     time.Duration
	ReceiptPollInterval time.Duration
	LogLevel            string
	Tokens              []registry.Entry
}

// Load merges config file, environment variables, and flags into Config.
// The token registry entries come from the config file's tokens list.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", int64(146))
	v.SetDefault("oracle-base-url", "https://api.dexscreener.com/latest/dex")
	v.SetDefault("oracle-chain", "sonic")
	v.SetDefault("journal-path", "./data/submissions.jsonl")
	v.SetDefault("approval-timeout", 90*time.Second)
	v.SetDefault("receipt-poll-interval", 2*time.Second)
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

	var tokens []registry.Entry
	if v.IsSet("tokens") {
		if err := v.UnmarshalKey("tokens", &tokens); err != nil {
			return Config{}, fmt.Errorf("parse tokens: %w", err)
		}
	}

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		ChainID:             v.GetInt64("chain-id"),
		Router:              v.GetString("router"),
		WrappedNative:       v.GetString("wrapped-native"),
		OracleBaseURL:       v.GetString("oracle-base-url"),
		OracleChain:         v.GetString("oracle-chain"),
		PGDSN:               v.GetString("pg-dsn"),
		JournalPath:         v.GetString("journal-path"),
		ApprovalTimeout:     v.GetDuration("approval-timeout"),
		ReceiptPollInterval: v.GetDuration("receipt-poll-interval"),
		LogLevel:            v.GetString("log-level"),
		Tokens:              tokens,
	}

	return cfg, nil
}
