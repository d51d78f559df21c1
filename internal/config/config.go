// Package config loads swaprouter configuration from flags, environment
// variables, and an optional config file.
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
	// RPCURLs maps chain ID to RPC endpoint, parsed from "chainID=url" entries.
	RPCURLs          map[uint64]string
	RegistryAddress  string
	HubToken         string
	SlippageBps      uint32
	Confirmations    uint64
	PollInterval     time.Duration
	MaxWait          time.Duration
	PrivateKey       string
	AggregatorURL    string
	AggregatorAPIKey string
	HistoryFile      string
	PGDSN            string
	MaxRetries       int
	RetryBackoff     time.Duration
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("hub-token", "WETH")
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("confirmations", 1)
	v.SetDefault("poll-interval", 3*time.Second)
	v.SetDefault("max-wait", 3*time.Minute)
	v.SetDefault("history", "./data/swaps.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
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

	rpcURLs, err := parseRPCURLs(getStringSlice(v, "rpc"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURLs:          rpcURLs,
		RegistryAddress:  v.GetString("registry"),
		HubToken:         v.GetString("hub-token"),
		SlippageBps:      uint32(v.GetUint("slippage-bps")),
		Confirmations:    v.GetUint64("confirmations"),
		PollInterval:     v.GetDuration("poll-interval"),
		MaxWait:          v.GetDuration("max-wait"),
		PrivateKey:       v.GetString("private-key"),
		AggregatorURL:    v.GetString("aggregator-url"),
		AggregatorAPIKey: v.GetString("aggregator-api-key"),
		HistoryFile:      v.GetString("history"),
		PGDSN:            v.GetString("pg-dsn"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// parseRPCURLs parses "chainID=url" entries into a map.
func parseRPCURLs(entries []string) (map[uint64]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	urls := make(map[uint64]string, len(entries))
	for _, entry := range entries {
		id, url, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rpc entry %q, expected chainID=url", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in rpc entry %q: %w", entry, err)
		}
		urls[chainID] = strings.TrimSpace(url)
	}
	return urls, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
