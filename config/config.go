package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultFeedURL is Binance's all-market 24h ticker array stream.
const DefaultFeedURL = "wss://stream.binance.com:9443/ws/!ticker@arr"

// Config is the complete papertrade configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig seeds a freshly initialized ledger.
type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// StartingBalance returns the configured balance as a decimal.
func (a AccountConfig) StartingBalance() decimal.Decimal {
	return decimal.NewFromFloat(a.Balance)
}

// FeedConfig describes the market price stream.
type FeedConfig struct {
	URL              string `json:"url" yaml:"url"`
	MaxSymbols       int    `json:"max_symbols" yaml:"max_symbols"`
	HandshakeTimeout string `json:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"` // e.g. "10s"
	ReconnectMin     string `json:"reconnect_min,omitempty" yaml:"reconnect_min,omitempty"`
	ReconnectMax     string `json:"reconnect_max,omitempty" yaml:"reconnect_max,omitempty"`
	ReplayFile       string `json:"replay_file,omitempty" yaml:"replay_file,omitempty"`
}

// Handshake returns the websocket handshake timeout (0 = library default).
func (f FeedConfig) Handshake() (time.Duration, error) {
	return parseDuration(f.HandshakeTimeout)
}

// Backoff returns the reconnect delay bounds.
func (f FeedConfig) Backoff() (time.Duration, time.Duration, error) {
	lo, err := parseDuration(f.ReconnectMin)
	if err != nil {
		return 0, 0, fmt.Errorf("feed.reconnect_min: %w", err)
	}
	hi, err := parseDuration(f.ReconnectMax)
	if err != nil {
		return 0, 0, fmt.Errorf("feed.reconnect_max: %w", err)
	}
	return lo, hi, nil
}

// TradingConfig holds order-entry limits.
type TradingConfig struct {
	MinQuantity float64 `json:"min_quantity" yaml:"min_quantity"`
}

// MinimumQuantity returns the order floor as a decimal.
func (t TradingConfig) MinimumQuantity() decimal.Decimal {
	return decimal.NewFromFloat(t.MinQuantity)
}

// JournalConfig selects where the ledger is stored.
type JournalConfig struct {
	Type     string `json:"type" yaml:"type"` // "sqlite", "file" or "memory"
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a YAML or JSON file, applies
// environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration as YAML or JSON depending on the
// file extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from PAPERTRADE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Journal.Type = getString("PAPERTRADE_JOURNAL_TYPE", c.Journal.Type)
	c.Journal.DBPath = getString("PAPERTRADE_DB_PATH", c.Journal.DBPath)
	c.Journal.FilePath = getString("PAPERTRADE_FILE_PATH", c.Journal.FilePath)
	c.Feed.URL = getString("PAPERTRADE_FEED_URL", c.Feed.URL)
	c.Log.Level = getString("PAPERTRADE_LOG_LEVEL", c.Log.Level)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Feed.URL == "" && c.Feed.ReplayFile == "" {
		return fmt.Errorf("feed.url or feed.replay_file is required")
	}
	if c.Feed.MaxSymbols <= 0 {
		return fmt.Errorf("feed.max_symbols must be positive")
	}
	if _, err := c.Feed.Handshake(); err != nil {
		return fmt.Errorf("feed.handshake_timeout: %w", err)
	}
	lo, hi, err := c.Feed.Backoff()
	if err != nil {
		return err
	}
	if hi > 0 && lo > hi {
		return fmt.Errorf("feed.reconnect_min must not exceed feed.reconnect_max")
	}
	if c.Trading.MinQuantity <= 0 {
		return fmt.Errorf("trading.min_quantity must be positive")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "file":
		if c.Journal.FilePath == "" {
			return fmt.Errorf("journal file_path required for file type")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'file' or 'memory'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USDT",
			Balance:  1_000_000_000,
		},
		Feed: FeedConfig{
			URL:              DefaultFeedURL,
			MaxSymbols:       15,
			HandshakeTimeout: "10s",
			ReconnectMin:     "1s",
			ReconnectMax:     "30s",
		},
		Trading: TradingConfig{
			MinQuantity: 0.0001,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrade.sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}
