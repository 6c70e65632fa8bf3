// config/config.go
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// SettingsVersion is the current settings schema version. Config files
// carrying an older version are migrated through upgradeFromLegacy.
const SettingsVersion = "7.0"

// Settings holds every knob the decision engine reads. It is passed by
// value into each tick, so edits to the loaded Config take effect on the
// next tick without a restart.
type Settings struct {
	Enabled          bool    `yaml:"enabled"`
	BuyThreshold     float64 `yaml:"buy_threshold"`
	SellThreshold    float64 `yaml:"sell_threshold"`
	HistoryLength    int     `yaml:"history_length"`
	MomentumTicks    int     `yaml:"momentum_ticks"`
	TrailingStopPct  float64 `yaml:"trailing_stop_pct"`
	PartialSellPct   float64 `yaml:"partial_sell_pct"`
	TopAssetsCount   int     `yaml:"top_assets_count"`
	RankInterval     int     `yaml:"rank_interval"`
	SendPriceUpdates bool    `yaml:"send_price_updates"`
	SendTradeUpdates bool    `yaml:"send_trade_updates"`
}

// MarketConfig selects and parameterizes the host market implementation.
type MarketConfig struct {
	Source          string   `yaml:"source"` // "sim" or "replay"
	Seed            int64    `yaml:"seed"`
	ReplayFile      string   `yaml:"replay_file"`
	StartingCapital float64  `yaml:"starting_capital"`
	GoodNames       []string `yaml:"good_names"`
}

// TelegramConfig toggles the notification channel. Token and chat id are
// secrets and come from the environment, never from the yaml file.
type TelegramConfig struct {
	Enabled            bool `yaml:"enabled"`
	PollTimeoutSeconds int  `yaml:"poll_timeout_seconds"`
}

// LogConfig holds the configuration for logging.
type LogConfig struct {
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// NormalConfig holds general, non-strategy configuration.
type NormalConfig struct {
	TickIntervalSeconds      int    `yaml:"tick_interval_seconds"`
	CommandPollSeconds       int    `yaml:"command_poll_seconds"`
	HeartbeatIntervalMinutes int    `yaml:"heartbeat_interval_minutes"`
	LogDirectory             string `yaml:"log_directory"`
	StateDirectory           string `yaml:"state_directory"`
}

// Config is the top-level configuration structure.
type Config struct {
	SettingsVersion string          `yaml:"settings_version"`
	Strategy        Settings        `yaml:"strategy"`
	Market          *MarketConfig   `yaml:"market"`
	Telegram        *TelegramConfig `yaml:"telegram"`
	Normal          *NormalConfig   `yaml:"normal_config"`
	Logs            *LogConfig      `yaml:"logs"`
}

// NewConfig returns a Config carrying the strategy defaults the bot
// shipped with. File values are merged on top of it.
func NewConfig() *Config {
	return &Config{
		SettingsVersion: SettingsVersion,
		Strategy: Settings{
			Enabled:          true,
			BuyThreshold:     0.95,
			SellThreshold:    1.10,
			HistoryLength:    200,
			MomentumTicks:    2,
			TrailingStopPct:  0.98,
			PartialSellPct:   0.5,
			TopAssetsCount:   3,
			RankInterval:     300,
			SendPriceUpdates: true,
			SendTradeUpdates: true,
		},
		Market: &MarketConfig{
			Source:          "sim",
			StartingCapital: 1_000_000,
		},
		Telegram: &TelegramConfig{
			PollTimeoutSeconds: 10,
		},
		Normal: &NormalConfig{},
		Logs:   &LogConfig{},
	}
}

// LoadConfig loads configuration from a given path, applies defaults,
// migrates legacy layouts, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s, the bot cannot run without one", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var probe struct {
		SettingsVersion string `yaml:"settings_version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if probe.SettingsVersion != SettingsVersion {
		if err := upgradeFromLegacy(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to upgrade legacy settings: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	cfg.SettingsVersion = SettingsVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the logical consistency and completeness of the configuration.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.BuyThreshold <= 0 || s.BuyThreshold >= 1 {
		return fmt.Errorf("config error: strategy.buy_threshold must be in (0, 1), got %g", s.BuyThreshold)
	}
	if s.SellThreshold <= 1 {
		return fmt.Errorf("config error: strategy.sell_threshold must be greater than 1, got %g", s.SellThreshold)
	}
	if s.HistoryLength < 2 {
		return fmt.Errorf("config error: strategy.history_length must be at least 2, got %d", s.HistoryLength)
	}
	if s.MomentumTicks < 1 {
		return fmt.Errorf("config error: strategy.momentum_ticks must be at least 1, got %d", s.MomentumTicks)
	}
	if s.TrailingStopPct <= 0 || s.TrailingStopPct >= 1 {
		return fmt.Errorf("config error: strategy.trailing_stop_pct must be in (0, 1), got %g", s.TrailingStopPct)
	}
	if s.PartialSellPct <= 0 || s.PartialSellPct > 1 {
		return fmt.Errorf("config error: strategy.partial_sell_pct must be in (0, 1], got %g", s.PartialSellPct)
	}
	if s.TopAssetsCount < 1 {
		return fmt.Errorf("config error: strategy.top_assets_count must be at least 1, got %d", s.TopAssetsCount)
	}
	if s.RankInterval < 1 {
		return fmt.Errorf("config error: strategy.rank_interval must be at least 1, got %d", s.RankInterval)
	}

	if c.Market == nil {
		return fmt.Errorf("critical config missing: 'market' block must be provided")
	}
	switch c.Market.Source {
	case "sim":
	case "replay":
		if c.Market.ReplayFile == "" {
			return fmt.Errorf("critical config missing: market.replay_file is required when market.source is 'replay'")
		}
	default:
		return fmt.Errorf("config error: market.source must be 'sim' or 'replay', got %q", c.Market.Source)
	}
	if c.Market.StartingCapital <= 0 {
		return fmt.Errorf("config error: market.starting_capital must be positive, got %g", c.Market.StartingCapital)
	}

	if c.Telegram == nil {
		return fmt.Errorf("critical config missing: 'telegram' block must be provided")
	}
	if c.Telegram.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("config error: telegram.poll_timeout_seconds must be positive")
	}

	if c.Normal == nil {
		return fmt.Errorf("critical config missing: 'normal_config' block must be provided")
	}
	if c.Normal.TickIntervalSeconds <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.tick_interval_seconds' must be specified and positive")
	}
	if c.Normal.CommandPollSeconds <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.command_poll_seconds' must be specified and positive")
	}
	if c.Normal.HeartbeatIntervalMinutes <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.heartbeat_interval_minutes' must be specified and positive")
	}
	if c.Normal.LogDirectory == "" {
		return fmt.Errorf("critical config missing: 'normal_config.log_directory' must be specified (e.g. 'logs')")
	}
	if c.Normal.StateDirectory == "" {
		return fmt.Errorf("critical config missing: 'normal_config.state_directory' must be specified (e.g. 'state')")
	}

	if c.Logs == nil {
		return fmt.Errorf("critical config missing: 'logs' block must be provided")
	}
	if c.Logs.LogLevel == "" {
		return fmt.Errorf("critical config missing: 'logs.log_level' must be specified (e.g. 'info')")
	}
	if c.Logs.MaxSizeMB <= 0 {
		return fmt.Errorf("critical config missing: 'logs.max_size_mb' must be specified and positive")
	}
	if c.Logs.MaxBackups <= 0 {
		return fmt.Errorf("critical config missing: 'logs.max_backups' must be specified and positive")
	}
	if c.Logs.MaxAgeDays <= 0 {
		return fmt.Errorf("critical config missing: 'logs.max_age_days' must be specified and positive")
	}

	return nil
}

// EnvConfig carries secrets taken from the environment.
type EnvConfig struct {
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
}

// LoadEnvConfig maps environment variables into an EnvConfig.
func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}
