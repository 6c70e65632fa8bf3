// config/upgrade.go
package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// legacyConfig is the flat pre-7.0 layout: strategy knobs at the top
// level, the old analyze_interval name, and telegram secrets inline.
type legacyConfig struct {
	Enabled          *bool    `yaml:"enabled"`
	BuyThreshold     *float64 `yaml:"buy_threshold"`
	SellThreshold    *float64 `yaml:"sell_threshold"`
	HistoryLength    *int     `yaml:"history_length"`
	MomentumTicks    *int     `yaml:"momentum_ticks"`
	TrailingStopPct  *float64 `yaml:"trailing_stop_pct"`
	PartialSellPct   *float64 `yaml:"partial_sell_pct"`
	TopAssetsCount   *int     `yaml:"top_assets_count"`
	AnalyzeInterval  *int     `yaml:"analyze_interval"`
	SendPriceUpdates *bool    `yaml:"send_price_updates"`
	SendTradeUpdates *bool    `yaml:"send_trade_updates"`
	TelegramEnabled  *bool    `yaml:"telegram_enabled"`

	Market *MarketConfig `yaml:"market"`
	Normal *NormalConfig `yaml:"normal_config"`
	Logs   *LogConfig    `yaml:"logs"`
}

// upgradeFromLegacy maps a legacy config file onto cfg. Keys absent from
// the file keep their defaults, so the migration is a pure field-by-field
// lift with one rename (analyze_interval -> rank_interval).
func upgradeFromLegacy(data []byte, cfg *Config) error {
	var old legacyConfig
	if err := yaml.Unmarshal(data, &old); err != nil {
		return fmt.Errorf("failed to unmarshal legacy yaml: %w", err)
	}

	s := &cfg.Strategy
	if old.Enabled != nil {
		s.Enabled = *old.Enabled
	}
	if old.BuyThreshold != nil {
		s.BuyThreshold = *old.BuyThreshold
	}
	if old.SellThreshold != nil {
		s.SellThreshold = *old.SellThreshold
	}
	if old.HistoryLength != nil {
		s.HistoryLength = *old.HistoryLength
	}
	if old.MomentumTicks != nil {
		s.MomentumTicks = *old.MomentumTicks
	}
	if old.TrailingStopPct != nil {
		s.TrailingStopPct = *old.TrailingStopPct
	}
	if old.PartialSellPct != nil {
		s.PartialSellPct = *old.PartialSellPct
	}
	if old.TopAssetsCount != nil {
		s.TopAssetsCount = *old.TopAssetsCount
	}
	if old.AnalyzeInterval != nil {
		s.RankInterval = *old.AnalyzeInterval
	}
	if old.SendPriceUpdates != nil {
		s.SendPriceUpdates = *old.SendPriceUpdates
	}
	if old.SendTradeUpdates != nil {
		s.SendTradeUpdates = *old.SendTradeUpdates
	}
	if old.TelegramEnabled != nil {
		cfg.Telegram.Enabled = *old.TelegramEnabled
	}

	if old.Market != nil {
		cfg.Market = old.Market
		if cfg.Market.Source == "" {
			cfg.Market.Source = "sim"
		}
		if cfg.Market.StartingCapital == 0 {
			cfg.Market.StartingCapital = 1_000_000
		}
	}
	if old.Normal != nil {
		cfg.Normal = old.Normal
	}
	if old.Logs != nil {
		cfg.Logs = old.Logs
	}
	return nil
}
