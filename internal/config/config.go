package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ScorerCfg struct {
	ProfitWeight    float64 `yaml:"profit_weight"`
	RiskWeight      float64 `yaml:"risk_weight"`
	LiquidityWeight float64 `yaml:"liquidity_weight"`
	SuccessWeight   float64 `yaml:"success_weight"`
	MinScore        float64 `yaml:"min_score"`
}

type SizingCfg struct {
	MinReservePercent float64 `yaml:"min_reserve_percent"`
	MaxReservePercent float64 `yaml:"max_reserve_percent"`
}

type TrackerCfg struct {
	WindowSize           int     `yaml:"window_size"`
	AlertThreshold       float64 `yaml:"alert_threshold"`
	TargetSuccessRate    float64 `yaml:"target_success_rate"`
	ExcellentSuccessRate float64 `yaml:"excellent_success_rate"`
}

type RedisCfg struct {
	Addr                string `yaml:"addr"`
	DB                  int    `yaml:"db"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	SnapshotKey         string `yaml:"snapshot_key"`
	AlertStream         string `yaml:"alert_stream"`
	SnapshotIntervalSec int    `yaml:"snapshot_interval_sec"`
}

type FeedCfg struct {
	WsURL string `yaml:"ws_url"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DashCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	DryRun  bool       `yaml:"dry_run"`
	Scorer  ScorerCfg  `yaml:"scorer"`
	Sizing  SizingCfg  `yaml:"sizing"`
	Tracker TrackerCfg `yaml:"tracker"`
	Redis   RedisCfg   `yaml:"redis"`
	Feed    FeedCfg    `yaml:"feed"`
	Metrics MetricsCfg `yaml:"metrics"`
	Dash    DashCfg    `yaml:"dash"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills zero-valued fields with the engine defaults.
func (c *Config) ApplyDefaults() {
	if c.Scorer.ProfitWeight == 0 && c.Scorer.RiskWeight == 0 &&
		c.Scorer.LiquidityWeight == 0 && c.Scorer.SuccessWeight == 0 {
		c.Scorer.ProfitWeight = 0.40
		c.Scorer.RiskWeight = 0.35
		c.Scorer.LiquidityWeight = 0.10
		c.Scorer.SuccessWeight = 0.15
	}
	if c.Scorer.MinScore == 0 {
		c.Scorer.MinScore = 70
	}
	if c.Sizing.MinReservePercent == 0 {
		c.Sizing.MinReservePercent = 5
	}
	if c.Sizing.MaxReservePercent == 0 {
		c.Sizing.MaxReservePercent = 25
	}
	if c.Tracker.WindowSize == 0 {
		c.Tracker.WindowSize = 100
	}
	if c.Tracker.AlertThreshold == 0 {
		c.Tracker.AlertThreshold = 0.90
	}
	if c.Tracker.TargetSuccessRate == 0 {
		c.Tracker.TargetSuccessRate = 0.95
	}
	if c.Tracker.ExcellentSuccessRate == 0 {
		c.Tracker.ExcellentSuccessRate = 0.999
	}
	if c.Redis.SnapshotKey == "" {
		c.Redis.SnapshotKey = "apex:tracker:snapshot"
	}
	if c.Redis.AlertStream == "" {
		c.Redis.AlertStream = "apex:alerts"
	}
	if c.Redis.SnapshotIntervalSec == 0 {
		c.Redis.SnapshotIntervalSec = 30
	}
}

// Validate rejects configurations the engine must not start with.
func (c *Config) Validate() error {
	sum := c.Scorer.ProfitWeight + c.Scorer.RiskWeight +
		c.Scorer.LiquidityWeight + c.Scorer.SuccessWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("config: scorer weights must sum to 1.0±0.01, got %.4f", sum)
	}
	if c.Scorer.MinScore < 0 || c.Scorer.MinScore > 100 {
		return fmt.Errorf("config: min_score must be in [0,100], got %.2f", c.Scorer.MinScore)
	}
	if c.Sizing.MinReservePercent <= 0 || c.Sizing.MaxReservePercent <= 0 ||
		c.Sizing.MinReservePercent > c.Sizing.MaxReservePercent {
		return fmt.Errorf("config: reserve percents invalid: min=%.2f max=%.2f",
			c.Sizing.MinReservePercent, c.Sizing.MaxReservePercent)
	}
	if c.Tracker.WindowSize < 1 {
		return fmt.Errorf("config: tracker window_size must be >= 1, got %d", c.Tracker.WindowSize)
	}
	return nil
}

func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.Redis.SnapshotIntervalSec) * time.Second
}
