package scheduler

import (
	"time"

	"github.com/smallbiznis/monetization/internal/config"
)

// Config controls the settlement loop.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	RunTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Minute,
		RunTimeout:  30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.Enabled = cfg.SchedulerEnabled
	c.RunInterval = time.Duration(cfg.SchedulerInterval) * time.Second
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
