package config

import "time"

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Bot       BotConfig       `json:"bot"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// RatePerSec caps outbound sends. Zero means the built-in default.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console,omitempty"`
	File    string `json:"file,omitempty"`
}

type SchedulerConfig struct {
	// Timezone is an IANA name (e.g. "Europe/Berlin"); empty means local time.
	Timezone  string `json:"timezone,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	QueueSize int    `json:"queue_size,omitempty"`
}

type StorageConfig struct {
	// Driver selects the backend: "file" (default) or "sqlite".
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string, sqlite only.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type BotConfig struct {
	// TestPingDelay is a Go duration string for the on-demand test ping.
	TestPingDelay string `json:"test_ping_delay,omitempty"`
}

func (c *Config) TelegramPollTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second)
}

func (c *Config) StorageBusyTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("storage.busy_timeout", c.Storage.BusyTimeout, 5*time.Second)
}

func (c *Config) BotTestPingDelay() (time.Duration, error) {
	return ParseDurationOrDefault("bot.test_ping_delay", c.Bot.TestPingDelay, 3*time.Second)
}

// Validate checks the fields a running bot cannot limp along without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errEmptyToken
	}
	if _, err := c.TelegramPollTimeout(); err != nil {
		return err
	}
	if _, err := c.StorageBusyTimeout(); err != nil {
		return err
	}
	if _, err := c.BotTestPingDelay(); err != nil {
		return err
	}
	if tz := c.Scheduler.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return err
		}
	}
	return nil
}
