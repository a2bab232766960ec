package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{
		"telegram": {"token": "t0k3n", "poll_timeout": "15s"},
		"logging": {"level": "debug", "console": true},
		"scheduler": {"timezone": "UTC", "workers": 2},
		"storage": {"driver": "sqlite", "path": "bot.db", "busy_timeout": "2s"},
		"bot": {"test_ping_delay": "5s"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t0k3n" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if d, _ := cfg.TelegramPollTimeout(); d != 15*time.Second {
		t.Fatalf("poll timeout = %v", d)
	}
	if d, _ := cfg.BotTestPingDelay(); d != 5*time.Second {
		t.Fatalf("ping delay = %v", d)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
telegram:
  token: t0k3n
scheduler:
  timezone: Europe/Berlin
storage:
  driver: file
  path: ./data
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Timezone != "Europe/Berlin" {
		t.Fatalf("timezone = %q", cfg.Scheduler.Timezone)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "config.json", `{"telegram": {"token": "x"}, "nope": 1}`},
		{"missing token", "config.json", `{"telegram": {}}`},
		{"bad duration", "config.json", `{"telegram": {"token": "x", "poll_timeout": "soon"}}`},
		{"bad timezone", "config.json", `{"telegram": {"token": "x"}, "scheduler": {"timezone": "Mars/Olympus"}}`},
		{"trailing data", "config.json", `{"telegram": {"token": "x"}}{}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, tc.file, tc.content)
			if _, err := NewManager(path).Load(); err == nil {
				t.Fatalf("Load accepted %s", tc.name)
			}
		})
	}
}

func TestDurationDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d, _ := cfg.TelegramPollTimeout(); d != 10*time.Second {
		t.Fatalf("poll default = %v", d)
	}
	if d, _ := cfg.BotTestPingDelay(); d != 3*time.Second {
		t.Fatalf("ping default = %v", d)
	}
	if d, _ := cfg.StorageBusyTimeout(); d != 5*time.Second {
		t.Fatalf("busy default = %v", d)
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}

	ch := m.Subscribe(1)
	next := &Config{Telegram: TelegramConfig{Token: "y"}}
	m.publish(next)

	select {
	case got := <-ch:
		if got.Telegram.Token != "y" {
			t.Fatalf("token = %q", got.Telegram.Token)
		}
	default:
		t.Fatal("no config delivered")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}
