package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{Token: "t", RunMode: "Polling"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]Config{
		"telegram token": {},
		"webhook.url, webhook.listen, webhook.port": {
			Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
		},
		"invalid telegram.run_mode": {
			Telegram: TelegramConfig{Token: "t", RunMode: "push"},
		},
		"exclude_updates": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
		},
	}
	for want, cfg := range cases {
		err := Normalize(&cfg)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("Normalize() = %v, want error containing %q", err, want)
		}
	}
}

func TestDecodeAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "telegram:\n  token: from-file\n  admin_id: 3\nlogging:\n  level: info\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Telegram.Token != "from-env" || cfg.Telegram.AdminID != 3 || cfg.Logging.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	var cfg Config
	if err := Decode(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error")
	}
}
