// Package app loads the sheetbot configuration and wires its components into
// the core Telegram runtime.
package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/sheetbot/core/config"
	coredatabase "github.com/m3rciful/sheetbot/core/database"
)

// SheetsConfig holds Google Sheets API settings.
type SheetsConfig struct {
	// CredentialsFile is a service account JSON key. Empty falls back to
	// application default credentials.
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" envconfig:"SHEETS_TIMEOUT_SECONDS"`
}

// Timeout returns the per-call timeout; zero selects the source default.
func (s SheetsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DialogueConfig tunes input validation.
type DialogueConfig struct {
	MinSpreadsheetIDLength int `yaml:"min_spreadsheet_id_length" envconfig:"MIN_SPREADSHEET_ID_LENGTH"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	// Database is optional; without a host snapshots are kept in memory.
	Database coredatabase.Config `yaml:"database"`
	Sheets   SheetsConfig        `yaml:"sheets"`
	Dialogue DialogueConfig      `yaml:"dialogue"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the YAML file at path, overlays environment variables and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections on top of the core rules.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}
	if cfg.Sheets.TimeoutSeconds < 0 {
		return fmt.Errorf("sheets.timeout_seconds must be >= 0")
	}
	if cfg.Dialogue.MinSpreadsheetIDLength < 0 {
		return fmt.Errorf("dialogue.min_spreadsheet_id_length must be >= 0")
	}
	if cfg.Database.Enabled() {
		if strings.TrimSpace(cfg.Database.SSLMode) == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	}
	return nil
}
