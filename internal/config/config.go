package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/observability"
)

// Config holds all application configuration
type Config struct {
	Version   int                  `toml:"version"`
	Target    TargetConfig         `toml:"target"`
	Safety    SafetyConfig         `toml:"safety"`
	Run       RunConfig            `toml:"run"`
	Bridge    BridgeConfig         `toml:"bridge"`
	Scheduler SchedulerConfig      `toml:"scheduler"`
	History   HistoryConfig        `toml:"history"`
	Logging   observability.Config `toml:"logging"`
}

type TargetConfig struct {
	// ListURL is the sent-invitations page
	ListURL string `toml:"list_url"`
	// AssumedTotal stands in for the page-reported total when the header
	// is missing; advisory only
	AssumedTotal int  `toml:"assumed_total"`
	Headless     bool `toml:"headless"`
}

type SafetyConfig struct {
	Enabled        bool   `toml:"enabled"`
	ThresholdValue int    `toml:"threshold_value"`
	ThresholdUnit  string `toml:"threshold_unit"`
}

// Threshold converts the configured safe floor to a domain threshold.
func (s SafetyConfig) Threshold() invites.Threshold {
	return invites.Threshold{Value: s.ThresholdValue, Unit: invites.Unit(s.ThresholdUnit)}
}

// RunConfig holds defaults for unattended (scheduled) runs.
type RunConfig struct {
	Mode           string   `toml:"mode"`
	TargetCount    int      `toml:"target_count"`
	AgeValue       int      `toml:"age_value"`
	AgeUnit        string   `toml:"age_unit"`
	MessagePattern []string `toml:"message_patterns"`
}

type BridgeConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	CronSpec string `toml:"cron_spec"`
	Timezone string `toml:"timezone"`
}

type HistoryConfig struct {
	DBPath      string `toml:"db_path"`
	MaxSessions int    `toml:"max_sessions"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Target: TargetConfig{
			ListURL:      "https://www.linkedin.com/mynetwork/invitation-manager/sent/",
			AssumedTotal: 1000,
			Headless:     true,
		},
		Safety: SafetyConfig{
			Enabled:        true,
			ThresholdValue: 2,
			ThresholdUnit:  string(invites.Week),
		},
		Run: RunConfig{
			Mode:     string(invites.ModeAge),
			AgeValue: 1,
			AgeUnit:  string(invites.Month),
		},
		Bridge: BridgeConfig{
			ListenAddr: "127.0.0.1:9151",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			CronSpec: "0 7 * * *",
			Timezone: "Local",
		},
		History: HistoryConfig{
			MaxSessions: 100,
		},
		Logging: observability.Config{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// Dir returns the platform-appropriate config directory
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "invitesweep"), nil
}

// Path returns the full path to the config file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the directory for scan exports and other transient output.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "invitesweep"), nil
}

// DefaultDBPath returns the history database location when unset in config.
func DefaultDBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
