// Package config resolves runtime settings from a .env file, the
// environment, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwulff/speakerid/internal/api"
)

const (
	envPrefix = "SPEAKERID_"

	DefaultPlayer = "ffplay -nodisp -autoexit -loglevel quiet"
)

// Config holds the resolved settings.
type Config struct {
	BaseURL     string
	JournalPath string
	// LogPath is empty when logging is disabled.
	LogPath  string
	LogLevel slog.Level
	// Player is the audio player command; the clip path is appended.
	Player []string
	// Timeout bounds each HTTP request. Zero means no limit.
	Timeout time.Duration

	MatchThreshold      float64
	AutoUpdateThreshold float64
}

// DataDir is where the journal and log live unless overridden.
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "speakerid")
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	dir := DataDir()
	return Config{
		BaseURL:             api.DefaultBaseURL,
		JournalPath:         filepath.Join(dir, "journal.sqlite"),
		LogPath:             filepath.Join(dir, "speakerid.log"),
		LogLevel:            slog.LevelInfo,
		Player:              strings.Fields(DefaultPlayer),
		MatchThreshold:      api.DefaultMatchThreshold,
		AutoUpdateThreshold: api.DefaultAutoUpdateThreshold,
	}
}

// Load resolves settings for the given command-line arguments (without the
// program name). A missing .env file is not an error.
func Load(args []string) (Config, error) {
	fset := flag.NewFlagSet("speakerid", flag.ContinueOnError)
	envFile := fset.String("env", ".env", "dotenv file to load before reading the environment")
	url := fset.String("url", "", "backend base URL")
	journal := fset.String("journal", "", "edit journal path (\":memory:\" to keep it in memory)")
	logPath := fset.String("log", "", "log file path (\"-\" disables logging)")
	logLevel := fset.String("log-level", "", "log level: debug, info, warn, error")
	player := fset.String("player", "", "audio player command")
	timeout := fset.Duration("timeout", 0, "per-request timeout")
	match := fset.Float64("match-threshold", -1, "upload match threshold, 0 to 1")
	auto := fset.Float64("auto-update-threshold", -1, "upload auto-update threshold, 0 to 1")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["url"] {
		cfg.BaseURL = *url
	}
	if set["journal"] {
		cfg.JournalPath = *journal
	}
	if set["log"] {
		cfg.LogPath = *logPath
	}
	if set["log-level"] {
		if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
			return Config{}, fmt.Errorf("parse -log-level: %w", err)
		}
	}
	if set["player"] {
		cfg.Player = strings.Fields(*player)
	}
	if set["timeout"] {
		cfg.Timeout = *timeout
	}
	if set["match-threshold"] {
		cfg.MatchThreshold = *match
	}
	if set["auto-update-threshold"] {
		cfg.AutoUpdateThreshold = *auto
	}

	if cfg.LogPath == "-" {
		cfg.LogPath = ""
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := env("URL"); v != "" {
		c.BaseURL = v
	}
	if v := env("JOURNAL"); v != "" {
		c.JournalPath = v
	}
	if v := env("LOG"); v != "" {
		c.LogPath = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("parse %sLOG_LEVEL: %w", envPrefix, err)
		}
	}
	if v := env("PLAYER"); v != "" {
		c.Player = strings.Fields(v)
	}
	if v := env("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	if v := env("MATCH_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %sMATCH_THRESHOLD: %w", envPrefix, err)
		}
		c.MatchThreshold = f
	}
	if v := env("AUTO_UPDATE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %sAUTO_UPDATE_THRESHOLD: %w", envPrefix, err)
		}
		c.AutoUpdateThreshold = f
	}
	return nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("backend URL is empty")
	}
	if c.JournalPath == "" {
		return errors.New("journal path is empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for name, v := range map[string]float64{
		"match threshold":       c.MatchThreshold,
		"auto-update threshold": c.AutoUpdateThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %.2f", name, v)
		}
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}
