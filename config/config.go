// Package config loads termpal's YAML settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"termpal/fsops"

	"gopkg.in/yaml.v3"
)

// Config is the contents of ~/.termpal/config.yaml.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
	Run       RunConfig       `yaml:"run"`
	Weather   WeatherConfig   `yaml:"weather"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// HistoryConfig controls the history of typed lines. It is kept in memory
// for the session unless Persist is set, in which case it lives at Path.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Persist bool   `yaml:"persist"`
	Path    string `yaml:"path"`
	Limit   int    `yaml:"limit"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty disables logging
}

// RunConfig names the interpreters used by the run command.
type RunConfig struct {
	Python string `yaml:"python"`
	Shell  string `yaml:"shell"`
}

type WeatherConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Dir is the directory holding termpal's config, history and log.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".termpal"), nil
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	python := "python3"
	if runtime.GOOS == "windows" {
		python = "python"
	}
	return &Config{
		Scheduler: SchedulerConfig{PollInterval: time.Second},
		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.termpal/history.db",
			Limit:   500,
		},
		Log: LogConfig{
			Level: "info",
			File:  "~/.termpal/termpal.log",
		},
		Run: RunConfig{Python: python, Shell: "bash"},
		Weather: WeatherConfig{
			BaseURL: "http://api.openweathermap.org/data/2.5/weather",
			Timeout: 10 * time.Second,
		},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path over the defaults. An empty path means
// DefaultPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}
	if v := os.Getenv("TERMPAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.History.Path, &c.Log.File} {
		expanded, err := fsops.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate rejects settings the shell cannot run with.
func (c *Config) Validate() error {
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_interval must be positive, got %s", c.Scheduler.PollInterval)
	}
	if c.Scheduler.PollInterval > time.Minute {
		return fmt.Errorf("scheduler.poll_interval must not exceed 1m, got %s", c.Scheduler.PollInterval)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	if c.Run.Python == "" || c.Run.Shell == "" {
		return fmt.Errorf("run.python and run.shell are required")
	}
	return nil
}
