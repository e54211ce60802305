package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hylla/sojourn/internal/calendar"
	"github.com/hylla/sojourn/internal/domain"
	"github.com/hylla/sojourn/internal/fanout"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Datasource    DatasourceConfig    `toml:"datasource"`
	Database      DatabaseConfig      `toml:"database"`
	Analysis      AnalysisConfig      `toml:"analysis"`
	BusinessHours BusinessHoursConfig `toml:"business_hours"`
	Logging       LoggingConfig       `toml:"logging"`
}

type DatasourceConfig struct {
	BaseURL  string `toml:"base_url"`
	Email    string `toml:"email"`
	APIToken string `toml:"api_token"`
	PageSize int    `toml:"page_size"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AnalysisConfig struct {
	Workers  int             `toml:"workers"`
	Patterns []PatternConfig `toml:"patterns"`
}

type PatternConfig struct {
	Name   string   `toml:"name"`
	States []string `toml:"states"`
}

type BusinessHoursConfig struct {
	Enabled         bool     `toml:"enabled"`
	DayStart        string   `toml:"day_start"`
	DayEnd          string   `toml:"day_end"`
	Timezone        string   `toml:"timezone"`
	ExcludeWeekends bool     `toml:"exclude_weekends"`
	Holidays        []string `toml:"holidays"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Calendar converts the section into a calendar config, or nil when
// business-hours weighting is disabled.
func (b BusinessHoursConfig) Calendar() *calendar.Config {
	if !b.Enabled {
		return nil
	}
	return &calendar.Config{
		DayStart:        b.DayStart,
		DayEnd:          b.DayEnd,
		Timezone:        b.Timezone,
		ExcludeWeekends: b.ExcludeWeekends,
		Holidays:        b.Holidays,
	}
}

// TransitionPatterns converts the configured patterns into domain values.
func (a AnalysisConfig) TransitionPatterns() ([]domain.TransitionPattern, error) {
	patterns := make([]domain.TransitionPattern, 0, len(a.Patterns))
	for i, p := range a.Patterns {
		pattern, err := domain.NewTransitionPattern(p.Name, p.States)
		if err != nil {
			return nil, fmt.Errorf("analysis.patterns[%d]: %w", i, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func Default(dbPath string) Config {
	return Config{
		Datasource: DatasourceConfig{
			PageSize: 100,
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Analysis: AnalysisConfig{
			Workers: fanout.DefaultWorkers,
		},
		BusinessHours: BusinessHoursConfig{
			Enabled:         false,
			DayStart:        "09:00",
			DayEnd:          "17:00",
			Timezone:        "UTC",
			ExcludeWeekends: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if c.Analysis.Workers <= 0 {
		return errors.New("analysis.workers must be > 0")
	}
	if c.Datasource.PageSize <= 0 || c.Datasource.PageSize > 1000 {
		return errors.New("datasource.page_size must be in 1..1000")
	}
	if _, err := c.Analysis.TransitionPatterns(); err != nil {
		return err
	}
	if bh := c.BusinessHours.Calendar(); bh != nil {
		if _, err := calendar.New(*bh); err != nil {
			return err
		}
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
