package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes an external ICS subscription shown behind the plan grid.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Config is the top-level application configuration shared by the
// backend (serve) and the planner front-ends (plan, add).
type Config struct {
	// Listen is the HTTP listen address of the backend.
	Listen string `yaml:"listen" json:"listen"`

	// Endpoint is the base URL the planner posts imports to.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Timezone is the IANA zone the week grid is drawn in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// SlotMinutes is the grid resolution of a selection.
	SlotMinutes int `yaml:"slot_minutes" json:"slot_minutes"`

	// DayStartHour / DayEndHour bound the visible hours of each day.
	DayStartHour int `yaml:"day_start_hour" json:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour" json:"day_end_hour"`

	// Locale picks prompt and failure labels ("zh" or "en").
	Locale string `yaml:"locale" json:"locale"`

	// Database is the SQLite file used by the backend.
	Database string `yaml:"database" json:"database"`

	// DataDir holds the ICS cache, exports and the planner log file.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// RefreshCron is the cron schedule for re-fetching ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`
}

const (
	defaultListen    = "127.0.0.1:8000"
	defaultEndpoint  = "http://127.0.0.1:8000"
	defaultTimezone  = "Asia/Shanghai"
	defaultCron      = "*/15 * * * *"
	defaultSlot      = 15
	defaultDayStart  = 7
	defaultDayEnd    = 22
	defaultLocale    = "zh"
	defaultDataDir   = "data"
	defaultDatabase  = "data/kidplan.db"
	defaultLogLevel  = "info"
	defaultWeekStart = "monday"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Endpoint:     defaultEndpoint,
		Timezone:     defaultTimezone,
		WeekStart:    defaultWeekStart,
		SlotMinutes:  defaultSlot,
		DayStartHour: defaultDayStart,
		DayEndHour:   defaultDayEnd,
		Locale:       defaultLocale,
		Database:     defaultDatabase,
		DataDir:      defaultDataDir,
		RefreshCron:  defaultCron,
		LogLevel:     defaultLogLevel,
		ICS:          []ICSConfig{},
	}
}

// Normalize fills in missing or invalid values so that partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	// Slots must divide an hour evenly so rows line up with the hour marks.
	if c.SlotMinutes <= 0 || 60%c.SlotMinutes != 0 {
		c.SlotMinutes = defaultSlot
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		c.DayStartHour = defaultDayStart
	}
	if c.DayEndHour <= c.DayStartHour || c.DayEndHour > 24 {
		c.DayEndHour = defaultDayEnd
		if c.DayEndHour <= c.DayStartHour {
			c.DayEndHour = 24
		}
	}
	switch c.Locale {
	case "zh", "en":
	default:
		c.Locale = defaultLocale
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "kidplan.db")
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with defaults (0600) and the defaults are
// returned. An existing file is parsed and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".kidplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
