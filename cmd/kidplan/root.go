package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kidplan/internal/calendar"
	"kidplan/internal/config"
	"kidplan/internal/feed"
	appLog "kidplan/internal/log"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	listen     string
	endpoint   string
	debug      bool
}

func NewRootCommand(version, commit, date string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "kidplan",
		Short: "Weekly planner for a child's activities",
		Long: `kidplan lets a parent drag out time ranges on a week grid, name them,
and have each one imported into the child's task list on the backend.

Run "kidplan serve" for the backend and "kidplan plan" for the planner.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "kidplan.yaml", "Path to config file")
	pf.StringVar(&opts.listen, "listen", "", "HTTP listen address (overrides config if set)")
	pf.StringVar(&opts.endpoint, "endpoint", "", "Backend base URL (overrides config if set)")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newPlanCommand(opts),
		newAddCommand(opts),
		newLogCommand(opts),
		newUpdateCommand(opts),
	)

	return rootCmd
}

// load reads the config file, applies flag overrides and the log level,
// and resolves the display time zone.
func (o *rootOptions) load() (*config.Config, *time.Location, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", o.configPath, err)
	}

	if o.listen != "" {
		cfg.Listen = o.listen
	}
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}

	level, ok := appLog.ParseLevel(cfg.LogLevel)
	if !ok {
		appLog.Warn("unknown log level, using info", "log_level", cfg.LogLevel)
		level = appLog.LevelInfo
	}
	if o.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Error("invalid timezone, falling back to local", err, "timezone", cfg.Timezone)
		loc = time.Local
	}

	appLog.Debug("effective config",
		"config_path", o.configPath,
		"listen", cfg.Listen,
		"endpoint", cfg.Endpoint,
		"timezone", loc.String(),
		"locale", cfg.Locale,
		"database", cfg.Database,
		"ics_count", len(cfg.ICS),
	)
	return cfg, loc, nil
}

func newCalendar(cfg *config.Config, loc *time.Location) (*calendar.Calendar, error) {
	return calendar.New(calendar.Options{
		InitialView:  calendar.ViewTimeGridWeek,
		Editable:     true,
		Selectable:   true,
		WeekStart:    calendar.ParseWeekStart(cfg.WeekStart),
		Location:     loc,
		SlotMinutes:  cfg.SlotMinutes,
		DayStartHour: cfg.DayStartHour,
		DayEndHour:   cfg.DayEndHour,
	})
}

func feedSources(cfg *config.Config) []feed.Source {
	out := make([]feed.Source, 0, len(cfg.ICS))
	for i, ics := range cfg.ICS {
		id := ics.ID
		if id == "" {
			id = fmt.Sprintf("ics-%d", i+1)
		}
		out = append(out, feed.Source{ID: id, URL: ics.URL})
	}
	return out
}
