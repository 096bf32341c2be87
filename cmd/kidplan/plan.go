package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kidplan/internal/feed"
	"kidplan/internal/importer"
	appLog "kidplan/internal/log"
	"kidplan/internal/selection"
	"kidplan/internal/tui"
)

// Saves still in flight when the planner quits get this long to report.
const drainTimeout = 10 * time.Second

func newPlanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Open the interactive week planner",
		Long: `Open the week grid. Move with the arrow keys, press space to anchor a
range, enter to select it and name the activity. Every named range is
imported into the child's task list on the backend. Press m on an event
to move it, + and - to change its length.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loc, err := opts.load()
			if err != nil {
				return err
			}

			// The program owns the terminal; log lines go to a file instead.
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			logPath := filepath.Join(cfg.DataDir, "kidplan.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			appLog.SetOutput(logFile)
			defer appLog.SetOutput(os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cal, err := newCalendar(cfg, loc)
			if err != nil {
				return err
			}

			client := importer.NewClient(cfg.Endpoint, nil)
			m := tui.NewModel(ctx, cal, filepath.Join(cfg.DataDir, "exports"))
			m.SetUpdater(client)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			bridge := tui.NewBridge(p)

			h := selection.NewHandler(cal, bridge, client, selection.LabelsFor(cfg.Locale))
			cal.OnSelect(h.OnSelect)
			cal.OnChange(bridge.Changed)

			if sources := feedSources(cfg); len(sources) > 0 {
				fetcher := feed.NewFetcher(filepath.Join(cfg.DataDir, "cache"), nil)
				refresher := feed.NewRefresher(fetcher, sources, cal, loc)
				if err := refresher.Start(ctx, cfg.RefreshCron); err != nil {
					appLog.Error("feed refresher not started", err, "refresh", cfg.RefreshCron)
				}
			}

			appLog.Info("planner starting", "endpoint", cfg.Endpoint, "timezone", loc.String())
			_, runErr := p.Run()

			drain(h, stop)
			appLog.Info("planner exiting", "events", len(cal.Events()))

			if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
				return runErr
			}
			return nil
		},
	}
}

// drain waits for pending saves, cancelling them after drainTimeout.
func drain(h *selection.Handler, cancel func()) {
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		appLog.Warn("pending saves did not finish, cancelling", "timeout", drainTimeout)
		cancel()
		<-done
	}
}
