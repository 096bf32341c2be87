package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kidplan/internal/importer"
	"kidplan/internal/model"
	"kidplan/internal/selection"
	"kidplan/internal/tui"
)

const inputLayout = "2006-01-02 15:04"

func newAddCommand(opts *rootOptions) *cobra.Command {
	var start, end, title string

	cmd := &cobra.Command{
		Use:   "add --start \"2026-10-19 09:00\" --end \"2026-10-19 09:45\" [--title TITLE]",
		Short: "Select one time range without the grid",
		Long: `Select one time range, name it and import it, exactly as the planner
does for a range picked on the grid. Without --title the name is asked
for interactively. The resulting week is printed afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loc, err := opts.load()
			if err != nil {
				return err
			}

			sel, err := parseRange(start, end, loc)
			if err != nil {
				return err
			}

			cal, err := newCalendar(cfg, loc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			h := selection.NewHandler(cal,
				tui.NewConsole(out, title),
				importer.NewClient(cfg.Endpoint, nil),
				selection.LabelsFor(cfg.Locale))
			cal.OnSelect(h.OnSelect)

			if err := cal.Select(cmd.Context(), sel); err != nil {
				return err
			}
			h.Wait()

			return cal.Render(out, sel.Start)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Range start, "+inputLayout)
	cmd.Flags().StringVar(&end, "end", "", "Range end, "+inputLayout)
	cmd.Flags().StringVar(&title, "title", "", "Activity name (prompted when empty)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func parseRange(start, end string, loc *time.Location) (model.Selection, error) {
	s, err := time.ParseInLocation(inputLayout, start, loc)
	if err != nil {
		return model.Selection{}, fmt.Errorf("invalid --start: %w", err)
	}
	e, err := time.ParseInLocation(inputLayout, end, loc)
	if err != nil {
		return model.Selection{}, fmt.Errorf("invalid --end: %w", err)
	}
	if e.Before(s) {
		return model.Selection{}, fmt.Errorf("--end %s is before --start %s", end, start)
	}
	return model.Selection{Start: s, End: e}, nil
}
