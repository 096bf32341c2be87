package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kidplan/internal/importer"
	"kidplan/internal/model"
)

func newLogCommand(opts *rootOptions) *cobra.Command {
	var child string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List the events imported for a child",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			entries, err := importer.NewClient(cfg.Endpoint, nil).Log(cmd.Context(), child)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TITLE\tMINUTES")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Title, strconv.FormatFloat(e.Duration, 'f', -1, 64))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&child, "child", model.ChildID, "Child identifier")
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	var (
		child string
		req   model.UpdateRequest
	)

	cmd := &cobra.Command{
		Use:   "update --old TITLE --new TITLE --duration MINUTES",
		Short: "Rename an imported event and change its duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			resp, err := importer.NewClient(cfg.Endpoint, nil).Update(cmd.Context(), child, req)
			if errors.Is(err, importer.ErrNotFound) {
				return fmt.Errorf("no event titled %q for %s", req.OldTitle, child)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&child, "child", model.ChildID, "Child identifier")
	f.StringVar(&req.OldTitle, "old", "", "Current title")
	f.StringVar(&req.NewTitle, "new", "", "New title")
	f.Float64Var(&req.NewDuration, "duration", 0, "New duration in minutes")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}
