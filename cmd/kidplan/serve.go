package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "kidplan/internal/log"
	"kidplan/internal/store"
	"kidplan/internal/web"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backend that records imported events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() {
				if err := st.Close(); err != nil {
					appLog.Error("failed to close database", err)
				}
			}()

			appLog.Info("kidplan backend starting", "listen", cfg.Listen, "database", cfg.Database)
			if err := web.NewServer(st).Run(ctx, cfg.Listen); err != nil {
				return err
			}
			appLog.Info("kidplan backend exiting")
			return nil
		},
	}
}
