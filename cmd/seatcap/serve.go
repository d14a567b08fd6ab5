package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "seatcap/internal/log"
	"seatcap/internal/runlock"
	"seatcap/internal/runner"
	"seatcap/internal/schedule"
	"seatcap/internal/web"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger API and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			// CLI --listen overrides config and environment.
			if listen != "" {
				cfg.Listen = listen
			}
			appLog.Info("seatcap starting", "version", Version)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			r := runner.New(cfg, &runlock.Lock{})

			sched, err := schedule.New(r, cfg.Schedules, location(cfg.Browser.Timezone))
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}

			err = web.StartServer(ctx, cfg, r, Version)
			appLog.Info("seatcap exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
