package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"seatcap/internal/runlock"
	"seatcap/internal/runner"
)

func newRunCmd(f *rootFlags) *cobra.Command {
	var (
		req    runner.Request
		strict bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one capacity change and exit",
		Example: `  seatcap run --date 2025-10-31 --time 08:00 --capacity 2
  seatcap run --date 2025-10-31 --time "7:30 pm" --name yoga --strict-name --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("--output must be text or json, got %q", output)
			}
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict-name") {
				req.StrictName = &strict
			}
			t, err := req.Merge(cfg.Defaults).Target()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			res, err := runner.New(cfg, &runlock.Lock{}).Run(ctx, t)
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&req.Date, "date", "", "Class date (YYYY-MM-DD)")
	fl.StringVar(&req.Time, "time", "", `Class start time ("08:00", "8:00 am")`)
	fl.StringVar(&req.Name, "name", "", "Class name filter (substring)")
	fl.IntVar(&req.Capacity, "capacity", 0, "New seat count")
	fl.BoolVar(&strict, "strict-name", false, "Discard events whose text does not contain --name")
	fl.StringVarP(&output, "output", "o", "text", "Result format: text or json")
	fl.BoolVar(&req.Debug, "debug", false, "Log candidate tables and page console output")
	return cmd
}
