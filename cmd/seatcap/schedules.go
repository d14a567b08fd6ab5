package main

import (
	"time"

	"github.com/spf13/cobra"

	"seatcap/internal/schedule"
)

func newSchedulesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List configured schedules with their next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil && cfg == nil {
				return err
			}
			loc := location(cfg.Browser.Timezone)
			sched, err := schedule.New(nil, cfg.Schedules, loc)
			if err != nil {
				return err
			}
			printSchedules(cmd.OutOrStdout(), sched.Jobs(), time.Now().In(loc))
			return nil
		},
	}
}
