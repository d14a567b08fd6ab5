package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"seatcap/internal/config"
	appLog "seatcap/internal/log"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:          "seatcap",
		Short:        "Update the seat capacity of a scheduled class through the studio web app",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "/etc/seatcap/config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (overrides config if set)")

	root.AddCommand(newServeCmd(&f))
	root.AddCommand(newRunCmd(&f))
	root.AddCommand(newSchedulesCmd(&f))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the config file, applies environment overrides and
// sets the log level.
func loadConfig(f *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", f.configPath)
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	appLog.Info("effective config",
		"config_path", f.configPath,
		"listen", cfg.Listen,
		"upstream", cfg.Upstream.BaseURL,
		"headless", cfg.Browser.Headless,
		"remote_browser", cfg.Browser.RemoteURL != "",
		"timezone", cfg.Browser.Timezone,
		"max_page_steps", cfg.Calendar.MaxPageSteps,
		"schedules", len(cfg.Schedules),
	)
	return cfg, cfg.Check()
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
