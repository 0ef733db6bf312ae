package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/cleaning-ops/internal/client"
	"github.com/example/cleaning-ops/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "opsctl",
	Short: "opsctl is a command line tool for the cleaning operations API",
	Long: `opsctl talks to a running opsd server.

Common workflows:

  Check who is free for a slot:
    opsctl availability --start 2026-03-10T09:00 --duration 120

  Show the week and move a job:
    opsctl calendar show --view week --date 2026-03-10
    opsctl calendar move <job-id> --date 2026-03-11 --time 14:30

  Profitability for a quarter:
    opsctl trend --from 2026-01-01 --to 2026-03-31

  Take a booking interactively:
    opsctl book

  Review photos:
    opsctl photos verify 12 13 14
    opsctl photos reject 15 --reason "wrong property"

  Follow schedule changes:
    opsctl events

Configuration:
  Flags can also be set through a config file or environment variables:
    OPS_URL                  API endpoint (default: http://localhost:8080)
    OPS_TIMEZONE             Business timezone (default: Europe/London)
    OPS_EVENT_POLL_INTERVAL  Calendar re-read interval for "events" (default: 10s)`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".opsctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opsctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "opsd API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().String("timezone", "Europe/London", "timezone for entered and displayed times")
	viper.BindPFlag("timezone", rootCmd.PersistentFlags().Lookup("timezone"))
}

func newClient() *client.Client {
	return client.New(viper.GetString("url"))
}

func location() (*time.Location, error) {
	name := viper.GetString("timezone")
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var inputLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseLocalTime accepts RFC3339 or a wall clock time in loc.
func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range inputLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use YYYY-MM-DDTHH:MM", value)
}
