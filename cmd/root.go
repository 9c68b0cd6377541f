// Package cmd implements the command-line interface for jobsweep.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdrun "github.com/jonesrussell/jobsweep/cmd/run"
	cmdschedules "github.com/jonesrussell/jobsweep/cmd/schedules"
	"github.com/jonesrussell/jobsweep/cmd/serve"
	"github.com/jonesrussell/jobsweep/cmd/token"
)

const envPrefix = "JOBSWEEP"

var rootCmd = &cobra.Command{
	Use:   "jobsweep",
	Short: "Job listing aggregator",
	Long: `jobsweep collects job listings from several boards, normalizes them
into one listing shape and serves operations, schedules and live platform
state over HTTP.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initViper)
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./config.yml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(cmdrun.Command())
	rootCmd.AddCommand(cmdschedules.Command())
	rootCmd.AddCommand(token.Command())
}

// initViper binds the persistent flags so each can also come from a
// JOBSWEEP_* environment variable.
func initViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for _, name := range []string{"config", "debug", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", name, err)
		}
	}
}
