// Package main provides the housemerge server and operator CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/housemerge/internal/config"
	"github.com/mmynk/housemerge/pkg/logging"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// cfg is loaded by PersistentPreRunE before any subcommand runs.
	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "housemerge",
	Short: "Merge placeholder household members into claimed accounts",
	Long: `housemerge serves the MergeService Connect API and offers operator
commands to merge an unclaimed placeholder person into a claimed person,
preview a merge, and inspect a group's merge history.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(auditsCmd)
	rootCmd.AddCommand(tokenCmd)
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
