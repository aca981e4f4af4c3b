package main

import (
	"fmt"
	"os"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// appConfig is loaded once before any subcommand runs
var appConfig = config.Default()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - workflow scheduler core",
	Long: `Burrow resolves workflow dependency graphs and dispatches their tasks
to worker groups through pluggable load balancers.

Workers report load through heartbeats; the scheduler picks a worker per
task with round robin, random or weighted strategies.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg

		logCfg := cfg.LogConfig()
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			logCfg.Level = log.ParseLevel(level)
		}
		logCfg.Output = os.Stderr
		log.Init(logCfg)
		metrics.SetVersion(Version)
		return nil
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	// Add subcommands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(runsCmd)
}

// loadConfig reads the --config file, or returns the defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openStore opens the bolt store in the configured data directory,
// creating the directory when needed
func openStore() (*storage.BoltStore, error) {
	if err := os.MkdirAll(appConfig.Server.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(appConfig.Server.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}
