package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/podcast-player/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podcast-player",
	Short: "Podcast player with offline downloads",
	Long: `Podcast Player - playback and offline caching for podcast episodes

The player streams episodes or plays them from a local offline library,
gates premium episodes on the listener's subscription and reports plays
to the backend. The same binary also runs the backend API.

Features:
  • Audio proxy so downloads are not blocked by CORS
  • Offline library with integrity checks
  • Premium gating by subscription status
  • Play counting with per-episode stats`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Set up configuration loading with lazy initialization
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig loads configuration for commands that need it. Failures are
// reported by loadConfig when the command runs.
func initConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
	}
}

// loadConfig returns the configuration, initializing it if needed
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging.Level)
	return cfg, nil
}
