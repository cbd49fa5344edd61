package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/config"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/logging"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "whisper-audiorecord",
	Short:         "Record microphone audio and transcribe it with Whisper",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and builds the logger from it, honoring
// the --log-level override.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return cfg, logging.NewWithLevel(level), nil
}
