// Package main provides missionctl, a command-line view of the mission-control
// panels.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/narvanalabs/mission-control/internal/api"
	"github.com/narvanalabs/mission-control/pkg/config"
	"github.com/narvanalabs/mission-control/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "missionctl",
		Short:         "Inspect the local OpenClaw workspace",
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides "+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(attestCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(experimentsCmd())
	rootCmd.AddCommand(cronCmd())
	rootCmd.AddCommand(searchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration the same way the API server does.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if err := os.Setenv(config.ConfigFileEnv, configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// stderrLogger keeps stdout clean for JSON output.
func stderrLogger() *logger.Logger {
	return logger.NewWithWriter(os.Stderr, logger.ParseLevel(logLevel), false)
}

// sources loads the config and wires every panel source.
func sources() (*config.Config, api.Sources, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, api.Sources{}, err
	}
	return cfg, api.NewSources(cfg, stderrLogger().Logger), nil
}
