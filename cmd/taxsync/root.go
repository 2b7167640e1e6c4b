package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxsync/internal/config"
	"taxsync/internal/logger"
)

const (
	defaultConfigPath = "configs/taxsync.yaml"
	defaultEnvFile    = ".env.local"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

// args returns the flags to forward to a child taxsync process.
func (g *globalFlags) args() []string {
	args := []string{"--config", g.configPath, "--env-file", g.envFile}
	if g.logLevel != "" {
		args = append(args, "--log-level", g.logLevel)
	}

	return args
}

// load reads the configuration and builds the logger. Logs always go to stderr.
func (g *globalFlags) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(g.configPath, g.envFile)
	if err != nil {
		return nil, nil, err
	}

	return cfg, g.logger(cfg), nil
}

// loadOrDefaults falls back to built-in settings when no config file exists.
func (g *globalFlags) loadOrDefaults() (*config.Config, *logger.Logger, error) {
	if _, err := os.Stat(g.configPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.Defaults()

		return &cfg, g.logger(&cfg), nil
	}

	return g.load()
}

func (g *globalFlags) logger(cfg *config.Config) *logger.Logger {
	level := cfg.Logging.Level
	if g.logLevel != "" {
		level = g.logLevel
	}

	return logger.NewLoggerWithOptions(level, cfg.Logging.Format, os.Stderr)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "taxsync",
		Short:         "taxsync scrapes property tax portals and normalizes what they show.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "Path to the YAML configuration")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", defaultEnvFile, "Dotenv file with secrets and overrides")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLookupCmd(g),
		newSyncCmd(g),
		newProvidersCmd(g),
	)

	return root
}

func requireFlagValue(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}

	return nil
}
