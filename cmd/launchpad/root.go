// cmd/launchpad/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Bonding-curve token launch market",
	Long: `launchpad runs a bonding-curve token launch market that hands assets off to a
constant-product pool once their raised reserve crosses the graduation threshold.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (JSON or YAML); LAUNCHPAD_* env overrides apply")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads --config, or defaults plus the environment when it is not set.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.LoadDefaults()
	}
	return config.LoadConfig(cfgFile)
}

// newLogger builds the CLI logger. Console output goes to stderr so reports stay clean.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logger.Logger, error) {
	lc := logger.DefaultConfig()
	lc.LogFile = cfg.LogFile
	lc.Development = debug || cfg.DebugLogging
	lc.Console = cmd.ErrOrStderr()

	lg, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return lg, nil
}
