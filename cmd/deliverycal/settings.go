package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/config"
	applog "github.com/nao1215/deliverycal/internal/log"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// setupLogger creates the credential-masking logger on stderr.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	return applog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
}

// newJSONLogger is setupLogger with JSON output.
func newJSONLogger(cmd *cobra.Command) *slog.Logger {
	return applog.NewSecureJSONLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
}

// loadConfig returns the defaults overlaid with the configuration file and
// the credential environment variables. A file given with --config must
// exist; otherwise a missing file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = explicit
	cfg.Verbose = getVerboseFlag(cmd)

	path := config.FindConfigFile(explicit)
	switch {
	case path != "":
		if err := config.LoadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case explicit != "":
		return nil, fmt.Errorf("configuration file not found: %s", explicit)
	}

	config.ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}
