// Package commands implements the fabriclift subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fabriclift-labs/fabriclift/internal/cli/config"
	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
	"github.com/fabriclift-labs/fabriclift/internal/state"
)

// CommandContext bundles the dependencies a command needs.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Catalog  *state.Catalog
}

// NewCommandContext builds a CommandContext with an open run catalog.
// The returned cleanup closes the catalog.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutCatalog(cmd)

	stateDir := filepath.Dir(cmdCtx.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	catalog, err := state.Open(cmdCtx.Cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Catalog = catalog

	cleanup := func() {
		_ = catalog.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutCatalog builds a CommandContext for commands
// that never touch the run catalog.
func NewCommandContextWithoutCatalog(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to
// environment variables when no Load has run (direct command tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	workers := config.DefaultWorkers
	if v := os.Getenv("FABRICLIFT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	return &config.Config{
		OutputDir:    os.Getenv("FABRICLIFT_OUTPUT_DIR"),
		ExtractDir:   os.Getenv("FABRICLIFT_EXTRACT_DIR"),
		StatePath:    getEnvOrDefault("FABRICLIFT_STATE_PATH", config.DefaultStateFile),
		Workers:      workers,
		Verbose:      os.Getenv("FABRICLIFT_VERBOSE") == "true",
		OutputFormat: os.Getenv("FABRICLIFT_OUTPUT"),
		MappingsFile: os.Getenv("FABRICLIFT_MAPPINGS_FILE"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
