// Package cli implements the cultcrawl command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/config"
)

type ctxKey int

const configKey ctxKey = 0

// setConfig stores the loaded configuration on the executing command so
// RunE handlers can retrieve it without re-parsing flags.
func setConfig(cmd *cobra.Command, cfg *config.Config) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey, cfg))
}

// getConfig returns the configuration placed on cmd by the root
// command's PersistentPreRunE.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return nil
}
