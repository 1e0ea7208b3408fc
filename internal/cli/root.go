// Package cli implements the agtrace command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sprite-ai/agtrace/internal/client"
	"github.com/sprite-ai/agtrace/internal/config"
	"github.com/sprite-ai/agtrace/internal/trace"
)

var rootCmd = &cobra.Command{
	Use:   "agtrace",
	Short: "Inspect hierarchical agent execution traces",
	Long: `agtrace reconstructs hierarchical execution traces (agents,
sub-agent spawns, tool invocations) from an agent backend and presents
them as a tree, per-level statistics, and a concurrency-aware timeline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file")
	rootCmd.AddCommand(viewCmd, statsCmd, serveCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config named by --config, or the default location.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// newService wires the HTTP backend client into a trace service.
func newService(cfg *config.Config) *trace.Service {
	c := client.New(cfg.Backend.BaseURL, cfg.Backend.APIToken, cfg.Backend.Timeout.Duration)
	return trace.NewService(c)
}
