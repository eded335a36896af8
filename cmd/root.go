package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/application.yaml"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// resolveConfigPath applies the priority CLI flag > CONFIG_PATH env var > default path.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return defaultConfigPath
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ringlog",
		Short: "Non-blocking ring buffer logger",
		Long: `ringlog buffers log payloads in a fixed-capacity ring and persists them
from a background flush worker to a file, object store, Kafka, NATS or Pebble sink.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newStressCommand(opts),
		newDumpCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}
