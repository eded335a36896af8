package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jittakal/ringlog/internal/config"
	"github.com/jittakal/ringlog/internal/sink"
)

func newDumpCommand(opts *rootOptions) *cobra.Command {
	var (
		dir     string
		prefix  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the chunks stored by the pebble sink to stdout",
		Long: `Replay the pebble sink in drain order. Chunks are written back to back, so
the output is the logged byte stream. The store is opened read-only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().Load(opts.resolveConfigPath())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			pebbleCfg := pebbleConfig(cfg.Sink.Pebble)
			if dir != "" {
				pebbleCfg.Dir = dir
			}
			if prefix != "" {
				pebbleCfg.Prefix = prefix
			}

			var diag io.Writer = io.Discard
			if verbose {
				diag = cmd.ErrOrStderr()
			}
			return dumpPebble(pebbleCfg, cmd.OutOrStdout(), diag)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "pebble directory (overrides sink.pebble.dir)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix (overrides sink.pebble.prefix)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print chunk sequences and sizes to stderr")
	return cmd
}

func dumpPebble(cfg sink.PebbleConfig, out, diag io.Writer) error {
	var chunks, total int
	err := sink.ReplayPebble(cfg, func(seq uint64, chunk []byte) error {
		fmt.Fprintf(diag, "chunk %d: %d bytes\n", seq, len(chunk))
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", seq, err)
		}
		chunks++
		total += len(chunk)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(diag, "%d chunks, %d bytes\n", chunks, total)
	return nil
}
