package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jittakal/ringlog/internal/producer"
	"github.com/jittakal/ringlog/pkg/ringlog"
)

func newStressCommand(opts *rootOptions) *cobra.Command {
	var (
		stressCfg producer.StressConfig
		phases    []string
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer the logger from concurrent producers",
		Long: `Run the fast, slow and combined stress phases against the configured sink.
The fast phase drains on the load threshold, the slow phase pauses past the
flush interval so drains come from the timeout, and the combined phase mixes both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range phases {
				phase, err := producer.ParsePhase(name)
				if err != nil {
					return err
				}
				stressCfg.Phases = append(stressCfg.Phases, phase)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStress(ctx, opts.resolveConfigPath(), stressCfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&phases, "phases", []string{"fast", "slow", "combined"}, "phases to run, in order")
	cmd.Flags().IntVar(&stressCfg.Levels, "levels", producer.DefaultStressLevels, "message levels per phase")
	cmd.Flags().IntVar(&stressCfg.Repetitions, "repetitions", producer.DefaultStressRepetitions, "log calls per worker and level")
	cmd.Flags().IntVar(&stressCfg.Workers, "workers", producer.DefaultStressWorkers, "concurrent producers per level")
	cmd.Flags().DurationVar(&stressCfg.Pause, "pause", 0, "pause between levels and phases (default twice the flush interval)")
	return cmd
}

func runStress(ctx context.Context, configPath string, stressCfg producer.StressConfig, out io.Writer) (err error) {
	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if stressCfg.Pause == 0 {
		stressCfg.Pause = 2 * app.cfg.Flush.Interval
	}

	if err := app.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start logger: %w", err)
	}
	app.addCleanup("flush-coordinator", app.coordinator.Stop)

	stress := producer.NewStress(stressCfg, app.coordinator, app.logger)
	reports, err := stress.Run(ctx)
	if err != nil {
		return err
	}

	if err := app.coordinator.Stop(); err != nil {
		return fmt.Errorf("failed to stop logger: %w", err)
	}
	return writeStressReport(out, reports, app.coordinator.Stats())
}

func writeStressReport(out io.Writer, reports []producer.PhaseReport, stats ringlog.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tACCEPTED\tREJECTED\tBYTES\tDURATION")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			r.Phase, r.Accepted, r.Rejected, humanize.IBytes(r.Bytes), r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "triggers\t%d\n", stats.Triggers)
	fmt.Fprintf(w, "drains\t%d\n", stats.Drains)
	fmt.Fprintf(w, "flushed\t%s\n", humanize.IBytes(stats.FlushedBytes))
	fmt.Fprintf(w, "dropped\t%s\n", humanize.IBytes(stats.DroppedBytes))
	fmt.Fprintf(w, "sink errors\t%d\n", stats.SinkErrors)
	return w.Flush()
}
