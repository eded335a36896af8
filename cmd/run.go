package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jittakal/ringlog/internal/producer"
	"github.com/jittakal/ringlog/internal/server"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var pumpCfg producer.PumpConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log lines read from stdin",
		Long: `Start the flush worker and the health/metrics endpoints, then log every
line read from stdin. The logger stops on EOF or on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLogger(ctx, opts.resolveConfigPath(), cmd.InOrStdin(), pumpCfg)
		},
	}

	cmd.Flags().IntVar(&pumpCfg.MaxLineBytes, "max-line-bytes", producer.DefaultMaxLineBytes, "longest accepted input line")
	cmd.Flags().DurationVar(&pumpCfg.RetryInterval, "retry-interval", producer.DefaultRetryInterval, "pause before retrying a line the ring rejected")
	cmd.Flags().IntVar(&pumpCfg.MaxRetries, "max-retries", producer.DefaultMaxRetries, "retries before a rejected line is dropped (negative disables)")
	return cmd
}

func runLogger(ctx context.Context, configPath string, in io.Reader, pumpCfg producer.PumpConfig) (err error) {
	app, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := app.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start logger: %w", err)
	}
	app.addCleanup("flush-coordinator", app.coordinator.Stop)

	httpServer := server.NewServer(
		serverConfig(app.cfg),
		server.NewLoggerHealthChecker(app.coordinator),
		app.registry,
		app.logger,
	)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	app.addCleanup("http-server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Shutdown.GracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	app.logger.Info("application started successfully")

	done := make(chan pumpResult, 1)
	pump := producer.NewPump(pumpCfg, app.coordinator, app.logger)
	go func() {
		stats, err := pump.Run(ctx, in)
		done <- pumpResult{stats: stats, err: err}
	}()

	select {
	case <-ctx.Done():
		app.logger.Info("received termination signal")
		// Stop drains the ring for the last time, so the pump must not
		// log anything after it.
		res, ok := awaitPump(done, app.cfg.Shutdown.GracePeriod)
		if !ok {
			app.logger.Warn("input pump still blocked on read, lines it reads later are rejected",
				"grace_period", app.cfg.Shutdown.GracePeriod,
			)
			return nil
		}
		logPumpStats(app.logger, "input pump stopped", res.stats)
		return nil
	case res := <-done:
		logPumpStats(app.logger, "input exhausted", res.stats)
		if res.err != nil && !stderrors.Is(res.err, context.Canceled) {
			return res.err
		}
		return nil
	}
}

type pumpResult struct {
	stats producer.PumpStats
	err   error
}

// awaitPump waits up to grace for the pump goroutine to report.
func awaitPump(done <-chan pumpResult, grace time.Duration) (pumpResult, bool) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case res := <-done:
		return res, true
	case <-timer.C:
		return pumpResult{}, false
	}
}

func logPumpStats(logger *slog.Logger, msg string, stats producer.PumpStats) {
	logger.Info(msg,
		"lines", stats.Lines,
		"bytes", humanize.IBytes(stats.Bytes),
		"retries", stats.Retries,
		"dropped", stats.Dropped,
	)
}
