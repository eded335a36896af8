package producer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jittakal/ringlog/internal/errors"
)

// Phase selects when the stress driver pauses between levels.
type Phase string

const (
	// PhaseFast never pauses, so drains are driven by the load threshold.
	PhaseFast Phase = "fast"
	// PhaseSlow pauses after every level, so drains are driven by the
	// flush interval.
	PhaseSlow Phase = "slow"
	// PhaseCombined pauses after every third level.
	PhaseCombined Phase = "combined"
)

const (
	DefaultStressLevels      = 16
	DefaultStressRepetitions = 10000
	DefaultStressWorkers     = 4
)

// AllPhases returns the phases in the order the stress driver runs them.
func AllPhases() []Phase {
	return []Phase{PhaseFast, PhaseSlow, PhaseCombined}
}

// ParsePhase parses a phase name.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseFast, PhaseSlow, PhaseCombined:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown stress phase %q (supported: fast, slow, combined)", errors.ErrBadArgument, s)
}

func (p Phase) pauseAfter(level int) bool {
	switch p {
	case PhaseSlow:
		return true
	case PhaseCombined:
		return level%3 == 0
	default:
		return false
	}
}

// StressConfig contains stress driver settings. Zero values take defaults.
type StressConfig struct {
	Phases []Phase
	// Levels is the number of message levels per phase.
	Levels int
	// Repetitions is how many times each worker logs the message of a level.
	Repetitions int
	// Workers is the number of concurrent producers per level.
	Workers int
	// Pause is slept between levels of the slow and combined phases and
	// between phases. It should exceed the flush interval.
	Pause time.Duration
	// Tag prefixes every message.
	Tag string
}

func (c StressConfig) withDefaults() StressConfig {
	if len(c.Phases) == 0 {
		c.Phases = AllPhases()
	}
	if c.Levels <= 0 {
		c.Levels = DefaultStressLevels
	}
	if c.Repetitions <= 0 {
		c.Repetitions = DefaultStressRepetitions
	}
	if c.Workers <= 0 {
		c.Workers = DefaultStressWorkers
	}
	if c.Tag == "" {
		c.Tag = "ringlog stress"
	}
	return c
}

// PhaseReport holds the outcome of one stress phase.
type PhaseReport struct {
	Phase    Phase
	Accepted uint64
	Rejected uint64
	Bytes    uint64
	Duration time.Duration
}

// Stress hammers a Target from concurrent producers.
type Stress struct {
	cfg      StressConfig
	target   Target
	logger   *slog.Logger
	messages [][]byte
}

// NewStress creates a stress driver. Messages are built once up front so
// the producer loops do not allocate.
func NewStress(cfg StressConfig, target Target, logger *slog.Logger) *Stress {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	messages := make([][]byte, cfg.Levels)
	for level := range messages {
		messages[level] = []byte(fmt.Sprintf("[%s]: level == %d\r\n", cfg.Tag, level))
	}

	return &Stress{
		cfg:      cfg,
		target:   target,
		logger:   logger,
		messages: messages,
	}
}

// Run executes the configured phases in order and returns one report
// per completed phase.
func (s *Stress) Run(ctx context.Context) ([]PhaseReport, error) {
	reports := make([]PhaseReport, 0, len(s.cfg.Phases))

	for i, phase := range s.cfg.Phases {
		if i > 0 {
			if err := sleep(ctx, s.cfg.Pause); err != nil {
				return reports, err
			}
		}

		s.logger.Info("stress phase started", "phase", phase, "levels", s.cfg.Levels, "workers", s.cfg.Workers)
		report, err := s.runPhase(ctx, phase)
		if err != nil {
			return reports, fmt.Errorf("stress phase %s: %w", phase, err)
		}
		s.logger.Info("stress phase finished",
			"phase", phase,
			"accepted", report.Accepted,
			"rejected", report.Rejected,
			"duration", report.Duration,
		)
		reports = append(reports, report)
	}

	return reports, nil
}

func (s *Stress) runPhase(ctx context.Context, phase Phase) (PhaseReport, error) {
	var accepted, rejected, written atomic.Uint64
	start := time.Now()

	for level, msg := range s.messages {
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < s.cfg.Workers; w++ {
			g.Go(func() error {
				for i := 0; i < s.cfg.Repetitions; i++ {
					if i%1024 == 0 && gctx.Err() != nil {
						return gctx.Err()
					}
					err := s.target.Log(msg)
					switch {
					case err == nil:
						accepted.Add(1)
						written.Add(uint64(len(msg)))
					case stderrors.Is(err, errors.ErrInsufficientCapacity):
						rejected.Add(1)
					default:
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return PhaseReport{}, err
		}

		if phase.pauseAfter(level) {
			if err := sleep(ctx, s.cfg.Pause); err != nil {
				return PhaseReport{}, err
			}
		}
	}

	return PhaseReport{
		Phase:    phase,
		Accepted: accepted.Load(),
		Rejected: rejected.Load(),
		Bytes:    written.Load(),
		Duration: time.Since(start),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
