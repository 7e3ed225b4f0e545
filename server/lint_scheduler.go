package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opsacademy/toolcalc/tool"
)

// DefaultLintCron runs the lint sweep at the top of every hour.
const DefaultLintCron = "0 * * * *"

// lintCronParser accepts classic five-field expressions only; schedules
// always run in UTC.
var lintCronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func parseLintSchedule(expr string) (cron.Schedule, error) {
	spec := strings.TrimSpace(expr)
	if spec == "" {
		return nil, errors.New("lint schedule is empty")
	}
	if strings.Contains(strings.ToUpper(spec), "TZ=") {
		return nil, fmt.Errorf("lint schedule %q: time zone prefixes are not supported, schedules run in UTC", spec)
	}
	schedule, err := lintCronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("lint schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// LintSchedulerConfig configures the background lint sweep.
type LintSchedulerConfig struct {
	Store  tool.Store
	Cron   string
	Now    func() time.Time
	Logger *slog.Logger
}

// LintReport summarises one sweep.
type LintReport struct {
	CheckedAt time.Time `json:"checked_at"`
	Tools     int       `json:"tools"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	Failing   []string  `json:"failing,omitempty"`
}

// LintScheduler periodically validates every stored tool and logs what it
// finds. Sweeps never modify the store.
type LintScheduler struct {
	store    tool.Store
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	runner *cron.Cron
	cancel context.CancelFunc
	last   *LintReport
}

// NewLintScheduler creates a lint scheduler. An empty Cron uses
// DefaultLintCron.
func NewLintScheduler(cfg LintSchedulerConfig) (*LintScheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("lint scheduler store is nil")
	}
	expr := cfg.Cron
	if expr == "" {
		expr = DefaultLintCron
	}
	schedule, err := parseLintSchedule(expr)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &LintScheduler{
		store:    cfg.Store,
		schedule: schedule,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Next reports when the next sweep is due.
func (s *LintScheduler) Next() time.Time {
	return s.schedule.Next(s.now().UTC())
}

// Start starts the cron runner. Sweeps run with a context derived from ctx,
// and the runner stops on its own once ctx is done. Calling Start while the
// runner is active is a no-op.
func (s *LintScheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("lint scheduler is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner != nil {
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	runner := cron.New(cron.WithLocation(time.UTC))
	runner.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(sweepCtx); err != nil && sweepCtx.Err() == nil {
			s.logger.Error("lint sweep failed", "error", err)
		}
	}))
	runner.Start()
	s.runner = runner
	s.cancel = cancel

	go func() {
		<-sweepCtx.Done()
		runner.Stop()
		s.mu.Lock()
		if s.runner == runner {
			s.runner = nil
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Debug("lint scheduler started", "next", s.Next())
	return nil
}

// Stop stops the runner and waits for a sweep in progress to finish.
func (s *LintScheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	runner, cancel := s.runner, s.cancel
	s.runner, s.cancel = nil, nil
	s.mu.Unlock()

	if runner == nil {
		return nil
	}
	cancel()
	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a single sweep.
func (s *LintScheduler) RunOnce(ctx context.Context) (LintReport, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return LintReport{}, fmt.Errorf("listing tools: %w", err)
	}

	report := LintReport{CheckedAt: s.now().UTC(), Tools: len(records)}
	for _, rec := range records {
		diags := tool.Validate(rec.Config)
		for _, d := range diags {
			level := slog.LevelWarn
			if d.Severity == tool.SeverityError {
				level = slog.LevelError
			}
			s.logger.Log(ctx, level, "tool lint",
				"id", rec.ID,
				"lesson_id", rec.LessonID,
				"code", d.Code,
				"path", d.Path,
				"message", d.Message,
			)
		}
		errs := len(tool.Errors(diags))
		report.Errors += errs
		report.Warnings += len(tool.Warnings(diags))
		if errs > 0 {
			report.Failing = append(report.Failing, rec.ID)
		}
	}

	s.logger.Info("lint sweep finished",
		"tools", report.Tools,
		"errors", report.Errors,
		"warnings", report.Warnings,
	)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent sweep, if any.
func (s *LintScheduler) LastReport() (LintReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return LintReport{}, false
	}
	return *s.last, true
}
