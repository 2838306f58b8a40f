// Package scheduler runs the alert scan on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"bountytracker/internal/amqp"
	applog "bountytracker/internal/log"
)

// Scanner is the job the scheduler triggers.
type Scanner interface {
	Scan(ctx context.Context) (*amqp.AlertDigestMessage, error)
}

// DefaultScanTimeout bounds one scan run.
const DefaultScanTimeout = 2 * time.Minute

// Parser accepts six-field specs with a leading seconds field as well as
// classic five-field specs and descriptors such as @daily.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler manages the alert scan cron entry.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	logger  *applog.Logger
	ctx     context.Context
	timeout time.Duration
	entry   cron.EntryID
}

// New creates a scheduler whose jobs run with ctx as parent. Overlapping
// runs are skipped rather than queued.
func New(ctx context.Context, scanner Scanner, logger *applog.Logger) *Scheduler {
	logger = logger.WithComponent(applog.ComponentScheduler)
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scanner: scanner,
		logger:  logger,
		ctx:     ctx,
		timeout: DefaultScanTimeout,
	}
}

// Register adds the alert scan under spec.
func (s *Scheduler) Register(spec string) error {
	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return fmt.Errorf("register alert scan %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// Next returns the next planned run, or the zero time when nothing is
// registered or the scheduler is not started.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "next_run", s.Next())
}

// Stop stops scheduling and waits for a running scan to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow executes one scan immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	digest, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Alert scan failed", applog.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "Alert scan completed",
		applog.FieldDuration, time.Since(start).Milliseconds(),
		"overdue", digest.Overdue,
		"due_soon", digest.DueSoon,
		"upcoming", digest.Upcoming)
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{applog.FieldError, err}, keysAndValues...)...)
}
