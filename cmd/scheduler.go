package cmd

import (
	"context"
	"fmt"
	"time"

	"golang-backtester/internal/service"
	"golang-backtester/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, logger.Field("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, logger.ErrorField(err), logger.Field("details", keysAndValues))
}

// SchedulerRunner ticks the scheduler service every Scheduler.TickInterval.
type SchedulerRunner struct {
	ctx       context.Context
	log       *logger.Logger
	cron      *cron.Cron
	scheduler service.SchedulerService
}

func NewSchedulerRunner(ctx context.Context, log *logger.Logger, scheduler service.SchedulerService, tick time.Duration) (*SchedulerRunner, error) {
	if tick <= 0 {
		tick = time.Minute
	}
	log = log.Named("scheduler")
	cl := cronLogger{log: log.Named("cron")}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	runner := &SchedulerRunner{ctx: ctx, log: log, cron: c, scheduler: scheduler}
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", tick), runner.tick); err != nil {
		return nil, fmt.Errorf("failed to register scheduler tick: %w", err)
	}
	return runner, nil
}

func (r *SchedulerRunner) tick() {
	if err := r.scheduler.Execute(r.ctx); err != nil {
		r.log.Error("Scheduler tick failed", logger.ErrorField(err))
	}
}

func (r *SchedulerRunner) Start() {
	r.log.Info("Starting scheduler")
	r.cron.Start()
}

// Stop stops ticking and waits for started jobs, at most timeout.
func (r *SchedulerRunner) Stop(timeout time.Duration) {
	r.log.Info("Stopping scheduler")
	done := make(chan struct{})
	go func() {
		<-r.cron.Stop().Done()
		r.scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("Scheduler stopped successfully")
	case <-time.After(timeout):
		r.log.Warn("Timeout while waiting for running jobs, forcing shutdown")
	}
}
