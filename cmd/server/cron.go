package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/chorecast/internal/api"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/robfig/cron/v3"
)

// slogCronLogger adapts the cron logger interface to use slog.
type slogCronLogger struct {
	log *slog.Logger
}

// Info forwards cron's informational messages at debug level; cron logs
// every schedule and wake-up through it.
func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

// Error forwards cron errors, including recovered job panics.
func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// batchDate is the civil date the batch should process when triggered at now.
func batchDate(now time.Time, loc *time.Location) time.Time {
	return domain.CivilDate(now.In(loc))
}

// dailyBatchJob returns the cron job body. Each firing runs the batch for
// the current date in loc under ctx.
func dailyBatchJob(
	ctx context.Context,
	runner api.BatchRunner,
	loc *time.Location,
	now func() time.Time,
	log *slog.Logger,
) func() {
	return func() {
		date := batchDate(now(), loc)
		if _, err := runner.RunDailyBatch(ctx, date); err != nil {
			log.Error("scheduled batch run failed",
				"run_date", date.Format(domain.DateLayout),
				"error", err)
		}
	}
}

// newCron builds the trigger scheduler. Overlapping firings are skipped so a
// slow batch never runs twice at once.
func newCron(spec string, loc *time.Location, job func(), log *slog.Logger) (*cron.Cron, error) {
	cl := slogCronLogger{log: log.With("component", "batch_trigger")}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid batch cron spec %q: %w", spec, err)
	}
	return c, nil
}

// startCron schedules the daily batch when enabled. The returned stop
// function waits for a running batch to finish.
func (app *application) startCron(ctx context.Context) (func(), error) {
	if !app.config.Batch.CronEnabled {
		app.logger.Info("batch trigger disabled")
		return func() {}, nil
	}

	loc := app.config.Batch.Location()
	c, err := newCron(
		app.config.Batch.CronSpec,
		loc,
		dailyBatchJob(ctx, app.batchRunner, loc, time.Now, app.logger),
		app.logger,
	)
	if err != nil {
		return nil, err
	}
	c.Start()
	app.logger.Info("batch trigger started",
		"cron_spec", app.config.Batch.CronSpec,
		"timezone", loc.String())

	return func() {
		<-c.Stop().Done()
		app.logger.Info("batch trigger stopped")
	}, nil
}
