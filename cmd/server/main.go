// Package main is the entry point for the chorecast server. It serves the
// scheduled task administration API and triggers the daily execution batch.
//
// Besides serving, the binary runs goose migrations (-migrate) and single
// batch runs for a given date (-run-date), then exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/postgres"
)

// options are the command line flags.
type options struct {
	configPath string
	migrate    string
	runDate    string
}

// parseFlags parses args (without the program name).
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("chorecast", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "Path to a config file (default: ./config.yaml if present)")
	fs.StringVar(&opts.migrate, "migrate", "", "Run database migrations: up, down, reset, status, version")
	fs.StringVar(&opts.runDate, "run-date", "", "Run the daily batch for YYYY-MM-DD and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.migrate != "" && opts.runDate != "" {
		return options{}, fmt.Errorf("-migrate and -run-date cannot be combined")
	}
	if opts.runDate != "" {
		if _, err := domain.ParseDate(opts.runDate); err != nil {
			return options{}, fmt.Errorf("invalid -run-date: %w", err)
		}
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatalf("Invalid arguments: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("chorecast: %v", err)
	}
}

// run loads configuration and dispatches to the selected mode.
func run(ctx context.Context, opts options) error {
	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, opts.migrate)
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if opts.runDate != "" {
		date, _ := domain.ParseDate(opts.runDate)
		return app.runBatchOnce(ctx, date)
	}

	stopCron, err := app.startCron(ctx)
	if err != nil {
		return err
	}
	defer stopCron()

	return app.startHTTPServer(ctx, app.setupRouter())
}

// runBatchOnce runs the batch for date and logs its summary.
func (app *application) runBatchOnce(ctx context.Context, date time.Time) error {
	summary, err := app.batchRunner.RunDailyBatch(ctx, date)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}
	app.logger.Info("batch run finished",
		"batch_id", summary.BatchID,
		"run_date", summary.Date.Format(domain.DateLayout),
		"success", summary.Success,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return nil
}
