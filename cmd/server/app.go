package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/chorecast/internal/batch"
	"github.com/phrazzld/chorecast/internal/config"
	"github.com/phrazzld/chorecast/internal/domain/recurrence"
	"github.com/phrazzld/chorecast/internal/events"
	"github.com/phrazzld/chorecast/internal/platform/holiday"
	"github.com/phrazzld/chorecast/internal/platform/postgres"
	"github.com/phrazzld/chorecast/internal/service"
	"github.com/phrazzld/chorecast/internal/service/assignment"
	"github.com/phrazzld/chorecast/internal/service/reconcile"
	"github.com/phrazzld/chorecast/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	templateStore  store.ScheduledTaskStore
	executionStore store.ExecutionStore
	taskStore      store.TaskStore
	tagStore       store.TagStore
	transactor     store.Transactor

	// Services
	scheduledTaskService service.ScheduledTaskService
	batchRunner          *batch.Runner

	// Event system
	eventEmitter *events.InMemoryEventEmitter
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be established.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.templateStore = postgres.NewPostgresScheduledTaskStore(db, logger)
	app.executionStore = postgres.NewPostgresExecutionStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.tagStore = postgres.NewPostgresTagStore(db, logger)
	app.transactor = store.NewSQLTransactor(db)

	holidays, err := holiday.NewResolver(holiday.Options{
		Country:                cfg.Holiday.Country,
		WeekendsAreNonBusiness: cfg.Holiday.WeekendsAreNonBusiness,
		MaxSearchDays:          cfg.Holiday.MaxShiftDays,
	}, postgres.NewPostgresHolidayStore(db), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create holiday resolver: %w", err)
	}

	calculator, err := recurrence.NewCalculator(holidays, cfg.Holiday.MaxShiftDays)
	if err != nil {
		return nil, fmt.Errorf("failed to create occurrence calculator: %w", err)
	}

	reconciler, err := reconcile.NewReconciler(app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	assigner, err := assignment.NewResolver(postgres.NewPostgresGroupRoster(db, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment resolver: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewLoggingHandler(logger))

	app.batchRunner, err = batch.NewRunner(batch.Dependencies{
		Templates:  app.templateStore,
		Executions: app.executionStore,
		Tasks:      app.taskStore,
		Tags:       app.tagStore,
		Transactor: app.transactor,
		Calculator: calculator,
		Reconciler: reconciler,
		Assigner:   assigner,
		Events:     app.eventEmitter,
	}, batch.Config{
		WorkerCount:       cfg.Batch.WorkerCount,
		OccurrenceTimeout: cfg.Batch.OccurrenceTimeout(),
		DispatchRate:      cfg.Batch.DispatchRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch runner: %w", err)
	}

	app.scheduledTaskService, err = service.NewScheduledTaskService(
		app.templateStore,
		app.executionStore,
		app.transactor,
		logger,
		service.WithDefaultTimezone(cfg.Batch.Timezone),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled task service: %w", err)
	}

	logger.Info("application initialized",
		"worker_count", cfg.Batch.WorkerCount,
		"max_shift_days", calculator.MaxShiftDays())
	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		} else {
			app.logger.Info("Database connection closed")
		}
	}
}
