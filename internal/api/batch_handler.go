package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/chorecast/internal/api/shared"
	"github.com/phrazzld/chorecast/internal/batch"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/redact"
)

// BatchRunner runs the daily materialization batch.
type BatchRunner interface {
	RunDailyBatch(ctx context.Context, date time.Time) (*batch.Summary, error)
}

// BatchResponse is the API view of a batch summary.
type BatchResponse struct {
	BatchID     string `json:"batch_id"`
	Date        string `json:"date"`
	Templates   int    `json:"templates"`
	Success     int    `json:"success"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	AlreadyDone int    `json:"already_done"`
	DurationMS  int64  `json:"duration_ms"`
}

// BatchHandler exposes a manual trigger for the daily batch.
type BatchHandler struct {
	runner   BatchRunner
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewBatchHandler creates a BatchHandler. loc decides what "today" means
// when a request names no date.
func NewBatchHandler(runner BatchRunner, loc *time.Location, logger *slog.Logger) *BatchHandler {
	if runner == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("batch runner cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{
		runner:   runner,
		location: loc,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "batch_handler")),
	}
}

// Run handles POST /batch/run
func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RunBatchRequest
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
			log.Warn("invalid request format", slog.String("error", redact.Error(err)))
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
			return
		}
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	date := domain.CivilDate(h.now().In(h.location))
	if req.Date != "" {
		parsed, err := domain.ParseDate(req.Date)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("date", "must be YYYY-MM-DD", domain.ErrInvalidFormat), "")
			return
		}
		date = parsed
	}

	log.Info("manual batch run requested", slog.String("run_date", date.Format(domain.DateLayout)))
	summary, err := h.runner.RunDailyBatch(r.Context(), date)
	if err != nil {
		HandleAPIError(w, r, err, "Batch run failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BatchResponse{
		BatchID:     summary.BatchID.String(),
		Date:        summary.Date.Format(domain.DateLayout),
		Templates:   summary.Templates,
		Success:     summary.Success,
		Failed:      summary.Failed,
		Skipped:     summary.Skipped,
		AlreadyDone: summary.AlreadyDone,
		DurationMS:  summary.Duration.Milliseconds(),
	})
}
