package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/api/shared"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/redact"
	"github.com/phrazzld/chorecast/internal/service"
)

// ScheduledTaskHandler serves the template administration and execution
// history endpoints.
type ScheduledTaskHandler struct {
	service      service.ScheduledTaskService
	historyLimit int
	logger       *slog.Logger
}

// NewScheduledTaskHandler creates a new ScheduledTaskHandler.
func NewScheduledTaskHandler(svc service.ScheduledTaskService, logger *slog.Logger) *ScheduledTaskHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("scheduled task service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduledTaskHandler{
		service:      svc,
		historyLimit: service.DefaultHistoryLimit,
		logger:       logger.With(slog.String("component", "scheduled_task_handler")),
	}
}

// WithHistoryLimit sets the page size used when a history request omits
// limit. Values outside (0, MaxHistoryLimit] are clamped.
func (h *ScheduledTaskHandler) WithHistoryLimit(n int) *ScheduledTaskHandler {
	h.historyLimit = service.ClampHistoryLimit(n)
	return h
}

// decodeAndValidate reads a JSON body into req and validates it. It writes
// the error response and returns false on failure.
func (h *ScheduledTaskHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := shared.DecodeJSON(w, r, req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// Create handles POST /groups/{groupID}/scheduled-tasks
func (h *ScheduledTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	groupID, err := getPathUUID(r, "groupID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req CreateScheduledTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	createdBy := uuid.MustParse(req.CreatedBy)

	params, err := req.toParams()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	st, err := h.service.Create(r.Context(), groupID, createdBy, params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create scheduled task")
		return
	}

	log.Debug("scheduled task created", slog.String("scheduled_task_id", st.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, scheduledTaskToResponse(st))
}

// ListByGroup handles GET /groups/{groupID}/scheduled-tasks
func (h *ScheduledTaskHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := getPathUUID(r, "groupID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.service.ListByGroup(r.Context(), groupID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list scheduled tasks")
		return
	}

	out := make([]ScheduledTaskResponse, 0, len(list))
	for _, st := range list {
		out = append(out, scheduledTaskToResponse(st))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Get handles GET /scheduled-tasks/{id}
func (h *ScheduledTaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get scheduled task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, scheduledTaskToResponse(st))
}

// Update handles PUT /scheduled-tasks/{id}
func (h *ScheduledTaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req ScheduledTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	params, err := req.toParams()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	st, err := h.service.Update(r.Context(), id, params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update scheduled task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, scheduledTaskToResponse(st))
}

// Delete handles DELETE /scheduled-tasks/{id}
func (h *ScheduledTaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete scheduled task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /scheduled-tasks/{id}/pause
func (h *ScheduledTaskHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "pause", h.service.Pause)
}

// Resume handles POST /scheduled-tasks/{id}/resume
func (h *ScheduledTaskHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "resume", h.service.Resume)
}

func (h *ScheduledTaskHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error),
) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	st, err := fn(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to "+action+" scheduled task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, scheduledTaskToResponse(st))
}

// ListExecutions handles GET /scheduled-tasks/{id}/executions
func (h *ScheduledTaskHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := getQueryLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if limit == 0 {
		limit = h.historyLimit
	}
	limit = service.ClampHistoryLimit(limit)

	history, err := h.service.ExecutionHistory(r.Context(), id, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list executions")
		return
	}

	resp := ExecutionHistoryResponse{
		ScheduledTaskID: id,
		Limit:           limit,
		Executions:      make([]ExecutionResponse, 0, len(history)),
	}
	for _, e := range history {
		resp.Executions = append(resp.Executions, executionToResponse(e))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
