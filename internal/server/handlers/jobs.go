package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"ocrplane/internal/logger"
	"ocrplane/internal/server/middleware"
	"ocrplane/internal/store"
	"ocrplane/pkg/api"
)

// statusBody converts a job snapshot to its wire representation.
func statusBody(snap store.Snapshot) api.JobStatusResponse {
	return api.JobStatusResponse{
		JobID:      snap.ID.String(),
		Status:     string(snap.Status),
		Progress:   snap.Progress,
		PageCount:  snap.PageCount,
		ResultPath: snap.ResultPath,
		Error:      snap.Error,
		CreatedAt:  snap.CreatedAt,
	}
}

// JobStatus handles GET /ocr/status/{id}.
// Returns the current state of a submitted job.
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	username, ok := middleware.UsernameFromContext(ctx)
	if !ok {
		h.httpError(w, http.StatusUnauthorized, api.ReasonAuthentication, "Not authenticated")
		return
	}

	snap, ok := h.lookupJob(w, r, username, log)
	if !ok {
		return
	}

	h.respondJson(w, http.StatusOK, statusBody(snap))
}

// JobResult handles GET /ocr/result/{id}.
// Returns the extracted text of a completed job.
func (h *Handlers) JobResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	username, ok := middleware.UsernameFromContext(ctx)
	if !ok {
		h.httpError(w, http.StatusUnauthorized, api.ReasonAuthentication, "Not authenticated")
		return
	}

	snap, ok := h.lookupJob(w, r, username, log)
	if !ok {
		return
	}

	if snap.Status != store.StatusCompleted {
		h.httpErrorDetails(w, http.StatusBadRequest, api.ReasonInvalidState,
			"Job has not completed", fmt.Sprintf("current status: %s", snap.Status))
		return
	}

	if snap.ResultText == "" {
		log.Error("job completed but result text is empty", "job_id", snap.ID)
		h.httpError(w, http.StatusNotFound, api.ReasonEmptyResult, "Result is empty")
		return
	}

	h.respondJson(w, http.StatusOK, api.JobResultResponse{
		JobID: snap.ID.String(),
		Text:  snap.ResultText,
		Metadata: api.ResultMetadata{
			CreatedAt:  snap.CreatedAt,
			SourcePath: snap.SourcePath,
			ResultPath: snap.ResultPath,
			PageCount:  snap.PageCount,
		},
	})
}

// lookupJob resolves the {id} path value to a snapshot the caller may
// see. A malformed ID is reported exactly like an unknown one so the
// endpoint does not reveal which IDs exist; a job owned by someone else
// is a 403.
func (h *Handlers) lookupJob(w http.ResponseWriter, r *http.Request, username string, log *slog.Logger) (store.Snapshot, bool) {
	idStr := r.PathValue("id")
	jobID, err := uuid.Parse(idStr)
	if err != nil {
		h.httpError(w, http.StatusNotFound, api.ReasonNotFound, "Job not found")
		return store.Snapshot{}, false
	}

	snap, err := h.registry.Snapshot(jobID)
	if err != nil {
		log.Warn("lookup for unknown job", "job_id", idStr, "user", username)
		h.httpError(w, http.StatusNotFound, api.ReasonNotFound, "Job not found")
		return store.Snapshot{}, false
	}

	if snap.Owner != username {
		log.Warn("job access denied", "job_id", idStr, "user", username)
		h.httpError(w, http.StatusForbidden, api.ReasonForbidden, "You do not have access to this job")
		return store.Snapshot{}, false
	}

	return snap, true
}
