package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ocrplane/internal/logger"
	"ocrplane/internal/server/middleware"
	"ocrplane/internal/store"
	"ocrplane/pkg/api"
)

// Upload handles POST /ocr/upload.
// The document streams into a temp file inside the workspace while the
// size limit is enforced, then the job is registered and dispatched.
// Rejected uploads leave no job record and no bytes behind.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	username, ok := middleware.UsernameFromContext(ctx)
	if !ok {
		h.httpError(w, http.StatusUnauthorized, api.ReasonAuthentication, "Not authenticated")
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.httpError(w, http.StatusBadRequest, api.ReasonValidation, "Request must be multipart/form-data")
		return
	}

	part, err := filePart(mr)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, api.ReasonValidation, `A form part named "file" is required`)
		return
	}
	defer part.Close()

	filename := part.FileName()
	ext := strings.ToLower(filepath.Ext(filename))
	if _, allowed := h.extensions[ext]; !allowed {
		log.Warn("upload rejected: unsupported file type", "user", username, "filename", filename)
		h.httpErrorDetails(w, http.StatusBadRequest, api.ReasonValidation,
			fmt.Sprintf("Unsupported file type %q", ext),
			"allowed: "+strings.Join(h.extList, ", "))
		return
	}

	tmp, err := os.CreateTemp(h.ws.Root(), ".upload-*")
	if err != nil {
		log.Error("cannot create temp file in workspace", "error", err)
		h.httpError(w, http.StatusInternalServerError, api.ReasonInternal, "Failed to store upload")
		return
	}
	tmpPath := tmp.Name()
	// The rename below claims the file on success; on every other exit
	// path this removes it.
	defer os.Remove(tmpPath)

	// Read one byte past the limit so an exactly-at-limit file passes
	// and anything larger is caught without reading it all.
	written, err := io.Copy(tmp, io.LimitReader(part, h.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("cannot persist upload", "user", username, "error", err)
		h.httpError(w, http.StatusInternalServerError, api.ReasonInternal, "Failed to store upload")
		return
	}
	if written > h.maxBytes {
		log.Warn("upload rejected: too large", "user", username, "filename", filename)
		h.httpError(w, http.StatusRequestEntityTooLarge, api.ReasonPayloadTooLarge,
			fmt.Sprintf("File exceeds the maximum size of %dMB", h.maxMB))
		return
	}

	pageCount := 0
	if h.pdfPreflight && ext == ".pdf" {
		info, err := h.inspect(tmpPath)
		if err != nil {
			log.Warn("upload rejected: preflight failed", "user", username, "filename", filename, "error", err)
			h.httpErrorDetails(w, http.StatusBadRequest, api.ReasonValidation,
				"Invalid or corrupted PDF", err.Error())
			return
		}
		pageCount = info.Pages
	}

	jobID := uuid.New()
	sourcePath := h.ws.SourcePath(jobID, filename)
	if err := os.Rename(tmpPath, sourcePath); err != nil {
		log.Error("cannot move upload into workspace", "job_id", jobID, "error", err)
		h.httpError(w, http.StatusInternalServerError, api.ReasonInternal, "Failed to store upload")
		return
	}

	job := store.NewJob(jobID, username, sourcePath, h.ws.JobDir(jobID), pageCount)
	h.registry.Add(job)

	if err := h.dispatcher.Enqueue(ctx, jobID); err != nil {
		log.Error("job dispatch rejected", "job_id", jobID, "error", err)
		job.Fail(fmt.Sprintf("dispatch rejected: %v", err))
		h.httpError(w, http.StatusServiceUnavailable, api.ReasonServiceUnavailable,
			"Processing queue is not accepting jobs, try again later")
		return
	}

	log.Info("upload accepted", "user", username, "filename", filename, "job_id", jobID, "bytes", written)
	h.respondJson(w, http.StatusOK, statusBody(job.Snapshot()))
}

// filePart scans the multipart stream for the part named "file".
func filePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF here means the form had no "file" part.
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
