package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	derrors "github.com/blackspinne/lovable-cpannel/internal/foundation/errors"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/queue"
	"github.com/blackspinne/lovable-cpannel/internal/server/responses"
)

const (
	formSlug = "slug"
	formFile = "file"

	// multipartOverhead is allowed on top of the upload limit for form fields
	// and part headers.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

// JobQueue is the subset of queue.Manager the task handlers use.
type JobQueue interface {
	Submit(ctx context.Context, req queue.SubmitRequest) (queue.Status, error)
	Status(id string) (queue.Status, error)
	Result(id string) (queue.ResultInfo, error)
	Wait(ctx context.Context, id string) (queue.Job, error)
	Pending() (jobs, payloads int)
}

// TaskHandlers serves the job API.
type TaskHandlers struct {
	queue          JobQueue
	maxUploadBytes int64
	errorAdapter   *derrors.HTTPErrorAdapter
}

// NewTaskHandlers creates the job API handlers. maxUploadBytes bounds the
// request body; <= 0 disables the bound.
func NewTaskHandlers(q JobQueue, maxUploadBytes int64) *TaskHandlers {
	return &TaskHandlers{
		queue:          q,
		maxUploadBytes: maxUploadBytes,
		errorAdapter:   derrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// DownloadURL is the download path of a job.
func DownloadURL(id string) string { return "/tasks/" + id + "/download" }

// HandleEnqueue accepts a multipart upload (slug, file) and queues a job.
func (h *TaskHandlers) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	req, err := h.readUpload(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	st, err := h.queue.Submit(r.Context(), req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, classify(err))
		return
	}
	if err := writeJSON(w, http.StatusOK, responses.NewEnqueueResponse(st)); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryInternal, "failed to encode enqueue response").Build())
	}
}

// HandleStatus reports the state of a job.
func (h *TaskHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.queue.Status(id)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, classify(err, "job_id", id))
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, responses.NewStatusResponse(st, DownloadURL(id))); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryInternal, "failed to encode status response").Build())
	}
}

// HandleDownload streams the bundle of a finished job.
func (h *TaskHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.queue.Result(id)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, classify(err, "job_id", id))
		return
	}
	h.serveBundle(w, r, res)
}

// HandleBuild runs a job synchronously and answers with the bundle. The job
// goes through the queue like any other.
func (h *TaskHandlers) HandleBuild(w http.ResponseWriter, r *http.Request) {
	req, err := h.readUpload(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	st, err := h.queue.Submit(r.Context(), req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, classify(err))
		return
	}
	if _, err := h.queue.Wait(r.Context(), st.ID); err != nil {
		slog.Warn("Client left before the build finished", logfields.JobID(st.ID), logfields.Error(err))
		return
	}
	res, err := h.queue.Result(st.ID)
	if errors.Is(err, queue.ErrJobFailed) {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryBuild, failureDetail(err)).
			WithContext("job_id", st.ID).Build())
		return
	}
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, classify(err, "job_id", st.ID))
		return
	}
	h.serveBundle(w, r, res)
}

func (h *TaskHandlers) serveBundle(w http.ResponseWriter, r *http.Request, res queue.ResultInfo) {
	f, err := os.Open(res.Path)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("result file is no longer available").
			WithContext("file", res.Filename).Build())
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to stat result file").Build())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	http.ServeContent(w, r, res.Filename, info.ModTime(), f)
}

// readUpload parses the slug and the zip upload from a multipart form.
func (h *TaskHandlers) readUpload(w http.ResponseWriter, r *http.Request) (queue.SubmitRequest, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return queue.SubmitRequest{}, derrors.NewError(derrors.CategoryTooLarge, "upload too large").
				WithContext("limit", humanize.Bytes(uint64(h.maxUploadBytes))).Build()
		}
		return queue.SubmitRequest{}, derrors.ValidationError("slug and file are required").
			WithContext("reason", err.Error()).Build()
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	slug := r.FormValue(formSlug)
	file, header, err := r.FormFile(formFile)
	if strings.TrimSpace(slug) == "" || err != nil {
		return queue.SubmitRequest{}, derrors.ValidationError("slug and file are required").Build()
	}
	defer func() { _ = file.Close() }()

	name := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if !strings.HasSuffix(strings.ToLower(name), ".zip") {
		return queue.SubmitRequest{}, derrors.ValidationError("upload a .zip export").
			WithContext("filename", name).Build()
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return queue.SubmitRequest{}, derrors.WrapError(err, derrors.CategoryValidation, "failed to read upload").Build()
	}
	return queue.SubmitRequest{Slug: slug, Filename: name, Archive: data}, nil
}

// classify maps queue errors onto HTTP error categories.
func classify(err error, kv ...string) error {
	var b *derrors.ErrorBuilder
	switch {
	case errors.Is(err, queue.ErrInvalidSlug), errors.Is(err, queue.ErrEmptyUpload):
		b = derrors.WrapError(err, derrors.CategoryValidation, err.Error())
	case errors.Is(err, queue.ErrUploadTooLarge):
		b = derrors.WrapError(err, derrors.CategoryTooLarge, err.Error())
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		b = derrors.WrapError(err, derrors.CategoryUnavailable, err.Error()).Retryable()
	case errors.Is(err, queue.ErrJobNotFound):
		b = derrors.WrapError(err, derrors.CategoryNotFound, "job not found")
	case errors.Is(err, queue.ErrNotReady):
		b = derrors.WrapError(err, derrors.CategoryNotReady, "job not finished yet").WithSeverity(derrors.SeverityInfo)
	case errors.Is(err, queue.ErrJobFailed):
		// A failed job has no bundle; the failure detail stays in the body.
		b = derrors.WrapError(err, derrors.CategoryNotFound, failureDetail(err))
	default:
		b = derrors.WrapError(err, derrors.CategoryInternal, "internal error")
	}
	for i := 0; i+1 < len(kv); i += 2 {
		b = b.WithContext(kv[i], kv[i+1])
	}
	return b.Build()
}

func failureDetail(err error) string {
	return strings.TrimPrefix(err.Error(), queue.ErrJobFailed.Error()+": ")
}
