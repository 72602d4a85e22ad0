package handlers

import (
	"errors"
	"net/http"

	"sponte/internal/logger"
	"sponte/internal/scheduler"
	"sponte/pkg/api"
)

// ListJobs handles GET /internal/jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.httpError(w, "Scheduler is disabled", http.StatusServiceUnavailable)
		return
	}
	jobs := h.jobs.Jobs()
	resp := make([]api.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		jr := api.JobResponse{Name: j.Name, Spec: j.Spec, Running: j.Running}
		if !j.Next.IsZero() {
			next := j.Next
			jr.NextRun = &next
		}
		resp = append(resp, jr)
	}
	h.respondJson(w, http.StatusOK, resp)
}

// RunJob handles POST /internal/jobs/{name}/run.
// The job runs in the background; the response only acknowledges the start.
func (h *Handlers) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.httpError(w, "Scheduler is disabled", http.StatusServiceUnavailable)
		return
	}
	name := r.PathValue("name")

	err := h.jobs.Trigger(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		h.httpError(w, "Unknown job", http.StatusNotFound)
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		h.httpError(w, "Job is already running", http.StatusConflict)
		return
	case err != nil:
		h.serviceError(w, r, err, "Job")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("job triggered manually", "job", name)
	h.respondJson(w, http.StatusAccepted, api.RunJobResponse{Job: name, Status: "started"})
}
