package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"sponte/internal/scheduler"
	"sponte/pkg/api"
)

func TestRunJob(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"started", nil, http.StatusAccepted},
		{"unknown", fmt.Errorf("job nope: %w", scheduler.ErrUnknownJob), http.StatusNotFound},
		{"running", scheduler.ErrJobRunning, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.jobs.triggerErr = tt.err

			rr := f.do(t, f.h.RunJob, http.MethodPost, "/", nil, nil, "name", scheduler.JobWeeklyReports)
			assertStatus(t, rr, tt.want)
			if tt.want != http.StatusAccepted {
				return
			}
			got := decodeBody[api.RunJobResponse](t, rr)
			if got.Job != scheduler.JobWeeklyReports || got.Status != "started" {
				t.Errorf("response = %+v", got)
			}
			if len(f.jobs.triggered) != 1 {
				t.Errorf("triggered = %v", f.jobs.triggered)
			}
		})
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, f.h.ListJobs, http.MethodGet, "/internal/jobs", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	jobs := decodeBody[[]api.JobResponse](t, rr)
	if len(jobs) != 1 || jobs[0].Name != scheduler.JobAgentTick || jobs[0].NextRun != nil {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestJobs_SchedulerDisabled(t *testing.T) {
	f := newFixture(t)
	f.h.jobs = nil

	rr := f.do(t, f.h.ListJobs, http.MethodGet, "/", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
	rr = f.do(t, f.h.RunJob, http.MethodPost, "/", nil, nil, "name", scheduler.JobAgentTick)
	assertStatus(t, rr, http.StatusServiceUnavailable)
}
