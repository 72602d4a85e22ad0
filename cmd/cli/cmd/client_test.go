package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sponte/pkg/api"
)

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", http.StatusConflict, `{"error":"Output is not a draft","code":"invalid_transition"}`, "API error (409): Output is not a draft"},
		{"json error with details", http.StatusBadGateway, `{"error":"Content generation failed","details":"model returned prose"}`, "API error (502): Content generation failed: model returned prose"},
		{"plain text", http.StatusInternalServerError, "boom\n", "API error (500): boom"},
		{"empty body", http.StatusServiceUnavailable, "", "API error (503): Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "test-token").GetTask(context.Background(), "task-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
			if !IsStatus(err, tt.status) {
				t.Errorf("IsStatus(%d) = false for %v", tt.status, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Errorf("expected *APIError, got %T", err)
			}
		})
	}
}

func TestClient_TrimsBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/task-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, api.TaskResponse{ID: "task-1"})
	}))
	defer server.Close()

	task, err := NewClient(server.URL+"/", "test-token").GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "task-1" {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestClient_GenerateFailureKeepsTask(t *testing.T) {
	msg := "model returned prose"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, api.GenerateResponse{
			Task: api.TaskResponse{ID: "task-9", Status: "failed", ErrorMessage: &msg},
		})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, "test-token").Generate(context.Background(), "gbp", api.GenerateRequest{LocationID: testLocationID})
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 error, got: %v", err)
	}
	if resp == nil || resp.Task.ID != "task-9" || resp.Task.Status != "failed" {
		t.Errorf("expected failed task alongside the error, got %+v", resp)
	}
}

func TestClient_GenerateErrorWithoutTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Location not found"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, "test-token").Generate(context.Background(), "gbp", api.GenerateRequest{})
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got: %v", err)
	}
	if resp != nil {
		t.Errorf("expected no response, got %+v", resp)
	}
}

func TestTaskQuery_Encode(t *testing.T) {
	tests := []struct {
		q    TaskQuery
		want string
	}{
		{TaskQuery{}, ""},
		{TaskQuery{AgentType: "gbp"}, "?agent=gbp"},
		{TaskQuery{Status: "failed", Limit: 5, Offset: 10}, "?limit=5&offset=10&status=failed"},
	}
	for _, tt := range tests {
		if got := tt.q.encode(); got != tt.want {
			t.Errorf("encode(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, "test-token").MyLocation(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if IsStatus(err, http.StatusNotFound) {
		t.Error("transport errors should not look like API errors")
	}
}
