package cmd

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"sponte/pkg/api"
)

func TestDraftsCommand(t *testing.T) {
	resetViper()

	cta := "CALL"
	newAPI(t, map[string]http.HandlerFunc{
		"GET /locations/{id}/drafts": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "20" {
				t.Errorf("expected default limit, got %s", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, api.OutputListResponse{Outputs: []api.OutputResponse{
				{
					ID:           "out-1",
					OutputType:   "gbp_post",
					Status:       "draft",
					Content:      "Fresh sourdough\nevery Saturday.",
					CallToAction: &cta,
					CreatedAt:    time.Now().Add(-2 * time.Hour),
				},
			}})
		},
	})

	out, err := execute(t, "drafts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"OUTPUT ID", "out-1", "gbp_post", "CALL", "2h ago", "Fresh sourdough every Saturday."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestDraftsCommand_Empty(t *testing.T) {
	resetViper()
	newAPI(t, map[string]http.HandlerFunc{
		"GET /locations/{id}/drafts": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.OutputListResponse{Outputs: []api.OutputResponse{}})
		},
	})

	out, err := execute(t, "drafts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No drafts waiting for review.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestShowCommand(t *testing.T) {
	resetViper()

	url := "https://business.google.com/posts/1"
	posted := time.Now().Add(-time.Hour)
	newAPI(t, map[string]http.HandlerFunc{
		"GET /outputs/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.OutputResponse{
				ID:          r.PathValue("id"),
				OutputType:  "blog_post",
				Status:      "posted",
				Title:       "Why we bake at 4am",
				Content:     "It starts with the starter.",
				PlatformURL: &url,
				PostedAt:    &posted,
			})
		},
	})

	out, err := execute(t, "show", "out-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"out-7", "blog_post", "posted", "Why we bake at 4am", url, "It starts with the starter."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestApproveCommand(t *testing.T) {
	resetViper()
	newAPI(t, map[string]http.HandlerFunc{
		"POST /outputs/{id}/approve": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.OutputResponse{ID: r.PathValue("id"), Status: "approved"})
		},
	})

	out, err := execute(t, "approve", "out-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Output out-1 approved.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestApproveCommand_NotDraft(t *testing.T) {
	resetViper()
	newAPI(t, map[string]http.HandlerFunc{
		"POST /outputs/{id}/approve": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: "Output is not in a state that allows this", Code: "invalid_transition"})
		},
	})

	_, err := execute(t, "approve", "out-1")
	if !IsStatus(err, http.StatusConflict) {
		t.Errorf("expected 409, got: %v", err)
	}
}

func TestRejectCommand(t *testing.T) {
	t.Run("requires reason", func(t *testing.T) {
		resetViper()
		newAPI(t, nil)

		_, err := execute(t, "reject", "out-1")
		if err == nil || !strings.Contains(err.Error(), "--reason") {
			t.Errorf("expected reason error, got: %v", err)
		}
	})

	t.Run("sends reason", func(t *testing.T) {
		resetViper()
		newAPI(t, map[string]http.HandlerFunc{
			"POST /outputs/{id}/reject": func(w http.ResponseWriter, r *http.Request) {
				req := decodeRequest[api.RejectOutputRequest](t, r)
				if req.Reason != "Off brand" {
					t.Errorf("unexpected reason %q", req.Reason)
				}
				writeJSON(w, http.StatusOK, api.OutputResponse{ID: "out-1", Status: "failed"})
			},
		})

		out, err := execute(t, "reject", "out-1", "--reason", "Off brand")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "rejected") {
			t.Errorf("unexpected output: %s", out)
		}
	})
}

func TestEditCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantCTA *string
	}{
		{"content only", []string{"edit", "out-1", "--content", "New copy"}, nil},
		{"with cta", []string{"edit", "out-1", "--content", "New copy", "--cta", "order"}, ptr("order")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			newAPI(t, map[string]http.HandlerFunc{
				"PATCH /outputs/{id}": func(w http.ResponseWriter, r *http.Request) {
					req := decodeRequest[api.EditOutputRequest](t, r)
					if req.Content != "New copy" {
						t.Errorf("unexpected content %q", req.Content)
					}
					if (req.CallToAction == nil) != (tt.wantCTA == nil) ||
						(req.CallToAction != nil && *req.CallToAction != *tt.wantCTA) {
						t.Errorf("unexpected cta %v", req.CallToAction)
					}
					writeJSON(w, http.StatusOK, api.OutputResponse{ID: "out-1", Status: "draft"})
				},
			})

			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, "Output out-1 updated (draft).") {
				t.Errorf("unexpected output: %s", out)
			}
		})
	}
}

func TestEditCommand_RequiresContent(t *testing.T) {
	resetViper()
	newAPI(t, nil)

	if _, err := execute(t, "edit", "out-1"); err == nil || !strings.Contains(err.Error(), "--content") {
		t.Errorf("expected content error, got: %v", err)
	}
}

func TestPostCommand(t *testing.T) {
	t.Run("publishes by default, reports failure", func(t *testing.T) {
		resetViper()
		newAPI(t, map[string]http.HandlerFunc{
			"POST /outputs/{id}/post": func(w http.ResponseWriter, r *http.Request) {
				req := decodeRequest[api.PostOutputRequest](t, r)
				if req.AutoPost != nil || !req.Publish() || req.PlatformPostID != nil {
					t.Errorf("unexpected request %+v", req)
				}
				writeJSON(w, http.StatusOK, api.OutputResponse{
					ID:       "out-1",
					Status:   "posted",
					Metadata: map[string]any{"publish_error": "google: 403 PERMISSION_DENIED"},
				})
			},
		})

		out, err := execute(t, "post", "out-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Output out-1 posted.") || !strings.Contains(out, "PERMISSION_DENIED") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("manual post", func(t *testing.T) {
		resetViper()
		url := "https://example.com/blog/sourdough"
		newAPI(t, map[string]http.HandlerFunc{
			"POST /outputs/{id}/post": func(w http.ResponseWriter, r *http.Request) {
				req := decodeRequest[api.PostOutputRequest](t, r)
				if req.Publish() || req.PlatformPostID == nil || *req.PlatformPostID != "wp-42" {
					t.Errorf("unexpected request %+v", req)
				}
				writeJSON(w, http.StatusOK, api.OutputResponse{ID: "out-1", Status: "posted", PlatformURL: req.PlatformURL})
			},
		})

		out, err := execute(t, "post", "out-1", "--no-publish", "--post-id", "wp-42", "--post-url", url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "URL: "+url) {
			t.Errorf("expected URL in output, got: %s", out)
		}
		if strings.Contains(out, "Publishing failed") {
			t.Errorf("unexpected publish failure line: %s", out)
		}
	})
}

func ptr(s string) *string { return &s }
