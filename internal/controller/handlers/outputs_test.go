package handlers

import (
	"context"
	"net/http"
	"testing"

	"sponte/internal/store"
	"sponte/pkg/api"
)

func TestOutputLifecycle(t *testing.T) {
	f := newFixture(t)
	out := f.draft(t)
	id := out.ID.String()

	rr := f.do(t, f.h.PostOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusConflict)

	rr = f.do(t, f.h.EditOutput, http.MethodPatch, "/", map[string]any{
		"content":        "Now baking rye on Saturdays",
		"call_to_action": "order",
	}, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)
	edited := decodeBody[api.OutputResponse](t, rr)
	if edited.Status != string(store.OutputDraft) || edited.Metadata["edited"] != true {
		t.Errorf("edit changed status or missed metadata: %+v", edited)
	}
	if edited.CallToAction == nil || *edited.CallToAction != string(store.CTAOrder) {
		t.Errorf("call_to_action = %v", edited.CallToAction)
	}

	rr = f.do(t, f.h.ApproveOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)

	rr = f.do(t, f.h.ApproveOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusConflict)

	rr = f.do(t, f.h.PostOutput, http.MethodPost, "/", map[string]any{
		"platform_post_id": "manual-1",
		"platform_url":     "https://maps.example/p/1",
	}, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)
	posted := decodeBody[api.OutputResponse](t, rr)
	if posted.Status != string(store.OutputPosted) || posted.PostedAt == nil {
		t.Errorf("posted = %+v", posted)
	}
	if posted.PlatformPostID == nil || *posted.PlatformPostID != "manual-1" {
		t.Errorf("platform_post_id = %v", posted.PlatformPostID)
	}

	task, _ := f.store.GetTask(context.Background(), out.TaskID)
	if task.Status != store.TaskPosted {
		t.Errorf("task status = %q, want posted", task.Status)
	}

	rr = f.do(t, f.h.EditOutput, http.MethodPatch, "/", map[string]any{"content": "late change"}, f.user, "id", id)
	assertStatus(t, rr, http.StatusConflict)
}

func TestPostOutput_PublishesByDefault(t *testing.T) {
	f := newFixture(t)
	f.loc.GBPLocationName = "accounts/1/locations/2"
	if err := f.store.UpdateLocation(context.Background(), nil, f.loc); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	out := f.draft(t)
	id := out.ID.String()

	rr := f.do(t, f.h.ApproveOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)

	rr = f.do(t, f.h.PostOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)
	posted := decodeBody[api.OutputResponse](t, rr)
	if posted.Status != string(store.OutputPosted) {
		t.Errorf("status = %q, want posted", posted.Status)
	}
	if posted.PlatformPostID == nil || *posted.PlatformPostID != "gbp-post-1" {
		t.Errorf("platform_post_id = %v", posted.PlatformPostID)
	}
	if len(f.pub.calls) != 1 || f.pub.calls[0].Resource != "accounts/1/locations/2" {
		t.Fatalf("publisher calls = %+v", f.pub.calls)
	}

	rr = f.do(t, f.h.PostOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusConflict)
	if len(f.pub.calls) != 1 {
		t.Errorf("second post reached the publisher: %d calls", len(f.pub.calls))
	}
}

func TestPostOutput_OptOutSkipsPublisher(t *testing.T) {
	f := newFixture(t)
	f.loc.GBPLocationName = "accounts/1/locations/2"
	if err := f.store.UpdateLocation(context.Background(), nil, f.loc); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	out := f.draft(t)
	id := out.ID.String()

	rr := f.do(t, f.h.ApproveOutput, http.MethodPost, "/", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)

	rr = f.do(t, f.h.PostOutput, http.MethodPost, "/", `{"auto_post":false,"platform_post_id":"by-hand"}`, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)
	posted := decodeBody[api.OutputResponse](t, rr)
	if posted.PlatformPostID == nil || *posted.PlatformPostID != "by-hand" {
		t.Errorf("platform_post_id = %v", posted.PlatformPostID)
	}
	if len(f.pub.calls) != 0 {
		t.Errorf("publisher called %d times with auto_post false", len(f.pub.calls))
	}
}

func TestRejectOutput(t *testing.T) {
	f := newFixture(t)
	withReason := f.draft(t)
	withoutBody := f.draft(t)

	rr := f.do(t, f.h.RejectOutput, http.MethodPost, "/", map[string]any{"reason": " off brand "}, f.user, "id", withReason.ID.String())
	assertStatus(t, rr, http.StatusOK)
	got := decodeBody[api.OutputResponse](t, rr)
	if got.Status != string(store.OutputFailed) || got.Metadata["rejection_reason"] != "off brand" {
		t.Errorf("rejected = %+v", got)
	}
	task, _ := f.store.GetTask(context.Background(), withReason.TaskID)
	if task.Status != store.TaskRejected {
		t.Errorf("task status = %q, want rejected", task.Status)
	}

	rr = f.do(t, f.h.RejectOutput, http.MethodPost, "/", nil, f.user, "id", withoutBody.ID.String())
	assertStatus(t, rr, http.StatusOK)

	rr = f.do(t, f.h.RejectOutput, http.MethodPost, "/", nil, f.user, "id", withoutBody.ID.String())
	assertStatus(t, rr, http.StatusConflict)
}

func TestOutputHandlers_Errors(t *testing.T) {
	f := newFixture(t)
	id := f.draft(t).ID.String()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    any
		user    *store.User
		id      string
		want    int
	}{
		{"foreign get", f.h.GetOutput, nil, f.other, id, http.StatusNotFound},
		{"foreign approve", f.h.ApproveOutput, nil, f.other, id, http.StatusNotFound},
		{"missing output", f.h.GetOutput, nil, f.user, "7b7d6a0c-8d3f-4c55-a8b1-111111111111", http.StatusNotFound},
		{"bad id", f.h.GetOutput, nil, f.user, "nope", http.StatusBadRequest},
		{"empty edit", f.h.EditOutput, map[string]any{"content": "  "}, f.user, id, http.StatusBadRequest},
		{"bad cta", f.h.EditOutput, map[string]any{"content": "x", "call_to_action": "DANCE"}, f.user, id, http.StatusBadRequest},
		{"malformed reject body", f.h.RejectOutput, "{", f.user, id, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.handler, http.MethodPost, "/", tt.body, tt.user, "id", tt.id)
			assertStatus(t, rr, tt.want)
		})
	}
}

func TestListDraftsAndOutputs(t *testing.T) {
	f := newFixture(t)
	first := f.draft(t)
	f.draft(t)
	if _, err := f.agents.ApproveOutput(context.Background(), first.ID); err != nil {
		t.Fatalf("ApproveOutput: %v", err)
	}
	id := f.loc.ID.String()

	rr := f.do(t, f.h.ListDrafts, http.MethodGet, "/?status=approved", nil, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeBody[api.OutputListResponse](t, rr); len(got.Outputs) != 1 || got.Outputs[0].Status != "draft" {
		t.Errorf("drafts = %+v", got.Outputs)
	}

	tests := []struct {
		query string
		want  int
		count int
	}{
		{"", http.StatusOK, 2},
		{"?status=approved", http.StatusOK, 1},
		{"?status=draft,approved", http.StatusOK, 2},
		{"?type=gbp_post", http.StatusOK, 2},
		{"?type=blog_post", http.StatusOK, 0},
		{"?type=poem", http.StatusBadRequest, 0},
		{"?status=draft,lost", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := f.do(t, f.h.ListOutputs, http.MethodGet, "/"+tt.query, nil, f.user, "id", id)
			assertStatus(t, rr, tt.want)
			if tt.want != http.StatusOK {
				return
			}
			if got := decodeBody[api.OutputListResponse](t, rr); len(got.Outputs) != tt.count {
				t.Errorf("got %d outputs, want %d", len(got.Outputs), tt.count)
			}
		})
	}
}
