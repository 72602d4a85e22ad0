package handlers

import (
	"context"
	"net/http"
	"testing"

	"sponte/internal/store"
	"sponte/pkg/api"
)

func TestOnboardingHandlers(t *testing.T) {
	f := newFixture(t)
	newcomer := f.addUser(t, "new@shop.example")

	profile := map[string]any{
		"business_name":    "Corner Shop",
		"street_address":   "1 Elm St",
		"city":             "Denver",
		"state":            "CO",
		"zip_code":         "80202",
		"phone":            "303-555-0101",
		"primary_category": "Grocery",
		"services":         "Produce\n\nDeli \n",
	}
	rr := f.do(t, f.h.CreateDraftLocation, http.MethodPost, "/onboarding/location", profile, newcomer)
	assertStatus(t, rr, http.StatusOK)
	draft := decodeBody[api.LocationResponse](t, rr)
	if len(draft.Services) != 2 || draft.Services[1] != "Deli" {
		t.Errorf("services = %q, want [Produce Deli]", draft.Services)
	}

	submit := map[string]any{}
	for k, v := range profile {
		submit[k] = v
	}
	submit["global_autonomy"] = "auto"
	submit["report_frequency"] = "monthly"
	submit["report_emails"] = "new@shop.example, ops@shop.example"

	rr = f.do(t, f.h.SubmitOnboarding, http.MethodPost, "/onboarding/submit", submit, newcomer)
	assertStatus(t, rr, http.StatusCreated)
	resp := decodeBody[api.OnboardingResponse](t, rr)
	if resp.ConfigsCreated != len(store.AllAgentTypes) {
		t.Errorf("configs_created = %d, want %d", resp.ConfigsCreated, len(store.AllAgentTypes))
	}
	if resp.Location.ID != draft.ID {
		t.Errorf("submit created a second location: %s != %s", resp.Location.ID, draft.ID)
	}
	if len(resp.Location.ReportEmails) != 2 {
		t.Errorf("report_emails = %q", resp.Location.ReportEmails)
	}

	loc, err := f.store.GetLocationByUser(context.Background(), newcomer.ID)
	if err != nil {
		t.Fatalf("GetLocationByUser: %v", err)
	}
	cfg, err := f.store.GetAgentConfig(context.Background(), loc.ID, store.AgentGBP)
	if err != nil {
		t.Fatalf("GetAgentConfig: %v", err)
	}
	if cfg.AutonomyMode != store.AutonomyAutopilot {
		t.Errorf("autonomy = %q, want autopilot", cfg.AutonomyMode)
	}
}

func TestSubmitOnboarding_Validation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, f.h.SubmitOnboarding, http.MethodPost, "/onboarding/submit",
		map[string]any{"business_name": "Half Done"}, f.addUser(t, "half@shop.example"))
	assertStatus(t, rr, http.StatusBadRequest)
	body := decodeBody[api.ErrorResponse](t, rr)
	if body.Error == "" {
		t.Error("expected a validation message")
	}
}

func TestLocationOwnership(t *testing.T) {
	f := newFixture(t)
	id := f.loc.ID.String()

	handlers := map[string]http.HandlerFunc{
		"get":      f.h.GetLocation,
		"agents":   f.h.ListAgentConfigs,
		"tasks":    f.h.ListTasks,
		"outputs":  f.h.ListOutputs,
		"drafts":   f.h.ListDrafts,
		"reports":  f.h.ListReports,
		"status":   f.h.GoogleStatus,
		"settings": f.h.UpdateSettings,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			rr := f.do(t, h, http.MethodGet, "/", map[string]any{}, f.other, "id", id)
			assertStatus(t, rr, http.StatusNotFound)

			rr = f.do(t, h, http.MethodGet, "/", map[string]any{}, f.user, "id", "not-a-uuid")
			assertStatus(t, rr, http.StatusBadRequest)

			rr = f.do(t, h, http.MethodGet, "/", map[string]any{}, nil, "id", id)
			assertStatus(t, rr, http.StatusUnauthorized)
		})
	}
}

func TestGetMyLocation(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, f.h.GetMyLocation, http.MethodGet, "/locations/me", nil, f.user)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeBody[api.LocationResponse](t, rr); got.ID != f.loc.ID.String() {
		t.Errorf("id = %s, want %s", got.ID, f.loc.ID)
	}

	rr = f.do(t, f.h.GetMyLocation, http.MethodGet, "/locations/me", nil, f.other)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestUpdateGBPLocation(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		want     int
		wantBind string
	}{
		{"bind", " accounts/1/locations/2 ", http.StatusOK, "accounts/1/locations/2"},
		{"unbind", "", http.StatusOK, ""},
		{"bad shape", "locations/2", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(t, f.h.UpdateGBPLocation, http.MethodPatch, "/",
				api.UpdateGBPLocationRequest{GBPLocationName: tt.value}, f.user, "id", f.loc.ID.String())
			assertStatus(t, rr, tt.want)
			if tt.want != http.StatusOK {
				return
			}
			loc, _ := f.store.GetLocation(context.Background(), f.loc.ID)
			if loc.GBPLocationName != tt.wantBind {
				t.Errorf("gbp_location_name = %q, want %q", loc.GBPLocationName, tt.wantBind)
			}
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	id := f.loc.ID.String()

	rr := f.do(t, f.h.UpdateSettings, http.MethodPatch, "/",
		map[string]any{"report_frequency": "daily"}, f.user, "id", id)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = f.do(t, f.h.UpdateSettings, http.MethodPatch, "/", map[string]any{
		"brand_tone":       " playful ",
		"forbidden_words":  "cheap, discount",
		"report_frequency": "monthly",
	}, f.user, "id", id)
	assertStatus(t, rr, http.StatusOK)

	loc, _ := f.store.GetLocation(context.Background(), f.loc.ID)
	if loc.BrandTone != "playful" || loc.ReportFrequency != "monthly" {
		t.Errorf("settings not applied: %+v", loc)
	}
	if len(loc.ForbiddenWords) != 2 {
		t.Errorf("forbidden_words = %q", loc.ForbiddenWords)
	}
	if loc.GBPCadence != "weekly" {
		t.Errorf("omitted field changed: gbp_cadence = %q", loc.GBPCadence)
	}
}

func TestUpdateAgentConfig(t *testing.T) {
	f := newFixture(t)
	id := f.loc.ID.String()

	tests := []struct {
		name  string
		agent string
		body  any
		want  int
	}{
		{"unknown agent", "seo_wizard", map[string]any{"is_active": false}, http.StatusBadRequest},
		{"unknown mode", "gbp", map[string]any{"autonomy_mode": "yolo"}, http.StatusBadRequest},
		{"alias mode", "gbp", map[string]any{"autonomy_mode": "auto", "config_data": map[string]any{"post_frequency": "daily"}}, http.StatusOK},
		{"deactivate", "blog", map[string]any{"is_active": false}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, f.h.UpdateAgentConfig, http.MethodPatch, "/", tt.body, f.user, "id", id, "agent", tt.agent)
			assertStatus(t, rr, tt.want)
		})
	}

	gbp, _ := f.store.GetAgentConfig(context.Background(), f.loc.ID, store.AgentGBP)
	if gbp.AutonomyMode != store.AutonomyAutopilot || gbp.PostFrequency() != "daily" {
		t.Errorf("gbp config = %+v", gbp)
	}
	blog, _ := f.store.GetAgentConfig(context.Background(), f.loc.ID, store.AgentBlog)
	if blog.IsActive {
		t.Error("blog agent should be inactive")
	}
}

func TestIsDue(t *testing.T) {
	f := newFixture(t)
	id := f.loc.ID.String()

	rr := f.do(t, f.h.IsDue, http.MethodGet, "/", nil, f.user, "id", id, "agent", "gbp")
	assertStatus(t, rr, http.StatusOK)
	if !decodeBody[api.DueResponse](t, rr).Due {
		t.Error("gbp should be due with no posts")
	}

	f.draft(t)

	rr = f.do(t, f.h.IsDue, http.MethodGet, "/", nil, f.user, "id", id, "agent", "gbp")
	assertStatus(t, rr, http.StatusOK)
	if decodeBody[api.DueResponse](t, rr).Due {
		t.Error("a fresh draft should satisfy the weekly cadence")
	}
}
