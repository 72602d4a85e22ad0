package handlers

import (
	"maps"
	"net/http"
	"strings"

	"sponte/internal/logger"
	"sponte/internal/store"
	"sponte/pkg/api"
)

// GetMyLocation handles GET /locations/me.
func (h *Handlers) GetMyLocation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}
	loc, err := h.store.GetLocationByUser(r.Context(), user.ID)
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	h.respondJson(w, http.StatusOK, toLocationResponse(loc))
}

// GetLocation handles GET /locations/{id}.
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	h.respondJson(w, http.StatusOK, toLocationResponse(loc))
}

// UpdateGBPLocation handles PATCH /locations/{id}/gbp-location.
// Binding a Business Profile resource is what enables auto-posting.
func (h *Handlers) UpdateGBPLocation(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}

	var req api.UpdateGBPLocationRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.GBPLocationName)
	if name != "" && !strings.HasPrefix(name, "accounts/") {
		h.httpError(w, "gbp_location_name must look like accounts/{account}/locations/{location}", http.StatusBadRequest)
		return
	}

	loc.GBPLocationName = name
	if err := h.store.UpdateLocation(r.Context(), nil, loc); err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	logger.FromContext(r.Context(), h.logger).Info("gbp location updated", "location_id", loc.ID, "bound", name != "")
	h.respondJson(w, http.StatusOK, toLocationResponse(loc))
}

// UpdateSettings handles PATCH /locations/{id}/settings.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}

	var req api.UpdateSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.ReportFrequency != nil {
		switch store.ReportType(*req.ReportFrequency) {
		case store.ReportWeekly, store.ReportMonthly:
		default:
			h.httpError(w, "report_frequency must be weekly or monthly", http.StatusBadRequest)
			return
		}
		loc.ReportFrequency = *req.ReportFrequency
	}
	setString(&loc.BrandTone, req.BrandTone)
	setString(&loc.BlogCadence, req.BlogCadence)
	setString(&loc.GBPCadence, req.GBPCadence)
	setString(&loc.PrimaryGoal, req.PrimaryGoal)
	setList(&loc.ForbiddenWords, req.ForbiddenWords)
	setList(&loc.ForbiddenTopics, req.ForbiddenTopics)
	setList(&loc.ReportEmails, req.ReportEmails)

	if err := h.store.UpdateLocation(r.Context(), nil, loc); err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	h.respondJson(w, http.StatusOK, toLocationResponse(loc))
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setList(dst *[]string, v *api.CommaList) {
	if v != nil {
		*dst = []string(*v)
	}
}

// ListAgentConfigs handles GET /locations/{id}/agents.
func (h *Handlers) ListAgentConfigs(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	configs, err := h.store.ListAgentConfigs(r.Context(), loc.ID)
	if err != nil {
		h.serviceError(w, r, err, "Agent config")
		return
	}
	resp := make([]api.AgentConfigResponse, 0, len(configs))
	for i := range configs {
		resp = append(resp, toAgentConfigResponse(&configs[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateAgentConfig handles PATCH /locations/{id}/agents/{agent}.
// Unlike onboarding, an unrecognized autonomy mode is rejected here.
func (h *Handlers) UpdateAgentConfig(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	agent, ok := h.agentParam(w, r)
	if !ok {
		return
	}

	var req api.UpdateAgentConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	cfg, err := h.store.GetAgentConfig(r.Context(), loc.ID, agent)
	if err != nil {
		h.serviceError(w, r, err, "Agent config")
		return
	}

	if req.AutonomyMode != nil {
		mode, known := store.ParseAutonomyMode(*req.AutonomyMode)
		if !known {
			h.httpError(w, "autonomy_mode must be draft or autopilot", http.StatusBadRequest)
			return
		}
		cfg.AutonomyMode = mode
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if len(req.ConfigData) > 0 {
		if cfg.ConfigData == nil {
			cfg.ConfigData = map[string]any{}
		}
		maps.Copy(cfg.ConfigData, req.ConfigData)
	}

	if err := h.store.UpdateAgentConfig(r.Context(), cfg); err != nil {
		h.serviceError(w, r, err, "Agent config")
		return
	}
	logger.FromContext(r.Context(), h.logger).Info("agent config updated",
		"location_id", loc.ID, "agent_type", agent, "autonomy_mode", cfg.AutonomyMode, "is_active", cfg.IsActive)
	h.respondJson(w, http.StatusOK, toAgentConfigResponse(cfg))
}

// IsDue handles GET /locations/{id}/agents/{agent}/due.
func (h *Handlers) IsDue(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	agent, ok := h.agentParam(w, r)
	if !ok {
		return
	}

	due, err := h.agents.IsDue(r.Context(), loc.ID, agent)
	if err != nil {
		h.serviceError(w, r, err, "Agent")
		return
	}
	h.respondJson(w, http.StatusOK, api.DueResponse{
		LocationID: loc.ID.String(),
		AgentType:  string(agent),
		Due:        due,
	})
}
