package handlers

import (
	"net/http"
	"strings"

	"sponte/internal/agents"
	"sponte/internal/store"
	"sponte/pkg/api"
)

// ownedOutput loads the {id} output and checks the principal owns its location.
func (h *Handlers) ownedOutput(w http.ResponseWriter, r *http.Request) (*store.Output, bool) {
	id, ok := h.pathID(w, r, "id", "output")
	if !ok {
		return nil, false
	}
	out, err := h.store.GetOutput(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return nil, false
	}
	if _, ok := h.ownedLocation(w, r, out.LocationID); !ok {
		return nil, false
	}
	return out, true
}

func (h *Handlers) listOutputs(w http.ResponseWriter, r *http.Request, statuses []store.OutputStatus) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	f := store.OutputFilter{LocationID: loc.ID, Statuses: statuses, Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("type"); v != "" {
		f.OutputType = store.OutputType(v)
		if !f.OutputType.Valid() {
			h.httpError(w, "Unknown output type", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("status"); v != "" && statuses == nil {
		for _, s := range strings.Split(v, ",") {
			st := store.OutputStatus(strings.TrimSpace(s))
			if !st.Valid() {
				h.httpError(w, "Unknown output status", http.StatusBadRequest)
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	outs, err := h.store.ListOutputs(r.Context(), f)
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return
	}
	resp := api.OutputListResponse{Outputs: make([]api.OutputResponse, 0, len(outs))}
	for i := range outs {
		resp.Outputs = append(resp.Outputs, toOutputResponse(&outs[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ListOutputs handles GET /locations/{id}/outputs.
// Optional filters: type, status (comma separated).
func (h *Handlers) ListOutputs(w http.ResponseWriter, r *http.Request) {
	h.listOutputs(w, r, nil)
}

// ListDrafts handles GET /locations/{id}/drafts: the review queue.
func (h *Handlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	h.listOutputs(w, r, []store.OutputStatus{store.OutputDraft})
}

// GetOutput handles GET /outputs/{id}.
func (h *Handlers) GetOutput(w http.ResponseWriter, r *http.Request) {
	out, ok := h.ownedOutput(w, r)
	if !ok {
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(out))
}

// EditOutput handles PATCH /outputs/{id}.
func (h *Handlers) EditOutput(w http.ResponseWriter, r *http.Request) {
	out, ok := h.ownedOutput(w, r)
	if !ok {
		return
	}

	var req api.EditOutputRequest
	if !h.decode(w, r, &req) {
		return
	}

	var cta *store.CallToAction
	if req.CallToAction != nil {
		c, valid := store.ParseCallToAction(*req.CallToAction)
		if !valid {
			h.httpError(w, "Unknown call_to_action", http.StatusBadRequest)
			return
		}
		cta = &c
	}

	edited, err := h.agents.EditOutput(r.Context(), out.ID, req.Content, cta)
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(edited))
}

// ApproveOutput handles POST /outputs/{id}/approve.
func (h *Handlers) ApproveOutput(w http.ResponseWriter, r *http.Request) {
	out, ok := h.ownedOutput(w, r)
	if !ok {
		return
	}
	approved, err := h.agents.ApproveOutput(r.Context(), out.ID)
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(approved))
}

// RejectOutput handles POST /outputs/{id}/reject. The body is optional.
func (h *Handlers) RejectOutput(w http.ResponseWriter, r *http.Request) {
	out, ok := h.ownedOutput(w, r)
	if !ok {
		return
	}

	var req api.RejectOutputRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	rejected, err := h.agents.RejectOutput(r.Context(), out.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(rejected))
}

// PostOutput handles POST /outputs/{id}/post. The body is optional.
func (h *Handlers) PostOutput(w http.ResponseWriter, r *http.Request) {
	out, ok := h.ownedOutput(w, r)
	if !ok {
		return
	}

	var req api.PostOutputRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	posted, err := h.agents.MarkPosted(r.Context(), out.ID, agents.PostOptions{
		PlatformPostID: deref(req.PlatformPostID),
		PlatformURL:    deref(req.PlatformURL),
		SkipPublish:    !req.Publish(),
	})
	if err != nil {
		h.serviceError(w, r, err, "Output")
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(posted))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
