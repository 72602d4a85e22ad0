package handlers

import (
	"net/http"
	"net/url"

	"sponte/internal/logger"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

// ConnectGoogle handles GET /oauth/google/connect?location_id=.
// It returns the consent URL; the frontend performs the redirect.
func (h *Handlers) ConnectGoogle(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}
	locationID, err := uuid.Parse(r.URL.Query().Get("location_id"))
	if err != nil {
		h.httpError(w, "Invalid location id", http.StatusBadRequest)
		return
	}
	if _, ok := h.ownedLocation(w, r, locationID); !ok {
		return
	}

	authURL, err := h.oauth.AuthURL(user.ID, locationID)
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	h.respondJson(w, http.StatusOK, api.OAuthConnectResponse{AuthURL: authURL})
}

// GoogleCallback handles GET /oauth/google/callback. It is public: the
// single-use state ties the request back to the user who started the flow.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	log := logger.FromContext(r.Context(), h.logger)

	if denied := q.Get("error"); denied != "" {
		log.Warn("google consent denied", "error", denied)
		h.finishOAuth(w, r, "", denied)
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		h.finishOAuth(w, r, "", "missing_code")
		return
	}

	tok, err := h.oauth.Exchange(r.Context(), state, code)
	if err != nil {
		log.Error("google oauth exchange failed", "error", err)
		h.finishOAuth(w, r, "", "exchange_failed")
		return
	}
	log.Info("google account connected", "location_id", tok.LocationID, "user_id", tok.UserID)
	h.finishOAuth(w, r, tok.LocationID.String(), "")
}

// finishOAuth sends the browser back to the dashboard, or answers with JSON
// when no frontend is configured.
func (h *Handlers) finishOAuth(w http.ResponseWriter, r *http.Request, locationID, failure string) {
	if h.frontendURL == "" {
		if failure != "" {
			h.httpError(w, "Google connection failed: "+failure, http.StatusBadRequest)
			return
		}
		h.respondJson(w, http.StatusOK, map[string]string{"status": "connected", "location_id": locationID})
		return
	}

	v := url.Values{}
	if failure != "" {
		v.Set("google", "error")
		v.Set("reason", failure)
	} else {
		v.Set("google", "connected")
		v.Set("location_id", locationID)
	}
	http.Redirect(w, r, h.frontendURL+"/dashboard/settings?"+v.Encode(), http.StatusFound)
}

// DisconnectGoogle handles POST /oauth/google/disconnect/{id}.
func (h *Handlers) DisconnectGoogle(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	if err := h.oauth.Disconnect(r.Context(), loc.ID); err != nil {
		h.serviceError(w, r, err, "Google connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GoogleStatus handles GET /oauth/google/status/{id}.
func (h *Handlers) GoogleStatus(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	st, err := h.oauth.Status(r.Context(), loc.ID)
	if err != nil {
		h.serviceError(w, r, err, "Google connection")
		return
	}
	h.respondJson(w, http.StatusOK, api.OAuthStatusResponse{
		Connected:   st.Connected,
		ExpiresAt:   st.ExpiresAt,
		Expired:     st.Expired,
		Refreshable: st.Refreshable,
		Scope:       st.Scope,
		ConnectedAt: st.ConnectedAt,
	})
}
