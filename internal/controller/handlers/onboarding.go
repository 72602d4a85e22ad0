package handlers

import (
	"net/http"

	"sponte/internal/onboarding"
	"sponte/pkg/api"
)

func toProfile(req api.BusinessProfileRequest) onboarding.BusinessProfile {
	return onboarding.BusinessProfile{
		BusinessName:    req.BusinessName,
		DBAName:         req.DBAName,
		StreetAddress:   req.StreetAddress,
		City:            req.City,
		State:           req.State,
		ZipCode:         req.ZipCode,
		Phone:           req.Phone,
		PhoneSecondary:  req.PhoneSecondary,
		WebsiteURL:      req.WebsiteURL,
		CMSPlatform:     req.CMSPlatform,
		PrimaryCategory: req.PrimaryCategory,
		Services:        req.Services,
	}
}

// CreateDraftLocation handles POST /onboarding/location.
// It saves the NAP step so accounts can be connected before the form is finished.
func (h *Handlers) CreateDraftLocation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req api.BusinessProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	loc, err := h.onboarding.CreateDraftLocation(r.Context(), user, toProfile(req))
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	h.respondJson(w, http.StatusOK, toLocationResponse(loc))
}

// SubmitOnboarding handles POST /onboarding/submit.
func (h *Handlers) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req api.OnboardingSubmitRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.onboarding.Submit(r.Context(), user, onboarding.Submission{
		BusinessProfile: toProfile(req.BusinessProfileRequest),
		BrandTone:       req.BrandTone,
		BlogCadence:     req.BlogCadence,
		GBPCadence:      req.GBPCadence,
		ForbiddenWords:  req.ForbiddenWords,
		ForbiddenTopics: req.ForbiddenTopics,
		GlobalAutonomy:  req.GlobalAutonomy,
		PrimaryGoal:     req.PrimaryGoal,
		ReportFrequency: req.ReportFrequency,
		ReportEmails:    req.ReportEmails,
	})
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}

	h.respondJson(w, http.StatusCreated, api.OnboardingResponse{
		Location:       toLocationResponse(res.Location),
		ConfigsCreated: res.ConfigsCreated,
	})
}
