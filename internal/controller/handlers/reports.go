package handlers

import (
	"net/http"

	"sponte/internal/reports"
	"sponte/internal/store"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

// CreateReport handles POST /reports.
// For weekly and monthly reports an omitted period defaults to the last full one.
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req api.CreateReportRequest
	if !h.decode(w, r, &req) {
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.httpError(w, "Invalid location id", http.StatusBadRequest)
		return
	}
	loc, ok := h.ownedLocation(w, r, locationID)
	if !ok {
		return
	}

	t := store.ReportType(req.ReportType)
	if !t.Valid() {
		h.httpError(w, "report_type must be weekly, monthly or custom", http.StatusBadRequest)
		return
	}

	start, end := req.PeriodStart, req.PeriodEnd
	if start.IsZero() && end.IsZero() {
		if t == store.ReportCustom {
			h.httpError(w, "Custom reports need period_start and period_end", http.StatusBadRequest)
			return
		}
		start, end, _ = reports.Period(t, h.now().UTC())
	}

	report, err := h.reports.Generate(r.Context(), loc, t, start, end, req.SendEmail)
	if err != nil {
		h.serviceError(w, r, err, "Report")
		return
	}
	h.respondJson(w, http.StatusCreated, toReportResponse(report))
}

// GetReport handles GET /reports/{id}.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "report")
	if !ok {
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err, "Report")
		return
	}
	if _, ok := h.ownedLocation(w, r, report.LocationID); !ok {
		return
	}
	h.respondJson(w, http.StatusOK, toReportResponse(report))
}

func (h *Handlers) reportTypeParam(w http.ResponseWriter, r *http.Request, def store.ReportType) (store.ReportType, bool) {
	v := r.URL.Query().Get("type")
	if v == "" {
		return def, true
	}
	t := store.ReportType(v)
	if !t.Valid() {
		h.httpError(w, "Unknown report type", http.StatusBadRequest)
		return "", false
	}
	return t, true
}

// ListReports handles GET /locations/{id}/reports.
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	t, ok := h.reportTypeParam(w, r, "")
	if !ok {
		return
	}
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	list, total, err := h.store.ListReports(r.Context(), store.ReportFilter{
		LocationID: loc.ID,
		ReportType: t,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.serviceError(w, r, err, "Report")
		return
	}
	resp := api.ReportListResponse{Reports: make([]api.ReportResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Reports = append(resp.Reports, toReportResponse(&list[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// LatestReport handles GET /locations/{id}/reports/latest. The type defaults to weekly.
func (h *Handlers) LatestReport(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	t, ok := h.reportTypeParam(w, r, store.ReportWeekly)
	if !ok {
		return
	}
	report, err := h.store.LatestReport(r.Context(), loc.ID, t)
	if err != nil {
		h.serviceError(w, r, err, "Report")
		return
	}
	h.respondJson(w, http.StatusOK, toReportResponse(report))
}
