package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gHajnal/OppaTalent/internal/service"
)

// AnalyticsHandler handles report and user analytics endpoints
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetUserAnalytics handles GET /api/analytics/users/{userID}
func (h *AnalyticsHandler) GetUserAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.analytics.GetUserAnalytics(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// GetReport handles GET /api/reports/{sessionID}
func (h *AnalyticsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.GetReport(r.Context(), mux.Vars(r)["sessionID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
