package handler

import (
	"net/http"

	"github.com/gHajnal/OppaTalent/internal/lti"
)

// LTIHandler handles LMS launch registration
type LTIHandler struct {
	client *lti.Client
}

// NewLTIHandler creates a new LTI handler. client may be nil when passback
// is not configured.
func NewLTIHandler(client *lti.Client) *LTIHandler {
	return &LTIHandler{client: client}
}

// Launch handles POST /api/lti/launch. The LMS posts the standard LTI 1.1
// form; the outcome parameters are kept so the user's final score can be
// written back to the gradebook.
func (h *LTIHandler) Launch(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		writeError(w, http.StatusServiceUnavailable, lti.ErrNotConfigured.Error())
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid launch form")
		return
	}
	if !h.client.VerifyLaunch(r) {
		writeError(w, http.StatusUnauthorized, "invalid launch signature")
		return
	}

	launchUserID := r.PostFormValue("user_id")
	if launchUserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	h.client.RegisterLaunch(launchUserID, lti.Launch{
		OutcomeURL: r.PostFormValue("lis_outcome_service_url"),
		SourcedID:  r.PostFormValue("lis_result_sourcedid"),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "launched", "user_id": launchUserID})
}
