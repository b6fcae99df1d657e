package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gHajnal/OppaTalent/internal/quiz"
	"github.com/gHajnal/OppaTalent/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrSessionClosed),
		errors.Is(err, service.ErrEvaluationPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quiz.ErrInvalidSession),
		errors.Is(err, quiz.ErrPositionOutOfRange),
		errors.Is(err, service.ErrNoAnswersSubmitted),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrContentTooShort),
		errors.Is(err, service.ErrNoExtractor):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// userID identifies the caller. There is no authentication layer; the UI
// passes a stable identifier so analytics and passback can correlate.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
