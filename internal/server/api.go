package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/shared"
)

// StatusFor maps an operation's error class to an HTTP status code.
func StatusFor(err error) int {
	switch shared.Classify(err) {
	case shared.ClassOK:
		return http.StatusOK
	case shared.ClassNotFound:
		return http.StatusNotFound
	case shared.ClassConflict:
		return http.StatusConflict
	case shared.ClassValidation:
		return http.StatusBadRequest
	case shared.ClassAuthRequired:
		return http.StatusUnauthorized
	case shared.ClassUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func fail(w http.ResponseWriter, logger *log.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "error", err)
	}
	respond(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
