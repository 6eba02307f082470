package httpapi

import (
	"errors"
	"net/http"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/service"
)

var errUnknownLine = errors.New("unknown line")

func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound, service.KindNoSession:
		return http.StatusNotFound
	case service.KindOutOfStock, service.KindInsufficientStock, service.KindConcurrencyConflict:
		return http.StatusConflict
	case service.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error kind onto its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusConflict {
		writeJSON(w, status, map[string]any{"error": err.Error(), "kind": service.KindOf(err)})
		return
	}
	writeError(w, status, err)
}

// lineFrom reads the {line} path value, accepting "food" for the kitchen.
func lineFrom(w http.ResponseWriter, r *http.Request) (domain.Line, bool) {
	line, ok := domain.ParseLine(r.PathValue("line"))
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownLine)
		return "", false
	}
	return line, true
}
