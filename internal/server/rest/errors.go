package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/logging"
	"github.com/dmitrijs2005/workout/internal/server/auth"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a {"detail": ...} body. Only
// server-side failures are logged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		detail string
	)

	switch {
	case errors.Is(err, common.ErrInfrastructure):
		status, detail = http.StatusInternalServerError, "internal server error"
	case errors.Is(err, auth.ErrKeyNotFound):
		status, detail = http.StatusUnauthorized, "Unable to find appropriate key"
	case errors.Is(err, common.ErrAuthentication):
		status, detail = http.StatusUnauthorized, authDetail(err)
	case errors.Is(err, common.ErrValidation):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrNotFound):
		status, detail = http.StatusNotFound, "Message not found"
	default:
		status, detail = http.StatusInternalServerError, "internal server error"
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), h.logger).Error(r.Context(), "request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Detail: detail})
}

func authDetail(err error) string {
	if errors.Is(err, errMissingToken) {
		return "Not authenticated"
	}
	return "Invalid token"
}
