// internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	custom_errors "repo-mirror/internal/errors"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithDomainError maps typed errors to a status code. Validation and not-found
// messages are safe to show; everything else is logged and replaced by a generic message.
func (h *Handler) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *custom_errors.ValidationError
		notFound    *custom_errors.NotFoundError
		upstream    *custom_errors.UpstreamError
		persistence *custom_errors.PersistenceError
	)
	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)

	switch {
	case errors.As(err, &validation):
		respondWithError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &upstream):
		logger.Error("Upstream request failed", "error", err)
		respondWithError(w, http.StatusBadGateway, "Upstream provider request failed")
	case errors.As(err, &persistence):
		logger.Error("Database operation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	default:
		logger.Error("Unhandled error", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
