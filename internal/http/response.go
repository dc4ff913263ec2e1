package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/marketplace-checkout/internal/checkout"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}

// handleServiceError maps checkout errors to HTTP responses. Unknown errors are logged and
// reported without details.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, checkout.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "access_denied", err.Error())
	case errors.Is(err, checkout.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, checkout.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, checkout.ErrUpstreamHard):
		log.Error("payment processor failure", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "payment_unavailable", "payment could not be started, nothing was charged")
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
