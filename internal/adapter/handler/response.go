package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rl1809/harvest-market/internal/core/service"
)

type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Status: status, Data: data}) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Status: status, Message: message}) //nolint:errcheck
}

// errorStatus maps a service error to an HTTP status and client-safe message.
func errorStatus(err error) (int, string) {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, fmt.Sprintf("insufficient stock for product %s: available %d",
			stockErr.ProductID, stockErr.Available)
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrInvalidProduct):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
