package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/service"
	"go.uber.org/zap"
)

var (
	ErrNoBaseId      = errors.New("no base ID provided")
	ErrEmptyBody     = errors.New("no notifications provided")
	ErrTraceNotFound = errors.New("trace not found")
)

type ErrorMessage struct {
	Message string `json:"message"`
}

func HttpError(w http.ResponseWriter, message string, code int, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(ErrorMessage{Message: message})
	if err != nil {
		logger.Error("Error encountered when encoding error message", zap.Error(err))
	}
}

// statusFor maps driver and assembly errors to the HTTP status reported to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, driver.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, service.ErrMalformedTimestamp),
		errors.Is(err, service.ErrMissingTraceID),
		errors.Is(err, driver.ErrMissingBaseID),
		errors.Is(err, driver.ErrUnknownField),
		errors.Is(err, ErrEmptyBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrTraceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, logger *zap.Logger) {
	code := statusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal server error"
	}
	HttpError(w, message, code, logger)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Error encountered when encoding response", zap.Error(err))
	}
}
