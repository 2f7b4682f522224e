package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/navigator"
	"github.com/vbonduro/skintell/internal/service"
	"github.com/vbonduro/skintell/internal/session"
)

// uploadHint is appended to camera errors so the client can offer the file
// picker instead.
const uploadHint = "You can upload a photo instead."

type errorBody struct {
	Error            string `json:"error"`
	Hint             string `json:"hint,omitempty"`
	FallbackResponse string `json:"fallbackResponse,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// respondDomainError maps package sentinels to a status and a user-facing
// message. Anything unrecognised becomes a generic 500 and is logged.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	body := errorBody{}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, session.ErrNotFound):
		status, body.Error = http.StatusNotFound, "session not found"
	case errors.Is(err, service.ErrScanNotFound):
		status, body.Error = http.StatusNotFound, "scan not found"
	case errors.Is(err, session.ErrClosed):
		status, body.Error = http.StatusGone, "session expired"
	case errors.Is(err, session.ErrEmptyMessage):
		status, body.Error = http.StatusBadRequest, "message must not be empty"
	case errors.Is(err, session.ErrBusy):
		status, body.Error = http.StatusConflict, "a request is already in progress"
	case errors.Is(err, session.ErrInvalidQuestionnaire):
		status, body.Error = http.StatusUnprocessableEntity, "age range and skin type are required"
	case errors.Is(err, session.ErrAnalysisFailed):
		status, body.Error = http.StatusBadGateway, "analysis is unavailable right now, please try again"
		body.FallbackResponse = advisor.FallbackAdvice
	case errors.Is(err, navigator.ErrUnknownTab):
		status, body.Error = http.StatusBadRequest, "unknown tab"
	case errors.Is(err, navigator.ErrUnknownPage):
		status, body.Error = http.StatusBadRequest, "unknown page"
	case errors.Is(err, capture.ErrUnsupportedImage):
		status, body.Error = http.StatusUnsupportedMediaType, "unsupported image format"
	case errors.Is(err, capture.ErrImageTooLarge):
		status, body.Error = http.StatusRequestEntityTooLarge, "image too large"
	case errors.Is(err, capture.ErrInvalidDataURI):
		status, body.Error = http.StatusBadRequest, "invalid image data"
	case errors.Is(err, session.ErrCameraNotOpen):
		status, body.Error = http.StatusConflict, "camera is not open"
	case errors.Is(err, capture.ErrPermissionDenied):
		status, body.Error, body.Hint = http.StatusForbidden, "camera access was denied", uploadHint
	case errors.Is(err, capture.ErrNoCamera):
		status, body.Error, body.Hint = http.StatusServiceUnavailable, "no camera is available", uploadHint
	case errors.Is(err, capture.ErrCameraUnavailable):
		status, body.Error, body.Hint = http.StatusServiceUnavailable, "camera could not be reached", uploadHint
	default:
		body.Error = "internal error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", "error", err)
	} else {
		logger.Debug(op+" rejected", "error", err)
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a JSON body of at most limit bytes into v. A larger body
// fails with *http.MaxBytesError.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}

// bodyError picks the status and message for a body that decodeJSON rejected.
func bodyError(err error) (int, string) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}
	return http.StatusBadRequest, "invalid request body"
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
