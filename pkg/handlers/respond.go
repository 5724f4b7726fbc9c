package handlers

import (
	"encoding/json"
	"net/http"

	stdErrors "errors"

	"github.com/sageql/sage/pkg/errors"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	// Encoding failures here leave a half-written body; there is nothing
	// useful to do beyond logging at the middleware layer.
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps pipeline error codes onto HTTP status codes. Unknown
// errors become opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var pe *errors.PipelineError
	if !stdErrors.As(err, &pe) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    errors.CodeInternal,
			Message: "internal error",
		})
		return
	}
	writeJSON(w, statusFor(pe.Code), errorResponse{
		Code:    pe.Code,
		Message: pe.Message,
		Details: pe.Details,
	})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidRequest:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists:
		return http.StatusConflict
	case errors.CodePermissionDenied:
		return http.StatusForbidden
	case errors.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case errors.CodeUnavailable, errors.CodeConnectionFailed:
		return http.StatusServiceUnavailable
	case errors.CodeCanceled:
		// Client went away; 499 is the conventional nginx code.
		return 499
	default:
		return http.StatusInternalServerError
	}
}
