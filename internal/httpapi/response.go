package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkstone/wbauth"
)

// Error codes carried in the failure envelope.
const (
	CodeUnauthenticated    = "AUTH_001"
	CodeInvalidCredentials = "AUTH_002"
	CodeAccountExists      = "AUTH_003"
	CodeRefreshFailed      = "AUTH_004"
	CodeValidation         = "VALIDATION_001"
	CodeUserNotFound       = "USER_001"
	CodeInternal           = "INTERNAL_001"
	CodeUnavailable        = "INTERNAL_002"
)

type successBody struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Success bool      `json:"success"`
	Error   errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// apiError is a failure already resolved to a status and code.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

func validationFailed(details any) *apiError {
	return &apiError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "validation failed",
		Details: details,
	}
}

func unauthenticated() *apiError {
	return &apiError{Status: http.StatusUnauthorized, Code: CodeUnauthenticated, Message: "token is invalid or expired"}
}

// toAPIError resolves err to an envelope. Store failures are checked first since they
// may wrap a more specific cause.
func (h *handler) toAPIError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}

	var verr *wbauth.ValidationError
	switch {
	case errors.Is(err, wbauth.ErrStoreUnavailable):
		return &apiError{Status: http.StatusServiceUnavailable, Code: CodeUnavailable, Message: "service temporarily unavailable"}
	case errors.Is(err, wbauth.ErrUnauthenticated):
		return unauthenticated()
	case errors.Is(err, wbauth.ErrInvalidCredentials):
		return &apiError{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "invalid email or password"}
	case errors.Is(err, wbauth.ErrAccountExists):
		return &apiError{Status: http.StatusConflict, Code: CodeAccountExists, Message: "email or username already registered"}
	case errors.Is(err, wbauth.ErrRefreshFailed):
		return &apiError{Status: http.StatusUnauthorized, Code: CodeRefreshFailed, Message: "token refresh failed"}
	case errors.As(err, &verr):
		return validationFailed(map[string]string{"field": verr.Field, "message": verr.Message})
	case errors.Is(err, wbauth.ErrRegistrationInvalid):
		return validationFailed(nil)
	case errors.Is(err, wbauth.ErrUserNotFound):
		return &apiError{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: "user not found"}
	}

	out := &apiError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error"}
	if !h.production {
		out.Details = map[string]string{"message": err.Error()}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, successBody{Success: true, Data: data, Message: message})
}

func writeFail(w http.ResponseWriter, ae *apiError) {
	writeJSON(w, ae.Status, errorBody{
		Success: false,
		Error: errorInfo{
			Code:    ae.Code,
			Message: ae.Message,
			Details: ae.Details,
		},
	})
}
