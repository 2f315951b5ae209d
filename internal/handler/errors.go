package handler

import "net/http"

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// newErrorResponse creates an apiErrorResponse with the given code and message
func newErrorResponse(code, message string) apiErrorResponse {
	return apiErrorResponse{
		Error: apiError{Code: code, Message: message},
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, newErrorResponse(code, message))
}

// Common error codes
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeBusy            = "BUSY"
)
