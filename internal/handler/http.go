package handler

import (
	"net/http"

	"grievance/internal/shared"
)

// ErrorBody is the JSON shape of an error response.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload is the user-visible part of an AppError.
type ErrorPayload struct {
	ID          string          `json:"id"`
	Category    shared.Category `json:"category"`
	Severity    shared.Severity `json:"severity"`
	UserMessage string          `json:"userMessage"`
}

// StatusFor maps an AppError to an HTTP status. A remote 4xx status is kept
// as is, timeouts become 504, everything else is derived from the category.
func StatusFor(e *shared.AppError) int {
	if s := e.Status(); s >= 400 && s < 500 {
		return s
	}
	if shared.IsTimeout(e) {
		return http.StatusGatewayTimeout
	}
	switch e.Category() {
	case shared.CategoryAuthentication:
		return http.StatusUnauthorized
	case shared.CategoryAuthorization:
		return http.StatusForbidden
	case shared.CategoryValidation, shared.CategoryUserInput:
		return http.StatusBadRequest
	case shared.CategoryBusinessLogic:
		return http.StatusConflict
	case shared.CategoryNetwork:
		return http.StatusBadGateway
	}
	if s := e.Status(); s >= 500 && s < 600 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Response returns the status and body to render for e.
func Response(e *shared.AppError) (int, ErrorBody) {
	return StatusFor(e), ErrorBody{Error: ErrorPayload{
		ID:          e.ID(),
		Category:    e.Category(),
		Severity:    e.Severity(),
		UserMessage: e.UserMessage(),
	}}
}
