package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/domain"
	"parcelroute/internal/middleware"
	"parcelroute/internal/repository"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error codes carried by real-time error events.
const (
	codeValidation   = "validation"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeProvider     = "provider_unavailable"
	codeInternal     = "internal"
)

const (
	internalErrorMessage = "internal server error"
	providerErrorMessage = "routing provider unavailable"
)

// classify maps an error to its HTTP status, a stable code and the message
// that may be shown to the client. Provider and internal failures never
// expose their cause.
func classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, codeForbidden, err.Error()
	case errors.Is(err, domain.ErrState),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, codeConflict, err.Error()
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, codeProvider, providerErrorMessage
	default:
		return http.StatusInternalServerError, codeInternal, internalErrorMessage
	}
}

// respondError sends an error response with the appropriate HTTP status code.
// The full error is attached to the gin context for the request log.
func respondError(c *gin.Context, err error) {
	status, _, message := classify(err)
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: message})
}

// respondBadRequest rejects a body that could not be decoded.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// principal returns the authenticated caller. Routes using it sit behind
// middleware.Authenticate.
func principal(c *gin.Context) domain.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}
