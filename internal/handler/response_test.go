package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
	"parcelroute/internal/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", service.ErrInvalidOrigin, http.StatusBadRequest, codeValidation, service.ErrInvalidOrigin.Error()},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized, domain.ErrUnauthorized.Error()},
		{"forbidden", service.ErrNotTripShipper, http.StatusForbidden, codeForbidden, service.ErrNotTripShipper.Error()},
		{"not found", fmt.Errorf("trip t1: %w", repository.ErrNotFound), http.StatusNotFound, codeNotFound, "trip t1: " + repository.ErrNotFound.Error()},
		{"state", service.ErrInvalidTransition, http.StatusConflict, codeConflict, service.ErrInvalidTransition.Error()},
		{"version conflict", repository.ErrConflict, http.StatusConflict, codeConflict, repository.ErrConflict.Error()},
		{"provider", fmt.Errorf("%w: quota exceeded for key abc", domain.ErrProvider), http.StatusBadGateway, codeProvider, providerErrorMessage},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, codeInternal, internalErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}
