// Package handlers defines the error codes of the public API and the mapping
// from service errors to HTTP results.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status
// semantics; domain codes name the failure so clients can branch on it
// without parsing messages.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-remind-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeEmptyTopic       = "empty_topic"
	ErrCodeEmptyUtterance   = "empty_transcription"
	ErrCodeEmptyPatient     = "empty_patient_id"
	ErrCodeTooLong          = "transcription_too_long"
	ErrCodeInvalidMode      = "invalid_display_mode"
	ErrCodeInvalidMemory    = "invalid_memory"
	ErrCodeInvalidCache     = "invalid_cache_type"
	ErrCodeNoMemories       = "no_memories"
	ErrCodeMemoryNotFound   = "memory_not_found"
	ErrCodeAgentNotFound    = "agent_not_found"
	ErrCodeGenerationFailed = "generation_failed"
)

// serviceErrors maps service sentinels to (status, code).
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrEmptyTopic, http.StatusBadRequest, ErrCodeEmptyTopic},
	{services.ErrEmptyUtterance, http.StatusBadRequest, ErrCodeEmptyUtterance},
	{services.ErrEmptyPatient, http.StatusBadRequest, ErrCodeEmptyPatient},
	{services.ErrTooLong, http.StatusBadRequest, ErrCodeTooLong},
	{services.ErrInvalidMode, http.StatusBadRequest, ErrCodeInvalidMode},
	{services.ErrInvalidMemory, http.StatusBadRequest, ErrCodeInvalidMemory},
	{services.ErrInvalidCache, http.StatusBadRequest, ErrCodeInvalidCache},
	{services.ErrNoMemories, http.StatusNotFound, ErrCodeNoMemories},
	{services.ErrMemoryNotFound, http.StatusNotFound, ErrCodeMemoryNotFound},
	{services.ErrAgentNotFound, http.StatusNotFound, ErrCodeAgentNotFound},
	{services.ErrGeneration, http.StatusBadGateway, ErrCodeGenerationFailed},
}

// failService writes the response for a service error. Unknown errors are
// 500 with the fallback code.
func failService(c *gin.Context, err error, fallback string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, err.Error())
			return
		}
	}
	fail(c, http.StatusInternalServerError, fallback, err.Error())
}
