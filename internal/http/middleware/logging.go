// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, patient identification and panic
// recovery:
//
//   - RequestID() ensures every request carries a correlation ID
//     (propagated via X-Request-ID and stored in the Gin context).
//   - PatientIdentity() resolves which patient a request acts for, from the
//     :patient_id route parameter or the X-Patient-ID header, so logging and
//     rate limiting can key on it before the body is read.
//   - Recovery() converts panics into JSON 500 responses carrying the
//     correlation ID.
//   - LoggerFrom() returns the request-scoped logger attached by
//     RedactingLogger.
//
// Recommended order: RequestID, PatientIdentity, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	patientIDKey = "patientID"
	// HeaderPatientID names the patient on routes without a :patient_id
	// parameter.
	HeaderPatientID = "X-Patient-ID"

	loggerKey = "logger"

	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	maxIDLength       = 128
)

// RequestID reuses an incoming X-Request-ID or generates a UUIDv4, writes it
// back on the response and stores it in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// PatientIdentity stores the acting patient id in the Gin context. The route
// parameter wins over the header. Requests naming no patient are untouched.
func PatientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		pid := strings.TrimSpace(c.Param("patient_id"))
		if pid == "" {
			pid = strings.TrimSpace(c.GetHeader(HeaderPatientID))
		}
		if pid != "" && len(pid) <= maxIDLength {
			c.Set(patientIDKey, pid)
		}
		c.Next()
	}
}

// GetPatientID returns the patient id stored by PatientIdentity.
func GetPatientID(c *gin.Context) (string, bool) {
	v, _ := c.Get(patientIDKey)
	s := asString(v)
	return s, s != ""
}

// Recovery logs a panic with its stack and answers with a JSON 500 when
// nothing was written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := GetRequestID(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// none was attached. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
