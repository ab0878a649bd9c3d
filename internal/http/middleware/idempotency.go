// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key replay for unsafe methods. A client
// retrying POST /patient/query after a dropped connection must not advance
// the patient's session twice, so the first successful response is stored
// per (patient, route, key) and served verbatim to later requests of the same
// patient carrying the same key. Replays skip rate limiting because they are
// answered before it runs.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marks a response served from the store.
const HeaderIdempotentReplay = "Idempotent-Replayed"

const ctxKeyIdemKey = "idem.key"

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// StoredResponse is a response kept for replay.
type StoredResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// IdempotencyStore persists responses by (patient, scope, key). Lookup
// returns nil without error when nothing valid is stored for that patient.
type IdempotencyStore interface {
	Lookup(ctx context.Context, patientID, scope, key string) (*StoredResponse, error)
	Save(ctx context.Context, patientID, scope, key string, resp StoredResponse) error
}

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts key characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// GetIdempotencyKey returns the validated key of the request.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// captureWriter tees the response body.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// requestOwner resolves the patient a request acts for the way the handlers
// do: a non-empty "patient_id" in a JSON object body wins over the identity
// stored by PatientIdentity. The body is restored for the handler.
func requestOwner(c *gin.Context) (string, error) {
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if isJSON(c.ContentType()) {
			var body struct {
				PatientID string `json:"patient_id"`
			}
			// arrays and malformed bodies carry no owner
			if json.Unmarshal(raw, &body) == nil {
				if pid := strings.TrimSpace(body.PatientID); pid != "" {
					return pid, nil
				}
			}
		}
	}
	pid, _ := GetPatientID(c)
	return pid, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Idempotency validates the Idempotency-Key header of unsafe requests and
// replays a stored response when one exists. Otherwise the request runs and
// a 2xx response is saved. Store failures never fail the request; they are
// logged and the request proceeds without replay protection.
//
// The scope is "<METHOD> <route>" and records belong to the requesting
// patient, so one key may be reused across routes and across patients.
func Idempotency(store IdempotencyStore, opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !isUnsafe(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		if store == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		scope := c.Request.Method + " " + route
		ctx := c.Request.Context()

		owner, err := requestOwner(c)
		if err != nil {
			status, code := http.StatusBadRequest, "bad_request"
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status, code = http.StatusRequestEntityTooLarge, "body_too_large"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"request_id": GetRequestID(c),
				"code":       code,
				"message":    "unreadable request body",
			})
			return
		}

		prev, err := store.Lookup(ctx, owner, scope, key)
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
		if prev != nil {
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(prev.Status, prev.ContentType, prev.Body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 {
			return
		}
		resp := StoredResponse{
			Status:      status,
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.buf.Bytes(),
		}
		if err := store.Save(ctx, owner, scope, key, resp); err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency save failed")
		}
	}
}
