// Patient query handler.
//
//   - POST /patient/query   (rank memories, pick display mode, narrate)
//
// The same patient may retry a query after a dropped connection; replay is
// handled by the Idempotency middleware, so this handler always runs the
// full pipeline.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-remind-backend/internal/services"
)

// QueryRequest is the JSON payload of a patient query.
type QueryRequest struct {
	// PatientID defaults to X-Patient-ID, then to "default_patient".
	PatientID string `json:"patient_id" example:"p-102"`
	// Topic the patient asked about.
	Topic string `json:"topic" binding:"required" example:"beach"`
	// Transcription of what the patient said.
	Transcription string `json:"transcription" binding:"required" example:"show me the beach photos"`
	// DisplayMode optionally forces one of 3-pic, 4-pic, 5-pic, video,
	// vertical-video or agent.
	DisplayMode string `json:"display_mode,omitempty" example:"4-pic"`
}

// Query godoc
// @ID          patientQuery
// @Summary     Answer a patient query
// @Description Ranks memories for the topic, skips media already shown in this session and returns narration plus media to display.
// @Tags        Patient
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Safe retry key"
// @Param       body  body  handlers.QueryRequest  true  "Query"
// @Success     200  {object}  services.QueryResult
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse "No memories for topic"
// @Router      /patient/query [post]
func (h *Handlers) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "topic and transcription are required")
		return
	}

	res, err := h.patients.Query(c.Request.Context(), services.QueryRequest{
		PatientID:     patientID(c, req.PatientID),
		Topic:         req.Topic,
		Transcription: req.Transcription,
		DisplayMode:   req.DisplayMode,
	})
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}
