// Session handlers.
//
//   - GET    /sessions/{patient_id}/stats?topic=
//   - GET    /sessions/{patient_id}/history?topic=&max_turns=
//   - GET    /sessions/{patient_id}/export?topic=
//   - DELETE /sessions/{patient_id}?topic=
//
// Session state lives in memory only; these endpoints are for caregivers and
// operators inspecting or restarting a patient's session.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-remind-backend/internal/session"
	"github.com/tbourn/go-remind-backend/internal/utils"
)

const (
	defaultHistoryTurns = 10
	maxHistoryTurns     = 500
)

// ExportResponse is a full conversation in portable form.
type ExportResponse struct {
	PatientID string               `json:"patient_id"`
	Topic     string               `json:"topic"`
	Turns     []session.TurnRecord `json:"turns"`
}

// SessionStats godoc
// @ID          sessionStats
// @Summary     Shown-content and conversation statistics
// @Tags        Sessions
// @Produce     json
// @Param       patient_id  path   string  true  "Patient"
// @Param       topic       query  string  false "Topic"
// @Success     200  {object}  services.SessionStats
// @Router      /sessions/{patient_id}/stats [get]
func (h *Handlers) SessionStats(c *gin.Context) {
	st, err := h.sessions.Stats(c.Request.Context(), c.Param("patient_id"), c.Query("topic"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// SessionHistory godoc
// @ID          sessionHistory
// @Summary     Recent conversation turns
// @Description max_turns=0 returns the whole conversation.
// @Tags        Sessions
// @Produce     json
// @Param       patient_id  path   string  true  "Patient"
// @Param       topic       query  string  false "Topic"
// @Param       max_turns   query  int     false "Window"  minimum(0) maximum(500) default(10)
// @Success     200  {object}  services.History
// @Router      /sessions/{patient_id}/history [get]
func (h *Handlers) SessionHistory(c *gin.Context) {
	n := utils.IntParam(c.Query("max_turns"), defaultHistoryTurns, 0, maxHistoryTurns)
	hist, err := h.sessions.History(c.Request.Context(), c.Param("patient_id"), c.Query("topic"), n)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if hist.Turns == nil {
		hist.Turns = []session.Turn{}
	}
	ok(c, http.StatusOK, hist)
}

// SessionExport godoc
// @ID          sessionExport
// @Summary     Export a conversation
// @Tags        Sessions
// @Produce     json
// @Param       patient_id  path   string  true  "Patient"
// @Param       topic       query  string  false "Topic"
// @Success     200  {object}  handlers.ExportResponse
// @Router      /sessions/{patient_id}/export [get]
func (h *Handlers) SessionExport(c *gin.Context) {
	pid, topic := c.Param("patient_id"), c.Query("topic")
	turns, err := h.sessions.Export(c.Request.Context(), pid, topic)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if turns == nil {
		turns = []session.TurnRecord{}
	}
	ok(c, http.StatusOK, ExportResponse{PatientID: pid, Topic: topic, Turns: turns})
}

// ResetSession godoc
// @ID          resetSession
// @Summary     Reset a session
// @Description Without topic every session of the patient is cleared.
// @Tags        Sessions
// @Produce     json
// @Param       patient_id  path   string  true  "Patient"
// @Param       topic       query  string  false "Topic"
// @Success     200  {object}  services.ResetResult
// @Router      /sessions/{patient_id} [delete]
func (h *Handlers) ResetSession(c *gin.Context) {
	res, err := h.sessions.Reset(c.Request.Context(), c.Param("patient_id"), utils.OptionalString(c.GetQuery("topic")))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}
