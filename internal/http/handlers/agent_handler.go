// Agent handlers.
//
//   - POST /agent/talk        (one conversational turn with a persona)
//   - GET  /agents            (list personas)
//   - GET  /agents/{name}     (one persona)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/services"
)

// TalkRequest is the JSON payload of an agent conversation turn.
type TalkRequest struct {
	PatientID string `json:"patient_id" example:"p-102"`
	// Topic defaults to "general".
	Topic string `json:"topic" example:"beach"`
	// AgentName defaults to the built-in persona.
	AgentName     string `json:"agent_name" example:"Avery"`
	Transcription string `json:"transcription" binding:"required" example:"do you remember the sand castle?"`
}

// AgentsResponse lists agent profiles.
type AgentsResponse struct {
	Agents []domain.AgentProfile `json:"agents"`
}

// Talk godoc
// @ID          agentTalk
// @Summary     Talk with an agent
// @Tags        Agents
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.TalkRequest  true  "Utterance"
// @Success     200  {object}  services.TalkResult
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse "Unknown agent"
// @Failure     502  {object}  handlers.ErrorResponse "No model answered"
// @Router      /agent/talk [post]
func (h *Handlers) Talk(c *gin.Context) {
	var req TalkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transcription is required")
		return
	}
	res, err := h.agents.Talk(c.Request.Context(), services.TalkRequest{
		PatientID:     patientID(c, req.PatientID),
		Topic:         req.Topic,
		AgentName:     req.AgentName,
		Transcription: req.Transcription,
	})
	if err != nil {
		failService(c, err, ErrCodeGenerationFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// ListAgents godoc
// @ID          listAgents
// @Summary     List agent personas
// @Tags        Agents
// @Produce     json
// @Success     200  {object}  handlers.AgentsResponse
// @Router      /agents [get]
func (h *Handlers) ListAgents(c *gin.Context) {
	items, err := h.agents.Agents(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if items == nil {
		items = []domain.AgentProfile{}
	}
	ok(c, http.StatusOK, AgentsResponse{Agents: items})
}

// GetAgent godoc
// @ID          getAgent
// @Summary     Get one agent persona
// @Tags        Agents
// @Produce     json
// @Param       name  path  string  true  "Agent name"
// @Success     200  {object}  domain.AgentProfile
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /agents/{name} [get]
func (h *Handlers) GetAgent(c *gin.Context) {
	a, err := h.agents.Profile(c.Request.Context(), c.Param("name"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, a)
}
