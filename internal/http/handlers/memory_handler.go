// Memory catalog handlers.
//
//   - POST   /memories              (bulk import, upsert on file_url)
//   - GET    /memories/search?q=&limit=
//   - GET    /memories/stats
//   - GET    /memories/{id}
//   - DELETE /memories/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/services"
	"github.com/tbourn/go-remind-backend/internal/utils"
)

const maxSearchLimit = 50

// ImportResponse reports how many records were written.
type ImportResponse struct {
	Imported int64 `json:"imported"`
}

// SearchResponse is a ranked memory list.
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []services.ScoredMemory `json:"results"`
	Cached  bool                    `json:"cached"`
}

// ImportMemories godoc
// @ID          importMemories
// @Summary     Import memories
// @Tags        Memories
// @Accept      json
// @Produce     json
// @Param       body  body  []domain.Memory  true  "Records"
// @Success     201  {object}  handlers.ImportResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /memories [post]
func (h *Handlers) ImportMemories(c *gin.Context) {
	var items []domain.Memory
	if err := c.ShouldBindJSON(&items); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON array of memories")
		return
	}
	if len(items) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no memories given")
		return
	}
	n, err := h.memories.Import(c.Request.Context(), items)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, ImportResponse{Imported: n})
}

// SearchMemories godoc
// @ID          searchMemories
// @Summary     Rank memories for a query
// @Tags        Memories
// @Produce     json
// @Param       q      query  string  true  "Topic or free text"
// @Param       limit  query  int     false "Max results"  minimum(1) maximum(50) default(15)
// @Success     200  {object}  handlers.SearchResponse
// @Router      /memories/search [get]
func (h *Handlers) SearchMemories(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	limit := utils.IntParam(c.Query("limit"), services.DefaultSearchLimit, 1, maxSearchLimit)

	pid := patientID(c, "")
	if pid == "" {
		pid = services.DefaultPatientID
	}
	res, cached, err := h.memories.Search(c.Request.Context(), q, pid)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if len(res) > limit {
		res = res[:limit]
	}
	if res == nil {
		res = []services.ScoredMemory{}
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: res, Cached: cached})
}

// MemoryStats godoc
// @ID          memoryStats
// @Summary     Catalog statistics
// @Tags        Memories
// @Produce     json
// @Success     200  {object}  repo.CatalogStats
// @Router      /memories/stats [get]
func (h *Handlers) MemoryStats(c *gin.Context) {
	st, err := h.memories.Stats(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// GetMemory godoc
// @ID          getMemory
// @Summary     Get a memory
// @Tags        Memories
// @Produce     json
// @Param       id  path  string  true  "Memory ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Memory
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /memories/{id} [get]
func (h *Handlers) GetMemory(c *gin.Context) {
	id, good := memoryID(c)
	if !good {
		return
	}
	m, err := h.memories.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMemory godoc
// @ID          deleteMemory
// @Summary     Delete a memory
// @Tags        Memories
// @Param       id  path  string  true  "Memory ID (UUID)"  format(uuid)
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /memories/{id} [delete]
func (h *Handlers) DeleteMemory(c *gin.Context) {
	id, good := memoryID(c)
	if !good {
		return
	}
	if err := h.memories.Delete(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

func memoryID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "memory id must be a UUID")
		return "", false
	}
	return id, true
}
