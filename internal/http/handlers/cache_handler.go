// Cache administration handlers.
//
//   - GET  /cache/stats
//   - POST /cache/clear?cache_type=memories|llm
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClearResponse names the caches that were emptied.
type ClearResponse struct {
	Cleared []string `json:"cleared"`
}

// CacheStats godoc
// @ID          cacheStats
// @Summary     Memoization cache statistics
// @Tags        Cache
// @Produce     json
// @Success     200  {object}  services.CacheStats
// @Router      /cache/stats [get]
func (h *Handlers) CacheStats(c *gin.Context) {
	ok(c, http.StatusOK, h.caches.Stats())
}

// ClearCache godoc
// @ID          clearCache
// @Summary     Clear memoization caches
// @Description Omitting cache_type clears both caches.
// @Tags        Cache
// @Produce     json
// @Param       cache_type  query  string  false "memories or llm"
// @Success     200  {object}  handlers.ClearResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /cache/clear [post]
func (h *Handlers) ClearCache(c *gin.Context) {
	cleared, err := h.caches.Clear(c.Query("cache_type"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ClearResponse{Cleared: cleared})
}
