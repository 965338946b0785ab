package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the liveness status of the service
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// PriceHealth godoc
// @Summary      Price engine health
// @Description  Reports the engine status and the reachability of Redis and Postgres
// @Tags         health
// @Produce      json
// @Success      200  {object}  Envelope
// @Router       /api/prices/health [get]
func (h *Handler) PriceHealth(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.price-health")
	defer span.End()

	deps := make(map[string]string, len(h.opts.Checks))
	for name, check := range h.opts.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := check(checkCtx); err != nil {
			deps[name] = "down: " + err.Error()
		} else {
			deps[name] = "up"
		}
		cancel()
	}

	status := h.engine.Status()
	respond(c, gin.H{
		"status":          "healthy",
		"schedulerActive": status.Running,
		"intervalMinutes": status.IntervalMinutes,
		"cachedQuotes":    len(status.Quotes),
		"dependencies":    deps,
	})
}
