package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/watson9049/billygold-website/internal/domain"
)

// ScheduleRequest is the body of POST /api/prices/schedule-interval.
type ScheduleRequest struct {
	IntervalMinutes int `json:"intervalMinutes" example:"30"`
}

// GetScheduleInterval godoc
// @Summary      Refresh interval
// @Description  Current refresh interval and its bounds, in minutes
// @Tags         schedule
// @Produce      json
// @Success      200  {object}  Envelope
// @Router       /api/prices/schedule-interval [get]
func (h *Handler) GetScheduleInterval(c *gin.Context) {
	min, max := h.engine.ScheduleBounds()
	respond(c, gin.H{
		"intervalMinutes": int(h.engine.ScheduleInterval() / time.Minute),
		"minMinutes":      int(min / time.Minute),
		"maxMinutes":      int(max / time.Minute),
	})
}

// SetScheduleInterval godoc
// @Summary      Change refresh interval
// @Description  Replaces the refresh interval. Values outside the bounds are rejected and the current schedule stays.
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Security     APIKeyAuth
// @Param        request  body  ScheduleRequest  true  "interval in minutes"
// @Success      200  {object}  Envelope
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /api/prices/schedule-interval [post]
func (h *Handler) SetScheduleInterval(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.set-schedule-interval")
	defer span.End()

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.engine.ReconfigureSchedule(time.Duration(req.IntervalMinutes) * time.Minute); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrInvalidConfig) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, gin.H{"intervalMinutes": req.IntervalMinutes})
}
