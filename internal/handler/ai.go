package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/watson9049/billygold-website/internal/domain"
)

// ChatRequest is the body of POST /api/ai/chat. Without a conversationId
// a new conversation is started and its id returned.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type ChatResponse struct {
	Message        string    `json:"message"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// Chat godoc
// @Summary      Gold consultant
// @Description  Answers a customer question using the current quotes
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request  body  ChatRequest  true  "question"
// @Success      200  {object}  Envelope{data=ChatResponse}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/ai/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.chat")
	defer span.End()

	if h.opts.Advisor == nil {
		fail(c, http.StatusServiceUnavailable, "advisor is not configured")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "message must not be empty")
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = "web:" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	reply, err := h.opts.Advisor.Ask(ctx, conversationID, req.Message)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrInvalidInput) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusBadGateway, "advisor is temporarily unavailable")
		return
	}

	respond(c, ChatResponse{
		Message:        reply,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
	})
}
