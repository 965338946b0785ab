package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/watson9049/billygold-website/internal/domain"
)

const maxBatchSize = 100

// BatchRequest is the calculate-batch body.
type BatchRequest struct {
	Products []domain.PriceCalculationRequest `json:"products"`
}

// GetCurrent godoc
// @Summary      Current gold price
// @Description  Gold spot price, USD/TWD rate and the per-tael TWD price before workmanship
// @Tags         prices
// @Produce      json
// @Success      200  {object}  Envelope{data=domain.CurrentGoldPrice}
// @Router       /api/prices/current [get]
func (h *Handler) GetCurrent(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-current")
	defer span.End()

	respond(c, h.engine.CurrentGoldPrice(ctx))
}

// GetAllMetals godoc
// @Summary      All metal prices
// @Description  Gold, silver, platinum and copper with change against reference prices, plus the exchange rate
// @Tags         prices
// @Produce      json
// @Success      200  {object}  Envelope{data=domain.AllMetalPrices}
// @Router       /api/prices/all-metals [get]
func (h *Handler) GetAllMetals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-all-metals")
	defer span.End()

	respond(c, h.engine.GetAllMetalPrices(ctx))
}

// GetMetal godoc
// @Summary      Single quote
// @Description  Current quote for one kind
// @Tags         prices
// @Produce      json
// @Param        type  path  string  true  "gold, silver, platinum, copper or usd_twd"
// @Success      200  {object}  Envelope{data=domain.Quote}
// @Failure      400  {object}  ErrorResponse
// @Router       /api/prices/metal/{type} [get]
func (h *Handler) GetMetal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-metal")
	defer span.End()

	kind, err := domain.ParseQuoteKind(c.Param("type"))
	if err != nil {
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     err.Error(),
			"supported": domain.SupportedKindNames(domain.AllKinds),
		})
		return
	}
	span.SetAttributes(attribute.String("quote.kind", string(kind)))

	respond(c, h.engine.GetQuote(ctx, kind))
}

// Calculate godoc
// @Summary      Retail price
// @Description  Price of a gold item by weight in taels. workmanshipFee defaults to the configured fee.
// @Tags         prices
// @Accept       json
// @Produce      json
// @Param        request  body  domain.PriceCalculationRequest  true  "weight in taels"
// @Success      200  {object}  Envelope{data=domain.PriceCalculationResult}
// @Failure      400  {object}  ErrorResponse
// @Router       /api/prices/calculate [post]
func (h *Handler) Calculate(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.calculate")
	defer span.End()

	var req domain.PriceCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.engine.CalculatePrice(ctx, req)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrInvalidInput) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, res)
}

// CalculateBatch godoc
// @Summary      Batch retail prices
// @Description  Prices several items against one set of quotes. Invalid items carry an error without failing the batch.
// @Tags         prices
// @Accept       json
// @Produce      json
// @Param        request  body  BatchRequest  true  "products"
// @Success      200  {object}  Envelope{data=[]domain.BatchItemResult}
// @Failure      400  {object}  ErrorResponse
// @Router       /api/prices/calculate-batch [post]
func (h *Handler) CalculateBatch(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.calculate-batch")
	defer span.End()

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Products) == 0 {
		fail(c, http.StatusBadRequest, "products must be a non-empty array")
		return
	}
	if len(req.Products) > maxBatchSize {
		fail(c, http.StatusBadRequest, "at most "+strconv.Itoa(maxBatchSize)+" products per batch")
		return
	}
	span.SetAttributes(attribute.Int("batch.size", len(req.Products)))

	respond(c, h.engine.CalculateBatch(ctx, req.Products))
}

// GetStatus godoc
// @Summary      Engine status
// @Description  Cached quotes with their age, the schedule and the configured defaults
// @Tags         prices
// @Produce      json
// @Success      200  {object}  Envelope
// @Router       /api/prices/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	status := h.engine.Status()
	respond(c, gin.H{
		"quotes":          status.Quotes,
		"intervalMinutes": status.IntervalMinutes,
		"running":         status.Running,
		"defaults": gin.H{
			"exchangeRate":   h.opts.DefaultExchangeRate,
			"workmanshipFee": h.engine.DefaultFee(),
		},
		"upstreams": h.opts.Upstreams,
	})
}

// GetHistory godoc
// @Summary      Quote history
// @Description  Stored quotes, newest first
// @Tags         prices
// @Produce      json
// @Param        kind   query  string  false  "quote kind"
// @Param        limit  query  int     false  "max entries (default 100, max 1000)"
// @Success      200  {object}  Envelope{data=[]domain.QuoteHistoryEntry}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/prices/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	if h.opts.History == nil {
		fail(c, http.StatusServiceUnavailable, "quote history requires a database")
		return
	}

	var kind domain.QuoteKind
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		parsed, err := domain.ParseQuoteKind(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		kind = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.opts.History.List(ctx, kind, limit)
	if err != nil {
		span.RecordError(err)
		fail(c, http.StatusInternalServerError, "failed to load quote history")
		return
	}
	respond(c, entries)
}
