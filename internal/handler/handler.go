package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
)

// PriceEngine is the facade the HTTP layer talks to.
type PriceEngine interface {
	GetQuote(ctx context.Context, kind domain.QuoteKind) domain.Quote
	GetAllMetalPrices(ctx context.Context) domain.AllMetalPrices
	CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice
	CalculatePrice(ctx context.Context, req domain.PriceCalculationRequest) (domain.PriceCalculationResult, error)
	CalculateBatch(ctx context.Context, reqs []domain.PriceCalculationRequest) []domain.BatchItemResult
	ReconfigureSchedule(interval time.Duration) error
	ScheduleInterval() time.Duration
	ScheduleBounds() (min, max time.Duration)
	DefaultFee() float64
	Status() domain.EngineStatus
}

type HistoryReader interface {
	List(ctx context.Context, kind domain.QuoteKind, limit int) ([]domain.QuoteHistoryEntry, error)
}

type Advisor interface {
	Ask(ctx context.Context, conversationID, message string) (string, error)
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Options carries the optional collaborators. Nil History or Advisor turn
// their endpoints into 503s.
type Options struct {
	History             HistoryReader
	Advisor             Advisor
	AdminAPIKey         string
	DefaultExchangeRate float64
	Upstreams           map[string]string
	Checks              map[string]HealthCheck
}

type Handler struct {
	tracer trace.Tracer
	engine PriceEngine
	opts   Options
}

func New(tracer trace.Tracer, engine PriceEngine, opts Options) *Handler {
	return &Handler{tracer: tracer, engine: engine, opts: opts}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	prices := r.Group("/api/prices")
	prices.GET("/health", h.PriceHealth)
	prices.GET("/current", h.GetCurrent)
	prices.GET("/all-metals", h.GetAllMetals)
	prices.GET("/metal/:type", h.GetMetal)
	prices.POST("/calculate", h.Calculate)
	prices.POST("/calculate-batch", h.CalculateBatch)
	prices.GET("/status", h.GetStatus)
	prices.GET("/history", h.GetHistory)
	prices.GET("/schedule-interval", h.GetScheduleInterval)
	prices.POST("/schedule-interval", APIKeyAuth(h.opts.AdminAPIKey), h.SetScheduleInterval)

	r.POST("/api/ai/chat", h.Chat)
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}

// Envelope is the success envelope.
type Envelope struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data"`
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: msg})
}
