package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
)

const DefaultMetalsBaseURL = "https://api.gold-api.com/price"

// MetalsProvider reads spot prices in USD from a feed answering
// GET {base}/{symbol} with {"price": <float>}.
type MetalsProvider struct {
	httpGetter
	baseURL string
	tracer  trace.Tracer
}

func NewMetalsProvider(tracer trace.Tracer, baseURL, apiKey string, ratePerMinute int) *MetalsProvider {
	if baseURL == "" {
		baseURL = DefaultMetalsBaseURL
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["x-api-key"] = apiKey
	}
	return &MetalsProvider{
		httpGetter: httpGetter{
			client:  &http.Client{Timeout: MaxTimeout},
			limiter: NewLimiter(ratePerMinute),
			headers: headers,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

func (p *MetalsProvider) Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "metals.fetch-spot")
	defer span.End()

	symbol, ok := domain.SpotSymbol[kind]
	if !ok {
		return 0, fmt.Errorf("unsupported metal: %s", kind)
	}

	// Response shape: {"name": "Gold", "price": 3311.96, "symbol": "XAU", "updatedAt": "..."}
	var body struct {
		Price float64 `json:"price"`
	}
	if err := p.getJSON(ctx, p.baseURL+"/"+symbol, &body); err != nil {
		return 0, fmt.Errorf("fetch spot %s: %w", symbol, err)
	}
	return body.Price, nil
}
