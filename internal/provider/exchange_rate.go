package provider

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
)

const DefaultFXURL = "https://api.exchangerate-api.com/v4/latest/USD"

// ExchangeRateProvider reads the USD/TWD rate from a USD-based rates table.
type ExchangeRateProvider struct {
	httpGetter
	url    string
	tracer trace.Tracer
}

func NewExchangeRateProvider(tracer trace.Tracer, url string, ratePerMinute int) *ExchangeRateProvider {
	if url == "" {
		url = DefaultFXURL
	}
	return &ExchangeRateProvider{
		httpGetter: httpGetter{
			client:  &http.Client{Timeout: MaxTimeout},
			limiter: NewLimiter(ratePerMinute),
		},
		url:    url,
		tracer: tracer,
	}
}

func (p *ExchangeRateProvider) Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "fx.fetch-rate")
	defer span.End()

	if kind != domain.KindUSDTWD {
		return 0, fmt.Errorf("unsupported rate: %s", kind)
	}

	// Response shape: {"base": "USD", "rates": {"TWD": 31.8, ...}}
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := p.getJSON(ctx, p.url, &body); err != nil {
		return 0, fmt.Errorf("fetch exchange rate: %w", err)
	}
	twd, ok := body.Rates["TWD"]
	if !ok {
		return 0, fmt.Errorf("TWD missing from rates")
	}
	return twd, nil
}
