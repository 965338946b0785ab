package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/watson9049/billygold-website/internal/domain"
)

const (
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 15 * time.Second
)

// KindFetcher is one upstream adapter.
type KindFetcher interface {
	Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error)
}

// Client routes each kind to its upstream adapter. Metals go to the spot
// feed and the USD/TWD rate to the FX feed; the two never share state.
// It does not retry.
type Client struct {
	tracer  trace.Tracer
	metals  KindFetcher
	fx      KindFetcher
	timeout time.Duration
}

func NewClient(tracer trace.Tracer, metals, fx KindFetcher, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	return &Client{tracer: tracer, metals: metals, fx: fx, timeout: timeout}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch returns a positive value for kind or a *domain.ProviderError.
func (c *Client) Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error) {
	ctx, span := c.tracer.Start(ctx, "provider.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("quote.kind", string(kind)))

	var upstream KindFetcher
	switch {
	case kind.IsMetal():
		upstream = c.metals
	case kind == domain.KindUSDTWD:
		upstream = c.fx
	}
	if upstream == nil {
		err := &domain.ProviderError{Kind: kind, Cause: errors.New("no upstream configured")}
		span.RecordError(err)
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := upstream.Fetch(ctx, kind)
	if err == nil && !(v > 0) {
		err = fmt.Errorf("non-positive value %v", v)
	}
	if err != nil {
		perr := &domain.ProviderError{Kind: kind, Cause: err}
		span.RecordError(perr)
		return 0, perr
	}
	span.SetAttributes(attribute.Float64("quote.value", v))
	return v, nil
}

// NewLimiter allows perMinute requests per minute with a small burst.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 5)
}

type httpGetter struct {
	client  *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

func (g *httpGetter) getJSON(ctx context.Context, url string, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
