package provider

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/watson9049/billygold-website/internal/domain"
)

const (
	DefaultJitter = 0.02
	MaxJitter     = 0.10
)

// DefaultFallbackBaselines are simulated centres used when no baseline is configured.
var DefaultFallbackBaselines = map[domain.QuoteKind]float64{
	domain.KindGold:     3350,
	domain.KindSilver:   38.5,
	domain.KindPlatinum: 1408,
	domain.KindCopper:   4.2,
	domain.KindUSDTWD:   31.8,
}

// FallbackGenerator simulates a quote as baseline × (1 + u), u uniform in
// [-jitter, +jitter]. It never fails and never returns a non-positive value.
type FallbackGenerator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baselines map[domain.QuoteKind]float64
	jitter    float64
}

func NewFallbackGenerator(baselines map[domain.QuoteKind]float64, jitter float64) *FallbackGenerator {
	return NewSeededFallbackGenerator(baselines, jitter, time.Now().UnixNano())
}

func NewSeededFallbackGenerator(baselines map[domain.QuoteKind]float64, jitter float64, seed int64) *FallbackGenerator {
	if jitter <= 0 || jitter > MaxJitter {
		jitter = DefaultJitter
	}
	merged := make(map[domain.QuoteKind]float64, len(DefaultFallbackBaselines))
	for k, v := range DefaultFallbackBaselines {
		merged[k] = v
	}
	for k, v := range baselines {
		if v > 0 {
			merged[k] = v
		}
	}
	return &FallbackGenerator{
		rng:       rand.New(rand.NewSource(seed)),
		baselines: merged,
		jitter:    jitter,
	}
}

func (g *FallbackGenerator) Jitter() float64 {
	return g.jitter
}

func (g *FallbackGenerator) Baseline(kind domain.QuoteKind) float64 {
	return g.baselines[kind]
}

func (g *FallbackGenerator) Generate(kind domain.QuoteKind) float64 {
	base, ok := g.baselines[kind]
	if !ok {
		base = 1
	}

	g.mu.Lock()
	u := (g.rng.Float64()*2 - 1) * g.jitter
	g.mu.Unlock()

	v := decimal.NewFromFloat(base * (1 + u)).Round(2).InexactFloat64()
	if v <= 0 {
		return 0.01
	}
	return v
}
