package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/watson9049/billygold-website/internal/cache"
	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/internal/job"
	"github.com/watson9049/billygold-website/internal/pricing"
	"github.com/watson9049/billygold-website/pkg/logging"
)

const (
	DefaultWorkmanshipFee = 500.0
	sideEffectTimeout     = 3 * time.Second
)

// DefaultReferences are the fixed baselines all-metals change figures are
// computed against.
var DefaultReferences = map[domain.QuoteKind]float64{
	domain.KindGold:     2350,
	domain.KindSilver:   28.5,
	domain.KindPlatinum: 980,
	domain.KindCopper:   4.2,
}

type QuoteFetcher interface {
	Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error)
}

type FallbackSource interface {
	Generate(kind domain.QuoteKind) float64
}

// QuotePublisher receives every quote the engine stores, e.g. the Redis mirror.
type QuotePublisher interface {
	Publish(ctx context.Context, q domain.Quote) error
}

// QuoteRecorder appends stored quotes to history.
type QuoteRecorder interface {
	Record(ctx context.Context, q domain.Quote) error
}

// EngineConfig carries the optional knobs of a PriceEngine.
type EngineConfig struct {
	DefaultFee   float64
	References   map[domain.QuoteKind]float64
	FetchTimeout time.Duration
	Publisher    QuotePublisher
	Recorder     QuoteRecorder
	Now          func() time.Time
}

// PriceEngine is the single entry point for quotes and price calculations.
// Quote reads never fail: a provider failure is replaced by a fallback value.
type PriceEngine struct {
	tracer    trace.Tracer
	log       *logrus.Entry
	provider  QuoteFetcher
	fallback  FallbackSource
	quotes    *cache.QuoteCache
	scheduler *job.Scheduler
	publisher QuotePublisher
	recorder  QuoteRecorder

	defaultFee   float64
	references   map[domain.QuoteKind]float64
	fetchTimeout time.Duration
	now          func() time.Time

	inflight singleflight.Group
	ttl      atomicDuration
}

func NewPriceEngine(
	tracer trace.Tracer,
	provider QuoteFetcher,
	fallback FallbackSource,
	quotes *cache.QuoteCache,
	scheduler *job.Scheduler,
	cfg EngineConfig,
) *PriceEngine {
	e := &PriceEngine{
		tracer:       tracer,
		log:          logging.For("price-engine"),
		provider:     provider,
		fallback:     fallback,
		quotes:       quotes,
		scheduler:    scheduler,
		publisher:    cfg.Publisher,
		recorder:     cfg.Recorder,
		defaultFee:   cfg.DefaultFee,
		references:   make(map[domain.QuoteKind]float64, len(DefaultReferences)),
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
	}
	if e.defaultFee < 0 {
		e.defaultFee = DefaultWorkmanshipFee
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = 15 * time.Second
	}
	if e.now == nil {
		e.now = time.Now
	}
	for k, v := range DefaultReferences {
		e.references[k] = v
	}
	for k, v := range cfg.References {
		if v > 0 {
			e.references[k] = v
		}
	}
	e.ttl.Store(scheduler.Config().Interval)
	return e
}

// Start begins the scheduled refresh of every quote kind.
func (e *PriceEngine) Start(ctx context.Context) error {
	return e.scheduler.Start(ctx, 0, func(ctx context.Context) {
		e.RefreshAll(ctx)
	})
}

func (e *PriceEngine) Stop() {
	e.scheduler.Stop()
}

// GetQuote returns the cached quote when fresh, otherwise resolves it.
// Concurrent callers for the same kind share one upstream fetch.
func (e *PriceEngine) GetQuote(ctx context.Context, kind domain.QuoteKind) domain.Quote {
	ctx, span := e.tracer.Start(ctx, "price-engine.get-quote")
	defer span.End()
	span.SetAttributes(attribute.String("quote.kind", string(kind)))

	if e.quotes.IsFresh(kind, e.ttl.Load()) {
		if q, ok := e.quotes.Get(kind); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return q
		}
	}
	return e.resolve(ctx, kind)
}

// RefreshAll fetches every kind regardless of freshness.
func (e *PriceEngine) RefreshAll(ctx context.Context) {
	ctx, span := e.tracer.Start(ctx, "price-engine.refresh-all")
	defer span.End()

	var g errgroup.Group
	for _, kind := range domain.AllKinds {
		g.Go(func() error {
			e.resolve(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	e.log.WithField("kinds", len(domain.AllKinds)).Debug("refreshed all quotes")
}

// GetAllMetalPrices resolves every kind concurrently and compares each metal
// with its reference baseline.
func (e *PriceEngine) GetAllMetalPrices(ctx context.Context) domain.AllMetalPrices {
	ctx, span := e.tracer.Start(ctx, "price-engine.get-all-metal-prices")
	defer span.End()

	resolved := e.resolveKinds(ctx, domain.AllKinds)

	out := domain.AllMetalPrices{
		Metals:       make(map[domain.QuoteKind]domain.MetalPriceSnapshot, len(domain.Metals)),
		ExchangeRate: resolved[domain.KindUSDTWD],
		Timestamp:    e.now(),
	}
	for _, kind := range domain.Metals {
		q := resolved[kind]
		change, pct := pricing.Change(q.Value, e.references[kind])
		out.Metals[kind] = domain.MetalPriceSnapshot{
			Kind:          kind,
			Price:         q.Value,
			Change:        change,
			ChangePercent: pct,
			Source:        q.Source,
			FetchedAt:     q.FetchedAt,
		}
	}
	return out
}

// CurrentGoldPrice returns gold, the rate and the per-tael TWD price.
func (e *PriceEngine) CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice {
	ctx, span := e.tracer.Start(ctx, "price-engine.current-gold-price")
	defer span.End()

	gold, rate := e.goldAndRate(ctx)
	return domain.CurrentGoldPrice{
		Gold:            gold,
		ExchangeRate:    rate,
		PricePerTaelTWD: pricing.PricePerTaelTWD(gold.Value, rate.Value),
		Timestamp:       e.now(),
	}
}

// CalculatePrice prices req against the current gold quote and rate.
func (e *PriceEngine) CalculatePrice(ctx context.Context, req domain.PriceCalculationRequest) (domain.PriceCalculationResult, error) {
	ctx, span := e.tracer.Start(ctx, "price-engine.calculate-price")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		return domain.PriceCalculationResult{}, err
	}
	gold, rate := e.goldAndRate(ctx)
	return e.calculate(req, gold, rate), nil
}

// CalculateBatch prices each request independently. An invalid item carries
// its error and does not affect the others. Quotes are resolved once.
func (e *PriceEngine) CalculateBatch(ctx context.Context, reqs []domain.PriceCalculationRequest) []domain.BatchItemResult {
	ctx, span := e.tracer.Start(ctx, "price-engine.calculate-batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(reqs)))

	results := make([]domain.BatchItemResult, len(reqs))
	valid := 0
	for i, req := range reqs {
		results[i].ID = req.ID
		if err := req.Validate(); err != nil {
			results[i].Error = err.Error()
			continue
		}
		valid++
	}
	if valid == 0 {
		return results
	}

	gold, rate := e.goldAndRate(ctx)
	for i, req := range reqs {
		if results[i].Error != "" {
			continue
		}
		res := e.calculate(req, gold, rate)
		results[i].Result = &res
	}
	return results
}

// ReconfigureSchedule changes the refresh interval. The freshness window
// follows the interval.
func (e *PriceEngine) ReconfigureSchedule(interval time.Duration) error {
	if err := e.scheduler.Reconfigure(interval); err != nil {
		return err
	}
	e.ttl.Store(interval)
	return nil
}

func (e *PriceEngine) ScheduleInterval() time.Duration {
	return e.scheduler.Config().Interval
}

func (e *PriceEngine) ScheduleBounds() (min, max time.Duration) {
	cfg := e.scheduler.Config()
	return cfg.Min, cfg.Max
}

func (e *PriceEngine) DefaultFee() float64 {
	return e.defaultFee
}

// Status reports every cached quote with its age plus the schedule state.
func (e *PriceEngine) Status() domain.EngineStatus {
	now := e.now()
	snap := e.quotes.Snapshot()
	quotes := make(map[domain.QuoteKind]domain.QuoteStatus, len(snap))
	for kind, q := range snap {
		quotes[kind] = domain.QuoteStatus{
			Source:    q.Source,
			Value:     q.Value,
			FetchedAt: q.FetchedAt,
			AgeMillis: now.Sub(q.FetchedAt).Milliseconds(),
		}
	}
	interval := e.ScheduleInterval()
	return domain.EngineStatus{
		Quotes:           quotes,
		ScheduleInterval: interval,
		IntervalMinutes:  int(interval / time.Minute),
		Running:          e.scheduler.Running(),
	}
}

func (e *PriceEngine) calculate(req domain.PriceCalculationRequest, gold, rate domain.Quote) domain.PriceCalculationResult {
	fee := e.defaultFee
	if req.Fee != nil {
		fee = *req.Fee
	}
	res := pricing.ToLocalRetailPrice(gold.Value, rate.Value, req.Weight, fee)
	res.GoldSource = gold.Source
	res.RateSource = rate.Source
	return res
}

func (e *PriceEngine) goldAndRate(ctx context.Context) (domain.Quote, domain.Quote) {
	resolved := e.resolveKinds(ctx, []domain.QuoteKind{domain.KindGold, domain.KindUSDTWD})
	return resolved[domain.KindGold], resolved[domain.KindUSDTWD]
}

func (e *PriceEngine) resolveKinds(ctx context.Context, kinds []domain.QuoteKind) map[domain.QuoteKind]domain.Quote {
	quotes := make([]domain.Quote, len(kinds))
	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			quotes[i] = e.GetQuote(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[domain.QuoteKind]domain.Quote, len(kinds))
	for i, kind := range kinds {
		out[kind] = quotes[i]
	}
	return out
}

// resolve runs one shared fetch per kind. The fetch is detached from the
// caller so one caller cancelling does not fail the others; a cancelled
// caller gets the best value available without waiting.
func (e *PriceEngine) resolve(ctx context.Context, kind domain.QuoteKind) domain.Quote {
	detached := context.WithoutCancel(ctx)
	ch := e.inflight.DoChan(string(kind), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, e.fetchTimeout)
		defer cancel()
		return e.refresh(fetchCtx, kind), nil
	})

	select {
	case res := <-ch:
		return res.Val.(domain.Quote)
	case <-ctx.Done():
		if q, ok := e.quotes.Get(kind); ok {
			return q
		}
		return domain.Quote{
			Kind:      kind,
			Value:     e.fallback.Generate(kind),
			FetchedAt: e.now(),
			Source:    domain.SourceFallback,
		}
	}
}

func (e *PriceEngine) refresh(ctx context.Context, kind domain.QuoteKind) domain.Quote {
	ctx, span := e.tracer.Start(ctx, "price-engine.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("quote.kind", string(kind)))

	started := e.now()
	q := domain.Quote{Kind: kind, FetchedAt: started, Source: domain.SourceLive}

	v, err := e.provider.Fetch(ctx, kind)
	if err != nil {
		span.RecordError(err)
		q.Value = e.fallback.Generate(kind)
		q.Source = domain.SourceFallback

		e.log.WithFields(logrus.Fields{
			"kind":     kind,
			"fallback": q.Value,
		}).WithError(err).Warn("provider fetch failed, using fallback")
	} else {
		q.Value = v
	}
	span.SetAttributes(attribute.String("quote.source", string(q.Source)))

	if !e.quotes.Put(q) {
		e.log.WithFields(logrus.Fields{
			"kind":       kind,
			"fetched_at": q.FetchedAt,
		}).Debug("discarded stale quote")
		if cur, ok := e.quotes.Get(kind); ok {
			return cur
		}
		return q
	}

	e.afterStore(ctx, q)
	return q
}

func (e *PriceEngine) afterStore(ctx context.Context, q domain.Quote) {
	if e.publisher == nil && e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, q); err != nil {
			e.log.WithField("kind", q.Kind).WithError(err).Warn("mirror publish failed")
		}
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, q); err != nil {
			e.log.WithField("kind", q.Kind).WithError(err).Warn("history record failed")
		}
	}
}
