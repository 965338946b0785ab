package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/watson9049/billygold-website/internal/cache"
	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/internal/job"
	"github.com/watson9049/billygold-website/internal/provider"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

type fakeProvider struct {
	mu     sync.Mutex
	values map[domain.QuoteKind]float64
	fail   map[domain.QuoteKind]bool
	calls  map[domain.QuoteKind]int
	gate   chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		values: map[domain.QuoteKind]float64{
			domain.KindGold:     3311.96,
			domain.KindSilver:   38.2,
			domain.KindPlatinum: 1400,
			domain.KindCopper:   4.3,
			domain.KindUSDTWD:   31.8,
		},
		fail:  map[domain.QuoteKind]bool{},
		calls: map[domain.QuoteKind]int{},
	}
}

func (f *fakeProvider) Fetch(ctx context.Context, kind domain.QuoteKind) (float64, error) {
	f.mu.Lock()
	f.calls[kind]++
	gate := f.gate
	failing := f.fail[kind]
	v := f.values[kind]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, &domain.ProviderError{Kind: kind, Cause: ctx.Err()}
		}
	}
	if failing {
		return 0, &domain.ProviderError{Kind: kind, Cause: errors.New("upstream down")}
	}
	return v, nil
}

func (f *fakeProvider) callCount(kind domain.QuoteKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeProvider) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeProvider) setFail(kind domain.QuoteKind, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[kind] = failing
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	quotes []domain.Quote
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, q domain.Quote) error {
	return s.add(q)
}

func (s *recordingSink) Record(ctx context.Context, q domain.Quote) error {
	return s.add(q)
}

func (s *recordingSink) add(q domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, q)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes)
}

func newTestEngine(t *testing.T, p QuoteFetcher, cfg EngineConfig) (*PriceEngine, *cache.QuoteCache) {
	t.Helper()
	sched, err := job.NewScheduler(testTracer, 15*time.Minute, 0, 0)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if cfg.DefaultFee == 0 {
		cfg.DefaultFee = DefaultWorkmanshipFee
	}
	quotes := cache.NewQuoteCache()
	fallback := provider.NewSeededFallbackGenerator(nil, 0.02, 42)
	return NewPriceEngine(testTracer, p, fallback, quotes, sched, cfg), quotes
}

func withinJitter(v, baseline, jitter float64) bool {
	return v >= baseline*(1-jitter)-0.01 && v <= baseline*(1+jitter)+0.01
}

func TestGetQuoteFreshReadsAreIdempotent(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	first := engine.GetQuote(context.Background(), domain.KindGold)
	second := engine.GetQuote(context.Background(), domain.KindGold)

	if first != second {
		t.Fatalf("expected identical quotes, got %+v and %+v", first, second)
	}
	if first.Source != domain.SourceLive || first.Value != 3311.96 {
		t.Fatalf("unexpected quote: %+v", first)
	}
	if got := p.callCount(domain.KindGold); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
}

func TestGetQuoteFallsBackOnProviderFailure(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	for _, kind := range domain.AllKinds {
		p.setFail(kind, true)
	}
	engine, quotes := newTestEngine(t, p, EngineConfig{})

	for _, kind := range domain.AllKinds {
		q := engine.GetQuote(context.Background(), kind)
		if q.Source != domain.SourceFallback {
			t.Fatalf("%s: expected fallback source, got %s", kind, q.Source)
		}
		if !(q.Value > 0) {
			t.Fatalf("%s: expected positive value, got %v", kind, q.Value)
		}
		if !withinJitter(q.Value, provider.DefaultFallbackBaselines[kind], 0.02) {
			t.Fatalf("%s: %v outside jitter of %v", kind, q.Value, provider.DefaultFallbackBaselines[kind])
		}
		if cached, ok := quotes.Get(kind); !ok || cached != q {
			t.Fatalf("%s: fallback quote should be cached", kind)
		}
	}
}

func TestLiveQuoteReplacesFallback(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	p := newFakeProvider()
	p.setFail(domain.KindSilver, true)
	engine, _ := newTestEngine(t, p, EngineConfig{Now: clock.Now})

	if q := engine.GetQuote(context.Background(), domain.KindSilver); q.Source != domain.SourceFallback {
		t.Fatalf("expected fallback, got %+v", q)
	}

	p.setFail(domain.KindSilver, false)
	clock.Advance(time.Second)
	engine.RefreshAll(context.Background())

	q := engine.GetQuote(context.Background(), domain.KindSilver)
	if q.Source != domain.SourceLive || q.Value != 38.2 {
		t.Fatalf("expected live quote after recovery, got %+v", q)
	}
}

func TestGetQuoteSingleFlight(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.gate = make(chan struct{})
	engine, _ := newTestEngine(t, p, EngineConfig{})

	const callers = 20
	results := make([]domain.Quote, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.GetQuote(context.Background(), domain.KindGold)
		}(i)
	}

	eventually(t, func() bool { return p.callCount(domain.KindGold) == 1 })
	time.Sleep(20 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	if got := p.callCount(domain.KindGold); got != 1 {
		t.Fatalf("expected exactly one upstream fetch, got %d", got)
	}
	for i, q := range results {
		if q != results[0] {
			t.Fatalf("caller %d got %+v, want %+v", i, q, results[0])
		}
	}
}

func TestCancelledCallerDoesNotCancelSharedFetch(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.gate = make(chan struct{})
	engine, quotes := newTestEngine(t, p, EngineConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan domain.Quote, 1)
	go func() { done <- engine.GetQuote(ctx, domain.KindGold) }()

	eventually(t, func() bool { return p.callCount(domain.KindGold) == 1 })
	cancel()

	select {
	case q := <-done:
		if !(q.Value > 0) {
			t.Fatalf("cancelled caller should still get a usable quote, got %+v", q)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller was not released")
	}

	close(p.gate)
	eventually(t, func() bool {
		q, ok := quotes.Get(domain.KindGold)
		return ok && q.Source == domain.SourceLive
	})
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.gate = make(chan struct{})
	engine, quotes := newTestEngine(t, p, EngineConfig{})

	done := make(chan domain.Quote, 1)
	go func() { done <- engine.GetQuote(context.Background(), domain.KindGold) }()
	eventually(t, func() bool { return p.callCount(domain.KindGold) == 1 })

	newer := domain.Quote{
		Kind:      domain.KindGold,
		Value:     3400,
		FetchedAt: time.Now().Add(time.Hour),
		Source:    domain.SourceLive,
	}
	if !quotes.Put(newer) {
		t.Fatal("seeding newer quote failed")
	}
	close(p.gate)

	got := <-done
	if got != newer {
		t.Fatalf("expected newer cached quote, got %+v", got)
	}
	if cached, _ := quotes.Get(domain.KindGold); cached != newer {
		t.Fatalf("stale fetch overwrote newer quote: %+v", cached)
	}
}

func TestGetAllMetalPrices(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	all := engine.GetAllMetalPrices(context.Background())
	if len(all.Metals) != len(domain.Metals) {
		t.Fatalf("expected %d metals, got %d", len(domain.Metals), len(all.Metals))
	}
	if all.ExchangeRate.Value != 31.8 {
		t.Fatalf("unexpected rate: %+v", all.ExchangeRate)
	}
	copper := all.Metals[domain.KindCopper]
	if copper.Price != 4.3 || copper.Change != 0.1 || copper.ChangePercent != 2.38 {
		t.Fatalf("unexpected copper snapshot: %+v", copper)
	}
	for _, kind := range domain.AllKinds {
		if got := p.callCount(kind); got != 1 {
			t.Fatalf("%s: expected one fetch, got %d", kind, got)
		}
	}
}

func TestGetAllMetalPricesFallbackWithinJitter(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	for _, kind := range domain.AllKinds {
		p.setFail(kind, true)
	}
	engine, _ := newTestEngine(t, p, EngineConfig{})

	for i := 0; i < 2; i++ {
		all := engine.GetAllMetalPrices(context.Background())
		for kind, snap := range all.Metals {
			if snap.Source != domain.SourceFallback {
				t.Fatalf("%s: expected fallback source", kind)
			}
			if !withinJitter(snap.Price, provider.DefaultFallbackBaselines[kind], 0.02) {
				t.Fatalf("call %d %s: %v outside jitter", i, kind, snap.Price)
			}
		}
		if !withinJitter(all.ExchangeRate.Value, 31.8, 0.02) {
			t.Fatalf("call %d: rate %v outside jitter", i, all.ExchangeRate.Value)
		}
	}
}

func TestGetAllMetalPricesCustomReferences(t *testing.T) {
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{
		References: map[domain.QuoteKind]float64{domain.KindGold: 3311.96, domain.KindSilver: -1},
	})

	all := engine.GetAllMetalPrices(context.Background())
	if gold := all.Metals[domain.KindGold]; gold.Change != 0 || gold.ChangePercent != 0 {
		t.Fatalf("expected zero change against matching reference, got %+v", gold)
	}
	// Non-positive overrides keep the default reference.
	if silver := all.Metals[domain.KindSilver]; silver.Change != 9.7 {
		t.Fatalf("expected change against default silver reference, got %+v", silver)
	}
}

func TestCalculatePrice(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	fee := 500.0
	res, err := engine.CalculatePrice(context.Background(), domain.PriceCalculationRequest{Weight: 5, Fee: &fee})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalPriceTWD != 63990 || res.Breakdown.GoldValueTWD != 63490 || res.PricePerTaelUSD != 399.31 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.GoldSource != domain.SourceLive || res.RateSource != domain.SourceLive {
		t.Fatalf("unexpected sources: %+v", res)
	}
}

func TestCalculatePriceDefaultFee(t *testing.T) {
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{DefaultFee: 800})

	res, err := engine.CalculatePrice(context.Background(), domain.PriceCalculationRequest{Weight: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FlatFee != 800 || res.Breakdown.FeeTWD != 800 {
		t.Fatalf("expected default fee 800, got %+v", res)
	}
	if math.Abs(res.TotalPriceTWD-(res.Breakdown.GoldValueTWD+800)) > 1 {
		t.Fatalf("total does not add up: %+v", res)
	}
}

func TestCalculatePriceInvalidInput(t *testing.T) {
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	negative := -1.0
	for _, req := range []domain.PriceCalculationRequest{
		{Weight: 0},
		{Weight: -2},
		{Weight: math.NaN()},
		{Weight: 1, Fee: &negative},
	} {
		if _, err := engine.CalculatePrice(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", req, err)
		}
	}
	if p.totalCalls() != 0 {
		t.Fatalf("invalid requests must not reach the provider, got %d calls", p.totalCalls())
	}
}

func TestCalculateBatchIsolatesItems(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	negative := -10.0
	results := engine.CalculateBatch(context.Background(), []domain.PriceCalculationRequest{
		{ID: "ring", Weight: 1},
		{ID: "broken", Weight: 0},
		{ID: "bad-fee", Weight: 2, Fee: &negative},
		{ID: "necklace", Weight: 5},
	})

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, i := range []int{0, 3} {
		if results[i].Result == nil || results[i].Error != "" {
			t.Fatalf("item %d should succeed: %+v", i, results[i])
		}
	}
	for _, i := range []int{1, 2} {
		if results[i].Result != nil || results[i].Error == "" {
			t.Fatalf("item %d should fail: %+v", i, results[i])
		}
	}
	if results[3].ID != "necklace" || results[3].Result.TotalPriceTWD != 63990 {
		t.Fatalf("unexpected necklace result: %+v", results[3].Result)
	}
	if p.callCount(domain.KindGold) != 1 || p.callCount(domain.KindUSDTWD) != 1 {
		t.Fatalf("quotes should be resolved once per batch")
	}
}

func TestCalculateBatchAllInvalidSkipsFetch(t *testing.T) {
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	results := engine.CalculateBatch(context.Background(), []domain.PriceCalculationRequest{{Weight: 0}, {Weight: -1}})
	for i, r := range results {
		if r.Error == "" {
			t.Fatalf("item %d should fail", i)
		}
	}
	if p.totalCalls() != 0 {
		t.Fatalf("expected no fetches, got %d", p.totalCalls())
	}
}

func TestReconfigureSchedule(t *testing.T) {
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{})

	for _, bad := range []time.Duration{time.Minute, 25 * time.Hour} {
		if err := engine.ReconfigureSchedule(bad); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", bad, err)
		}
		if engine.ScheduleInterval() != 15*time.Minute {
			t.Fatalf("%s: interval changed on invalid reconfigure", bad)
		}
	}

	if err := engine.ReconfigureSchedule(time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.ScheduleInterval() != time.Hour || engine.ttl.Load() != time.Hour {
		t.Fatalf("expected interval and ttl of 1h, got %s / %s", engine.ScheduleInterval(), engine.ttl.Load())
	}
}

func TestStatus(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newFakeProvider()
	engine, _ := newTestEngine(t, p, EngineConfig{Now: clock.Now})

	engine.GetQuote(context.Background(), domain.KindGold)
	clock.Advance(1500 * time.Millisecond)

	status := engine.Status()
	if status.IntervalMinutes != 15 || status.Running {
		t.Fatalf("unexpected schedule status: %+v", status)
	}
	gold, ok := status.Quotes[domain.KindGold]
	if !ok || gold.AgeMillis != 1500 || gold.Source != domain.SourceLive {
		t.Fatalf("unexpected gold status: %+v", gold)
	}
	if _, ok := status.Quotes[domain.KindSilver]; ok {
		t.Fatal("unfetched kinds should not appear")
	}
}

func TestStoredQuotesArePublishedAndRecorded(t *testing.T) {
	p := newFakeProvider()
	mirror := &recordingSink{}
	history := &recordingSink{err: errors.New("db down")}
	engine, _ := newTestEngine(t, p, EngineConfig{Publisher: mirror, Recorder: history})

	engine.RefreshAll(context.Background())

	if mirror.count() != len(domain.AllKinds) || history.count() != len(domain.AllKinds) {
		t.Fatalf("expected every stored quote published and recorded, got %d / %d", mirror.count(), history.count())
	}
}

func TestEngineStartRunsScheduledRefresh(t *testing.T) {
	p := newFakeProvider()
	engine, quotes := newTestEngine(t, p, EngineConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	eventually(t, func() bool { return len(quotes.Snapshot()) == len(domain.AllKinds) })
	if !engine.Status().Running {
		t.Fatal("expected running scheduler")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
