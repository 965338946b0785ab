package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/watson9049/billygold-website/internal/domain"
)

func TestQuoteCacheGetPut(t *testing.T) {
	c := NewQuoteCache()
	if _, ok := c.Get(domain.KindGold); ok {
		t.Fatal("empty cache should miss")
	}

	q := domain.Quote{Kind: domain.KindGold, Value: 2400, FetchedAt: time.Now(), Source: domain.SourceLive}
	if !c.Put(q) {
		t.Fatal("first put should be written")
	}
	got, ok := c.Get(domain.KindGold)
	if !ok || got != q {
		t.Fatalf("expected %+v, got %+v", q, got)
	}
}

func TestQuoteCacheRejectsStaleWrite(t *testing.T) {
	c := NewQuoteCache()
	base := time.Now()
	newer := domain.Quote{Kind: domain.KindSilver, Value: 30, FetchedAt: base.Add(time.Second), Source: domain.SourceLive}
	older := domain.Quote{Kind: domain.KindSilver, Value: 29, FetchedAt: base, Source: domain.SourceFallback}

	c.Put(newer)
	if c.Put(older) {
		t.Fatal("older quote must not overwrite a newer one")
	}
	if c.Put(domain.Quote{Kind: domain.KindSilver, Value: 31, FetchedAt: newer.FetchedAt}) {
		t.Fatal("equal timestamp must not overwrite")
	}
	got, _ := c.Get(domain.KindSilver)
	if got.Value != 30 {
		t.Fatalf("expected newer value to survive, got %v", got.Value)
	}
}

func TestQuoteCacheIsFresh(t *testing.T) {
	c := NewQuoteCache()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if c.IsFresh(domain.KindGold, time.Minute) {
		t.Fatal("missing entry is never fresh")
	}

	c.Put(domain.Quote{Kind: domain.KindGold, Value: 1, FetchedAt: now.Add(-59 * time.Second)})
	if !c.IsFresh(domain.KindGold, time.Minute) {
		t.Fatal("59s old entry should be fresh for 1m ttl")
	}

	now = now.Add(time.Second)
	if c.IsFresh(domain.KindGold, time.Minute) {
		t.Fatal("entry exactly ttl old should be stale")
	}
}

func TestQuoteCacheSnapshotIsCopy(t *testing.T) {
	c := NewQuoteCache()
	c.Put(domain.Quote{Kind: domain.KindCopper, Value: 4.2, FetchedAt: time.Now()})

	snap := c.Snapshot()
	delete(snap, domain.KindCopper)
	if _, ok := c.Get(domain.KindCopper); !ok {
		t.Fatal("mutating snapshot must not affect cache")
	}
}

func TestQuoteCacheConcurrentWriters(t *testing.T) {
	c := NewQuoteCache()
	base := time.Now()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put(domain.Quote{Kind: domain.KindGold, Value: float64(i), FetchedAt: base.Add(time.Duration(i) * time.Millisecond)})
		}(i)
	}
	wg.Wait()

	got, _ := c.Get(domain.KindGold)
	if got.Value != 50 {
		t.Fatalf("newest write should win, got %v", got.Value)
	}
}
