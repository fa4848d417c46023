package usecase

import (
	"context"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

func TestQuoteRefreshTiers(t *testing.T) {
	provider := newScriptedProvider()
	provider.quotes["HOT1"] = &models.Quote{Symbol: "HOT1", CurrentPrice: 10}
	provider.quotes["WARM1"] = &models.Quote{Symbol: "WARM1", CurrentPrice: 20}

	cache := newMemCache()
	uni := newStaticUniverse([]string{"HOT1"}, []string{"HOT1", "WARM1"})
	q := NewQuoteRefresher(provider, cache, uni, newCountMetrics(), applogger.Nop(), testTTL())

	if err := q.RunHot(context.Background()); err != nil {
		t.Fatalf("hot: %v", err)
	}
	if !cache.has(pkgcache.QuoteKey("HOT1")) {
		t.Fatalf("hot quote not cached")
	}
	if provider.fetches("WARM1") != 0 {
		t.Fatalf("warm ticker fetched by hot cycle")
	}

	if err := q.RunWarm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if provider.fetches("HOT1") != 1 {
		t.Fatalf("warm cycle re-fetched hot ticker; fetches = %d", provider.fetches("HOT1"))
	}
	if !cache.has(pkgcache.QuoteKey("WARM1")) {
		t.Fatalf("warm quote not cached")
	}

	// Hot entries expire after twice the hot cadence, warm after twice
	// the warm cadence.
	cache.mu.Lock()
	hotTTL := cache.ttls[pkgcache.QuoteKey("HOT1")]
	warmTTL := cache.ttls[pkgcache.QuoteKey("WARM1")]
	cache.mu.Unlock()
	if hotTTL != 2*time.Minute || warmTTL != 10*time.Minute {
		t.Fatalf("ttls = %v/%v, want 2m/10m", hotTTL, warmTTL)
	}
}

func TestGetQuoteCacheHit(t *testing.T) {
	provider := newScriptedProvider()
	cache := newMemCache()
	if err := cache.Set(context.Background(), pkgcache.QuoteKey("AAPL"), &models.Quote{Symbol: "AAPL", CurrentPrice: 190}, time.Minute); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	q := NewQuoteRefresher(provider, cache, newStaticUniverse(nil, nil), newCountMetrics(), applogger.Nop(), testTTL())
	quote, err := q.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quote.CurrentPrice != 190 {
		t.Fatalf("price = %v, want cached 190", quote.CurrentPrice)
	}
	if provider.fetches("AAPL") != 0 {
		t.Fatalf("cache hit must not call the vendor")
	}
}

func TestGetQuoteMissFetchesOnDemand(t *testing.T) {
	provider := newScriptedProvider()
	provider.quotes["NVDA"] = &models.Quote{Symbol: "NVDA", CurrentPrice: 130}

	cache := newMemCache()
	q := NewQuoteRefresher(provider, cache, newStaticUniverse(nil, nil), newCountMetrics(), applogger.Nop(), testTTL())

	quote, err := q.GetQuote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quote.CurrentPrice != 130 {
		t.Fatalf("price = %v, want 130", quote.CurrentPrice)
	}
	if provider.fetches("NVDA") != 1 {
		t.Fatalf("fetches = %d, want 1", provider.fetches("NVDA"))
	}
	if !cache.has(pkgcache.QuoteKey("NVDA")) {
		t.Fatalf("on-demand quote not cached")
	}
}

func TestGetQuoteVendorFailure(t *testing.T) {
	provider := newScriptedProvider()
	provider.errs["DOWN"] = models.NewProviderError("scripted", "DOWN", context.DeadlineExceeded)

	q := NewQuoteRefresher(provider, newMemCache(), newStaticUniverse(nil, nil), newCountMetrics(), applogger.Nop(), testTTL())
	if _, err := q.GetQuote(context.Background(), "DOWN"); err == nil {
		t.Fatalf("want error when vendor fails and cache is empty")
	}
}
