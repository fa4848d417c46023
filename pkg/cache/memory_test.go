package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	if err := mc.Set(ctx, "quote:AAPL", payload{Symbol: "AAPL", Price: 190.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	if err := mc.Get(ctx, "quote:AAPL", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Symbol != "AAPL" || got.Price != 190.5 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var dest string
	if err := mc.Get(context.Background(), "quote:MISSING", &dest); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "candles:1m:XYZ", "payload", 50*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	var dest string
	if err := mc.Get(ctx, "candles:1m:XYZ", &dest); err != nil {
		t.Fatalf("expected hit before expiry, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if err := mc.Get(ctx, "candles:1m:XYZ", &dest); err != ErrCacheMiss {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)

	// Touch "a" so "b" becomes least recently used.
	var dest string
	_ = mc.Get(ctx, "a", &dest)

	_ = mc.Set(ctx, "c", "3", time.Minute)

	if err := mc.Get(ctx, "b", &dest); err != ErrCacheMiss {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &dest); err != nil {
		t.Fatalf("expected a retained, got %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CandlesKey("5m", "AAPL"); got != "candles:5m:AAPL" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := IndicatorKey("1h", "AAPL", "sma_20"); got != "indicator:1h:AAPL:sma_20" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := QuoteKey("EUR/USD"); got != "quote:EUR/USD" {
		t.Fatalf("unexpected key %q", got)
	}
}
