package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/metrics"
)

func TestHelpersServedFromCacheUntilWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	repo := NewMemoryRepository()
	collector := metrics.NewCollector()
	cache := NewViewCache[Helpers]("helpers", client, time.Minute, logging.Discard(), collector)
	cat := New(repo, nil, nil, cache, logging.Discard())

	country, err := cat.CreateCountry(ctx, "Congo", "CG")
	if err != nil {
		t.Fatalf("country: %v", err)
	}
	if _, err := cat.CreateRegion(ctx, country.ID, "Pool"); err != nil {
		t.Fatalf("region: %v", err)
	}

	if _, err := cat.Helpers(ctx); err != nil {
		t.Fatalf("helpers: %v", err)
	}
	if !mr.Exists(helpersCacheKey) {
		t.Fatalf("expected helpers to be cached")
	}

	// Writes that bypass the catalog are not visible until the cache is invalidated.
	if err := repo.CreateRegion(ctx, &Region{CountryID: country.ID, Name: "Bouenza"}); err != nil {
		t.Fatalf("seed region: %v", err)
	}
	cached, err := cat.Helpers(ctx)
	if err != nil {
		t.Fatalf("helpers: %v", err)
	}
	if len(cached.Province) != 1 {
		t.Fatalf("expected cached province list, got %d", len(cached.Province))
	}

	if _, err := cat.CreateRegion(ctx, country.ID, "Plateaux"); err != nil {
		t.Fatalf("region: %v", err)
	}
	if mr.Exists(helpersCacheKey) {
		t.Fatalf("expected write to invalidate the cache")
	}
	fresh, err := cat.Helpers(ctx)
	if err != nil {
		t.Fatalf("helpers: %v", err)
	}
	if len(fresh.Province) != 3 {
		t.Fatalf("expected 3 provinces after invalidation, got %d", len(fresh.Province))
	}

	if n := testutil.CollectAndCount(collector, "taskhub_cache_lookups_total"); n != 2 {
		t.Fatalf("expected hit and miss series, got %d", n)
	}
}

func TestViewCacheWithoutClientMisses(t *testing.T) {
	cache := NewViewCache[Helpers]("helpers", nil, time.Minute, nil, nil)
	cache.Set(context.Background(), "k", &Helpers{})
	if _, ok := cache.Get(context.Background(), "k"); ok {
		t.Fatalf("expected a miss without a client")
	}
}
