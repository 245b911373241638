package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.TransactionRecorded("deposit", "completed")
	c.TransactionRecorded("deposit", "completed")
	c.CacheLookup("helpers", true)
	c.CacheLookup("helpers", false)
	c.NotificationSent("transaction.completed")

	if got := testutil.ToFloat64(c.transactions.WithLabelValues("deposit", "completed")); got != 2 {
		t.Fatalf("expected 2 completed deposits, got %v", got)
	}
	if got := testutil.ToFloat64(c.cacheLookups.WithLabelValues("helpers", "miss")); got != 1 {
		t.Fatalf("expected 1 cache miss, got %v", got)
	}
}

func TestCollectorRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector()
	if err := registry.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	c.RequestServed("GET", "/api/v1/ping", 200, 15*time.Millisecond)

	count, err := testutil.GatherAndCount(registry, "taskhub_http_request_duration_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.TransactionRecorded("charge", "completed")
	c.RequestServed("GET", "/", 200, time.Millisecond)
	c.CacheLookup("helpers", true)
	c.NotificationSent("x")
}
