package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/metrics"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(context.Context, Message) error {
	f.calls++
	return errors.New("boom")
}

func TestRedisNotifierAppendsToStream(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	n := NewRedisNotifier(client, metrics.NewCollector())
	msg := Message{Kind: KindServicePaid, Destination: "user-1", Body: "paid"}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	entries, err := client.XRange(context.Background(), Stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}
	raw, _ := entries[0].Values["event"].(string)
	var got envelope
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.Kind != KindServicePaid || got.Destination != "user-1" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	first := &failingNotifier{}
	second := &failingNotifier{}
	m := Multi{first, NewLoggerNotifier(logging.Discard()), nil, second}
	if err := m.Send(context.Background(), Message{Kind: "x"}); err == nil {
		t.Fatalf("expected error from failing notifier")
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected every notifier to be called")
	}
}
