package event

import (
	"context"
	"errors"
	"testing"

	"alphabot/internal/feed"
	"alphabot/pkg/logx"
)

type fakeSource struct {
	events []feed.RawEvent
	err    error
	prices feed.PriceMap
}

func (f *fakeSource) Events(ctx context.Context) ([]feed.RawEvent, error) {
	return f.events, f.err
}

func (f *fakeSource) Prices(ctx context.Context) feed.PriceMap {
	return f.prices
}

func TestNormalizePhasePairEndToEnd(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		events: []feed.RawEvent{
			{Date: "2025-06-01", Token: "A", Phase: 1, Time: "10:00"},
			{Date: "2025-06-01", Token: "A", Phase: 2, Time: "10:00"},
		},
		prices: feed.PriceMap{"A": {Price: 1.5}},
	}
	n := NewNormalizer(src, newTestResolver(t), logx.Nop())

	out, err := n.Normalize(context.Background())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out))
	}
	got := out[0]
	if got.Phase != 2 {
		t.Fatalf("expected phase-2 survivor, got phase %d", got.Phase)
	}
	if got.EffectiveAt == nil {
		t.Fatal("expected a resolved time")
	}
	// Phase-1 time 10:00 Shanghai + 18h = 04:00 next day, i.e. 03:00 Vietnam.
	want := ts(t, "2025-06-02 03:00")
	if !got.EffectiveAt.Equal(*want) {
		t.Fatalf("EffectiveAt = %v, want %v", got.EffectiveAt, want)
	}
}

func TestNormalizeSharedPriceSnapshot(t *testing.T) {
	t.Parallel()

	prices := feed.PriceMap{"A": {DexPrice: 2}}
	src := &fakeSource{
		events: []feed.RawEvent{
			{Date: "2025-06-01", Token: "A", Time: "10:00"},
			{Date: "2025-06-02", Token: "B", Time: "11:00"},
		},
		prices: prices,
	}
	n := NewNormalizer(src, newTestResolver(t), logx.Nop())

	out, err := n.Normalize(context.Background())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 events, got %d", len(out))
	}
	for _, e := range out {
		if e.Prices == nil {
			t.Fatal("missing price snapshot")
		}
		if q := e.Prices["A"]; q.DexPrice != 2 {
			t.Fatalf("snapshot not shared: %+v", e.Prices)
		}
	}
}

func TestNormalizeEmptyFeed(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeSource{}, newTestResolver(t), logx.Nop())
	out, err := n.Normalize(context.Background())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}

func TestNormalizePropagatesFeedError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	n := NewNormalizer(&fakeSource{err: wantErr}, newTestResolver(t), logx.Nop())
	if _, err := n.Normalize(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped feed error, got %v", err)
	}
}
