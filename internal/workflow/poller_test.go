package workflow

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingFetcher) fetch(ctx context.Context, id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[id]++
	return c.calls[id], nil
}

func (c *countingFetcher) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func next[T any](t *testing.T, sub *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	panic("unreachable")
}

func TestClampPollInterval(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultPollInterval},
		{-time.Second, DefaultPollInterval},
		{time.Second, MinPollInterval},
		{10 * time.Second, 10 * time.Second},
		{time.Minute, MaxPollInterval},
	}
	for _, tt := range tests {
		if got := ClampPollInterval(tt.in); got != tt.want {
			t.Errorf("ClampPollInterval(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHubSharesOneStream(t *testing.T) {
	f := &countingFetcher{}
	h := NewHub(f.fetch, time.Hour)
	defer h.Close()

	a := h.Subscribe("t1")
	first := next(t, a)
	b := h.Subscribe("t1")
	if got := next(t, b); got.Seq != first.Seq {
		t.Fatalf("late subscriber should get the cached snapshot, got seq %d", got.Seq)
	}
	if h.Watching() != 1 {
		t.Fatalf("watching = %d, want 1", h.Watching())
	}
	if f.count("t1") != 1 {
		t.Fatalf("fetches = %d, want 1", f.count("t1"))
	}

	h.Refresh("t1")
	sa, sb := next(t, a), next(t, b)
	if sa.Seq != 2 || sb.Seq != 2 || sa.Value != 2 {
		t.Fatalf("refresh snapshots = %+v / %+v", sa, sb)
	}
	if f.count("t1") != 2 {
		t.Fatalf("fetches = %d, want 2", f.count("t1"))
	}

	a.Close()
	a.Close()
	if h.Watching() != 1 {
		t.Fatal("stream should survive while a subscriber remains")
	}
	b.Close()
	if h.Watching() != 0 {
		t.Fatal("stream should stop with its last subscriber")
	}
}

func TestHubSlowSubscriberSeesLatest(t *testing.T) {
	f := &countingFetcher{}
	h := NewHub(f.fetch, time.Hour)
	defer h.Close()

	sub := h.Subscribe("t1")
	defer sub.Close()
	next(t, sub)

	for i := 0; i < 3; i++ {
		h.Refresh("t1")
		deadline := time.Now().Add(2 * time.Second)
		for f.count("t1") < i+2 {
			if time.Now().After(deadline) {
				t.Fatal("refresh not fetched")
			}
			time.Sleep(time.Millisecond)
		}
	}

	var last Snapshot[int]
	deadline := time.After(2 * time.Second)
	for last.Seq < 4 {
		select {
		case last = <-sub.C:
		case <-deadline:
			t.Fatalf("never saw latest snapshot, last seq %d", last.Seq)
		}
	}
	if last.Value != 4 {
		t.Fatalf("value = %d, want 4", last.Value)
	}
}

func TestHubPollsOnInterval(t *testing.T) {
	f := &countingFetcher{}
	h := NewHub(f.fetch, 5*time.Millisecond)
	defer h.Close()

	sub := h.Subscribe("t1")
	defer sub.Close()
	prev := next(t, sub)
	for i := 0; i < 3; i++ {
		snap := next(t, sub)
		if snap.Seq <= prev.Seq {
			t.Fatalf("sequence did not advance: %d after %d", snap.Seq, prev.Seq)
		}
		prev = snap
	}
}

func TestHubCloseClosesSubscriptions(t *testing.T) {
	f := &countingFetcher{}
	h := NewHub(f.fetch, time.Hour)
	sub := h.Subscribe("t1")
	h.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				sub.Close()
				late := h.Subscribe("t2")
				if _, ok := <-late.C; ok {
					t.Fatal("subscribe after close should yield a closed channel")
				}
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed")
		}
	}
}
