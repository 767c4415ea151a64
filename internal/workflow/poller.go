package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/sadopc/preptrack/internal/model"
)

const (
	DefaultPollInterval = 5 * time.Second
	MinPollInterval     = 3 * time.Second
	MaxPollInterval     = 30 * time.Second
)

// ClampPollInterval maps d into [MinPollInterval, MaxPollInterval]. Zero
// selects the default.
func ClampPollInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultPollInterval
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	}
	return d
}

// Snapshot is one fetch result for an entity. Seq grows with every fetch of
// the same entity.
type Snapshot[T any] struct {
	ID        string
	Seq       uint64
	Value     T
	Err       error
	FetchedAt time.Time
}

// FetchFunc loads the current state of one entity.
type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

// Hub polls each subscribed entity with a single goroutine no matter how
// many subscribers it has, and fans the snapshots out.
type Hub[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration

	mu      sync.Mutex
	streams map[string]*stream[T]
	closed  bool
}

type stream[T any] struct {
	subs   map[*Subscription[T]]struct{}
	kick   chan struct{}
	cancel context.CancelFunc
	seq    uint64
	last   *Snapshot[T]
}

// Subscription receives the latest snapshot of one entity. A reader that
// falls behind only ever sees the newest snapshot.
type Subscription[T any] struct {
	C <-chan Snapshot[T]

	ch   chan Snapshot[T]
	hub  *Hub[T]
	id   string
	once sync.Once
}

func NewHub[T any](fetch FetchFunc[T], interval time.Duration) *Hub[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Hub[T]{fetch: fetch, interval: interval, streams: make(map[string]*stream[T])}
}

// Subscribe starts polling id if nobody else is watching it. The first
// snapshot arrives as soon as the first fetch completes.
func (h *Hub[T]) Subscribe(id string) *Subscription[T] {
	ch := make(chan Snapshot[T], 1)
	sub := &Subscription[T]{C: ch, ch: ch, hub: h, id: id}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	st, ok := h.streams[id]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		st = &stream[T]{
			subs:   make(map[*Subscription[T]]struct{}),
			kick:   make(chan struct{}, 1),
			cancel: cancel,
		}
		h.streams[id] = st
		go h.poll(ctx, id, st)
	}
	st.subs[sub] = struct{}{}
	if st.last != nil {
		ch <- *st.last
	}
	return sub
}

// Close unsubscribes. Polling of the entity stops with its last subscriber.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		st, ok := h.streams[s.id]
		if !ok {
			return
		}
		if _, ok := st.subs[s]; !ok {
			return
		}
		delete(st.subs, s)
		close(s.ch)
		if len(st.subs) == 0 {
			st.cancel()
			delete(h.streams, s.id)
		}
	})
}

// Refresh fetches id now instead of waiting for the next poll. It is a no-op
// for entities nobody is watching.
func (h *Hub[T]) Refresh(id string) {
	h.mu.Lock()
	st, ok := h.streams[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case st.kick <- struct{}{}:
	default:
	}
}

// Watching reports the number of entities being polled.
func (h *Hub[T]) Watching() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// Close stops every poll and closes every subscription channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, st := range h.streams {
		st.cancel()
		for sub := range st.subs {
			close(sub.ch)
		}
		delete(h.streams, id)
	}
}

func (h *Hub[T]) poll(ctx context.Context, id string, st *stream[T]) {
	tk := time.NewTicker(h.interval)
	defer tk.Stop()
	for {
		v, err := h.fetch(ctx, id)
		if ctx.Err() != nil {
			return
		}
		h.publish(st, id, v, err)

		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		case <-st.kick:
			tk.Reset(h.interval)
		}
	}
}

func (h *Hub[T]) publish(st *stream[T], id string, v T, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[id] != st {
		return
	}
	st.seq++
	snap := Snapshot[T]{ID: id, Seq: st.seq, Value: v, Err: err, FetchedAt: time.Now()}
	st.last = &snap
	for sub := range st.subs {
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

// TaskView is what a task detail screen shows: the task and its tracking
// status, fetched together.
type TaskView struct {
	Task     *model.Task
	Tracking *model.TrackingStatus
}

// FetchTaskView loads a TaskView through b.
func FetchTaskView(b interface {
	TaskBackend
	TrackingBackend
}) FetchFunc[TaskView] {
	return func(ctx context.Context, id string) (TaskView, error) {
		task, err := b.GetTask(ctx, id)
		if err != nil {
			return TaskView{}, err
		}
		st, err := b.TrackingStatus(ctx, id)
		if err != nil {
			return TaskView{}, err
		}
		return TaskView{Task: task, Tracking: st}, nil
	}
}
