package workflow

import "sync"

// Inflight tracks which entities have a command outstanding.
type Inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewInflight() *Inflight {
	return &Inflight{busy: make(map[string]struct{})}
}

func TaskKey(id string) string        { return "task:" + id }
func AppointmentKey(id string) string { return "appointment:" + id }

// Acquire marks key busy. It fails with ErrBusy if key is already busy.
// The returned release func is idempotent.
func (g *Inflight) Acquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[key]; ok {
		return nil, ErrBusy
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Inflight) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}
