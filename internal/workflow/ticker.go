package workflow

import (
	"sync"
	"time"
)

// Ticker calls a function once per interval until stopped. The zero value
// and a nil *Ticker are stopped.
type Ticker struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartTicker calls fn with the tick time every interval.
func StartTicker(interval time.Duration, fn func(time.Time)) *Ticker {
	t := &Ticker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-tk.C:
				select {
				case <-t.stop:
					return
				default:
				}
				fn(now)
			}
		}
	}()
	return t
}

// Stop halts the ticker and waits for a running callback to return. After
// Stop returns fn is not called again. Stop must not be called from fn.
func (t *Ticker) Stop() {
	if t == nil || t.stop == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Done is closed once the ticker has stopped.
func (t *Ticker) Done() <-chan struct{} {
	if t == nil || t.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return t.done
}
