package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/workflow"
)

// clockModel owns the one ticker of the task detail view. The ticker runs
// only while the last snapshot says a session is active.
type clockModel struct {
	interval time.Duration
	now      func() time.Time

	ticker *workflow.Ticker
	ticks  chan time.Time
	gen    int
	last   time.Time
}

type clockTickMsg struct {
	gen int
	at  time.Time
}

func newClockModel(interval time.Duration) clockModel {
	if interval <= 0 {
		interval = time.Second
	}
	return clockModel{interval: interval, now: time.Now}
}

func (c clockModel) running() bool { return c.ticker != nil }

// sync starts or stops the ticker to match st.
func (c clockModel) sync(st *model.TrackingStatus) (clockModel, tea.Cmd) {
	c.last = c.now()
	active := st != nil && st.IsTrackingActive
	switch {
	case active && c.ticker == nil:
		return c.start()
	case !active && c.ticker != nil:
		c = c.stop()
	}
	return c, nil
}

func (c clockModel) start() (clockModel, tea.Cmd) {
	c.gen++
	ticks := make(chan time.Time, 1)
	c.ticks = ticks
	c.ticker = workflow.StartTicker(c.interval, func(t time.Time) {
		select {
		case ticks <- t:
		default:
		}
	})
	return c, c.wait()
}

// stop halts the ticker. Ticks already queued are ignored by generation.
func (c clockModel) stop() clockModel {
	c.ticker.Stop()
	c.ticker = nil
	c.ticks = nil
	c.gen++
	return c
}

func (c clockModel) wait() tea.Cmd {
	ticker, ticks, gen := c.ticker, c.ticks, c.gen
	return func() tea.Msg {
		select {
		case t := <-ticks:
			return clockTickMsg{gen: gen, at: t}
		case <-ticker.Done():
			return nil
		}
	}
}

func (c clockModel) update(msg clockTickMsg) (clockModel, tea.Cmd) {
	if msg.gen != c.gen || c.ticker == nil {
		return c, nil
	}
	c.last = c.now()
	return c, c.wait()
}

// elapsed is the value shown for st at the last tick.
func (c clockModel) elapsed(st *model.TrackingStatus) int64 {
	at := c.last
	if at.IsZero() {
		at = c.now()
	}
	return workflow.LiveElapsedSeconds(st, at)
}
