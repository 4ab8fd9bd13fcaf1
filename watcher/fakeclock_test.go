package watcher

import (
	"sync"
	"time"
)

// fakeClock only moves on Advance. Ticks and timer fires are delivered with
// blocking sends, so Advance returns once the watch loop has taken every
// event that fell due.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{
		c:       make(chan time.Time),
		period:  d,
		next:    c.now.Add(d),
		stopped: make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{
		c:       make(chan time.Time),
		at:      c.now.Add(d),
		stopped: make(chan struct{}),
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due events in time order.
// Ticks win ties with timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var (
			at      time.Time
			ticker  *fakeTicker
			timer   *fakeTimer
			pending bool
		)
		for _, t := range c.tickers {
			if t.isStopped() || t.next.After(target) {
				continue
			}
			if !pending || t.next.Before(at) {
				at, ticker, pending = t.next, t, true
			}
		}
		for _, t := range c.timers {
			if t.fired || t.isStopped() || t.at.After(target) {
				continue
			}
			if !pending || t.at.Before(at) {
				at, ticker, timer, pending = t.at, nil, t, true
			}
		}
		if !pending {
			c.now = target
			c.mu.Unlock()
			return
		}

		c.now = at
		if ticker != nil {
			ticker.next = ticker.next.Add(ticker.period)
		} else {
			timer.fired = true
		}
		c.mu.Unlock()

		if ticker != nil {
			select {
			case ticker.c <- at:
			case <-ticker.stopped:
			}
		} else {
			select {
			case timer.c <- at:
			case <-timer.stopped:
			}
		}
	}
}

type fakeTicker struct {
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

type fakeTimer struct {
	c       chan time.Time
	at      time.Time
	fired   bool
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stopped)
		stopped = true
	})
	return stopped
}

func (t *fakeTimer) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
