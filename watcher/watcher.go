// Package watcher polls the status of a payment request until it reaches a
// terminal outcome.
//
// A watch session ends in exactly one of Settled, TimedOut or Cancelled and
// fires at most one callback. After Handle.Cancel returns no callback fires,
// including for a status read that was already in flight.
package watcher

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const (
	DefaultInterval         = 5 * time.Second
	DefaultTimeout          = 15 * time.Minute
	DefaultFailureThreshold = 3
)

// StatusReader reads the current state of a payment request.
type StatusReader interface {
	Get(ctx context.Context, id string) (*types.PaymentRequest, error)
}

// Outcome is the state of a watch session.
type Outcome int32

const (
	Watching Outcome = iota
	Settled
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Watching:
		return "watching"
	case Settled:
		return "settled"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Params configures one watch session. Zero values take the package
// defaults.
type Params struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int
	// ReadTimeout bounds one status read; it defaults to Interval.
	ReadTimeout time.Duration

	OnSettled func(req *types.PaymentRequest)
	// OnTimeout receives types.ErrTimeout when the session timed out, or
	// types.ErrInvalidState when the request was cancelled or expired.
	OnTimeout func(err error)
}

type Watcher struct {
	reader  StatusReader
	clock   Clock
	logger  logger.Logger
	metrics metrics.Recorder
}

type Option func(*Watcher)

func WithClock(c Clock) Option {
	return func(w *Watcher) {
		w.clock = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

func New(reader StatusReader, opts ...Option) *Watcher {
	w := &Watcher{
		reader:  reader,
		clock:   RealClock{},
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle controls a running watch session.
type Handle struct {
	id       string
	state    atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
	degraded chan error

	// held while a callback or degraded signal is delivered
	mu sync.Mutex
}

func (h *Handle) ID() string { return h.id }

// IsActive reports whether the session is still watching.
func (h *Handle) IsActive() bool {
	return Outcome(h.state.Load()) == Watching
}

func (h *Handle) Outcome() Outcome {
	return Outcome(h.state.Load())
}

// Done is closed once the polling goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Degraded delivers a types.ErrNetworkDegraded error each time consecutive
// read failures reach the threshold. Polling continues regardless. A
// signal nobody drains is dropped.
func (h *Handle) Degraded() <-chan error {
	return h.degraded
}

// Cancel stops the session. It reports false when the session had already
// ended. It is safe to call from inside a callback.
func (h *Handle) Cancel() bool {
	ok := h.state.CompareAndSwap(int32(Watching), int32(Cancelled))
	h.cancel()
	if ok {
		// wait out a degraded signal being delivered concurrently
		h.mu.Lock()
		h.mu.Unlock()
	}
	return ok
}

// finish moves the session to a terminal outcome and runs fire if this
// call won the transition.
func (h *Handle) finish(o Outcome, fire func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.state.CompareAndSwap(int32(Watching), int32(o)) {
		return false
	}
	if fire != nil {
		fire()
	}
	return true
}

func (h *Handle) signalDegraded(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.IsActive() {
		return false
	}
	select {
	case h.degraded <- err:
	default:
	}
	return true
}

// Watch starts polling id every p.Interval and returns immediately. The
// session also stops when ctx is done, without a callback.
func (w *Watcher) Watch(ctx context.Context, id string, p Params) *Handle {
	p = withDefaults(p)

	wctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       id,
		cancel:   cancel,
		done:     make(chan struct{}),
		degraded: make(chan error, 1),
	}

	ticker := w.clock.NewTicker(p.Interval)
	timeout := w.clock.NewTimer(p.Timeout)

	w.logger.Debug("watch started", map[string]any{
		"payment_id": id,
		"interval":   p.Interval.String(),
		"timeout":    p.Timeout.String(),
	})

	go w.run(wctx, h, p, ticker, timeout)
	return h
}

func (w *Watcher) run(ctx context.Context, h *Handle, p Params, ticker Ticker, timeout Timer) {
	defer close(h.done)
	defer h.cancel()
	defer timeout.Stop()
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			h.finish(Cancelled, nil)
			return

		case <-timeout.C():
			if h.finish(TimedOut, func() {
				if p.OnTimeout != nil {
					p.OnTimeout(types.NewError(types.ErrCodeTimeout,
						"payment request %s not settled within %s", h.id, p.Timeout))
				}
			}) {
				w.metrics.IncCounter(metrics.EventWatchTimedOut, nil)
				w.logger.Info("watch timed out", map[string]any{"payment_id": h.id})
			}
			return

		case <-ticker.C():
			req, err := w.read(ctx, h.id, p.ReadTimeout)
			if !h.IsActive() {
				return
			}

			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				failures++
				w.logger.Warn("status read failed", map[string]any{
					"payment_id": h.id,
					"failures":   failures,
					"error":      err.Error(),
				})
				if failures == p.FailureThreshold {
					degraded := types.NewError(types.ErrCodeNetworkDegraded,
						"%d consecutive status reads failed for %s: %v", failures, h.id, err)
					if h.signalDegraded(degraded) {
						w.metrics.IncCounter(metrics.EventWatchDegraded, nil)
					}
				}
				continue
			}
			failures = 0

			if w.handleStatus(h, p, req) {
				return
			}
		}
	}
}

// handleStatus reports whether req ended the session.
func (w *Watcher) handleStatus(h *Handle, p Params, req *types.PaymentRequest) bool {
	switch req.Status {
	case types.StatusSettled:
		if h.finish(Settled, func() {
			if p.OnSettled != nil {
				p.OnSettled(req)
			}
		}) {
			w.metrics.IncCounter(metrics.EventWatchSettled, map[string]string{
				"chain": strconv.FormatInt(req.ChainID, 10),
			})
			w.logger.Info("watch observed settlement", map[string]any{"payment_id": h.id})
		}
		return true

	case types.StatusCancelled, types.StatusExpired:
		if h.finish(TimedOut, func() {
			if p.OnTimeout != nil {
				p.OnTimeout(types.NewError(types.ErrCodeInvalidState,
					"payment request %s is %s", h.id, req.Status))
			}
		}) {
			w.metrics.IncCounter(metrics.EventWatchTimedOut, nil)
			w.logger.Info("watch ended on terminal status", map[string]any{
				"payment_id": h.id,
				"status":     req.Status.String(),
			})
		}
		return true

	default:
		return false
	}
}

func (w *Watcher) read(ctx context.Context, id string, d time.Duration) (*types.PaymentRequest, error) {
	rctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return w.reader.Get(rctx, id)
}

func withDefaults(p Params) Params {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = DefaultFailureThreshold
	}
	if p.ReadTimeout <= 0 {
		p.ReadTimeout = p.Interval
	}
	return p
}
