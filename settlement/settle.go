// Package settlement feeds observed on-chain settlements into the registry.
package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const (
	DefaultTimeout = 30 * time.Second
	// MaxBatch bounds how many queued confirmations Run applies at once.
	MaxBatch = 32
)

// Settler records settlements. *registry.Registry implements it.
type Settler interface {
	Get(ctx context.Context, id string) (*types.PaymentRequest, error)
	MarkSettled(ctx context.Context, id string, s types.Settlement) error
}

// TxVerifier checks a transaction on chain. *clients.MultiChain implements it.
type TxVerifier interface {
	VerifyTransfer(ctx context.Context, chainID int64, txHash, payee, token string) (*types.Settlement, error)
}

// Confirmation is an observed transfer that settles PaymentID.
type Confirmation struct {
	PaymentID  string
	Settlement types.Settlement
}

// ConfirmationSource delivers confirmations from a chain observer. The
// channel is closed when the source stops.
type ConfirmationSource interface {
	Confirmations(ctx context.Context) <-chan Confirmation
}

// Confirmer applies confirmations to the registry.
type Confirmer struct {
	settler  Settler
	verifier TxVerifier
	timeout  time.Duration
	logger   logger.Logger
	metrics  metrics.Recorder
}

type Option func(*Confirmer)

func WithTimeout(d time.Duration) Option {
	return func(c *Confirmer) {
		c.timeout = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Confirmer) {
		c.logger = l
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Confirmer) {
		c.metrics = m
	}
}

// NewConfirmer creates a Confirmer. verifier may be nil when no chain
// clients are configured; Confirm then fails.
func NewConfirmer(settler Settler, verifier TxVerifier, opts ...Option) *Confirmer {
	c := &Confirmer{
		settler:  settler,
		verifier: verifier,
		timeout:  DefaultTimeout,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm verifies a payer-reported transaction against the chain and
// settles id with what it actually paid. Only transfers on the requested
// chain are accepted here; other settlements arrive through a source.
func (c *Confirmer) Confirm(ctx context.Context, id string, chainID int64, txHash string) (*types.PaymentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.settler.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == types.StatusSettled && req.Settlement != nil && strings.EqualFold(req.Settlement.TxHash, txHash) {
		return req, nil
	}
	if req.Status != types.StatusPending {
		return nil, types.NewError(types.ErrCodeInvalidState, "payment request %s is %s", id, req.Status)
	}
	if chainID != req.ChainID {
		return nil, types.NewError(types.ErrCodeInvalidPayload,
			"payment request %s expects a transfer on chain %d, got %d", id, req.ChainID, chainID)
	}
	if c.verifier == nil {
		return nil, types.NewError(types.ErrCodeConfigError, "no chain client configured for chain %d", chainID)
	}

	settled, err := c.verifier.VerifyTransfer(ctx, chainID, txHash, req.PayeeAddress, req.TokenAddress)
	if err != nil {
		c.reject(id, txHash, err)
		return nil, err
	}

	if err := c.apply(ctx, Confirmation{PaymentID: id, Settlement: *settled}); err != nil {
		return nil, err
	}
	return c.settler.Get(ctx, id)
}

// Run applies confirmations from src until ctx is done or src closes.
// Confirmations already queued on the source are applied together as one
// batch. Rejected confirmations are logged and do not stop the loop.
func (c *Confirmer) Run(ctx context.Context, src ConfirmationSource) error {
	ch := src.Confirmations(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case conf, ok := <-ch:
			if !ok {
				return nil
			}
			batch, open := drain(ch, conf)
			if _, err := c.ConfirmBatch(ctx, batch); err != nil {
				return err
			}
			if !open {
				return nil
			}
		}
	}
}

// drain collects up to MaxBatch confirmations that are ready without
// blocking. open is false once ch has been closed.
func drain(ch <-chan Confirmation, first Confirmation) (batch []Confirmation, open bool) {
	batch = append(batch, first)
	for len(batch) < MaxBatch {
		select {
		case conf, ok := <-ch:
			if !ok {
				return batch, false
			}
			batch = append(batch, conf)
		default:
			return batch, true
		}
	}
	return batch, true
}

// ConfirmBatch applies confirmations concurrently and returns one error
// slot per input.
func (c *Confirmer) ConfirmBatch(ctx context.Context, confs []Confirmation) ([]error, error) {
	results := make([]error, len(confs))

	type applyResult struct {
		index int
		err   error
	}
	resultChan := make(chan applyResult, len(confs))

	for i, conf := range confs {
		go func(index int, conf Confirmation) {
			applyCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			resultChan <- applyResult{index: index, err: c.apply(applyCtx, conf)}
		}(i, conf)
	}

	for i := 0; i < len(confs); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			results[res.index] = res.err
		}
	}
	return results, nil
}

func (c *Confirmer) apply(ctx context.Context, conf Confirmation) error {
	err := c.settler.MarkSettled(ctx, conf.PaymentID, conf.Settlement)
	if err == nil {
		return nil
	}

	// the registry logs conflicting settlements itself
	if !errors.Is(err, types.ErrAlreadySettled) {
		c.reject(conf.PaymentID, conf.Settlement.TxHash, err)
	}
	return err
}

func (c *Confirmer) reject(id, txHash string, err error) {
	c.metrics.IncCounter(metrics.EventConfirmRejected, map[string]string{"reason": reasonOf(err)})
	c.logger.Warn("settlement confirmation rejected", map[string]any{
		"payment_id": id,
		"tx_hash":    txHash,
		"error":      err.Error(),
	})
}

func reasonOf(err error) string {
	var pe *types.PaymentError
	if errors.As(err, &pe) {
		if reason, ok := pe.Data.(string); ok && reason != "" {
			return reason
		}
		return strings.ToLower(pe.Code)
	}
	return "error"
}

// ChannelSource is a ConfirmationSource fed by Publish.
type ChannelSource struct {
	ch chan Confirmation
}

func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan Confirmation, buffer)}
}

func (s *ChannelSource) Confirmations(context.Context) <-chan Confirmation {
	return s.ch
}

// Publish hands conf to the consumer, blocking while the buffer is full.
func (s *ChannelSource) Publish(ctx context.Context, conf Confirmation) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- conf:
		return nil
	}
}

// Close ends the stream. Publish must not be called afterwards.
func (s *ChannelSource) Close() {
	close(s.ch)
}
