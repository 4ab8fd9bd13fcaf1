// Package registry is the authoritative store of payment requests. It owns
// every status transition; each one is a compare-and-swap on the current
// status, so settlement confirmation, cancellation and the expiry sweep can
// race on a record and exactly one of them wins.
package registry

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

// TokenCatalog resolves token metadata for a chain.
type TokenCatalog interface {
	Lookup(ctx context.Context, chainID int64, token string) (*types.TokenInfo, error)
}

// Notifier delivers push notifications to the payer or payee.
type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

// CreateParams carries the payee's input for a new request.
type CreateParams struct {
	PayeeAddress string
	ChainID      int64
	Token        string
	Amount       string // human decimal, e.g. "10.50"
	Decimals     *uint8 // optional; must agree with the catalog when set
	Message      string
	Mode         types.Mode
	PayerHint    string // in-app recipient
}

// Registry creates payment requests and applies their status transitions.
type Registry struct {
	store    Store
	catalog  TokenCatalog
	notifier Notifier
	logger   logger.Logger
	metrics  metrics.Recorder
	qrTTL    time.Duration
	inAppTTL time.Duration
	now      func() time.Time
	newID    func() string

	auditRetention time.Duration
}

type Option func(*Registry)

func WithNotifier(n Notifier) Option {
	return func(r *Registry) {
		r.notifier = n
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithTTL sets the lifetime of new requests for each mode.
func WithTTL(qr, inApp time.Duration) Option {
	return func(r *Registry) {
		if qr > 0 {
			r.qrTTL = qr
		}
		if inApp > 0 {
			r.inAppTTL = inApp
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// WithAuditRetention makes the sweeper purge terminal requests older than d.
// Zero keeps them forever.
func WithAuditRetention(d time.Duration) Option {
	return func(r *Registry) {
		r.auditRetention = d
	}
}

// New creates a Registry on store, resolving tokens through catalog.
func New(store Store, catalog TokenCatalog, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		catalog:  catalog,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		qrTTL:    types.DefaultQRTTL,
		inAppTTL: types.DefaultInAppTTL,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates the input, normalizes the amount and stores a new
// pending request.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*types.PaymentRequest, error) {
	start := r.now()

	payee, err := utils.ValidateAddress(p.PayeeAddress)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "invalid payee address: %v", err)
	}
	if !p.Mode.Valid() {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "unsupported mode %q", p.Mode)
	}
	if p.ChainID <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidToken, "chain id must be positive")
	}

	token, err := utils.NormalizeToken(p.Token)
	if err != nil {
		return nil, err
	}

	info, err := r.catalog.Lookup(ctx, p.ChainID, token)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewError(types.ErrCodeInvalidToken,
			"token %s is not resolvable on chain %d: %v", token, p.ChainID, err)
	}
	if p.Decimals != nil && *p.Decimals != info.Decimals {
		return nil, types.NewError(types.ErrCodeInvalidToken,
			"token %s has %d decimals, request says %d", token, info.Decimals, *p.Decimals)
	}

	amount, err := utils.ToBaseUnits(p.Amount, info.Decimals)
	if err != nil {
		return nil, err
	}

	now := r.now()
	req := &types.PaymentRequest{
		ID:              r.newID(),
		PayeeAddress:    payee,
		ChainID:         p.ChainID,
		TokenAddress:    token,
		Symbol:          info.Symbol,
		Decimals:        info.Decimals,
		AmountBaseUnits: amount,
		Message:         p.Message,
		Mode:            p.Mode,
		Status:          types.StatusPending,
		PayerHint:       p.PayerHint,
		CreatedAt:       now,
		ExpiresAt:       now.Add(r.ttl(p.Mode)),
		UpdatedAt:       now,
	}

	if err := r.store.Insert(ctx, req); err != nil {
		return nil, err
	}

	labels := chainLabels(req.ChainID)
	r.metrics.IncCounter(metrics.EventRequestCreated, labels)
	r.metrics.ObserveLatency("create", r.now().Sub(start), labels)
	r.logger.Info("payment request created", map[string]any{
		"payment_id": req.ID,
		"chain_id":   req.ChainID,
		"token":      req.TokenAddress,
		"amount":     req.AmountBaseUnits.String(),
		"mode":       req.Mode.String(),
	})

	if req.Mode == types.ModeInApp {
		r.notify(ctx, types.NotificationRequested, req.PayerHint, req)
	}

	return req.Clone(), nil
}

// Get returns the request with id.
func (r *Registry) Get(ctx context.Context, id string) (*types.PaymentRequest, error) {
	return r.store.Get(ctx, id)
}

// Cancel moves a pending request to cancelled.
func (r *Registry) Cancel(ctx context.Context, id string) error {
	ok, err := r.store.Transition(ctx, id, types.StatusPending, types.StatusCancelled, nil, r.now())
	if err != nil {
		return err
	}
	if !ok {
		return r.stateError(ctx, id, "cancel")
	}

	r.metrics.IncCounter(metrics.EventRequestCancelled, nil)
	r.logger.Info("payment request cancelled", map[string]any{"payment_id": id})
	return nil
}

// Expire moves a pending request past its expiry to expired. It is a no-op
// for requests that already reached a terminal state.
func (r *Registry) Expire(ctx context.Context, id string) error {
	req, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		return nil
	}

	now := r.now()
	if !req.IsExpired(now) {
		return types.NewError(types.ErrCodeInvalidState,
			"payment request %s does not expire until %s", id, req.ExpiresAt.Format(time.RFC3339))
	}

	ok, err := r.store.Transition(ctx, id, types.StatusPending, types.StatusExpired, nil, now)
	if err != nil {
		return err
	}
	if ok {
		r.metrics.IncCounter(metrics.EventRequestExpired, chainLabels(req.ChainID))
		r.logger.Info("payment request expired", map[string]any{"payment_id": id})
	}
	return nil
}

// MarkSettled records the settlement of a pending request. Repeating an
// identical settlement is a no-op; a conflicting one fails with
// types.ErrAlreadySettled.
func (r *Registry) MarkSettled(ctx context.Context, id string, s types.Settlement) error {
	if err := r.validateSettlement(&s); err != nil {
		return err
	}

	req, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != types.StatusPending {
		return r.resolveSettled(req, &s)
	}

	if s.ChainID == req.ChainID && types.SameToken(s.Token, req.TokenAddress) &&
		s.AmountBaseUnits.Cmp(req.AmountBaseUnits) < 0 {
		return types.NewError(types.ErrCodeInsufficientAmount,
			"payment request %s wants %s base units, settlement carries %s",
			id, req.AmountBaseUnits, s.AmountBaseUnits)
	}

	now := r.now()
	if s.SettledAt.IsZero() {
		s.SettledAt = now
	}

	ok, err := r.store.Transition(ctx, id, types.StatusPending, types.StatusSettled, &s, now)
	if errors.Is(err, types.ErrAlreadySettled) {
		r.metrics.IncCounter(metrics.EventSettlementAnomaly, chainLabels(s.ChainID))
		r.logger.Error("transaction reused for another payment request", map[string]any{
			"payment_id": id,
			"tx_hash":    s.TxHash,
			"chain_id":   s.ChainID,
			"error":      err.Error(),
		})
		return err
	}
	if err != nil {
		return err
	}
	if !ok {
		// lost the race; judge against whatever won
		cur, err := r.store.Get(ctx, id)
		if err != nil {
			return err
		}
		return r.resolveSettled(cur, &s)
	}

	r.metrics.IncCounter(metrics.EventRequestSettled, chainLabels(s.ChainID))
	r.logger.Info("payment request settled", map[string]any{
		"payment_id": id,
		"tx_hash":    s.TxHash,
		"amount":     s.AmountBaseUnits.String(),
		"token":      s.Token,
		"chain_id":   s.ChainID,
	})

	req.Status = types.StatusSettled
	req.Settlement = s.Clone()
	req.UpdatedAt = now
	r.notify(ctx, types.NotificationSettled, req.PayeeAddress, req)
	return nil
}

// resolveSettled decides the outcome of a settlement against a request that
// is no longer pending.
func (r *Registry) resolveSettled(cur *types.PaymentRequest, s *types.Settlement) error {
	switch cur.Status {
	case types.StatusSettled:
		if cur.Settlement.Equal(s) {
			r.metrics.IncCounter(metrics.EventDuplicateSettle, chainLabels(s.ChainID))
			r.logger.Debug("duplicate settlement ignored", map[string]any{
				"payment_id": cur.ID,
				"tx_hash":    s.TxHash,
			})
			return nil
		}

		r.metrics.IncCounter(metrics.EventSettlementAnomaly, chainLabels(s.ChainID))
		r.logger.Error("conflicting settlement for settled payment request", map[string]any{
			"payment_id":        cur.ID,
			"recorded_tx_hash":  cur.Settlement.TxHash,
			"recorded_amount":   amountString(cur.Settlement.AmountBaseUnits),
			"recorded_token":    cur.Settlement.Token,
			"recorded_chain_id": cur.Settlement.ChainID,
			"tx_hash":           s.TxHash,
			"amount":            amountString(s.AmountBaseUnits),
			"token":             s.Token,
			"chain_id":          s.ChainID,
		})
		return types.NewError(types.ErrCodeAlreadySettled,
			"payment request %s already settled by %s", cur.ID, cur.Settlement.TxHash)

	default:
		return types.NewError(types.ErrCodeInvalidState,
			"payment request %s is %s and cannot be settled", cur.ID, cur.Status)
	}
}

func (r *Registry) validateSettlement(s *types.Settlement) error {
	s.TxHash = strings.TrimSpace(s.TxHash)
	if s.TxHash == "" {
		return types.NewError(types.ErrCodeInvalidPayload, "settlement tx hash is required")
	}
	if s.AmountBaseUnits == nil || s.AmountBaseUnits.Sign() <= 0 {
		return types.NewError(types.ErrCodeInvalidAmount, "settled amount must be positive")
	}
	if s.ChainID <= 0 {
		return types.NewError(types.ErrCodeInvalidPayload, "settled chain id must be positive")
	}

	token, err := utils.NormalizeToken(s.Token)
	if err != nil {
		return err
	}
	s.Token = token
	s.AmountBaseUnits = new(big.Int).Set(s.AmountBaseUnits)
	return nil
}

func (r *Registry) stateError(ctx context.Context, id, op string) error {
	cur, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return types.NewError(types.ErrCodeInvalidState, "cannot %s payment request %s: status is %s", op, id, cur.Status)
}

func (r *Registry) ttl(mode types.Mode) time.Duration {
	if mode == types.ModeInApp {
		return r.inAppTTL
	}
	return r.qrTTL
}

func (r *Registry) notify(ctx context.Context, kind types.NotificationKind, recipient string, req *types.PaymentRequest) {
	if r.notifier == nil || recipient == "" {
		return
	}

	err := r.notifier.Notify(ctx, types.Notification{
		Kind:      kind,
		PaymentID: req.ID,
		Recipient: recipient,
		Request:   req.Clone(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("push notification failed", map[string]any{
			"payment_id": req.ID,
			"kind":       string(kind),
			"error":      err.Error(),
		})
	}
}

func chainLabels(chainID int64) map[string]string {
	return map[string]string{"chain": strconv.FormatInt(chainID, 10)}
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
