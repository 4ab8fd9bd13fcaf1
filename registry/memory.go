package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps requests in a map guarded by a single mutex.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*types.PaymentRequest
	// settledBy maps a settlement's TxKey to the request it settled.
	settledBy map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]*types.PaymentRequest),
		settledBy: make(map[string]string),
	}
}

func (m *MemoryStore) Insert(_ context.Context, req *types.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[req.ID]; exists {
		return fmt.Errorf("payment request %s already exists", req.ID)
	}
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*types.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, types.NewError(types.ErrCodeNotFound, "payment request not found: %s", id)
	}
	return req.Clone(), nil
}

func (m *MemoryStore) Transition(
	_ context.Context,
	id string,
	from, to types.Status,
	settlement *types.Settlement,
	at time.Time,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return false, types.NewError(types.ErrCodeNotFound, "payment request not found: %s", id)
	}
	if req.Status != from {
		return false, nil
	}

	var key string
	if to == types.StatusSettled && settlement != nil {
		key = settlement.TxKey()
		if owner, used := m.settledBy[key]; used && owner != id {
			return false, types.NewTxReusedError(settlement, owner)
		}
	}

	req.Status = to
	req.UpdatedAt = at
	if to == types.StatusSettled {
		req.Settlement = settlement.Clone()
		if key != "" {
			m.settledBy[key] = id
		}
	}
	return true, nil
}

func (m *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, req := range m.requests {
		if req.Status == types.StatusPending && req.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryStore) PurgeTerminal(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, req := range m.requests {
		if req.Status.IsTerminal() && req.UpdatedAt.Before(cutoff) {
			if req.Settlement != nil {
				delete(m.settledBy, req.Settlement.TxKey())
			}
			delete(m.requests, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
