package registry

import (
	"context"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

// Store defines the persistence contract for payment requests.
// Implementations must make Transition an atomic compare-and-swap on status:
// of two concurrent transitions from the same status, exactly one succeeds.
type Store interface {
	// Insert persists a new request. Reusing an existing id is an error.
	Insert(ctx context.Context, req *types.PaymentRequest) error

	// Get returns a copy of the request, or an error matching
	// types.ErrNotFound.
	Get(ctx context.Context, id string) (*types.PaymentRequest, error)

	// Transition moves id from status from to status to, recording
	// settlement when to is StatusSettled. It returns false without error
	// when the current status is not from. A settlement whose transfer
	// (chain id and case-insensitive tx hash) already settled another
	// request fails with an error matching types.ErrAlreadySettled.
	Transition(ctx context.Context, id string, from, to types.Status, settlement *types.Settlement, at time.Time) (bool, error)

	// ListExpired returns ids of pending requests whose expiry is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)

	// PurgeTerminal deletes terminal requests last updated before cutoff and
	// returns how many were removed.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
