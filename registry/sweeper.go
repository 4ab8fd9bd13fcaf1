package registry

import (
	"context"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const sweepBatchSize = 500

// SweepExpired expires every pending request whose TTL has lapsed and
// returns how many it moved. Requests settled or cancelled concurrently
// are skipped.
func (r *Registry) SweepExpired(ctx context.Context) (int, error) {
	expired := 0
	for {
		now := r.now()
		ids, err := r.store.ListExpired(ctx, now, sweepBatchSize)
		if err != nil {
			return expired, err
		}

		moved := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return expired, err
			}
			ok, err := r.store.Transition(ctx, id, types.StatusPending, types.StatusExpired, nil, now)
			if err != nil {
				return expired, err
			}
			if ok {
				moved++
				r.metrics.IncCounter(metrics.EventRequestExpired, nil)
			}
		}
		expired += moved

		if len(ids) < sweepBatchSize || moved == 0 {
			break
		}
	}

	if expired > 0 {
		r.logger.Info("expired payment requests swept", map[string]any{"count": expired})
	}
	return expired, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done. With an
// audit retention configured it also purges old terminal requests.
func (r *Registry) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = types.DefaultSweepInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Registry) sweepOnce(ctx context.Context) {
	if _, err := r.SweepExpired(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("expiry sweep failed", map[string]any{"error": err.Error()})
	}

	if r.auditRetention <= 0 {
		return
	}
	purged, err := r.store.PurgeTerminal(ctx, r.now().Add(-r.auditRetention))
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("purge of terminal requests failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if purged > 0 {
		r.logger.Info("terminal payment requests purged", map[string]any{"count": purged})
	}
}
