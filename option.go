package plasmapay

import (
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/clients"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/settlement"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/watcher"
)

type Option func(*PlasmaPay)

func WithLogger(l logger.Logger) Option {
	return func(p *PlasmaPay) {
		p.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *PlasmaPay) {
		p.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(p *PlasmaPay) {
		p.timeout = t
	}
}

// WithStore replaces the store chosen from the config.
func WithStore(s registry.Store) Option {
	return func(p *PlasmaPay) {
		p.store = s
	}
}

func WithNotifier(n registry.Notifier) Option {
	return func(p *PlasmaPay) {
		p.notifier = n
	}
}

// WithClock drives request timestamps, expiry and watch sessions from c.
func WithClock(c watcher.Clock) Option {
	return func(p *PlasmaPay) {
		p.clock = c
	}
}

// WithBackend uses b for chainID instead of dialing the configured RPC URL.
func WithBackend(chainID int64, b clients.Backend) Option {
	return func(p *PlasmaPay) {
		if p.backends == nil {
			p.backends = make(map[int64]clients.Backend)
		}
		p.backends[chainID] = b
	}
}

// WithConfirmationSource feeds chain-observer confirmations to Run.
func WithConfirmationSource(src settlement.ConfirmationSource) Option {
	return func(p *PlasmaPay) {
		p.source = src
	}
}
