package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/daybrief/daybrief/internal/store"
)

// HealthChecker is implemented by component-level checkers (store, providers).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// StoreChecker pings the credential store on an interval and caches the result.
type StoreChecker struct {
	pinger  store.HealthPinger
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewStoreChecker(p store.HealthPinger, log zerolog.Logger) *StoreChecker {
	c := &StoreChecker{pinger: p, log: log}
	c.healthy.Store(0)
	return c
}

func (c *StoreChecker) Name() string    { return "store" }
func (c *StoreChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

func (c *StoreChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := c.pinger.HealthPing(pctx); err != nil {
			if c.healthy.Swap(0) == 1 {
				c.log.Error().Err(err).Msg("store health: DOWN")
			}
			return
		}
		if c.healthy.Swap(1) == 0 {
			c.log.Info().Msg("store health: UP")
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// ServiceHealthChecker aggregates component checkers into a single service flag.
type ServiceHealthChecker struct {
	healthy atomic.Int32
	deps    []HealthChecker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	h := &ServiceHealthChecker{deps: deps, log: log}
	h.healthy.Store(0)
	return h
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Start periodically evaluates dependency health and updates the service flag.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(0)
	eval := func() {
		all := true
		for _, c := range h.deps {
			if !c.IsHealthy() {
				all = false
			}
		}
		if all {
			h.healthy.Store(1)
		} else {
			h.healthy.Store(0)
		}
		cur := h.healthy.Load()
		if cur != prev {
			if cur == 1 {
				h.log.Info().Msg("service health: UP")
			} else {
				h.log.Error().Msg("service health: DOWN")
			}
			prev = cur
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
