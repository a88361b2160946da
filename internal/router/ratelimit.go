package router

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// providerLimiter token-bucket-limits outbound calls per provider ID,
// independent of the retry/cooldown machinery: cooldowns react to
// failures already observed, this caps steady-state call rate so a
// provider that just came off cooldown isn't immediately hammered.
type providerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newProviderLimiter(rps float64, burst int) *providerLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &providerLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      limit,
		burst:    burst,
	}
}

func (p *providerLimiter) limiterFor(providerID string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[providerID]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[providerID] = l
	}
	return l
}

// wait blocks until providerID's bucket admits one call, or ctx is done.
func (p *providerLimiter) wait(ctx context.Context, providerID string) error {
	return p.limiterFor(providerID).Wait(ctx)
}
