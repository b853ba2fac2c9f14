package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests to the same endpoint by at least interval. A nil Pacer or a zero
// interval never blocks.
type Pacer struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return nil
	}
	return &Pacer{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *Pacer) Wait(ctx context.Context, endpoint string) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	limiter, ok := p.limiters[endpoint]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[endpoint] = limiter
	}
	p.mu.Unlock()

	return limiter.Wait(ctx)
}
