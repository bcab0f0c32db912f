package notification

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-scheduler/pkg/circuitbreaker"
)

// Messenger delivers one message. The dispatcher never inspects delivery
// receipts; an error only feeds logs and metrics.
type Messenger interface {
	Send(ctx context.Context, address, text string) error
}

type GuardConfig struct {
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	Breaker       circuitbreaker.Settings
}

// GuardedMessenger throttles sends and stops calling a failing transport
// until its breaker half-opens.
type GuardedMessenger struct {
	next    Messenger
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuardedMessenger(next Messenger, cfg GuardConfig) *GuardedMessenger {
	g := &GuardedMessenger{
		next:    next,
		breaker: circuitbreaker.NewCircuitBreaker(cfg.Breaker),
		timeout: cfg.Timeout,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return g
}

func (g *GuardedMessenger) Send(ctx context.Context, address, text string) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.breaker.Execute(func() error {
		return g.next.Send(ctx, address, text)
	})
}
