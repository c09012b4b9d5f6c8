package geocode

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces successive calls at least interval apart. It is the rate
// limit public geocoders ask of their clients, and is shared by every
// caller that talks to the same upstream.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewPacer creates a Pacer. A non-positive interval uses DefaultInterval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval returns the minimum spacing between calls.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the caller may issue its request. The first call
// returns immediately. Callers are served one at a time; a canceled ctx
// returns its error without consuming a slot.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if d := p.interval - p.now().Sub(p.last); d > 0 {
			if err := p.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.last = p.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
