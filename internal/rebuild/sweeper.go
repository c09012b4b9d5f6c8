package rebuild

import (
	"context"
	"log/slog"
	"time"

	"github.com/ryanbastic/go-rebuilder/internal/metrics"
)

// RunSweeper drops expired debouncer entries every interval until ctx is
// cancelled. A non-positive interval uses the debouncer's cooldown.
func RunSweeper(ctx context.Context, d *Debouncer, interval time.Duration, clock Clock, logger *slog.Logger) {
	if interval <= 0 {
		interval = d.Cooldown()
	}
	if clock == nil {
		clock = SystemClock
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Sweep(clock.Now()); n > 0 {
				logger.Debug("rebuild registry swept", "removed", n, "remaining", d.Len())
			}
			metrics.SetRegistryEntries(d.Len())
		}
	}
}
