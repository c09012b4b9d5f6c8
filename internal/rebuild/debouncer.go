package rebuild

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum interval between two rebuilds for one key.
const DefaultCooldown = 10 * time.Second

// DefaultMaxEntries is the registry size above which stale keys are swept.
const DefaultMaxEntries = 10000

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// ChangeKey scopes a cooldown to one entity of one source.
func ChangeKey(source, entityID string) string {
	return source + ":" + entityID
}

// Debouncer decides whether a change should trigger a rebuild. It remembers
// when each change key last fired and suppresses repeats inside the cooldown.
//
// The window slides from the last dispatched change and is exclusive at the
// boundary: a change exactly cooldown after the previous dispatch fires.
//
// Entries older than the cooldown cannot suppress anything, so once the
// registry grows past maxEntries every insert sweeps them out. Entries inside
// their window are never evicted.
type Debouncer struct {
	mu         sync.Mutex
	lastFired  map[string]time.Time
	cooldown   time.Duration
	maxEntries int
}

// NewDebouncer creates a Debouncer. Non-positive arguments fall back to the
// defaults.
func NewDebouncer(cooldown time.Duration, maxEntries int) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Debouncer{
		lastFired:  make(map[string]time.Time),
		cooldown:   cooldown,
		maxEntries: maxEntries,
	}
}

// Cooldown returns the configured window.
func (d *Debouncer) Cooldown() time.Duration {
	return d.cooldown
}

// ShouldDispatch reports whether a change to (source, entityID) at now should
// fire. When it returns true, now is recorded for the key.
func (d *Debouncer) ShouldDispatch(source, entityID string, now time.Time) bool {
	key := ChangeKey(source, entityID)

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.lastFired[key]; ok && now.Sub(prev) < d.cooldown {
		return false
	}

	d.lastFired[key] = now
	if len(d.lastFired) > d.maxEntries {
		d.sweepLocked(now)
	}
	return true
}

// Sweep drops every entry whose cooldown has elapsed at now and returns the
// number removed.
func (d *Debouncer) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sweepLocked(now)
}

func (d *Debouncer) sweepLocked(now time.Time) int {
	removed := 0
	for key, at := range d.lastFired {
		if now.Sub(at) >= d.cooldown {
			delete(d.lastFired, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastFired)
}
