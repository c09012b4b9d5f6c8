package geocode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// virtualTime drives a Pacer without real sleeping.
type virtualTime struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (v *virtualTime) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *virtualTime) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)
}

func (v *virtualTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	v.sleeps = append(v.sleeps, d)
	v.now = v.now.Add(d)
	v.mu.Unlock()
	return nil
}

func newVirtualPacer(interval time.Duration) (*Pacer, *virtualTime) {
	vt := &virtualTime{now: time.Date(2025, 12, 11, 15, 23, 17, 0, time.UTC)}
	p := NewPacer(interval)
	p.now = vt.Now
	p.sleep = vt.Sleep
	return p, vt
}

func TestPacer_FirstCallDoesNotWait(t *testing.T) {
	p, vt := newVirtualPacer(time.Second)

	require.NoError(t, p.Wait(context.Background()))
	assert.Empty(t, vt.sleeps)
}

func TestPacer_SpacesSuccessiveCalls(t *testing.T) {
	p, vt := newVirtualPacer(time.Second)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	vt.Advance(300 * time.Millisecond)
	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, []time.Duration{700 * time.Millisecond, time.Second}, vt.sleeps)
}

func TestPacer_NoWaitAfterIdle(t *testing.T) {
	p, vt := newVirtualPacer(time.Second)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	vt.Advance(5 * time.Second)
	require.NoError(t, p.Wait(ctx))

	assert.Empty(t, vt.sleeps)
}

func TestPacer_CanceledContext(t *testing.T) {
	p, vt := newVirtualPacer(time.Second)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)

	// The canceled caller did not take the slot.
	vt.Advance(time.Second)
	require.NoError(t, p.Wait(context.Background()))
	assert.Empty(t, vt.sleeps)
}

func TestPacer_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewPacer(0).Interval())
}

func TestPacer_RealClock(t *testing.T) {
	p := NewPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPacer_RealSleepHonorsCancel(t *testing.T) {
	p := NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}
