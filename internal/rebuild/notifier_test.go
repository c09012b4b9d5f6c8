package rebuild

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanbastic/go-rebuilder/internal/content"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// hookRecorder is a deploy hook that remembers every payload it received.
type hookRecorder struct {
	mu       sync.Mutex
	payloads []HookPayload
}

func (h *hookRecorder) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var p HookPayload
	_ = json.Unmarshal(body, &p)
	h.mu.Lock()
	h.payloads = append(h.payloads, p)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *hookRecorder) received() []HookPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HookPayload(nil), h.payloads...)
}

func newTestNotifier(t *testing.T) (*Notifier, *hookRecorder, *fakeClock) {
	t.Helper()
	rec := &hookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: epoch}
	logger := slog.New(slog.DiscardHandler)
	n := NewNotifier(
		NewDebouncer(10*time.Second, 0),
		NewDispatcher(DispatcherConfig{HookURL: srv.URL}, logger),
		clock,
		logger,
	)
	return n, rec, clock
}

func TestNotifier_RapidEditsCoalesce(t *testing.T) {
	n, rec, clock := newTestNotifier(t)
	ctx := context.Background()

	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))
	clock.Set(at(4000))
	assert.False(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))
	clock.Set(at(9999))
	assert.False(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))
	clock.Set(at(10000))
	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))

	got := rec.received()
	require.Len(t, got, 2)
	assert.Equal(t, "2025-12-11T15:23:17.000Z", got[0].Timestamp)
	assert.Equal(t, "2025-12-11T15:23:27.000Z", got[1].Timestamp)
}

func TestNotifier_DistinctEntitiesBothFire(t *testing.T) {
	n, rec, _ := newTestNotifier(t)
	ctx := context.Background()

	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationCreated, "42"))
	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationCreated, "43"))
	assert.True(t, n.OnContentChanged(ctx, "resources", content.OperationCreated, "42"))

	got := rec.received()
	require.Len(t, got, 3)
	assert.Equal(t, HookPayload{
		Source:    "events",
		Operation: "created",
		EntityID:  "42",
		Timestamp: "2025-12-11T15:23:17.000Z",
	}, got[0])
	assert.Equal(t, "43", got[1].EntityID)
	assert.Equal(t, "resources", got[2].Source)
}

func TestNotifier_DocumentChangedUsesFallbackChain(t *testing.T) {
	n, rec, clock := newTestNotifier(t)
	ctx := context.Background()

	id := uuid.MustParse("7f0c4d2e-4a3b-4c1d-9e8f-0123456789ab")
	assert.True(t, n.DocumentChanged(ctx, &content.Document{ID: id, Collection: "events", Slug: "gala"}, content.OperationDeleted))

	clock.Set(at(1))
	assert.True(t, n.DocumentChanged(ctx, &content.Document{Collection: "bylaws", Slug: "article-1"}, content.OperationCreated))

	clock.Set(at(2))
	assert.True(t, n.DocumentChanged(ctx, &content.Document{Collection: "resources"}, content.OperationCreated))

	got := rec.received()
	require.Len(t, got, 3)
	assert.Equal(t, id.String(), got[0].EntityID)
	assert.Equal(t, "deleted", got[0].Operation)
	assert.Equal(t, "article-1", got[1].EntityID)
	assert.Equal(t, content.UnknownEntityID, got[2].EntityID)
}

func TestNotifier_GlobalChanged(t *testing.T) {
	n, rec, clock := newTestNotifier(t)
	ctx := context.Background()

	assert.True(t, n.GlobalChanged(ctx, "site-settings"))
	clock.Set(at(2000))
	assert.False(t, n.GlobalChanged(ctx, "site-settings"))

	got := rec.received()
	require.Len(t, got, 1)
	assert.Equal(t, HookPayload{
		Source:    "site-settings",
		Operation: "updated",
		EntityID:  "global",
		Timestamp: "2025-12-11T15:23:17.000Z",
	}, got[0])
}

func TestNotifier_TriggerBypassesCooldown(t *testing.T) {
	n, rec, clock := newTestNotifier(t)
	ctx := context.Background()

	require.True(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))
	clock.Set(at(1000))
	n.Trigger(ctx, "events", "42")
	n.Trigger(ctx, "events", "42")

	// Manual triggers do not reset the window.
	clock.Set(at(10000))
	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationUpdated, "42"))

	assert.Len(t, rec.received(), 4)
}

func TestNotifier_Nil(t *testing.T) {
	var n *Notifier
	ctx := context.Background()

	assert.False(t, n.OnContentChanged(ctx, "events", content.OperationCreated, "42"))
	assert.False(t, n.DocumentChanged(ctx, &content.Document{Collection: "events"}, content.OperationCreated))
	assert.False(t, n.GlobalChanged(ctx, "site-settings"))
	assert.NotPanics(t, func() { n.Trigger(ctx, "events", "42") })
	assert.False(t, n.Enabled())
	assert.Equal(t, TransportDisabled, n.Transport())
}

func TestNotifier_DisabledStillDebounces(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	n := NewNotifier(NewDebouncer(0, 0), NewDispatcher(DispatcherConfig{}, logger), &fakeClock{now: epoch}, logger)
	ctx := context.Background()

	assert.False(t, n.Enabled())
	assert.True(t, n.OnContentChanged(ctx, "events", content.OperationCreated, "42"))
	assert.False(t, n.OnContentChanged(ctx, "events", content.OperationCreated, "42"))
}
