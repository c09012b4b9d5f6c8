package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanbastic/go-rebuilder/internal/rebuild"
)

type hookServer struct {
	mu       sync.Mutex
	payloads []rebuild.HookPayload
	auth     []string
}

func newHookServer(t *testing.T) (*hookServer, string) {
	t.Helper()
	h := &hookServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p rebuild.HookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		h.mu.Lock()
		h.payloads = append(h.payloads, p)
		h.auth = append(h.auth, r.Header.Get("Authorization"))
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return h, srv.URL
}

func (h *hookServer) received() []rebuild.HookPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]rebuild.HookPayload(nil), h.payloads...)
}

func TestTrigger_SendsOneHook(t *testing.T) {
	isolateEnv(t)
	hooks, url := newHookServer(t)
	t.Setenv("REBUILD_HOOK_URL", url)
	t.Setenv("REBUILD_HOOK_TOKEN", "s3cret")

	stdout, _, err := execute(t, "trigger", "events", "42")
	require.NoError(t, err)

	got := hooks.received()
	require.Len(t, got, 1)
	assert.Equal(t, "events", got[0].Source)
	assert.Equal(t, "updated", got[0].Operation)
	assert.Equal(t, "42", got[0].EntityID)
	assert.Equal(t, "Bearer s3cret", hooks.auth[0])

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "trigger_output", []byte(stdout))
}

func TestTrigger_DefaultsEntityToManual(t *testing.T) {
	isolateEnv(t)
	hooks, url := newHookServer(t)
	t.Setenv("REBUILD_HOOK_URL", url)

	_, _, err := execute(t, "trigger", "site-settings")
	require.NoError(t, err)

	got := hooks.received()
	require.Len(t, got, 1)
	assert.Equal(t, "site-settings", got[0].Source)
	assert.Equal(t, "manual", got[0].EntityID)
}

func TestTrigger_RepeatedCallsAreNotDebounced(t *testing.T) {
	isolateEnv(t)
	hooks, url := newHookServer(t)
	t.Setenv("REBUILD_HOOK_URL", url)

	for i := 0; i < 2; i++ {
		_, _, err := execute(t, "trigger", "events", "42")
		require.NoError(t, err)
	}
	assert.Len(t, hooks.received(), 2)
}

func TestTrigger_UnknownSource(t *testing.T) {
	isolateEnv(t)
	hooks, url := newHookServer(t)
	t.Setenv("REBUILD_HOOK_URL", url)

	_, _, err := execute(t, "trigger", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, hooks.received())
}

func TestTrigger_NotConfigured(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "trigger", "events")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not configured")
}

func TestTrigger_RequiresSource(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "trigger")
	assert.Error(t, err)
}
