package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affectlab/moodtrace/pkg/stats"
)

func writePolicyFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func waitForChange(t *testing.T, changes <-chan stats.Policy) stats.Policy {
	t.Helper()
	select {
	case p := <-changes:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for policy reload")
		return stats.Policy{}
	}
}

// TestNewMissingFile tests that a provider over a missing file starts from
// the defaults.
func TestNewMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")

	provider, err := New(path, nil)
	require.NoError(t, err)
	defer provider.Stop()

	assert.Equal(t, stats.DefaultPolicy(), provider.Current())
}

// TestNewFromFile tests that an existing file is loaded at construction.
func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicyFile(t, path, "stable_max: 2\nmild_max: 4\nmoderate_max: 6\n")

	provider, err := New(path, nil)
	require.NoError(t, err)
	defer provider.Stop()

	current := provider.Current()
	assert.Equal(t, 2, current.StableMax)
	assert.Equal(t, 4, current.MildMax)
	assert.Equal(t, 6, current.ModerateMax)
}

// TestNewInvalidFile tests that a malformed file fails construction.
func TestNewInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicyFile(t, path, "stable_max: [broken\n")

	_, err := New(path, nil)
	require.Error(t, err)
}

// TestHotReload tests that writing the file swaps the current policy and
// fires the change callback.
func TestHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	changes := make(chan stats.Policy, 4)

	provider, err := New(path, func(p stats.Policy) { changes <- p })
	require.NoError(t, err)
	defer provider.Stop()
	require.NoError(t, provider.Start())

	writePolicyFile(t, path, "stable_max: 0\nmild_max: 1\nmoderate_max: 2\n")

	reloaded := waitForChange(t, changes)
	assert.Equal(t, 0, reloaded.StableMax)
	assert.Equal(t, 1, reloaded.MildMax)
	assert.Equal(t, 2, reloaded.ModerateMax)
	assert.Equal(t, reloaded, provider.Current())
}

// TestReloadInvalidKeepsCurrent tests that a malformed rewrite leaves the
// previous policy in place.
func TestReloadInvalidKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicyFile(t, path, "stable_max: 2\nmild_max: 3\nmoderate_max: 4\n")

	changes := make(chan stats.Policy, 4)
	provider, err := New(path, func(p stats.Policy) { changes <- p })
	require.NoError(t, err)
	defer provider.Stop()
	require.NoError(t, provider.Start())

	before := provider.Current()
	writePolicyFile(t, path, "mild_max: [broken\n")

	select {
	case p := <-changes:
		t.Fatalf("unexpected reload with %+v", p)
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, before, provider.Current())
}

// TestRemoveRevertsToDefaults tests that deleting the file falls back to
// the default policy.
func TestRemoveRevertsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicyFile(t, path, "stable_max: 2\nmild_max: 3\nmoderate_max: 4\n")

	changes := make(chan stats.Policy, 4)
	provider, err := New(path, func(p stats.Policy) { changes <- p })
	require.NoError(t, err)
	defer provider.Stop()
	require.NoError(t, provider.Start())

	require.NoError(t, os.Remove(path))

	reloaded := waitForChange(t, changes)
	assert.Equal(t, stats.DefaultPolicy(), reloaded)
	assert.Equal(t, stats.DefaultPolicy(), provider.Current())
}

// TestStopIdempotent tests repeated Stop calls.
func TestStopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")

	provider, err := New(path, nil)
	require.NoError(t, err)
	require.NoError(t, provider.Start())

	require.NoError(t, provider.Stop())
	require.NoError(t, provider.Stop())
}
