package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

const doc = `𝔸5.1.Watched@2026-01-25
⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ T≜ℕ }
⟦Γ:Rules⟧{ ∀x:T:x≥0 }
⟦Λ:Funcs⟧{ f≜λx.x }
⟦Ε⟧⟨δ≜1.0⟩
`

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	cfg := config.Default()
	cfg.SMT.Enabled = false
	v, err := validator.New(cfg)
	require.NoError(t, err)
	return v
}

func next(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestWatcher_InitialChangeDelete(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doc.aisp")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.log"), []byte("x"), 0o644))

	cfg := DefaultWatcherConfig(root)
	cfg.Debounce = 20 * time.Millisecond
	w, err := NewWatcher(cfg, newValidator(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	ev := next(t, w)
	assert.Equal(t, OpInitial, ev.Operation)
	assert.Equal(t, path, ev.Path)
	require.NoError(t, ev.Err)
	assert.True(t, ev.Result.Valid)

	broken := []byte("𝔸5.1.Watched@2026-01-25\n⟦Ω:Meta⟧{ domain≜test }\n")
	require.NoError(t, os.WriteFile(path, broken, 0o644))
	ev = next(t, w)
	assert.Equal(t, OpChange, ev.Operation)
	require.NotNil(t, ev.Result)
	assert.False(t, ev.Result.Valid)

	require.NoError(t, os.Remove(path))
	ev = next(t, w)
	assert.Equal(t, OpDelete, ev.Operation)
	assert.Nil(t, ev.Result)
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultWatcherConfig(root)
	cfg.Debounce = 20 * time.Millisecond
	w, err := NewWatcher(cfg, newValidator(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	sub := filepath.Join(root, "specs")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the loop a tick to register the directory
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(sub, "late.aisp")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	ev := next(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, OpChange, ev.Operation)
}

func TestWatcher_StopClosesEvents(t *testing.T) {
	w, err := NewWatcher(DefaultWatcherConfig(t.TempDir()), newValidator(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestNewWatcher_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.aisp")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err := NewWatcher(DefaultWatcherConfig(path), newValidator(t))
	assert.Error(t, err)
}
