package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DeliversNewMessages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "new"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tmp"), 0o755))

	w, err := NewWatcher(dir, "INBOX", WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// maildir delivery: write to tmp, then move into new
	tmp := filepath.Join(dir, "tmp", "1.M1.host")
	writeMessage(t, tmp, "fresh@example.com", "Fri, 20 Mar 2026 10:00:00 +0000")
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "new", "1.M1.host")))

	select {
	case rec := <-w.Messages():
		assert.Equal(t, "fresh@example.com", rec.MessageID)
		assert.Equal(t, "INBOX", rec.Folder)
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	_, open := <-w.Messages()
	assert.False(t, open)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), "INBOX")
	assert.Error(t, err)
}
