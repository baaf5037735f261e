package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/source"
)

func writeMessage(t *testing.T, path, id, date string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	raw := fmt.Sprintf("Message-Id: <%s>\r\nSubject: %s\r\nFrom: alice@example.com\r\nDate: %s\r\n\r\nbody\r\n", id, id, date)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
}

func newMaildir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeMessage(t, filepath.Join(dir, "new", "1700000001.M1.host"), "new@example.com", "Fri, 20 Mar 2026 10:00:00 +0000")
	writeMessage(t, filepath.Join(dir, "cur", "1700000000.M1.host:2,FS"), "cur@example.com", "Thu, 19 Mar 2026 10:00:00 +0000")
	writeMessage(t, filepath.Join(dir, "tmp", "1700000002.M1.host"), "tmp@example.com", "Fri, 20 Mar 2026 11:00:00 +0000")
	writeMessage(t, filepath.Join(dir, "export.eml"), "eml@example.com", "Wed, 18 Mar 2026 10:00:00 +0000")
	writeMessage(t, filepath.Join(dir, "new", ".hidden"), "hidden@example.com", "Wed, 18 Mar 2026 10:00:00 +0000")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not mail"), 0o644))
	return dir
}

func TestImporter_FetchMessages(t *testing.T) {
	im := NewImporter(newMaildir(t), "Archive", 2)

	res, err := im.FetchMessages(context.Background(), source.FetchOptions{})
	require.NoError(t, err)

	var ids []string
	for _, m := range res.Messages {
		ids = append(ids, m.MessageID)
		assert.Equal(t, "Archive", m.Folder)
	}
	assert.Equal(t, []string{"cur@example.com", "eml@example.com", "new@example.com"}, ids)
	assert.Equal(t, 3, res.Total)
	assert.False(t, res.HasMore)

	cur := res.Messages[0]
	assert.True(t, cur.Status.IsRead())
	assert.True(t, cur.Status.IsImportant())
	assert.False(t, res.Messages[2].Status.IsRead())
}

func TestImporter_SinceAndLimit(t *testing.T) {
	im := NewImporter(newMaildir(t), "Archive", 0)

	res, err := im.FetchMessages(context.Background(), source.FetchOptions{
		Since: time.Date(2026, time.March, 19, 0, 0, 0, 0, time.UTC),
		Limit: 1,
	})
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "new@example.com", res.Messages[0].MessageID)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.HasMore)
}

func TestImporter_ValidateConnection(t *testing.T) {
	dir := newMaildir(t)
	_, err := NewImporter(dir, "x", 1).ValidateConnection(context.Background())
	assert.NoError(t, err)

	_, err = NewImporter(filepath.Join(dir, "export.eml"), "x", 1).ValidateConnection(context.Background())
	assert.Error(t, err)
	_, err = NewImporter(filepath.Join(dir, "missing"), "x", 1).ValidateConnection(context.Background())
	assert.Error(t, err)
}

func TestIsMessageFile(t *testing.T) {
	assert.True(t, IsMessageFile("/mail/inbox/cur/123:2,S"))
	assert.True(t, IsMessageFile("/mail/inbox/new/123"))
	assert.True(t, IsMessageFile("/exports/Thread.EML"))
	assert.False(t, IsMessageFile("/mail/inbox/tmp/123"))
	assert.False(t, IsMessageFile("/mail/inbox/new/.lock"))
	assert.False(t, IsMessageFile("/exports/readme.txt"))
}

func TestMaildirInfoFlags(t *testing.T) {
	assert.Equal(t, []string{`\Answered`, `\Seen`}, maildirInfoFlags("1.M1.host:2,RS"))
	assert.Empty(t, maildirInfoFlags("1.M1.host"))
	assert.Empty(t, maildirInfoFlags("1.M1.host:2,"))
}
