package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/model"
)

// testEnv writes a configuration pointing at a temporary database and log
// file and returns the flags selecting it.
func testEnv(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultAppConfig()
	cfg.Database = filepath.Join(dir, "messages.db")
	cfg.Log.File = filepath.Join(dir, "messagelist.log")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(path, cfg))
	return []string{"--config", path}
}

func execute(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(append([]string(nil), env...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeEML(t *testing.T, dir, name, header string) {
	t.Helper()
	raw := header + "From: alice@example.com\r\nDate: Fri, 20 Mar 2026 10:00:00 +0000\r\n\r\nbody\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(raw), 0o644))
}

func TestImportThenDump(t *testing.T) {
	env := testEnv(t)
	mail := t.TempDir()
	writeEML(t, mail, "1.eml", "Message-Id: <root@example.com>\r\nSubject: Plans\r\n")
	writeEML(t, mail, "2.eml", "Message-Id: <reply@example.com>\r\nIn-Reply-To: <root@example.com>\r\nSubject: Re: Plans\r\n")

	out, err := execute(t, env, "import", mail)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 message(s) into INBOX")

	// a second import finds the same Message-Ids
	_, err = execute(t, env, "import", mail)
	require.NoError(t, err)

	out, err = execute(t, env, "dump", "--grouping", "none", "--threading", "perfect")
	require.NoError(t, err)
	lines := nonEmptyLines(out)
	require.Len(t, lines, 2, out)
	assert.Regexp(t, `^Plans \(`, lines[0])
	assert.Regexp(t, `^  Re: Plans \(`, lines[1])

	out, err = execute(t, env, "folders")
	require.NoError(t, err)
	assert.Contains(t, out, "INBOX")
}

func TestDumpRejectsUnknownPolicy(t *testing.T) {
	env := testEnv(t)

	_, err := execute(t, env, "dump", "--grouping", "by-weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "by-weather")
}

func TestLoginUnknownSource(t *testing.T) {
	env := testEnv(t)

	_, err := execute(t, env, "login", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("no source %q", "nope"))
}

func TestSyncWithoutSources(t *testing.T) {
	env := testEnv(t)

	_, err := execute(t, env, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enabled source")
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range bytes.Split([]byte(s), []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			out = append(out, string(l))
		}
	}
	return out
}
