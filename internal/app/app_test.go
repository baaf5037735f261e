package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
	msync "github.com/nhle/messagelist/internal/sync"
	"github.com/nhle/messagelist/internal/ui/command"
	"github.com/nhle/messagelist/internal/ui/messagelist"
	"github.com/nhle/messagelist/tests/testutil"
)

var day = time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, recs ...model.MessageRecord) Model {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.UpsertMessages(ctx, recs))

	cfg := model.DefaultAppConfig()
	cfg.Aggregation.Grouping = "none"
	cfg.Aggregation.Threading = "perfect"
	cfg.Aggregation.ThreadExpand = "never"
	cfg.Aggregation.FillStrategy = "speed"

	m, err := New(ctx, Options{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Store:      s,
	})
	require.NoError(t, err)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return settle(t, next.(Model))
}

// settle runs the engine to completion and refreshes the list.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	require.NoError(t, m.list.Engine().Run(context.Background()))
	m.list.Refresh()
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return settle(t, next.(Model)), cmd
}

func TestApp_HeaderCountsMessages(t *testing.T) {
	root := testutil.Message("INBOX", "root@example.com", day)
	root.Status = model.StatusRead
	m := newTestApp(t, root, testutil.Reply(root, "reply@example.com", day.Add(time.Hour)))

	assert.Equal(t, "INBOX (2, 1 unread)", m.headerTitle())
	assert.Contains(t, m.View(), "INBOX (2, 1 unread)")
	assert.Equal(t, "no sources", m.syncStatus())
}

func TestApp_SyncResultMergesFolderMessages(t *testing.T) {
	m := newTestApp(t, testutil.Message("INBOX", "a@example.com", day))

	fetched := testutil.Message("INBOX", "b@example.com", day.Add(time.Hour))
	fetched.ID = "fetched-b"
	m, cmd := update(t, m, msync.SyncResultMsg{SourceID: "work", Folder: "INBOX", Messages: []model.MessageRecord{fetched}, NewCount: 1})
	assert.NotNil(t, cmd)
	assert.Equal(t, 2, m.list.Engine().MessageCount())
	assert.Contains(t, m.statusMsg, "1 new message(s) from work")

	other := testutil.Message("Archive", "c@example.com", day)
	other.ID = "archived-c"
	m, _ = update(t, m, msync.SyncResultMsg{SourceID: "work", Folder: "Archive", Messages: []model.MessageRecord{other}})
	assert.Equal(t, 2, m.list.Engine().MessageCount(), "other folders are not shown")
}

func TestApp_AuthErrorShownInStatusBar(t *testing.T) {
	m := newTestApp(t)

	m, _ = update(t, m, msync.SyncResultMsg{
		SourceID:  "work",
		AuthError: &msync.AuthErrorMsg{SourceID: "work", Message: "Work: authentication failed."},
		Error:     assert.AnError,
	})
	assert.Equal(t, "Work: authentication failed.", m.keyHints())

	m, _ = update(t, m, msync.SyncResultMsg{SourceID: "work"})
	assert.NotContains(t, m.keyHints(), "authentication")
}

func TestApp_WatchedRecordsAreMerged(t *testing.T) {
	m := newTestApp(t)
	ch := make(chan model.MessageRecord, 2)
	m.watched = ch
	ch <- testutil.Message("INBOX", "w1@example.com", day)
	ch <- testutil.Message("INBOX", "w2@example.com", day.Add(time.Minute))
	close(ch)

	msg := waitForWatched(ch)()
	watched, ok := msg.(watchedMsg)
	require.True(t, ok)
	assert.Len(t, watched.recs, 2)
	assert.True(t, watched.closed)

	m, _ = update(t, m, watched)
	assert.Equal(t, 2, m.list.Engine().MessageCount())
	assert.Contains(t, m.statusMsg, "2 new message(s)")

	inbox := "INBOX"
	stored, err := m.store.GetMessages(context.Background(), store.MessageFilter{Folder: &inbox})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestApp_ExecuteGroupCommand(t *testing.T) {
	m := newTestApp(t, testutil.Message("INBOX", "a@example.com", day))

	m, cmd := update(t, m, command.CommandMsg("group sender"))
	assert.Equal(t, core.GroupBySender, m.list.Engine().Aggregation().Grouping)
	require.NotNil(t, cmd)

	m, _ = update(t, m, command.CommandMsg("group weather"))
	assert.Contains(t, m.statusMsg, "weather")
	assert.Equal(t, core.GroupBySender, m.list.Engine().Aggregation().Grouping)
}

func TestApp_ExecuteSortAndFilterCommands(t *testing.T) {
	m := newTestApp(t,
		testutil.Message("INBOX", "alpha@example.com", day),
		testutil.Message("INBOX", "beta@example.com", day.Add(time.Hour)),
	)

	m, _ = update(t, m, command.CommandMsg("sort subject ascending"))
	s := m.list.Engine().SortOrder()
	assert.Equal(t, core.SortMessagesBySubject, s.MessageSorting)
	assert.Equal(t, core.Ascending, s.MessageSortDirection)

	m, _ = update(t, m, command.CommandMsg("filter beta"))
	assert.Equal(t, `filter: "beta"`, m.list.FilterSummary())

	m, _ = update(t, m, command.CommandMsg("clear"))
	assert.Empty(t, m.list.FilterSummary())

	m, _ = update(t, m, command.CommandMsg("frobnicate"))
	assert.Contains(t, m.statusMsg, "unknown command")
}

func TestApp_SettingsChangedPersists(t *testing.T) {
	m := newTestApp(t)

	a := m.list.Engine().Aggregation()
	a.Threading = core.NoThreading
	next, cmd := m.Update(messagelist.SettingsChangedMsg{Aggregation: a, SortOrder: m.list.Engine().SortOrder()})
	m = next.(Model)
	require.NotNil(t, cmd)
	cmd()

	loaded, err := model.LoadConfig(m.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "none", loaded.Aggregation.Threading)
}

func TestApp_GlobalKeysSwitchViews(t *testing.T) {
	m := newTestApp(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, ViewHelp, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	assert.Equal(t, ViewCommand, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, ViewCommand, m.currentView, "q is typed into the palette")
}

func TestParseSortCommand(t *testing.T) {
	base := core.DefaultSortOrder()

	s, err := parseSortCommand("groupsort", "sender descending", base)
	require.NoError(t, err)
	assert.Equal(t, core.SortGroupsBySender, s.GroupSorting)
	assert.Equal(t, core.Descending, s.GroupSortDirection)

	_, err = parseSortCommand("sort", "", base)
	assert.Error(t, err)
	_, err = parseSortCommand("sort", "date_time sideways", base)
	assert.Error(t, err)
}
