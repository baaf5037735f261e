package messagelist

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
	"github.com/nhle/messagelist/tests/testutil"
)

var day = time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)

func withID(r model.MessageRecord, id string) model.MessageRecord {
	r.ID = id
	return r
}

// newThreadedView returns a view over a folder holding one thread of two
// messages and an unrelated unread message.
func newThreadedView(t *testing.T) Model {
	t.Helper()
	root := withID(testutil.Message("INBOX", "root@example.com", day), "m1")
	root.Status = model.StatusRead
	reply := withID(testutil.Reply(root, "reply@example.com", day.Add(time.Hour)), "m2")
	reply.Status = model.StatusRead
	other := withID(testutil.Message("INBOX", "other@example.com", day.Add(2*time.Hour)), "m3")

	e := core.New(core.Options{
		Aggregation: &core.Aggregation{
			Grouping:           core.NoGrouping,
			Threading:          core.PerfectOnly,
			ThreadExpandPolicy: core.NeverExpandThreads,
			FillViewStrategy:   core.FavorSpeed,
		},
		SortOrder: &core.SortOrder{
			MessageSorting:       core.SortMessagesByDateTime,
			MessageSortDirection: core.Ascending,
		},
	})
	m := New(e, store.NewFolder("INBOX", root, reply, other), core.PreSelectNone, keys.DefaultKeyMap(), 100, 20)
	return drive(t, m)
}

// drive delivers step messages until the engine is idle.
func drive(t *testing.T, m Model) Model {
	t.Helper()
	for i := 0; m.engine.Pending(); i++ {
		require.Less(t, i, 10_000, "engine does not converge")
		m, _ = m.Update(stepMsg{})
	}
	m, _ = m.Update(nil)
	return m
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, _ = m.Update(msg)
	return drive(t, m)
}

func visibleUIDs(m Model) []string {
	var out []string
	for _, r := range m.state.rows {
		out = append(out, m.engine.Item(r.id).UniqueID())
	}
	return out
}

func TestModel_FillShowsTopLevel(t *testing.T) {
	m := newThreadedView(t)

	assert.False(t, m.Busy())
	assert.Equal(t, []string{"m1", "m3"}, visibleUIDs(m), "the reply stays folded")
	assert.Contains(t, m.View(), "(+1)")
}

func TestModel_ToggleExpandsThread(t *testing.T) {
	m := newThreadedView(t)

	m = press(t, m, "enter")
	assert.Equal(t, []string{"m1", "m2", "m3"}, visibleUIDs(m))
	assert.Equal(t, 1, m.state.rows[1].depth)

	m = press(t, m, "j")
	m = press(t, m, "h")
	assert.Equal(t, "m1", m.engine.Item(m.state.cursor).UniqueID(), "h on a leaf moves to the parent")
	m = press(t, m, "h")
	assert.Equal(t, []string{"m1", "m3"}, visibleUIDs(m))
}

func TestModel_CursorFollowsCurrentItem(t *testing.T) {
	m := newThreadedView(t)

	m = press(t, m, "j")
	cur := m.engine.Item(m.engine.CurrentItem())
	require.NotNil(t, cur)
	assert.Equal(t, "m3", cur.UniqueID())

	rec, ok := m.CurrentMessage()
	require.True(t, ok)
	assert.Equal(t, "other@example.com", rec.MessageID)
}

func TestModel_NextUnreadRevealsMessage(t *testing.T) {
	m := newThreadedView(t)
	require.NoError(t, m.folder.SetStatus(context.Background(), 1, 0))
	m = drive(t, m)

	m = press(t, m, "n")
	assert.Equal(t, "m2", m.engine.Item(m.state.cursor).UniqueID())
	assert.Equal(t, []string{"m1", "m2", "m3"}, visibleUIDs(m))
}

func TestModel_ToggleReadWritesThrough(t *testing.T) {
	m := newThreadedView(t)

	m = press(t, m, "G")
	m = press(t, m, "m")
	rec, _ := m.folder.Record(2)
	assert.True(t, rec.Status.IsRead())
	assert.True(t, m.engine.Item(m.state.cursor).Status().IsRead())
}

func TestModel_ToggleReadOnCollapsedThread(t *testing.T) {
	m := newThreadedView(t)

	// the collapsed thread is fully read, so m clears the flag below it
	m = press(t, m, "m")
	for row := 0; row < 2; row++ {
		rec, _ := m.folder.Record(row)
		assert.False(t, rec.Status.IsRead(), "row %d", row)
	}
}

func TestModel_Filter(t *testing.T) {
	m := newThreadedView(t)

	m = press(t, m, "/")
	require.True(t, m.Filtering())
	for _, r := range "other" {
		m = press(t, m, string(r))
	}
	assert.Equal(t, []string{"m3"}, visibleUIDs(m))
	assert.Equal(t, `filter: "other"`, m.FilterSummary())

	m = press(t, m, "esc")
	assert.False(t, m.Filtering())
	assert.Empty(t, m.FilterSummary())
	assert.Equal(t, []string{"m1", "m3"}, visibleUIDs(m))
}

func TestModel_DeleteReparentsReplies(t *testing.T) {
	m := newThreadedView(t)

	m = press(t, m, "d")
	require.NoError(t, m.Err())
	assert.Equal(t, 2, m.folder.RowCount())
	assert.Equal(t, []string{"m2", "m3"}, visibleUIDs(m))
}

func TestModel_CycleGroupingReloads(t *testing.T) {
	m := newThreadedView(t)

	var cmd tea.Cmd
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	m = drive(t, m)
	assert.Equal(t, core.GroupByDate, m.engine.Aggregation().Grouping)

	require.NotNil(t, cmd)
	var settings SettingsChangedMsg
	for _, msg := range collect(cmd) {
		if s, ok := msg.(SettingsChangedMsg); ok {
			settings = s
		}
	}
	assert.Equal(t, core.GroupByDate, settings.Aggregation.Grouping)

	require.NotEmpty(t, m.state.rows)
	assert.Equal(t, core.KindGroupHeader, m.engine.Item(m.state.rows[0].id).Kind())
	assert.Equal(t, 3, m.engine.MessageCount())
}

func TestModel_MergeAppendsNewMessages(t *testing.T) {
	m := newThreadedView(t)

	late := withID(testutil.Message("INBOX", "late@example.com", day.Add(3*time.Hour)), "m4")
	n, err := m.Merge(context.Background(), []model.MessageRecord{late})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	m = drive(t, m)
	assert.Equal(t, []string{"m1", "m3", "m4"}, visibleUIDs(m))
}

func TestShortDate(t *testing.T) {
	now := time.Date(2026, time.March, 20, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "09:00", shortDate(day, now))
	assert.Equal(t, "Jan 05", shortDate(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "2025-12-31", shortDate(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), now))
	assert.Empty(t, shortDate(time.Time{}, now))
}

// collect runs cmd and flattens batches. Tick commands block until they fire.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c == nil {
			continue
		}
		out = append(out, collect(c)...)
	}
	return out
}
