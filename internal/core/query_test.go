package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/model"
)

func threadFixture(t *testing.T, cfg engineConfig) (*Engine, *memStorage) {
	t.Helper()
	invoice := withSubject(rec("inv", "inv", "", baseTime.Add(-4*time.Hour)), "Invoice March")
	invoice.Status = model.StatusImportant
	lunch := withSubject(rec("lunch", "lunch", "", baseTime.Add(-3*time.Hour)), "Lunch")
	lunch.Status = model.StatusRead
	reply := withSubject(rec("reply", "reply", "lunch", baseTime.Add(-2*time.Hour)), "Re: Lunch")
	reply.Sender = "carol@example.com"
	reply.Size = 2048

	s := newMemStorage(invoice, lunch, reply)
	e := newTestEngine(t, s, cfg)
	runEngine(t, e)
	return e, s
}

func TestEngine_TreeQueries(t *testing.T) {
	e, _ := threadFixture(t, threadedConfig())

	root := e.Root()
	require.Equal(t, 2, e.RowCount(root))
	lunch := e.Index(1, root)
	reply := e.Index(0, lunch)

	assert.Equal(t, "lunch", e.Item(lunch).UniqueID())
	assert.Equal(t, root, e.Parent(lunch))
	assert.Equal(t, lunch, e.Parent(reply))
	assert.Equal(t, 1, e.Row(lunch))
	assert.Equal(t, 0, e.Row(reply))
	assert.Equal(t, NoItem, e.Parent(root))
	assert.Equal(t, -1, e.Row(root))
	assert.Equal(t, NoItem, e.Index(5, root))
	assert.Equal(t, NoItem, e.Index(0, NoItem))
	assert.Equal(t, 3, e.MessageCount())
	assert.Equal(t, int(columnCount), e.ColumnCount())
}

func TestEngine_StorageRow(t *testing.T) {
	e, s := threadFixture(t, threadedConfig())
	reply := e.ItemForUniqueID("reply")

	assert.Equal(t, 2, e.StorageRow(reply))
	assert.Equal(t, -1, e.StorageRow(e.Root()))
	assert.Equal(t, -1, e.StorageRow(NoItem))

	s.remove(0, 1)
	runEngine(t, e)
	assert.Equal(t, 1, e.StorageRow(reply), "rows shift after a removal above")
}

func TestEngine_Data(t *testing.T) {
	e, _ := threadFixture(t, threadedConfig())
	reply := e.ItemForUniqueID("reply")

	assert.Equal(t, "Re: Lunch", e.Data(reply, ColumnSubject))
	assert.Equal(t, "carol@example.com", e.Data(reply, ColumnSender))
	assert.Equal(t, "bob@example.com", e.Data(reply, ColumnReceiver))
	assert.Equal(t, "carol@example.com", e.Data(reply, ColumnSenderOrReceiver))
	assert.Equal(t, "2026-03-20 13:00", e.Data(reply, ColumnDate))
	assert.Equal(t, "2048", e.Data(reply, ColumnSize))
	assert.Equal(t, "new", e.Data(reply, ColumnStatus))
	assert.Equal(t, "2026-03-20 13:00", e.Data(e.ItemForUniqueID("lunch"), ColumnMostRecentDate))
	assert.Equal(t, "", e.Data(e.Root(), ColumnSubject))
}

func TestEngine_GroupHeaderData(t *testing.T) {
	cfg := threadedConfig()
	cfg.agg.Grouping = GroupByDate
	e, _ := threadFixture(t, cfg)

	g := e.Index(0, e.Root())
	require.Equal(t, KindGroupHeader, e.Item(g).Kind())
	assert.Equal(t, "Today", e.Data(g, ColumnSubject))
	assert.Equal(t, "3 messages, 2 unread", e.Data(g, ColumnStatus))
	assert.Equal(t, "2026-03-20 13:00", e.Data(g, ColumnMostRecentDate))
	assert.Equal(t, "", e.Data(g, ColumnSize))

	msgs, unread := e.GroupStats(g)
	assert.Equal(t, 3, msgs)
	assert.Equal(t, 2, unread)
	assert.Zero(t, e.Flags(g)&FlagSelectable)
	assert.NotZero(t, e.Flags(g)&FlagHasChildren)
}

func TestEngine_Filter(t *testing.T) {
	l := &recordingListener{}
	cfg := threadedConfig()
	cfg.listener = l
	e, _ := threadFixture(t, cfg)
	inv, lunch, reply := e.ItemForUniqueID("inv"), e.ItemForUniqueID("lunch"), e.ItemForUniqueID("reply")
	layouts := l.layouts

	e.SetFilter(NewFilter("  INVOICE ", 0))
	assert.Equal(t, "INVOICE", e.Filter().Text())
	assert.True(t, e.IsShown(inv))
	assert.False(t, e.IsShown(lunch))
	assert.NotZero(t, e.Flags(lunch)&FlagFilteredOut)
	assert.Equal(t, layouts+1, l.layouts)

	// a matching reply keeps its thread visible
	e.SetFilter(NewFilter("carol", 0))
	assert.True(t, e.IsShown(lunch))
	assert.True(t, e.IsShown(reply))
	assert.False(t, e.Item(lunch).MatchesFilter())
	assert.False(t, e.IsShown(inv))

	e.SetFilter(NewFilter("", model.StatusImportant))
	assert.True(t, e.IsShown(inv))
	assert.False(t, e.IsShown(lunch))

	e.SetFilter(Filter{})
	assert.True(t, e.Filter().IsEmpty())
	assert.True(t, e.IsShown(lunch))
	assert.Zero(t, e.Flags(lunch)&FlagFilteredOut)
}

func TestEngine_FilterAppliesToNewMessages(t *testing.T) {
	e, s := threadFixture(t, threadedConfig())
	e.SetFilter(NewFilter("lunch", 0))

	s.appendRecs(withSubject(rec("late", "late", "", baseTime), "Parking"))
	runEngine(t, e)

	assert.False(t, e.IsShown(e.ItemForUniqueID("late")))
}

func TestEngine_Dump(t *testing.T) {
	cfg := threadedConfig()
	cfg.agg.Grouping = GroupByDateRange
	e, _ := threadFixture(t, cfg)

	assert.Equal(t, "[Today]\n  Invoice March (inv)\n  Lunch (lunch)\n    Re: Lunch (reply)\n", e.Dump())

	var depths []int
	e.Walk(func(_ *Item, depth int) bool {
		depths = append(depths, depth)
		return len(depths) < 3
	})
	assert.Equal(t, []int{0, 1, 1}, depths)
}
