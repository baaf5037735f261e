package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/model"
)

// baseTime is a Friday afternoon.
var baseTime = time.Date(2026, time.March, 20, 15, 0, 0, 0, time.UTC)

// tb is the part of testing.T and rapid.T the helpers need.
type tb interface {
	require.TestingT
	Helper()
}

// fakeClock returns now and then moves forward by step.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// memStorage is an in-memory StorageModel over message records.
type memStorage struct {
	id       string
	outbound bool
	recs     []model.MessageRecord
	sinks    []StorageSink
	refuse   map[string]bool
	scans    int
}

func newMemStorage(recs ...model.MessageRecord) *memStorage {
	return &memStorage{id: "test", recs: slices.Clone(recs), refuse: map[string]bool{}}
}

func (s *memStorage) ID() string                     { return s.id }
func (s *memStorage) ContainsOutboundMessages() bool { return s.outbound }
func (s *memStorage) RowCount() int                  { return len(s.recs) }
func (s *memStorage) PrepareForScan()                { s.scans++ }

func (s *memStorage) InitialUnreadRowCountGuess() int {
	n := 0
	for _, r := range s.recs {
		if !r.Status.IsRead() {
			n++
		}
	}
	return n
}

func (s *memStorage) InitializeMessageItem(it *Item, row int, _ bool) bool {
	if row < 0 || row >= len(s.recs) || s.refuse[s.recs[row].ID] {
		return false
	}
	InitializeFromRecord(it, &s.recs[row])
	return true
}

func (s *memStorage) FillMessageItemThreadingData(it *Item, row int, subset ThreadingDataSubset) {
	FillThreadingFromRecord(it, &s.recs[row], subset)
}

func (s *memStorage) UpdateMessageItemData(it *Item, row int) {
	UpdateFromRecord(it, &s.recs[row])
}

func (s *memStorage) SetMessageItemStatus(_ *Item, row int, status model.Status) {
	s.recs[row].Status = status
	s.notify(func(k StorageSink) { k.DataChanged(row, row) })
}

func (s *memStorage) Subscribe(k StorageSink) { s.sinks = append(s.sinks, k) }

func (s *memStorage) Unsubscribe(k StorageSink) {
	s.sinks = slices.DeleteFunc(s.sinks, func(x StorageSink) bool { return x == k })
}

func (s *memStorage) notify(fn func(StorageSink)) {
	for _, k := range s.sinks {
		fn(k)
	}
}

func (s *memStorage) insert(row int, recs ...model.MessageRecord) {
	s.recs = slices.Insert(s.recs, row, recs...)
	s.notify(func(k StorageSink) { k.RowsInserted(row, row+len(recs)-1) })
}

func (s *memStorage) appendRecs(recs ...model.MessageRecord) {
	s.insert(len(s.recs), recs...)
}

func (s *memStorage) remove(from, count int) {
	s.recs = slices.Delete(s.recs, from, from+count)
	s.notify(func(k StorageSink) { k.RowsRemoved(from, from+count-1) })
}

func (s *memStorage) update(row int, fn func(r *model.MessageRecord)) {
	fn(&s.recs[row])
	s.notify(func(k StorageSink) { k.DataChanged(row, row) })
}

func (s *memStorage) rowOf(id string) int {
	return slices.IndexFunc(s.recs, func(r model.MessageRecord) bool { return r.ID == id })
}

// rec builds a record; the unique id doubles as the subject when none given.
func rec(id, messageID, inReplyTo string, date time.Time) model.MessageRecord {
	return model.MessageRecord{
		ID:        id,
		Folder:    "INBOX",
		MessageID: messageID,
		InReplyTo: inReplyTo,
		Subject:   id,
		Sender:    "alice@example.com",
		Receiver:  "bob@example.com",
		Date:      date,
		Size:      1024,
	}
}

func withSubject(r model.MessageRecord, subject string) model.MessageRecord {
	r.Subject = subject
	return r
}

func withRefs(r model.MessageRecord, refs ...string) model.MessageRecord {
	r.References = refs
	return r
}

// recordingListener keeps the notifications it receives.
type recordingListener struct {
	NopListener
	inserted  int
	removed   int
	layouts   int
	expanded  []ItemID
	current   []ItemID
	statuses  []string
	batches   int
	finished  int
	dataItems []ItemID
}

func (l *recordingListener) RowsInserted(ItemID, int, int) { l.inserted++ }
func (l *recordingListener) RowsRemoved(ItemID, int, int)  { l.removed++ }
func (l *recordingListener) LayoutChanged()                { l.layouts++ }
func (l *recordingListener) ExpandRequested(id ItemID)     { l.expanded = append(l.expanded, id) }
func (l *recordingListener) CurrentItemChanged(id ItemID)  { l.current = append(l.current, id) }
func (l *recordingListener) StatusMessage(msg string)      { l.statuses = append(l.statuses, msg) }
func (l *recordingListener) JobBatchStarted()              { l.batches++ }
func (l *recordingListener) JobBatchTerminated()           { l.finished++ }
func (l *recordingListener) DataChanged(id ItemID)         { l.dataItems = append(l.dataItems, id) }

type engineConfig struct {
	agg         Aggregation
	order       SortOrder
	listener    Listener
	clock       Clock
	tiny        bool
	incremental bool
}

func threadedConfig() engineConfig {
	return engineConfig{
		agg: Aggregation{
			Grouping:           NoGrouping,
			Threading:          PerfectReferencesAndSubject,
			ThreadExpandPolicy: AlwaysExpandThreads,
			FillViewStrategy:   FavorInteractivity,
		},
		order: SortOrder{
			GroupSorting:         SortGroupsByDateTimeOfMostRecent,
			GroupSortDirection:   Descending,
			MessageSorting:       SortMessagesByDateTime,
			MessageSortDirection: Ascending,
		},
	}
}

// newTestEngine builds an engine over s. With tiny set every processed
// element exhausts the time slice.
func newTestEngine(t tb, s *memStorage, cfg engineConfig) *Engine {
	t.Helper()
	clock := cfg.clock
	if clock == nil {
		step := time.Duration(0)
		if cfg.tiny {
			step = time.Nanosecond
		}
		clock = &fakeClock{now: baseTime, step: step}
	}
	e := New(Options{
		Clock:       clock,
		Listener:    cfg.listener,
		Aggregation: &cfg.agg,
		SortOrder:   &cfg.order,

		IncrementalNotifications: cfg.incremental,
	})
	if cfg.tiny {
		e.timingForTest = &jobTiming{chunkTimeout: 0, idleInterval: 0, messageCheckCount: 1}
	}
	e.SetStorage(s, PreSelectNone)
	return e
}

// drain steps e until idle and returns the number of steps taken.
func drain(t tb, e *Engine) int {
	t.Helper()
	steps := 0
	for e.Pending() {
		e.Step()
		steps++
		require.Less(t, steps, 1_000_000, "engine does not converge")
	}
	return steps
}

func runEngine(t tb, e *Engine) {
	t.Helper()
	require.NoError(t, e.Run(context.Background()))
}

// itemByUID fails the test when uid is not in the tree.
func itemByUID(t tb, e *Engine, uid string) *Item {
	t.Helper()
	id := e.ItemForUniqueID(uid)
	require.NotEqual(t, NoItem, id, "message %s not in tree", uid)
	return e.Item(id)
}

func parentUID(e *Engine, it *Item) string {
	p := e.Item(it.Parent())
	if p == nil {
		return ""
	}
	if p.Kind() == KindGroupHeader {
		return "[" + p.Label() + "]"
	}
	if p.Kind() == KindRoot {
		return "<root>"
	}
	return p.UniqueID()
}

// checkTree verifies the structural invariants of the whole tree.
func checkTree(t tb, e *Engine) {
	t.Helper()
	root := e.Item(e.Root())
	require.NotNil(t, root)
	seen := map[ItemID]bool{}
	var visit func(it *Item)
	visit = func(it *Item) {
		require.False(t, seen[it.ID()], "node %d reached twice", it.ID())
		seen[it.ID()] = true
		require.True(t, it.IsViewable(), "attached node %d not viewable", it.ID())
		for row, cid := range it.Children() {
			c := e.Item(cid)
			require.NotNil(t, c, "dangling child %d", cid)
			require.Equal(t, it.ID(), c.Parent())
			require.Equal(t, row, e.Row(cid))
			require.False(t, e.tree.hasAncestor(it, c.ID()), "cycle at %d", c.ID())
			if c.Kind() == KindMessage {
				require.False(t, c.MaxDate().Before(c.Date()))
			}
			visit(c)
		}
	}
	visit(root)
	for d, set := range e.pendingCache {
		for id := range set {
			it := e.Item(id)
			require.NotNil(t, it, "pending cache holds a freed item")
			require.Equal(t, d, it.msg.inReplyTo)
			require.NotEqual(t, PerfectParentFound, it.msg.threadingStatus)
		}
	}
}

func groupedConfig(g Grouping) engineConfig {
	cfg := threadedConfig()
	cfg.agg.Grouping = g
	cfg.agg.Threading = NoThreading
	cfg.agg.GroupExpandPolicy = AlwaysExpandGroups
	return cfg
}

// topLabels returns the labels (or subjects) of the top level nodes.
func topLabels(e *Engine) []string {
	var out []string
	for row := range e.RowCount(e.Root()) {
		out = append(out, e.Item(e.Index(row, e.Root())).Label())
	}
	return out
}

// series builds n unrelated records one hour apart, oldest first.
func series(n int) []model.MessageRecord {
	recs := make([]model.MessageRecord, n)
	for i := range recs {
		id := fmt.Sprintf("m%d", i)
		recs[i] = rec(id, id+"@example.com", "", baseTime.Add(-time.Duration(n-i)*time.Hour))
	}
	return recs
}

// rebuilt returns the dump of a fresh engine over the current rows of s.
func rebuilt(t tb, s *memStorage, cfg engineConfig) string {
	t.Helper()
	cfg.listener = nil
	e := newTestEngine(t, newMemStorage(s.recs...), cfg)
	drain(t, e)
	return e.Dump()
}
