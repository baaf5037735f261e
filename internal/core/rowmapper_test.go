package core

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRowMapper_FollowsRows(t *testing.T) {
	m := NewRowMapper()
	a := m.CreateModelInvariantIndex(0, 10)
	b := m.CreateModelInvariantIndex(2, 12)

	m.ModelRowsInserted(1, 3)
	assert.Equal(t, 0, a.Row())
	assert.Equal(t, 5, b.Row())
	assert.Equal(t, 5, m.ModelInvariantIndexToModelIndexRow(b))
	assert.Same(t, b, m.ModelIndexRowToModelInvariantIndex(5))

	removed := m.ModelRowsRemoved(0, 2)
	require.Len(t, removed, 1)
	assert.Same(t, a, removed[0])
	assert.False(t, a.IsValid())
	assert.Equal(t, -1, a.Row())
	assert.Equal(t, -1, m.ModelInvariantIndexToModelIndexRow(a))
	assert.Equal(t, 3, b.Row())
	assert.Equal(t, ItemID(12), b.Item())

	assert.Empty(t, m.ModelRowsRemoved(0, 2), "an invalidated handle is reported once")
}

func TestRowMapper_InsertPastEndIsNoop(t *testing.T) {
	m := NewRowMapper()
	a := m.CreateModelInvariantIndex(1, 1)

	m.ModelRowsInserted(2, 5)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, a.Row())
}

func TestRowMapper_RangeListing(t *testing.T) {
	m := NewRowMapper()
	a := m.CreateModelInvariantIndex(1, 1)
	b := m.CreateModelInvariantIndex(3, 3)

	assert.Equal(t, []*InvariantIndex{a, b}, m.ModelIndexRowRangeToModelInvariantIndexList(0, 10))
	assert.Equal(t, []*InvariantIndex{b}, m.ModelIndexRowRangeToModelInvariantIndexList(2, 2))
	assert.Empty(t, m.ModelIndexRowRangeToModelInvariantIndexList(4, 3))
}

func TestRowMapper_ReplacingAHandleInvalidatesTheOld(t *testing.T) {
	m := NewRowMapper()
	old := m.CreateModelInvariantIndex(0, 1)
	fresh := m.CreateModelInvariantIndex(0, 2)

	assert.False(t, old.IsValid())
	assert.True(t, fresh.IsValid())
	assert.Nil(t, m.CreateModelInvariantIndex(-1, 3))
}

func TestRowMapper_Reset(t *testing.T) {
	m := NewRowMapper()
	a := m.CreateModelInvariantIndex(4, 1)

	m.ModelReset()
	assert.False(t, a.IsValid())
	assert.Zero(t, m.Len())

	var none *InvariantIndex
	assert.Equal(t, -1, none.Row())
	assert.Equal(t, NoItem, none.Item())
}

// A handle always reports the current row of the storage row it was bound
// to, and becomes invalid exactly when that row is removed.
func TestRowMapper_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := NewRowMapper()
		rows := make([]int, rapid.IntRange(0, 20).Draw(t, "initial"))
		for i := range rows {
			rows[i] = i
		}
		next := len(rows)
		handles := map[int]*InvariantIndex{}
		gone := map[int]*InvariantIndex{}

		for range rapid.IntRange(1, 40).Draw(t, "ops") {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				if len(rows) == 0 {
					continue
				}
				row := rapid.IntRange(0, len(rows)-1).Draw(t, "bind")
				if _, ok := handles[rows[row]]; !ok {
					handles[rows[row]] = m.CreateModelInvariantIndex(row, ItemID(rows[row]+1))
				}
			case 1:
				from := rapid.IntRange(0, len(rows)).Draw(t, "insert_at")
				count := rapid.IntRange(1, 4).Draw(t, "insert_count")
				added := make([]int, count)
				for i := range added {
					added[i] = next
					next++
				}
				rows = slices.Insert(rows, from, added...)
				m.ModelRowsInserted(from, count)
			case 2:
				if len(rows) == 0 {
					continue
				}
				from := rapid.IntRange(0, len(rows)-1).Draw(t, "remove_at")
				count := rapid.IntRange(1, len(rows)-from).Draw(t, "remove_count")
				removed := m.ModelRowsRemoved(from, count)
				var want []*InvariantIndex
				for _, label := range rows[from : from+count] {
					if h, ok := handles[label]; ok {
						want = append(want, h)
						gone[label] = h
						delete(handles, label)
					}
				}
				require.ElementsMatch(t, want, removed)
				rows = slices.Delete(rows, from, from+count)
			}

			for row, label := range rows {
				if h, ok := handles[label]; ok {
					require.True(t, h.IsValid())
					require.Equal(t, row, h.Row())
					require.Equal(t, row, m.ModelInvariantIndexToModelIndexRow(h))
				}
			}
			for _, h := range gone {
				require.False(t, h.IsValid())
			}
		}
	})
}
