package core

// InvariantIndex is a stable handle to a storage row. It follows its row
// while unrelated rows are inserted or removed and becomes invalid when its
// own row goes away.
type InvariantIndex struct {
	row   int
	valid bool
	item  ItemID
}

// Row returns the current storage row, or -1 once invalidated.
func (idx *InvariantIndex) Row() int {
	if idx == nil || !idx.valid {
		return -1
	}
	return idx.row
}

// IsValid reports whether the handle still refers to a live row.
func (idx *InvariantIndex) IsValid() bool { return idx != nil && idx.valid }

// Item returns the message the handle is bound to.
func (idx *InvariantIndex) Item() ItemID {
	if idx == nil {
		return NoItem
	}
	return idx.item
}

// RowMapper keeps invariant handles in step with storage row renumbering.
// Slots mirror storage rows; a nil slot is a row without a handle yet.
type RowMapper struct {
	rows []*InvariantIndex
}

// NewRowMapper returns an empty mapper.
func NewRowMapper() *RowMapper {
	return &RowMapper{}
}

// CreateModelInvariantIndex binds a fresh handle to row. An existing handle
// on the same row is invalidated first.
func (m *RowMapper) CreateModelInvariantIndex(row int, item ItemID) *InvariantIndex {
	if row < 0 {
		return nil
	}
	m.grow(row + 1)
	if old := m.rows[row]; old != nil {
		old.valid = false
	}
	idx := &InvariantIndex{row: row, valid: true, item: item}
	m.rows[row] = idx
	return idx
}

// ModelIndexRowToModelInvariantIndex returns the handle on row, or nil.
func (m *RowMapper) ModelIndexRowToModelInvariantIndex(row int) *InvariantIndex {
	if row < 0 || row >= len(m.rows) {
		return nil
	}
	return m.rows[row]
}

// ModelInvariantIndexToModelIndexRow returns the current row of idx, or -1.
func (m *RowMapper) ModelInvariantIndexToModelIndexRow(idx *InvariantIndex) int {
	if !idx.IsValid() {
		return -1
	}
	if idx.row >= len(m.rows) || m.rows[idx.row] != idx {
		return -1
	}
	return idx.row
}

// ModelIndexRowRangeToModelInvariantIndexList returns the live handles in
// [from, from+count).
func (m *RowMapper) ModelIndexRowRangeToModelInvariantIndexList(from, count int) []*InvariantIndex {
	var out []*InvariantIndex
	for row := max(from, 0); row < from+count && row < len(m.rows); row++ {
		if idx := m.rows[row]; idx != nil {
			out = append(out, idx)
		}
	}
	return out
}

// ModelRowsInserted shifts the handles at or after from by count.
func (m *RowMapper) ModelRowsInserted(from, count int) {
	if count <= 0 || from < 0 {
		return
	}
	if from >= len(m.rows) {
		return
	}
	m.rows = append(m.rows, make([]*InvariantIndex, count)...)
	copy(m.rows[from+count:], m.rows[from:len(m.rows)-count])
	for i := from; i < from+count; i++ {
		m.rows[i] = nil
	}
	for i := from + count; i < len(m.rows); i++ {
		if idx := m.rows[i]; idx != nil {
			idx.row = i
		}
	}
}

// ModelRowsRemoved drops [from, from+count), returning the handles that
// lived there. They are invalidated and never returned again.
func (m *RowMapper) ModelRowsRemoved(from, count int) []*InvariantIndex {
	if count <= 0 || from < 0 || from >= len(m.rows) {
		return nil
	}
	end := min(from+count, len(m.rows))
	var removed []*InvariantIndex
	for _, idx := range m.rows[from:end] {
		if idx != nil && idx.valid {
			idx.valid = false
			removed = append(removed, idx)
		}
	}
	m.rows = append(m.rows[:from], m.rows[end:]...)
	for i := from; i < len(m.rows); i++ {
		if idx := m.rows[i]; idx != nil {
			idx.row = i
		}
	}
	return removed
}

// ModelReset invalidates every handle.
func (m *RowMapper) ModelReset() {
	for _, idx := range m.rows {
		if idx != nil {
			idx.valid = false
		}
	}
	m.rows = nil
}

// Len returns the number of tracked row slots.
func (m *RowMapper) Len() int { return len(m.rows) }

func (m *RowMapper) grow(n int) {
	if n > len(m.rows) {
		m.rows = append(m.rows, make([]*InvariantIndex, n-len(m.rows))...)
	}
}
