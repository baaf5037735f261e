package messagelist

import (
	"slices"

	"github.com/nhle/messagelist/internal/core"
)

// row is one visible line of the tree.
type row struct {
	id    core.ItemID
	depth int
}

// viewState is the part of the view the engine writes to. It is shared by
// every copy of Model and implements core.Listener; the engine only calls
// it from inside Update.
type viewState struct {
	core.NopListener

	engine   *core.Engine
	expanded map[core.ItemID]bool

	rows      []row
	dirty     bool
	cursor    core.ItemID
	cursorRow int
	offset    int

	progress  string
	busy      bool
	scheduled bool
	err       error
}

func newViewState(e *core.Engine) *viewState {
	return &viewState{
		engine:   e,
		expanded: make(map[core.ItemID]bool),
		dirty:    true,
	}
}

func (s *viewState) RowsInserted(core.ItemID, int, int) { s.dirty = true }
func (s *viewState) RowsRemoved(core.ItemID, int, int)  { s.dirty = true }
func (s *viewState) LayoutChanged()                     { s.dirty = true }
func (s *viewState) DataChanged(core.ItemID)            { s.dirty = true }

func (s *viewState) ExpandRequested(id core.ItemID) {
	s.expanded[id] = true
	s.dirty = true
}

func (s *viewState) CurrentItemChanged(id core.ItemID) {
	if id == core.NoItem {
		return
	}
	s.cursor = id
	s.reveal(id)
}

func (s *viewState) StatusMessage(msg string) { s.progress = msg }
func (s *viewState) JobBatchStarted()         { s.busy = true }
func (s *viewState) JobBatchTerminated()      { s.busy = false }

// reveal expands every ancestor of id.
func (s *viewState) reveal(id core.ItemID) {
	root := s.engine.Root()
	for p := s.engine.Parent(id); p != core.NoItem && p != root; p = s.engine.Parent(p) {
		if !s.expanded[p] {
			s.expanded[p] = true
			s.dirty = true
		}
	}
}

// refresh rebuilds the visible rows when the tree changed and keeps the
// cursor on a visible row, falling back to the row it last occupied.
func (s *viewState) refresh() {
	if s.dirty {
		s.rows = s.flatten()
		s.dirty = false
	}
	if len(s.rows) == 0 {
		s.cursor, s.cursorRow = core.NoItem, 0
		return
	}
	if i := s.indexOf(s.cursor); i >= 0 {
		s.cursorRow = i
		return
	}
	s.cursorRow = min(max(s.cursorRow, 0), len(s.rows)-1)
	s.cursor = s.rows[s.cursorRow].id
}

func (s *viewState) flatten() []row {
	var out []row
	var visit func(id core.ItemID, depth int)
	visit = func(id core.ItemID, depth int) {
		it := s.engine.Item(id)
		if it == nil || !it.IsViewable() || !s.engine.IsShown(id) {
			return
		}
		out = append(out, row{id: id, depth: depth})
		if !s.expanded[id] {
			return
		}
		for _, c := range it.Children() {
			visit(c, depth+1)
		}
	}
	if root := s.engine.Item(s.engine.Root()); root != nil {
		for _, c := range root.Children() {
			visit(c, 0)
		}
	}
	return out
}

func (s *viewState) indexOf(id core.ItemID) int {
	if id == core.NoItem {
		return -1
	}
	return slices.IndexFunc(s.rows, func(r row) bool { return r.id == id })
}

// scrollTo keeps the cursor row inside a window of height lines.
func (s *viewState) scrollTo(height int) {
	if height <= 0 {
		return
	}
	switch {
	case s.cursorRow < s.offset:
		s.offset = s.cursorRow
	case s.cursorRow >= s.offset+height:
		s.offset = s.cursorRow - height + 1
	}
	s.offset = max(0, min(s.offset, len(s.rows)-height))
}
