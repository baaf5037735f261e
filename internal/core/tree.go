package core

import (
	"slices"
	"time"
)

// tree is the node arena. IDs are handed out from a monotonically increasing
// counter owned by the engine; a released slot stays nil.
type tree struct {
	base  ItemID
	items []*Item
	root  ItemID
	count int
}

func newTree(base ItemID) *tree {
	if base == NoItem {
		base = 1
	}
	t := &tree{base: base, items: make([]*Item, 0, 1024)}
	r := t.alloc(KindRoot)
	r.viewable = true
	r.matchesFilter = true
	r.expand = ExpandExecuted
	t.root = r.id
	return t
}

// nextBase returns the first ID a replacement tree may use.
func (t *tree) nextBase() ItemID {
	return t.base + ItemID(len(t.items))
}

func (t *tree) alloc(kind Kind) *Item {
	it := &Item{
		id:            t.base + ItemID(len(t.items)),
		kind:          kind,
		matchesFilter: true,
		indexGuess:    -1,
	}
	switch kind {
	case KindMessage:
		it.msg = &MessageItem{}
	case KindGroupHeader:
		it.group = &GroupHeaderItem{}
	}
	t.items = append(t.items, it)
	t.count++
	return it
}

// get resolves id, returning nil for invalid or released IDs.
func (t *tree) get(id ItemID) *Item {
	if id < t.base {
		return nil
	}
	off := int(id - t.base)
	if off >= len(t.items) {
		return nil
	}
	return t.items[off]
}

func (t *tree) rootItem() *Item { return t.items[0] }

// release frees a detached node. Children must have been moved away.
func (t *tree) release(it *Item) {
	off := int(it.id - t.base)
	if off <= 0 || off >= len(t.items) || t.items[off] != it {
		return
	}
	t.items[off] = nil
	t.count--
	it.children = nil
	it.parent = NoItem
	it.viewable = false
}

// size is the number of live nodes, the root included.
func (t *tree) size() int { return t.count }

// indexOfChild returns the row of child below parent, or -1. The cached
// guess makes the common case O(1).
func (t *tree) indexOfChild(parent, child *Item) int {
	if child.parent != parent.id {
		return -1
	}
	g := child.indexGuess
	if g >= 0 && g < len(parent.children) && parent.children[g] == child.id {
		return g
	}
	idx := slices.Index(parent.children, child.id)
	child.indexGuess = idx
	return idx
}

// insertChildAt places child at row below parent. Viewability is inherited.
func (t *tree) insertChildAt(parent, child *Item, row int) {
	if row < 0 || row > len(parent.children) {
		row = len(parent.children)
	}
	parent.children = slices.Insert(parent.children, row, child.id)
	child.parent = parent.id
	child.indexGuess = row
	if parent.viewable {
		t.setSubtreeViewable(child, true)
	}
}

// takeChild detaches child from parent and returns its former row, or -1.
func (t *tree) takeChild(parent, child *Item) int {
	row := t.indexOfChild(parent, child)
	if row < 0 {
		return -1
	}
	parent.children = slices.Delete(parent.children, row, row+1)
	child.parent = NoItem
	child.indexGuess = -1
	if child.viewable {
		t.setSubtreeViewable(child, false)
	}
	return row
}

func (t *tree) setSubtreeViewable(it *Item, v bool) {
	it.viewable = v
	for _, c := range it.children {
		if ci := t.get(c); ci != nil {
			t.setSubtreeViewable(ci, v)
		}
	}
}

// hasAncestor reports whether anc is a strict ancestor of it.
func (t *tree) hasAncestor(it *Item, anc ItemID) bool {
	for p := it.parent; p != NoItem; {
		if p == anc {
			return true
		}
		pi := t.get(p)
		if pi == nil {
			return false
		}
		p = pi.parent
	}
	return false
}

// topmostMessage climbs to the top of the thread containing it.
func (t *tree) topmostMessage(it *Item) *Item {
	for {
		p := t.get(it.parent)
		if p == nil || p.kind != KindMessage {
			return it
		}
		it = p
	}
}

// recomputeMaxDate refreshes the cached maximum date of it from its own date
// and the cached values of its children. It reports whether the value moved.
func (t *tree) recomputeMaxDate(it *Item) bool {
	var m time.Time
	if it.kind == KindMessage {
		m = it.date
	}
	for _, c := range it.children {
		if ci := t.get(c); ci != nil && ci.maxDate.After(m) {
			m = ci.maxDate
		}
	}
	if m.Equal(it.maxDate) {
		return false
	}
	it.maxDate = m
	return true
}

// walk visits it and its subtree depth first, pre-order.
func (t *tree) walk(it *Item, depth int, fn func(*Item, int) bool) bool {
	if !fn(it, depth) {
		return false
	}
	for _, c := range it.children {
		ci := t.get(c)
		if ci == nil {
			continue
		}
		if !t.walk(ci, depth+1, fn) {
			return false
		}
	}
	return true
}

// subtreeContains reports whether id lives in the subtree rooted at it.
func (t *tree) subtreeContains(it *Item, id ItemID) bool {
	if it.id == id {
		return true
	}
	target := t.get(id)
	return target != nil && t.hasAncestor(target, it.id)
}
