package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column selects a field of Data.
type Column int

const (
	ColumnSubject Column = iota
	ColumnSender
	ColumnReceiver
	ColumnSenderOrReceiver
	ColumnDate
	ColumnMostRecentDate
	ColumnSize
	ColumnStatus
	columnCount
)

// ItemFlags describe how the view may treat a node.
type ItemFlags uint8

const (
	FlagSelectable ItemFlags = 1 << iota
	FlagHasChildren
	FlagFilteredOut
)

const dataDateLayout = "2006-01-02 15:04"

// Root returns the invisible root.
func (e *Engine) Root() ItemID { return e.tree.root }

// Index returns the child of parent at row, or NoItem.
func (e *Engine) Index(row int, parent ItemID) ItemID {
	p := e.tree.get(parent)
	if p == nil || row < 0 || row >= len(p.children) {
		return NoItem
	}
	return p.children[row]
}

// Parent returns the parent of id. Top level nodes return the root; the
// root and detached nodes return NoItem.
func (e *Engine) Parent(id ItemID) ItemID {
	it := e.tree.get(id)
	if it == nil {
		return NoItem
	}
	return it.parent
}

// Row returns the position of id below its parent, or -1.
func (e *Engine) Row(id ItemID) int {
	it := e.tree.get(id)
	if it == nil {
		return -1
	}
	p := e.tree.get(it.parent)
	if p == nil {
		return -1
	}
	return e.tree.indexOfChild(p, it)
}

// RowCount returns the number of children of parent.
func (e *Engine) RowCount(parent ItemID) int {
	p := e.tree.get(parent)
	if p == nil {
		return 0
	}
	return len(p.children)
}

// ColumnCount is the number of Data columns.
func (e *Engine) ColumnCount() int { return int(columnCount) }

// Item resolves id, or returns nil.
func (e *Engine) Item(id ItemID) *Item { return e.tree.get(id) }

// ItemForUniqueID finds a message in the tree by its storage id.
func (e *Engine) ItemForUniqueID(uid string) ItemID { return e.findByUniqueID(uid) }

// Data renders one column of id as text.
func (e *Engine) Data(id ItemID, col Column) string {
	it := e.tree.get(id)
	if it == nil || it.kind == KindRoot {
		return ""
	}
	if it.kind == KindGroupHeader {
		switch col {
		case ColumnSubject:
			return it.group.label
		case ColumnDate:
			return formatDate(it.date)
		case ColumnMostRecentDate:
			return formatDate(it.maxDate)
		case ColumnStatus:
			msgs, unread := e.GroupStats(id)
			return fmt.Sprintf("%d messages, %d unread", msgs, unread)
		}
		return ""
	}
	switch col {
	case ColumnSubject:
		return it.subject
	case ColumnSender:
		return it.sender
	case ColumnReceiver:
		return it.receiver
	case ColumnSenderOrReceiver:
		return it.DisplaySenderOrReceiver()
	case ColumnDate:
		return formatDate(it.date)
	case ColumnMostRecentDate:
		return formatDate(it.maxDate)
	case ColumnSize:
		return strconv.FormatInt(it.size, 10)
	case ColumnStatus:
		return it.status.String()
	}
	return ""
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dataDateLayout)
}

// StorageRow returns the storage row currently backing message id, or -1.
func (e *Engine) StorageRow(id ItemID) int {
	it := e.tree.get(id)
	if it == nil || it.kind != KindMessage || e.mapper == nil {
		return -1
	}
	return e.mapper.ModelInvariantIndexToModelIndexRow(it.msg.index)
}

// Flags returns the view flags of id.
func (e *Engine) Flags(id ItemID) ItemFlags {
	it := e.tree.get(id)
	if it == nil {
		return 0
	}
	var f ItemFlags
	if it.kind == KindMessage {
		f |= FlagSelectable
	}
	if len(it.children) > 0 {
		f |= FlagHasChildren
	}
	if !e.IsShown(id) {
		f |= FlagFilteredOut
	}
	return f
}

// GroupStats counts the messages and unread messages below id.
func (e *Engine) GroupStats(id ItemID) (messages, unread int) {
	it := e.tree.get(id)
	if it == nil {
		return 0, 0
	}
	e.tree.walk(it, 0, func(n *Item, _ int) bool {
		if n.kind == KindMessage {
			messages++
			if !n.status.IsRead() {
				unread++
			}
		}
		return true
	})
	return messages, unread
}

// Walk visits every node below the root depth first. Top level nodes have
// depth 0. Returning false from fn stops the walk.
func (e *Engine) Walk(fn func(it *Item, depth int) bool) {
	root := e.tree.rootItem()
	for _, c := range root.children {
		ci := e.tree.get(c)
		if ci == nil {
			continue
		}
		if !e.tree.walk(ci, 0, fn) {
			return
		}
	}
}

// MessageCount returns the number of messages attached below the root.
func (e *Engine) MessageCount() int {
	n := 0
	e.Walk(func(it *Item, _ int) bool {
		if it.kind == KindMessage {
			n++
		}
		return true
	})
	return n
}

// Dump renders the tree in a stable text form, one node per line, indented
// by depth. Group headers are written as "[label]".
func (e *Engine) Dump() string {
	var b strings.Builder
	e.Walk(func(it *Item, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		switch it.kind {
		case KindGroupHeader:
			fmt.Fprintf(&b, "[%s]\n", it.group.label)
		default:
			fmt.Fprintf(&b, "%s", it.subject)
			if uid := it.UniqueID(); uid != "" {
				fmt.Fprintf(&b, " (%s)", uid)
			}
			b.WriteByte('\n')
		}
		return true
	})
	return b.String()
}
