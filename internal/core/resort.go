package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// attachMessageToParent moves it below parent at its sorted position. It
// refuses links that would create a cycle.
func (e *Engine) attachMessageToParent(parent, it *Item) bool {
	if e.wouldCycle(parent, it) {
		e.log.WithFields(logrus.Fields{
			"unique_id": it.UniqueID(),
			"parent":    parent.id,
		}).Warn("Refusing to attach an item below its own subtree")
		return false
	}
	if it.parent == parent.id {
		return true
	}
	if it.parent != NoItem {
		e.detachFromParent(it)
	}

	row := e.sortedInsertPosition(parent, it)
	notify := e.notifying(parent)
	if notify {
		e.listener.RowsAboutToBeInserted(parent.id, row, row)
	}
	e.tree.insertChildAt(parent, it, row)
	if notify {
		e.listener.RowsInserted(parent.id, row, row)
	}

	var changes PropertyChange
	if parent.kind == KindGroupHeader {
		e.markGroupForUpdate(parent)
		if e.recomputeGroupDate(parent) {
			changes |= DateChanged
		}
	}
	if it.maxDate.After(parent.maxDate) {
		parent.maxDate = it.maxDate
		changes |= MaxDateChanged
	}
	if changes != 0 {
		e.propagateChanges(parent, changes)
	}
	if it.kind == KindMessage {
		e.applyThreadExpandPolicy(it)
	}
	if notify {
		e.flushExpansion(it)
	}
	return true
}

// detachFromParent unlinks it, notifying the view and fixing the cached
// max date of the former ancestors.
func (e *Engine) detachFromParent(it *Item) {
	parent := e.tree.get(it.parent)
	if parent == nil {
		return
	}
	row := e.tree.indexOfChild(parent, it)
	if row < 0 {
		e.log.WithField("item", it.id).Warn("Item missing from its parent's children")
		it.parent = NoItem
		return
	}
	notify := e.notifying(parent)
	if notify {
		e.listener.RowsAboutToBeRemoved(parent.id, row, row)
	}
	e.tree.takeChild(parent, it)
	if notify {
		e.listener.RowsRemoved(parent.id, row, row)
	}
	var changes PropertyChange
	if parent.kind == KindGroupHeader {
		e.markGroupForUpdate(parent)
		if e.recomputeGroupDate(parent) {
			changes |= DateChanged
		}
	}
	// only an extremal child can lower the parent's max date
	if !it.maxDate.Before(parent.maxDate) && parent.kind != KindRoot {
		if e.tree.recomputeMaxDate(parent) {
			changes |= MaxDateChanged
		}
	}
	if changes != 0 {
		e.propagateChanges(parent, changes)
	}
}

// propagateChanges climbs from it towards the root. At each level the item
// is repositioned among its siblings when the change matters to the sort
// order, and the parent's dates are refreshed.
func (e *Engine) propagateChanges(it *Item, changes PropertyChange) {
	for it != nil && it.kind != KindRoot && changes != 0 {
		parent := e.tree.get(it.parent)
		if parent == nil {
			return
		}
		if parent.kind == KindGroupHeader && e.needsRegroup(it, parent, changes) {
			e.regroup(it)
			return
		}
		if changes&e.sortDependsOn(parent) != 0 {
			e.resortItem(parent, it)
		}
		if parent.kind == KindRoot {
			return
		}
		changes = 0
		if parent.kind == KindGroupHeader {
			e.markGroupForUpdate(parent)
			if e.recomputeGroupDate(parent) {
				changes |= DateChanged
			}
		}
		if e.tree.recomputeMaxDate(parent) {
			changes |= MaxDateChanged
		}
		it = parent
	}
}

func (e *Engine) sortDependsOn(parent *Item) PropertyChange {
	if e.childrenAreGroups(parent) {
		return e.sortOrder.groupSortDependsOn()
	}
	return e.sortOrder.messageSortDependsOn()
}

func (e *Engine) childrenAreGroups(parent *Item) bool {
	return parent.kind == KindRoot && e.aggregation.Grouping != NoGrouping
}

// resortItem moves it to its sorted position below parent when a cheap
// look at its neighbours says it is out of place.
func (e *Engine) resortItem(parent, it *Item) {
	if !e.needsResort(parent, it) {
		return
	}
	row := e.tree.indexOfChild(parent, it)
	notify := e.notifying(parent)
	if notify {
		e.listener.RowsAboutToBeRemoved(parent.id, row, row)
	}
	e.tree.takeChild(parent, it)
	if notify {
		e.listener.RowsRemoved(parent.id, row, row)
	}
	row = e.sortedInsertPosition(parent, it)
	if notify {
		e.listener.RowsAboutToBeInserted(parent.id, row, row)
	}
	e.tree.insertChildAt(parent, it, row)
	if notify {
		e.listener.RowsInserted(parent.id, row, row)
	}
}

// needsResort compares it with its immediate siblings only.
func (e *Engine) needsResort(parent, it *Item) bool {
	less := e.lessFunc(parent)
	if less == nil {
		return false
	}
	row := e.tree.indexOfChild(parent, it)
	if row < 0 {
		return false
	}
	if row > 0 {
		if prev := e.tree.get(parent.children[row-1]); prev != nil && less(it, prev) {
			return true
		}
	}
	if row+1 < len(parent.children) {
		if next := e.tree.get(parent.children[row+1]); next != nil && less(next, it) {
			return true
		}
	}
	return false
}

// sortedInsertPosition returns the row it would take below parent. Equal
// keys go after the existing ones.
func (e *Engine) sortedInsertPosition(parent, it *Item) int {
	kids := parent.children
	less := e.lessFunc(parent)
	if less == nil {
		if e.directionFor(parent) == Descending {
			return 0
		}
		return len(kids)
	}
	lo, hi := 0, len(kids)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		other := e.tree.get(kids[mid])
		if other != nil && less(it, other) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (e *Engine) directionFor(parent *Item) SortDirection {
	if e.childrenAreGroups(parent) {
		return e.sortOrder.GroupSortDirection
	}
	return e.sortOrder.MessageSortDirection
}

// lessFunc returns the display order below parent, or nil when children
// keep their insertion order.
func (e *Engine) lessFunc(parent *Item) func(a, b *Item) bool {
	var compare func(a, b *Item) int
	if e.childrenAreGroups(parent) {
		if e.sortOrder.GroupSorting == NoGroupSorting {
			return nil
		}
		compare = e.compareGroups
	} else {
		if e.sortOrder.MessageSorting == NoSorting {
			return nil
		}
		compare = e.compareMessages
	}
	if e.directionFor(parent) == Descending {
		return func(a, b *Item) bool { return compare(a, b) > 0 }
	}
	return func(a, b *Item) bool { return compare(a, b) < 0 }
}

func (e *Engine) compareMessages(a, b *Item) int {
	var c int
	switch e.sortOrder.MessageSorting {
	case SortMessagesByDateTime:
		c = a.date.Compare(b.date)
	case SortMessagesByDateTimeOfMostRecent:
		c = a.maxDate.Compare(b.maxDate)
	case SortMessagesBySenderOrReceiver:
		c = e.collator.CompareString(a.DisplaySenderOrReceiver(), b.DisplaySenderOrReceiver())
	case SortMessagesBySender:
		c = e.collator.CompareString(a.sender, b.sender)
	case SortMessagesByReceiver:
		c = e.collator.CompareString(a.receiver, b.receiver)
	case SortMessagesBySubject:
		c = e.collator.CompareString(a.subject, b.subject)
	case SortMessagesBySize:
		c = cmp.Compare(a.size, b.size)
	case SortMessagesByActionItemStatus:
		c = compareBool(a.status.IsToAct(), b.status.IsToAct())
	case SortMessagesByUnreadStatus:
		c = compareBool(!a.status.IsRead(), !b.status.IsRead())
	case SortMessagesByImportantStatus:
		c = compareBool(a.status.IsImportant(), b.status.IsImportant())
	case SortMessagesByAttachmentStatus:
		c = compareBool(a.status.HasAttachment(), b.status.HasAttachment())
	}
	if c == 0 {
		c = a.date.Compare(b.date)
	}
	if c == 0 {
		c = cmp.Compare(a.id, b.id)
	}
	return c
}

func (e *Engine) compareGroups(a, b *Item) int {
	var c int
	switch e.sortOrder.GroupSorting {
	case SortGroupsByDateTime:
		c = a.date.Compare(b.date)
	case SortGroupsByDateTimeOfMostRecent:
		c = a.maxDate.Compare(b.maxDate)
	case SortGroupsBySenderOrReceiver, SortGroupsBySender, SortGroupsByReceiver:
		c = e.collator.CompareString(a.Label(), b.Label())
	}
	if c == 0 {
		c = cmp.Compare(a.Label(), b.Label())
	}
	if c == 0 {
		c = cmp.Compare(a.id, b.id)
	}
	return c
}

// compareBool orders items without the property before those with it.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func (e *Engine) markGroupForUpdate(g *Item) {
	e.groupsNeedingUpdate[g.id] = struct{}{}
}

// runPass5 drops emptied group headers and repositions the rest.
func (e *Engine) runPass5(job *viewItemJob, start time.Time) StepResult {
	for len(e.groupsNeedingUpdate) > 0 {
		ids := make([]ItemID, 0, len(e.groupsNeedingUpdate))
		for id := range e.groupsNeedingUpdate {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			delete(e.groupsNeedingUpdate, id)
			g := e.tree.get(id)
			if g == nil || g.kind != KindGroupHeader {
				continue
			}
			if len(g.children) == 0 {
				e.removeGroup(g)
			} else if root := e.tree.get(g.parent); root != nil {
				var changes PropertyChange
				if e.recomputeGroupDate(g) {
					changes |= DateChanged
				}
				if e.tree.recomputeMaxDate(g) {
					changes |= MaxDateChanged
				}
				if changes != 0 {
					e.propagateChanges(g, changes)
				}
				e.resortItem(root, g)
			}
			if len(e.groupsNeedingUpdate) > 0 && e.checkpoint(job, start) {
				return StepInterrupted
			}
		}
	}
	return StepCompleted
}

func (e *Engine) removeGroup(g *Item) {
	if e.groupsByLabel[g.group.label] == g.id {
		delete(e.groupsByLabel, g.group.label)
	}
	if e.currentItem == g.id {
		e.clearCurrentItem()
	}
	e.detachFromParent(g)
	e.tree.release(g)
}

// applyThreadExpandPolicy marks the ancestors of a freshly attached message
// for expansion when the policy asks for it.
func (e *Engine) applyThreadExpandPolicy(it *Item) {
	var expand bool
	switch e.aggregation.ThreadExpandPolicy {
	case AlwaysExpandThreads:
		expand = true
	case ExpandThreadsWithNewMessages:
		expand = it.status == 0
	case ExpandThreadsWithUnreadMessages:
		expand = !it.status.IsRead()
	case ExpandThreadsWithUnreadOrImportantMessages:
		expand = !it.status.IsRead() || it.status.IsImportant()
	}
	if !expand {
		return
	}
	for p := e.tree.get(it.parent); p != nil && p.kind == KindMessage; p = e.tree.get(p.parent) {
		if p.expand == ExpandExecuted {
			continue
		}
		p.expand = ExpandNeeded
		if p.viewable && !e.uiDisconnected {
			p.expand = ExpandExecuted
			e.listener.ExpandRequested(p.id)
		}
	}
}

// applyDeferredExpansion replays expansion requests collected while the
// view was disconnected.
func (e *Engine) applyDeferredExpansion() {
	e.tree.walk(e.tree.rootItem(), 0, func(it *Item, _ int) bool {
		if it.expand == ExpandNeeded && it.viewable {
			it.expand = ExpandExecuted
			e.listener.ExpandRequested(it.id)
		}
		return true
	})
}

// flushExpansion executes the expansions that were waiting for the subtree
// of it to become visible.
func (e *Engine) flushExpansion(it *Item) {
	e.tree.walk(it, 0, func(n *Item, _ int) bool {
		if n.expand == ExpandNeeded {
			n.expand = ExpandExecuted
			e.listener.ExpandRequested(n.id)
		}
		return true
	})
}
