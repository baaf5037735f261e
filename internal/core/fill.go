package core

import (
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/model"
)

// runPass1Fill creates a message for every storage row of the job.
func (e *Engine) runPass1Fill(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex <= job.endIndex {
		row := job.currentIndex
		job.currentIndex++
		e.fillRow(row)
		if job.currentIndex <= job.endIndex && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	return StepCompleted
}

func (e *Engine) fillRow(row int) {
	if row >= e.storage.RowCount() {
		e.log.WithField("row", row).Warn("Fill job past the end of storage")
		return
	}
	it := e.tree.alloc(KindMessage)
	it.msg.useReceiver = e.useReceiver
	if !e.storage.InitializeMessageItem(it, row, e.useReceiver) {
		e.log.WithField("row", row).Debug("Storage refused row, skipping")
		e.tree.release(it)
		return
	}
	it.maxDate = it.date
	it.msg.index = e.mapper.CreateModelInvariantIndex(row, it.id)
	it.matchesFilter = e.filter.Match(it)
	e.checkPreSelection(it)

	if !e.threadingEnabled() {
		e.groupingQueue = append(e.groupingQueue, it.id)
		return
	}
	e.storage.FillMessageItemThreadingData(it, row, e.aggregation.threadingDataSubset())
	if !e.threadOnFill(it) {
		e.unassigned = append(e.unassigned, it.id)
	}
}

// runPass1Cleanup removes the messages whose rows went away.
func (e *Engine) runPass1Cleanup(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex < len(job.invariants) {
		idx := job.invariants[job.currentIndex]
		job.currentIndex++
		if it := e.tree.get(idx.Item()); it != nil && it.kind == KindMessage && it.msg.index == idx {
			e.removeMessage(it)
		}
		if job.currentIndex < len(job.invariants) && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	return StepCompleted
}

// removeMessage detaches it, orphans its children and frees it. Orphans are
// queued for threading again; an orphan subtree holding the current item is
// grouped right away so the selection never disappears mid job.
func (e *Engine) removeMessage(it *Item) {
	if e.currentItem == it.id {
		e.clearCurrentItem()
	}
	e.forgetPreSelection(it.id)
	e.removeFromCaches(it)
	e.detachFromParent(it)

	orphans := slices.Clone(it.children)
	for _, cid := range orphans {
		c := e.tree.get(cid)
		if c == nil {
			continue
		}
		e.tree.takeChild(it, c)
		if c.kind != KindMessage {
			continue
		}
		if e.threadingEnabled() {
			e.setThreadingStatus(c, ParentMissing)
			e.unassigned = append(e.unassigned, c.id)
		} else {
			e.groupingQueue = append(e.groupingQueue, c.id)
		}
		if e.currentItem != NoItem && e.tree.subtreeContains(c, e.currentItem) {
			e.groupMessage(c)
		}
	}
	if len(orphans) > 0 {
		e.log.WithFields(logrus.Fields{
			"unique_id": it.UniqueID(),
			"orphans":   len(orphans),
		}).Debug("Removed message with children")
	}
	e.tree.release(it)
}

// runPass1Update refreshes the messages whose rows changed in place.
func (e *Engine) runPass1Update(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex < len(job.invariants) {
		idx := job.invariants[job.currentIndex]
		job.currentIndex++
		if idx.IsValid() {
			if it := e.tree.get(idx.Item()); it != nil && it.kind == KindMessage {
				e.updateMessage(it, idx.Row())
			}
		}
		if job.currentIndex < len(job.invariants) && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	return StepCompleted
}

func (e *Engine) updateMessage(it *Item, row int) {
	var (
		prevDate     = it.date
		prevMaxDate  = it.maxDate
		prevStatus   = it.status
		prevSubject  = it.subject
		prevSender   = it.sender
		prevReceiver = it.receiver
		prevSize     = it.size
	)
	e.storage.UpdateMessageItemData(it, row)

	var changes PropertyChange
	if !it.date.Equal(prevDate) {
		changes |= DateChanged
		if it.msg.inSubjectCache {
			e.removeFromSubjectCache(it)
			e.addToSubjectCache(it)
		}
	}
	e.tree.recomputeMaxDate(it)
	if !it.maxDate.Equal(prevMaxDate) {
		changes |= MaxDateChanged
	}
	changes |= statusChanges(prevStatus, it.status)
	if it.subject != prevSubject || it.sender != prevSender ||
		it.receiver != prevReceiver || it.size != prevSize {
		changes |= FieldsChanged
	}

	it.matchesFilter = e.filter.Match(it)
	if it.viewable && !e.uiDisconnected {
		e.listener.DataChanged(it.id)
	}
	if changes != 0 {
		e.propagateChanges(it, changes)
	}
}

// statusChanges maps a status transition onto the property bits the sort
// orders care about.
func statusChanges(before, after model.Status) PropertyChange {
	var c PropertyChange
	if before.IsToAct() != after.IsToAct() {
		c |= ActionItemStatusChanged
	}
	if before.IsRead() != after.IsRead() {
		c |= UnreadStatusChanged
	}
	if before.IsImportant() != after.IsImportant() {
		c |= ImportantStatusChanged
	}
	if before.HasAttachment() != after.HasAttachment() {
		c |= AttachmentStatusChanged
	}
	return c
}
