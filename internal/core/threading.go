package core

import (
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ThreadingOutcome is the result of a parent lookup.
type ThreadingOutcome int

const (
	OutcomePerfectParent ThreadingOutcome = iota
	OutcomeImperfectParent
	OutcomeParentMissing
	OutcomeNonThreadable
	OutcomeCycleRejected
)

func (o ThreadingOutcome) String() string {
	switch o {
	case OutcomePerfectParent:
		return "perfect-parent"
	case OutcomeImperfectParent:
		return "imperfect-parent"
	case OutcomeParentMissing:
		return "parent-missing"
	case OutcomeCycleRejected:
		return "cycle-rejected"
	default:
		return "non-threadable"
	}
}

func (o ThreadingOutcome) status() ThreadingStatus {
	switch o {
	case OutcomePerfectParent:
		return PerfectParentFound
	case OutcomeImperfectParent:
		return ImperfectParentFound
	case OutcomeParentMissing:
		return ParentMissing
	default:
		return NonThreadable
	}
}

func (e *Engine) threadingEnabled() bool { return e.aggregation.Threading != NoThreading }

func (e *Engine) subjectThreadingEnabled() bool {
	return e.aggregation.Threading == PerfectReferencesAndSubject
}

// setThreadingStatus is the only place the threading status of a live
// message changes. It keeps the pending cache membership in sync: a message
// waits there iff it has an In-Reply-To key and no perfect parent.
func (e *Engine) setThreadingStatus(it *Item, s ThreadingStatus) {
	it.msg.threadingStatus = s
	e.syncPendingCache(it)
}

func (e *Engine) syncPendingCache(it *Item) {
	m := it.msg
	want := e.threadingEnabled() &&
		!m.inReplyTo.IsEmpty() &&
		m.threadingStatus != PerfectParentFound &&
		e.tree.get(it.id) == it
	switch {
	case want && !m.inPendingCache:
		set := e.pendingCache[m.inReplyTo]
		if set == nil {
			set = make(map[ItemID]struct{})
			e.pendingCache[m.inReplyTo] = set
		}
		set[it.id] = struct{}{}
		m.inPendingCache = true
	case !want && m.inPendingCache:
		if set := e.pendingCache[m.inReplyTo]; set != nil {
			delete(set, it.id)
			if len(set) == 0 {
				delete(e.pendingCache, m.inReplyTo)
			}
		}
		m.inPendingCache = false
	}
}

// registerMessageID puts it into the id cache. With duplicate ids the first
// message keeps the slot and the others wait in line for it.
func (e *Engine) registerMessageID(it *Item) bool {
	d := it.msg.messageID
	if d.IsEmpty() {
		return false
	}
	if owner := e.tree.get(e.idCache[d]); owner != nil && owner != it {
		e.log.WithFields(logrus.Fields{
			"unique_id": it.UniqueID(),
			"owner":     owner.UniqueID(),
		}).Debug("Duplicate message id")
		if !slices.Contains(e.idDuplicates[d], it.id) {
			e.idDuplicates[d] = append(e.idDuplicates[d], it.id)
		}
		return false
	}
	e.idCache[d] = it.id
	it.msg.inIDCache = true
	return true
}

func (e *Engine) lookupMessageID(d Digest) *Item {
	if d.IsEmpty() {
		return nil
	}
	return e.tree.get(e.idCache[d])
}

func (e *Engine) addToSubjectCache(it *Item) {
	m := it.msg
	if !e.subjectThreadingEnabled() || m.strippedSubject.IsEmpty() || m.inSubjectCache {
		return
	}
	list := e.subjectCache[m.strippedSubject]
	i := sort.Search(len(list), func(i int) bool {
		c := e.tree.get(list[i])
		return c == nil || c.date.After(it.date)
	})
	list = append(list, NoItem)
	copy(list[i+1:], list[i:])
	list[i] = it.id
	e.subjectCache[m.strippedSubject] = list
	m.inSubjectCache = true
}

func (e *Engine) removeFromSubjectCache(it *Item) {
	m := it.msg
	if !m.inSubjectCache {
		return
	}
	list := e.subjectCache[m.strippedSubject]
	for i, id := range list {
		if id == it.id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(e.subjectCache, m.strippedSubject)
	} else {
		e.subjectCache[m.strippedSubject] = list
	}
	m.inSubjectCache = false
}

// removeFromCaches drops it from every threading cache. It must be called
// before the item is released.
func (e *Engine) removeFromCaches(it *Item) {
	m := it.msg
	if m.inIDCache {
		if e.idCache[m.messageID] == it.id {
			delete(e.idCache, m.messageID)
			e.promoteDuplicate(m.messageID)
		}
		m.inIDCache = false
	} else if dups := e.idDuplicates[m.messageID]; len(dups) > 0 {
		e.setDuplicates(m.messageID, slices.DeleteFunc(dups, func(id ItemID) bool { return id == it.id }))
	}
	m.threadingStatus = NonThreadable
	if m.inPendingCache {
		if set := e.pendingCache[m.inReplyTo]; set != nil {
			delete(set, it.id)
			if len(set) == 0 {
				delete(e.pendingCache, m.inReplyTo)
			}
		}
		m.inPendingCache = false
	}
	e.removeFromSubjectCache(it)
}

// promoteDuplicate hands the id cache slot of d to the oldest live message
// waiting for it, which then adopts the replies left without a parent.
func (e *Engine) promoteDuplicate(d Digest) {
	dups := e.idDuplicates[d]
	for len(dups) > 0 {
		next := e.tree.get(dups[0])
		dups = dups[1:]
		if next == nil || next.kind != KindMessage || next.msg.messageID != d {
			continue
		}
		e.setDuplicates(d, dups)
		e.idCache[d] = next.id
		next.msg.inIDCache = true
		e.adoptPendingChildren(next)
		return
	}
	delete(e.idDuplicates, d)
}

func (e *Engine) setDuplicates(d Digest, dups []ItemID) {
	if len(dups) == 0 {
		delete(e.idDuplicates, d)
		return
	}
	e.idDuplicates[d] = dups
}

// adoptPendingChildren attaches the messages that were waiting for parent's
// message id. It runs when parent has just been filled.
func (e *Engine) adoptPendingChildren(parent *Item) {
	set := e.pendingCache[parent.msg.messageID]
	if len(set) == 0 {
		return
	}
	waiting := make([]ItemID, 0, len(set))
	for id := range set {
		waiting = append(waiting, id)
	}
	// map order is random; keep attachment order stable
	sort.Slice(waiting, func(i, j int) bool { return waiting[i] < waiting[j] })
	for _, id := range waiting {
		child := e.tree.get(id)
		if child == nil || child == parent || e.tree.hasAncestor(parent, child.id) {
			continue
		}
		if e.attachMessageToParent(parent, child) {
			e.setThreadingStatus(child, PerfectParentFound)
		}
	}
}

// findMessageParent looks up the thread parent of it by In-Reply-To and,
// when enabled, by References. Matches that would close a cycle are
// rejected.
func (e *Engine) findMessageParent(it *Item) (*Item, ThreadingOutcome) {
	m := it.msg
	if p := e.lookupMessageID(m.inReplyTo); p != nil {
		if e.wouldCycle(p, it) {
			e.logCycle(it, p, "in-reply-to")
			return nil, OutcomeCycleRejected
		}
		return p, OutcomePerfectParent
	}
	if e.aggregation.Threading >= PerfectAndReferences {
		if p := e.lookupMessageID(m.references); p != nil {
			if e.wouldCycle(p, it) {
				e.logCycle(it, p, "references")
				return nil, OutcomeCycleRejected
			}
			return p, OutcomeImperfectParent
		}
	}
	threadable := !m.inReplyTo.IsEmpty() || !m.references.IsEmpty()
	if e.subjectThreadingEnabled() && m.subjectIsPrefixed && !m.strippedSubject.IsEmpty() {
		threadable = true
	}
	if threadable {
		return nil, OutcomeParentMissing
	}
	return nil, OutcomeNonThreadable
}

// guessMessageParent picks the closest preceding message with the same
// stripped subject inside the subject threading window.
func (e *Engine) guessMessageParent(it *Item) *Item {
	m := it.msg
	if m.strippedSubject.IsEmpty() || !m.subjectIsPrefixed {
		return nil
	}
	list := e.subjectCache[m.strippedSubject]
	i := sort.Search(len(list), func(i int) bool {
		c := e.tree.get(list[i])
		return c == nil || !c.date.Before(it.date)
	})
	for i--; i >= 0; i-- {
		c := e.tree.get(list[i])
		if c == nil || c == it {
			continue
		}
		gap := it.date.Sub(c.date)
		if gap < e.minGap {
			continue
		}
		if gap > e.maxGap {
			break
		}
		if e.wouldCycle(c, it) {
			continue
		}
		return c
	}
	return nil
}

// wouldCycle reports whether attaching child below parent would make a node
// its own ancestor.
func (e *Engine) wouldCycle(parent, child *Item) bool {
	return parent == child || e.tree.hasAncestor(parent, child.id)
}

func (e *Engine) logCycle(it, parent *Item, via string) {
	e.log.WithFields(logrus.Fields{
		"unique_id": it.UniqueID(),
		"parent":    parent.UniqueID(),
		"via":       via,
	}).Debug("Rejected thread parent that would create a cycle")
}

// threadOnFill is the part of Pass1Fill that links it into the thread
// structure right away. It reports whether it got a parent.
func (e *Engine) threadOnFill(it *Item) bool {
	owner := e.registerMessageID(it)
	if owner {
		e.adoptPendingChildren(it)
	}
	e.addToSubjectCache(it)

	if p := e.lookupMessageID(it.msg.inReplyTo); p != nil {
		if e.wouldCycle(p, it) {
			e.logCycle(it, p, "in-reply-to")
			e.setThreadingStatus(it, NonThreadable)
			return false
		}
		if e.attachMessageToParent(p, it) {
			e.setThreadingStatus(it, PerfectParentFound)
			return true
		}
	}
	e.setThreadingStatus(it, ParentMissing)
	return false
}

// runPass2 threads the unassigned messages by In-Reply-To and References.
func (e *Engine) runPass2(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex < len(e.unassigned) {
		it := e.tree.get(e.unassigned[job.currentIndex])
		job.currentIndex++
		if it != nil && it.kind == KindMessage {
			e.threadPass2(it)
		}
		if job.currentIndex < len(e.unassigned) && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	e.unassigned = nil
	return StepCompleted
}

func (e *Engine) threadPass2(it *Item) {
	m := it.msg
	if it.parent != NoItem && m.threadingStatus != ParentMissing {
		return
	}
	parent, outcome := e.findMessageParent(it)
	if parent != nil {
		if cur := e.tree.get(it.parent); cur == parent {
			e.setThreadingStatus(it, outcome.status())
			return
		}
		if e.attachMessageToParent(parent, it) {
			e.setThreadingStatus(it, outcome.status())
			return
		}
		outcome = OutcomeNonThreadable
	}
	e.setThreadingStatus(it, outcome.status())
	if outcome == OutcomeParentMissing && e.subjectThreadingEnabled() && m.subjectIsPrefixed {
		e.subjectQueue = append(e.subjectQueue, it.id)
		return
	}
	e.groupingQueue = append(e.groupingQueue, it.id)
}

// runPass3 threads what is left by subject.
func (e *Engine) runPass3(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex < len(e.subjectQueue) {
		it := e.tree.get(e.subjectQueue[job.currentIndex])
		job.currentIndex++
		if it != nil && it.kind == KindMessage {
			e.threadPass3(it)
		}
		if job.currentIndex < len(e.subjectQueue) && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	e.subjectQueue = nil
	return StepCompleted
}

func (e *Engine) threadPass3(it *Item) {
	if it.msg.threadingStatus != ParentMissing {
		// threaded in the meantime by a perfect match
		if it.parent == NoItem {
			e.groupingQueue = append(e.groupingQueue, it.id)
		}
		return
	}
	if p := e.guessMessageParent(it); p != nil {
		if e.tree.get(it.parent) == p || e.attachMessageToParent(p, it) {
			e.setThreadingStatus(it, ImperfectParentFound)
			return
		}
	}
	e.groupingQueue = append(e.groupingQueue, it.id)
}
