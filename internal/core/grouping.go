package core

import (
	"strings"
	"time"
)

const unknownGroupLabel = "Unknown"

// runPass4 puts every still unattached message under its group header, or
// under the root when grouping is off.
func (e *Engine) runPass4(job *viewItemJob, start time.Time) StepResult {
	for job.currentIndex < len(e.groupingQueue) {
		it := e.tree.get(e.groupingQueue[job.currentIndex])
		job.currentIndex++
		if it != nil && it.kind == KindMessage {
			if it.msg.threadingStatus == ParentMissing {
				// nothing left to try; a late parent still adopts it
				e.setThreadingStatus(it, NonThreadable)
			}
			if it.parent == NoItem {
				e.groupMessage(it)
			}
		}
		if job.currentIndex < len(e.groupingQueue) && e.checkpoint(job, start) {
			return StepInterrupted
		}
	}
	e.groupingQueue = nil
	return StepCompleted
}

// groupMessage attaches a top level message to the group header matching
// its grouping key, creating the header on first use.
func (e *Engine) groupMessage(it *Item) {
	root := e.tree.rootItem()
	if e.aggregation.Grouping == NoGrouping {
		e.attachMessageToParent(root, it)
		return
	}
	label, date := e.groupKey(it)
	g := e.tree.get(e.groupsByLabel[label])
	if g == nil {
		g = e.tree.alloc(KindGroupHeader)
		g.group.label = label
		g.date = date
		g.maxDate = it.maxDate
		g.subject = label
		e.groupsByLabel[label] = g.id
		e.applyGroupExpandPolicy(g)
		e.attachMessageToParent(root, g)
	}
	e.attachMessageToParent(g, it)
}

// groupKey returns the label and representative date of the group a top
// level message belongs to.
func (e *Engine) groupKey(it *Item) (string, time.Time) {
	date := e.groupDate(it)
	var label string
	switch e.aggregation.Grouping {
	case GroupByDate:
		label = e.dateLabel(date, false)
	case GroupByDateRange:
		label = e.dateLabel(date, true)
	case GroupBySenderOrReceiver:
		label = it.DisplaySenderOrReceiver()
	case GroupBySender:
		label = it.sender
	case GroupByReceiver:
		label = it.receiver
	}
	if strings.TrimSpace(label) == "" {
		label = unknownGroupLabel
	}
	return label, date
}

// groupDate returns the date a top level message contributes to its group.
func (e *Engine) groupDate(it *Item) time.Time {
	if e.aggregation.ThreadLeader == MostRecentMessage {
		return it.maxDate
	}
	return it.date
}

// recomputeGroupDate sets the date of group header g to the most recent
// date among its children. It reports whether the value moved. An empty
// header keeps its date until Pass5 drops it.
func (e *Engine) recomputeGroupDate(g *Item) bool {
	if len(g.children) == 0 {
		return false
	}
	var d time.Time
	for _, c := range g.children {
		if ci := e.tree.get(c); ci != nil {
			if cd := e.groupDate(ci); cd.After(d) {
				d = cd
			}
		}
	}
	if d.Equal(g.date) {
		return false
	}
	g.date = d
	return true
}

// needsRegroup reports whether a change moved the top level message it out
// of the bucket of its group header g.
func (e *Engine) needsRegroup(it *Item, g *Item, changes PropertyChange) bool {
	var relevant PropertyChange
	switch {
	case e.aggregation.IsDateGrouping():
		relevant = DateChanged
		if e.aggregation.ThreadLeader == MostRecentMessage {
			relevant = MaxDateChanged
		}
	case e.aggregation.Grouping != NoGrouping:
		relevant = FieldsChanged
	}
	if changes&relevant == 0 {
		return false
	}
	label, _ := e.groupKey(it)
	return label != g.group.label
}

// regroup moves a top level message to the group matching its current key.
// The old header is pruned in Pass5 if it ends up empty.
func (e *Engine) regroup(it *Item) {
	e.detachFromParent(it)
	e.groupMessage(it)
}

func (e *Engine) applyGroupExpandPolicy(g *Item) {
	switch e.aggregation.GroupExpandPolicy {
	case AlwaysExpandGroups:
		g.expand = ExpandNeeded
	case ExpandRecentGroups:
		if !g.date.IsZero() && !startOfDay(g.date.In(e.today.Location())).Before(e.today) {
			g.expand = ExpandNeeded
		}
	}
}

// dateLabel buckets t relative to the current day. The plain variant uses
// the weekday for the last week and the full date beyond; the range variant
// folds older dates into weeks, months and years.
func (e *Engine) dateLabel(t time.Time, ranges bool) string {
	if t.IsZero() {
		return unknownGroupLabel
	}
	today := e.today
	day := startOfDay(t.In(today.Location()))
	if day.After(today) {
		return unknownGroupLabel
	}
	days := daysBetween(day, today)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	}
	if !ranges {
		if days < 7 {
			return day.Weekday().String()
		}
		return day.Format("Monday, January 2, 2006")
	}

	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	if !day.Before(weekStart) {
		return day.Weekday().String()
	}
	if day.Year() == today.Year() && day.Month() == today.Month() {
		weeks := (daysBetween(day, weekStart)-1)/7 + 1
		switch weeks {
		case 1:
			return "Last Week"
		case 2:
			return "Two Weeks Ago"
		case 3:
			return "Three Weeks Ago"
		case 4:
			return "Four Weeks Ago"
		default:
			return "Five Weeks Ago"
		}
	}
	if day.Year() == today.Year() {
		return day.Month().String()
	}
	return day.Format("January 2006")
}

// daysBetween counts calendar days from a to b, both at local midnight.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
