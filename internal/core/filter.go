package core

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/nhle/messagelist/internal/model"
)

// Filter hides messages that do not match. A thread or group stays visible
// as long as any message below it matches.
type Filter struct {
	text   string
	folded string
	status model.Status
}

// NewFilter matches messages whose subject, sender or receiver contains
// text (case-insensitively) and that carry every flag in status.
func NewFilter(text string, status model.Status) Filter {
	text = strings.TrimSpace(text)
	return Filter{
		text:   text,
		folded: cases.Fold().String(text),
		status: status,
	}
}

// Text returns the search text as given.
func (f Filter) Text() string { return f.text }

// Status returns the required status flags.
func (f Filter) Status() model.Status { return f.status }

// IsEmpty reports whether f lets everything through.
func (f Filter) IsEmpty() bool { return f.text == "" && f.status == 0 }

// Match reports whether it passes the filter. Only messages are tested;
// other kinds always match.
func (f Filter) Match(it *Item) bool {
	if f.IsEmpty() || it.kind != KindMessage {
		return true
	}
	if f.status != 0 && !it.status.Has(f.status) {
		return false
	}
	if f.folded == "" {
		return true
	}
	fold := cases.Fold()
	for _, s := range []string{it.subject, it.sender, it.receiver} {
		if strings.Contains(fold.String(s), f.folded) {
			return true
		}
	}
	return false
}

// Filter returns the active filter.
func (e *Engine) Filter() Filter { return e.filter }

// SetFilter re-evaluates every message against f. No reload is needed.
func (e *Engine) SetFilter(f Filter) {
	e.filter = f
	e.tree.walk(e.tree.rootItem(), 0, func(it *Item, _ int) bool {
		it.matchesFilter = f.Match(it)
		return true
	})
	e.listener.LayoutChanged()
}

// IsShown reports whether id passes the filter itself or through one of
// its descendants.
func (e *Engine) IsShown(id ItemID) bool {
	it := e.tree.get(id)
	if it == nil {
		return false
	}
	if e.filter.IsEmpty() {
		return true
	}
	found := !e.tree.walk(it, 0, func(n *Item, _ int) bool {
		return n.kind != KindMessage || !n.matchesFilter
	})
	return found
}
