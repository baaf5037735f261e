package messagelist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/theme"
)

// renderRow draws a single tree line: indentation, the expander, then
// either a group label or the message columns.
func (m Model) renderRow(r row, selected bool) string {
	it := m.engine.Item(r.id)
	if it == nil {
		return ""
	}
	// the row styles take two cells
	width := max(0, m.width-2)

	expander := "  "
	if it.ChildCount() > 0 {
		if m.state.expanded[r.id] {
			expander = "▾ "
		} else {
			expander = "▸ "
		}
	}
	prefix := strings.Repeat("  ", r.depth) + expander

	var left, right string
	switch it.Kind() {
	case core.KindGroupHeader:
		total, unread := m.engine.GroupStats(r.id)
		left = prefix + theme.GroupHeaderStyle.Render(it.Label())
		right = theme.DimmedStyle.Render(countLabel(total, unread))

	default:
		glyph, glyphStyle := theme.StatusGlyph(it.Status())
		subject := it.Subject()
		if subject == "" {
			subject = "(no subject)"
		}
		if !it.Status().IsRead() {
			subject = theme.UnreadStyle.Render(subject)
		}

		date := it.Date()
		if it.ChildCount() > 0 && !m.state.expanded[r.id] {
			total, _ := m.engine.GroupStats(r.id)
			subject += theme.DimmedStyle.Render(fmt.Sprintf(" (+%d)", total-1))
			date = it.MaxDate()
		}

		left = prefix + glyphStyle.Render(glyph) + theme.AttachmentGlyph(it.Status()) + " " + subject
		right = fmt.Sprintf("%-24s %s",
			truncate(it.DisplaySenderOrReceiver(), 24),
			theme.DateStyle.Render(shortDate(date, time.Now())),
		)
	}

	right = truncate(right, width/2)
	left = truncate(left, max(0, width-lipgloss.Width(right)-1))
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	line := left + strings.Repeat(" ", gap) + right

	if selected {
		return theme.SelectedRowStyle.Render(line)
	}
	return theme.RowStyle.Render(line)
}

func countLabel(total, unread int) string {
	if unread == 0 {
		return fmt.Sprintf("%d", total)
	}
	return fmt.Sprintf("%d, %d unread", total, unread)
}

// truncate cuts s to at most width cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// shortDate formats t relative to now: the time of day for today, the day
// and month within the year, the full date otherwise.
func shortDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("2006-01-02")
	}
}
