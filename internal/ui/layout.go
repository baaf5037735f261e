package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(0, l.Height-l.HeaderHeight-l.StatusBarHeight)
}

// RenderHeader renders the top bar: the folder title on the left and the
// sync state on the right.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	return l.spread(theme.HeaderStyle, theme.HeaderStyle.Render(title), theme.HeaderStyle.Render(syncStatus))
}

// RenderStatusBar renders the bottom bar with key hints on the left and the
// engine progress on the right. An empty progress leaves the right side
// blank.
func (l Layout) RenderStatusBar(hints string, progress string) string {
	right := ""
	if progress != "" {
		right = theme.ProgressStyle.Render(progress)
	}
	return l.spread(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), right)
}

// spread joins left and right with a filler in the background of base so
// the bar spans the full width.
func (l Layout) spread(base lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(base.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
