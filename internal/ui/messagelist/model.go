package messagelist

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
	"github.com/nhle/messagelist/internal/theme"
)

// stepMsg asks the model to run one engine step.
type stepMsg struct{}

// rolloverMsg asks the model to check for a new local day.
type rolloverMsg struct{}

// SettingsChangedMsg is sent after the grouping, threading or sort order
// changed from inside the view.
type SettingsChangedMsg struct {
	Aggregation core.Aggregation
	SortOrder   core.SortOrder
}

// rolloverInterval is how often date groups are checked against the clock.
const rolloverInterval = time.Minute

// messageSortCycle is the order the sort key cycles through.
var messageSortCycle = []core.MessageSorting{
	core.SortMessagesByDateTime,
	core.SortMessagesByDateTimeOfMostRecent,
	core.SortMessagesBySenderOrReceiver,
	core.SortMessagesBySubject,
	core.SortMessagesBySize,
	core.SortMessagesByUnreadStatus,
	core.SortMessagesByImportantStatus,
	core.SortMessagesByActionItemStatus,
}

// Model is the threaded message list view. It owns the engine driving it:
// engine work runs in small steps scheduled as tea commands, so the UI
// stays responsive while a large folder loads.
type Model struct {
	engine      *core.Engine
	folder      *store.Folder
	keys        *keys.KeyMap
	state       *viewState
	filterMode  bool
	filterInput textinput.Model
	width       int
	height      int
}

// New attaches folder to engine and returns the view for it. The engine's
// listener is replaced by the view.
func New(
	engine *core.Engine,
	folder *store.Folder,
	mode core.PreSelectionMode,
	k *keys.KeyMap,
	width, height int,
) Model {
	st := newViewState(engine)
	engine.SetListener(st)
	engine.SetStorage(folder, mode)

	fi := textinput.New()
	fi.Placeholder = "subject, sender or receiver..."
	fi.Prompt = "/ "
	fi.Width = width - 4

	return Model{
		engine:      engine,
		folder:      folder,
		keys:        k,
		state:       st,
		filterInput: fi,
		width:       width,
		height:      height,
	}
}

// Init starts the fill and the day rollover check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.schedule(), rolloverTick())
}

func rolloverTick() tea.Cmd {
	return tea.Every(rolloverInterval, func(time.Time) tea.Msg { return rolloverMsg{} })
}

// schedule queues the next engine step unless one is already queued or
// the engine is idle.
func (m Model) schedule() tea.Cmd {
	if m.state.scheduled || !m.engine.Pending() {
		return nil
	}
	m.state.scheduled = true
	return tea.Tick(m.engine.NextDelay(), func(time.Time) tea.Msg { return stepMsg{} })
}

// Update handles messages for the message list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m, cmd = m.update(msg)
	m.state.refresh()
	m.state.scrollTo(m.listHeight())
	return m, tea.Batch(cmd, m.schedule())
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.state.scheduled = false
		m.engine.Step()
		return m, nil

	case rolloverMsg:
		m.engine.CheckDayRollover()
		return m, rolloverTick()

	case tea.KeyMsg:
		if m.filterMode {
			return m.handleFilterKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}
	return m, nil
}

// handleFilterKeys edits the filter text. The filter applies as it is
// typed; esc drops it.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil

	case "esc":
		m.filterMode = false
		m.filterInput.Reset()
		m.filterInput.Blur()
		m.SetFilterText("")
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.SetFilterText(m.filterInput.Value())
	return m, cmd
}

// handleNormalKeys processes key input outside filter editing.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	st := m.state
	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.PgDown):
		m.moveCursor(max(1, m.listHeight()-1))
	case key.Matches(msg, m.keys.PgUp):
		m.moveCursor(-max(1, m.listHeight()-1))
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(st.rows))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(st.rows))

	case key.Matches(msg, m.keys.Toggle):
		m.setExpanded(st.cursor, !st.expanded[st.cursor])
	case key.Matches(msg, m.keys.Expand):
		m.setExpanded(st.cursor, true)
	case key.Matches(msg, m.keys.Collapse):
		m.collapseOrParent()
	case key.Matches(msg, m.keys.NextUnread):
		m.jumpToNextUnread()

	case key.Matches(msg, m.keys.Search):
		m.filterMode = true
		m.filterInput.SetValue(m.engine.Filter().Text())
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.FilterImportant):
		f := m.engine.Filter()
		status := f.Status() ^ model.StatusImportant
		m.engine.SetFilter(core.NewFilter(f.Text(), status))

	case key.Matches(msg, m.keys.ToggleRead):
		m.toggleStatus(model.StatusRead)
	case key.Matches(msg, m.keys.ToggleImportant):
		m.toggleStatus(model.StatusImportant)
	case key.Matches(msg, m.keys.ToggleToAct):
		m.toggleStatus(model.StatusToAct)
	case key.Matches(msg, m.keys.Delete):
		m.deleteCurrent()

	case key.Matches(msg, m.keys.CycleGrouping):
		a := m.engine.Aggregation()
		a.Grouping = (a.Grouping + 1) % (core.GroupByReceiver + 1)
		return m, m.SetAggregation(a)
	case key.Matches(msg, m.keys.CycleThreading):
		a := m.engine.Aggregation()
		a.Threading = (a.Threading + 1) % (core.PerfectReferencesAndSubject + 1)
		return m, m.SetAggregation(a)
	case key.Matches(msg, m.keys.CycleSort):
		s := m.engine.SortOrder()
		i := slices.Index(messageSortCycle, s.MessageSorting)
		s.MessageSorting = messageSortCycle[(i+1)%len(messageSortCycle)]
		return m, m.SetSortOrder(s)
	case key.Matches(msg, m.keys.FlipDirection):
		s := m.engine.SortOrder()
		if s.MessageSortDirection == core.Ascending {
			s.MessageSortDirection = core.Descending
		} else {
			s.MessageSortDirection = core.Ascending
		}
		return m, m.SetSortOrder(s)
	}
	return m, nil
}

// moveCursor moves the cursor by delta visible rows, clamped to the list.
func (m *Model) moveCursor(delta int) {
	st := m.state
	st.refresh()
	if len(st.rows) == 0 {
		return
	}
	i := min(max(st.cursorRow+delta, 0), len(st.rows)-1)
	m.setCursor(st.rows[i].id)
}

// setCursor moves the cursor to id. Messages also become the engine's
// current item.
func (m *Model) setCursor(id core.ItemID) {
	m.state.cursor = id
	if it := m.engine.Item(id); it != nil && it.Kind() == core.KindMessage {
		m.engine.SetCurrentItem(id)
	}
}

func (m *Model) setExpanded(id core.ItemID, expanded bool) {
	it := m.engine.Item(id)
	if it == nil || it.ChildCount() == 0 || m.state.expanded[id] == expanded {
		return
	}
	if expanded {
		m.state.expanded[id] = true
	} else {
		delete(m.state.expanded, id)
	}
	m.state.dirty = true
}

// collapseOrParent collapses the cursor node, or moves to its parent when
// it is already collapsed.
func (m *Model) collapseOrParent() {
	st := m.state
	if st.expanded[st.cursor] {
		m.setExpanded(st.cursor, false)
		return
	}
	if p := m.engine.Parent(st.cursor); p != core.NoItem && p != m.engine.Root() {
		m.setCursor(p)
	}
}

// jumpToNextUnread moves to the next unread message after the cursor in
// tree order, wrapping around and expanding whatever hides it.
func (m *Model) jumpToNextUnread() {
	var order []core.ItemID
	m.engine.Walk(func(it *core.Item, _ int) bool {
		if it.Kind() == core.KindMessage && it.IsViewable() {
			order = append(order, it.ID())
		}
		return true
	})
	start := slices.Index(order, m.state.cursor)
	for n := 1; n <= len(order); n++ {
		id := order[(start+n+len(order))%len(order)]
		if it := m.engine.Item(id); !it.Status().IsRead() && it.MatchesFilter() {
			m.state.reveal(id)
			m.setCursor(id)
			return
		}
	}
}

// toggleStatus flips flag on the cursor message. On a group header or a
// collapsed thread it applies to every message below: set when any lacks
// it, cleared otherwise.
func (m *Model) toggleStatus(flag model.Status) {
	it := m.engine.Item(m.state.cursor)
	if it == nil {
		return
	}
	if it.Kind() == core.KindMessage && (it.ChildCount() == 0 || m.state.expanded[it.ID()]) {
		m.engine.SetMessageStatus(it.ID(), it.Status()^flag)
		return
	}

	var targets []*core.Item
	set := false
	m.walkBelow(it, func(n *core.Item) {
		if n.Kind() == core.KindMessage {
			targets = append(targets, n)
			set = set || !n.Status().Has(flag)
		}
	})
	for _, n := range targets {
		status := n.Status().Clear(flag)
		if set {
			status = n.Status().Set(flag)
		}
		if status != n.Status() {
			m.engine.SetMessageStatus(n.ID(), status)
		}
	}
}

func (m *Model) walkBelow(it *core.Item, fn func(*core.Item)) {
	fn(it)
	for _, c := range it.Children() {
		if ci := m.engine.Item(c); ci != nil {
			m.walkBelow(ci, fn)
		}
	}
}

// deleteCurrent removes the cursor message from the folder. Its replies
// stay and are threaded again.
func (m *Model) deleteCurrent() {
	row := m.engine.StorageRow(m.state.cursor)
	if row < 0 {
		return
	}
	m.state.err = m.folder.Remove(context.Background(), row, 1)
}

// SetFilterText filters on text, keeping the status part of the filter.
func (m *Model) SetFilterText(text string) {
	f := m.engine.Filter()
	m.engine.SetFilter(core.NewFilter(text, f.Status()))
}

// SetAggregation switches the grouping and threading policies and reloads
// the view.
func (m *Model) SetAggregation(a core.Aggregation) tea.Cmd {
	m.engine.SetAggregation(a)
	return m.settingsChanged()
}

// SetSortOrder switches the sort order and reloads the view.
func (m *Model) SetSortOrder(s core.SortOrder) tea.Cmd {
	m.engine.SetSortOrder(s)
	return m.settingsChanged()
}

// ApplySettings switches to settings chosen outside the view. Unchanged
// parts do not reload the engine.
func (m *Model) ApplySettings(a core.Aggregation, s core.SortOrder) tea.Cmd {
	if a != m.engine.Aggregation() {
		m.engine.SetAggregation(a)
	}
	if s != m.engine.SortOrder() {
		m.engine.SetSortOrder(s)
	}
	return m.Refresh()
}

// Refresh picks up changes made to the engine or the folder outside Update
// and schedules the engine work they queued.
func (m *Model) Refresh() tea.Cmd {
	m.state.refresh()
	m.state.scrollTo(m.listHeight())
	return m.schedule()
}

func (m Model) settingsChanged() tea.Cmd {
	msg := SettingsChangedMsg{Aggregation: m.engine.Aggregation(), SortOrder: m.engine.SortOrder()}
	return func() tea.Msg { return msg }
}

// ExpandAll expands every node with children.
func (m *Model) ExpandAll() {
	m.engine.Walk(func(it *core.Item, _ int) bool {
		if it.ChildCount() > 0 {
			m.state.expanded[it.ID()] = true
		}
		return true
	})
	m.state.dirty = true
}

// CollapseAll collapses the whole tree.
func (m *Model) CollapseAll() {
	clear(m.state.expanded)
	m.state.dirty = true
}

// Merge adds freshly fetched records to the folder. Records the folder
// already holds only get their status refreshed.
func (m *Model) Merge(ctx context.Context, recs []model.MessageRecord) (int, error) {
	n, err := m.folder.Merge(ctx, recs)
	if err != nil {
		m.state.err = err
	}
	return n, err
}

// Reload re-reads the folder from the store and rebuilds the tree.
func (m *Model) Reload(ctx context.Context) error {
	err := m.folder.Reload(ctx)
	if err != nil {
		m.state.err = err
	}
	return err
}

// Folder returns the folder shown.
func (m Model) Folder() *store.Folder { return m.folder }

// Engine returns the engine driving the view.
func (m Model) Engine() *core.Engine { return m.engine }

// Busy reports whether the engine is still working.
func (m Model) Busy() bool { return m.state.busy }

// Progress returns the last progress message of the engine.
func (m Model) Progress() string { return m.state.progress }

// Err returns the last folder error, if any.
func (m Model) Err() error { return m.state.err }

// CurrentMessage returns the record under the cursor.
func (m Model) CurrentMessage() (model.MessageRecord, bool) {
	return m.folder.Record(m.engine.StorageRow(m.state.cursor))
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool { return m.filterMode }

// FilterSummary describes the active filter for the status bar.
func (m Model) FilterSummary() string {
	f := m.engine.Filter()
	if f.IsEmpty() {
		return ""
	}
	s := "filter:"
	if f.Text() != "" {
		s += fmt.Sprintf(" %q", f.Text())
	}
	if f.Status() != 0 {
		s += " " + f.Status().String()
	}
	return s
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.filterInput.Width = width - 4
	m.state.scrollTo(m.listHeight())
}

func (m Model) listHeight() int {
	if m.filterMode {
		return m.height - 1
	}
	return m.height
}

// View renders the visible window of the tree.
func (m Model) View() string {
	st := m.state
	var body string
	if len(st.rows) == 0 {
		body = m.renderEmptyState()
	} else {
		end := min(st.offset+m.listHeight(), len(st.rows))
		lines := make([]string, 0, end-st.offset)
		for i := st.offset; i < end; i++ {
			lines = append(lines, m.renderRow(st.rows[i], i == st.cursorRow))
		}
		body = lipgloss.NewStyle().
			Height(m.listHeight()).
			Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	if m.filterMode {
		filterBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.filterInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, filterBar, body)
	}
	return body
}

// renderEmptyState shows guidance text when nothing is visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.listHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.state.busy:
		return style.Render("Loading " + m.folder.Name() + "...")
	case !m.engine.Filter().IsEmpty():
		return style.Render("No matching messages.\nPress / then esc to clear the filter.")
	default:
		return style.Render(
			"No messages in " + m.folder.Name() + ".\n\n" +
				"Press : then type 'configure' to add a source.",
		)
	}
}
