package app

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
	msync "github.com/nhle/messagelist/internal/sync"
	"github.com/nhle/messagelist/internal/ui"
	"github.com/nhle/messagelist/internal/ui/command"
	configview "github.com/nhle/messagelist/internal/ui/config"
	helpview "github.com/nhle/messagelist/internal/ui/help"
	"github.com/nhle/messagelist/internal/ui/messagelist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewHelp
	ViewCommand
	ViewConfig
)

// Options configures the root model.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      store.Store
	Log        *logrus.Entry

	// PreSelect picks the message made current once the folder is loaded.
	PreSelect core.PreSelectionMode

	// Watched delivers records of files dropped into a watched directory.
	// Nil disables watching.
	Watched <-chan model.MessageRecord
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the sources feeding the folder.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	cfg          *model.AppConfig
	cfgPath      string
	store        store.Store
	log          *logrus.Entry
	keys         *keys.KeyMap
	list         messagelist.Model
	helpView     helpview.Model
	commandView  command.Model
	configView   configview.Model
	poller       *msync.Poller
	watched      <-chan model.MessageRecord

	ready            bool
	pollerStarted    bool
	statusMsg        string
	authErrorMessage string
}

// New opens the configured folder and builds the views around it.
func New(ctx context.Context, opts Options) (Model, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	agg, err := core.AggregationFromConfig(cfg.Aggregation)
	if err != nil {
		return Model{}, fmt.Errorf("aggregation settings: %w", err)
	}
	order, err := core.SortOrderFromConfig(cfg.Sort)
	if err != nil {
		return Model{}, fmt.Errorf("sort settings: %w", err)
	}

	folder, err := store.OpenFolder(ctx, opts.Store, cfg.Folder, log)
	if err != nil {
		return Model{}, fmt.Errorf("opening folder %s: %w", cfg.Folder, err)
	}

	engine := core.New(core.Options{
		Logger:        log,
		Aggregation:   &agg,
		SortOrder:     &order,
		SubjectMinGap: cfg.Threading.SubjectMinGap,
		SubjectMaxGap: cfg.Threading.SubjectMaxGap,
	})

	k := keys.DefaultKeyMap()
	help := helpview.New(k, 80, 24)
	help.SetSettings(agg, order)

	return Model{
		currentView: ViewList,
		cfg:         cfg,
		cfgPath:     opts.ConfigPath,
		store:       opts.Store,
		log:         log.WithField("component", "app"),
		keys:        k,
		list:        messagelist.New(engine, folder, opts.PreSelect, k, 80, 24),
		helpView:    help,
		commandView: command.New(80, 24),
		configView:  configview.New(cfg, opts.ConfigPath, k, 80, 24),
		poller:      msync.New(opts.Store, log),
		watched:     opts.Watched,
	}, nil
}

// Init starts filling the view, registers the configured sources and
// listens for watched files.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.registerSources(),
		waitForWatched(m.watched),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.list.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.configView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sourcesRegisteredMsg:
		// First run: nothing to show and nowhere to fetch from.
		if msg.count == 0 && len(m.cfg.Sources) == 0 && m.list.Folder().RowCount() == 0 {
			m.previousView = m.currentView
			m.currentView = ViewConfig
			return m, m.configView.Init()
		}
		if m.pollerStarted {
			// the result loop survives a reset
			m.poller.Start()
			return m, nil
		}
		m.pollerStarted = true
		return m, m.poller.Start()

	case msync.SyncResultMsg:
		return m.handleSyncResult(msg)

	case watchedMsg:
		return m.handleWatched(msg)

	case messagelist.SettingsChangedMsg:
		m.helpView.SetSettings(msg.Aggregation, msg.SortOrder)
		m.cfg.Aggregation = msg.Aggregation.Config()
		m.cfg.Sort = msg.SortOrder.Config()
		return m, m.saveConfig()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case configview.ConfigDoneMsg:
		m.currentView = ViewList
		return m, nil

	case configview.SourceSavedMsg, configview.SourceDeletedMsg:
		// Sources changed in the config view; re-register and poll.
		return m, m.registerSources()

	case configview.SettingsSavedMsg:
		m.helpView.SetSettings(msg.Aggregation, msg.SortOrder)
		return m, m.list.ApplySettings(msg.Aggregation, msg.SortOrder)

	case tea.KeyMsg:
		var (
			cmd     tea.Cmd
			handled bool
		)
		m, cmd, handled = m.handleGlobalKeys(msg)
		if handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys handles the keys that switch views. It reports false for
// keys the active view should get.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	m.statusMsg = ""

	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}
	// The config forms and the filter input own every key.
	if m.currentView == ViewConfig || (m.currentView == ViewList && m.list.Filtering()) {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help) && m.currentView != ViewCommand:
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back) && m.currentView != ViewList:
		m.currentView = ViewList
		return m, nil, true
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Config):
		m.previousView = m.currentView
		m.currentView = ViewConfig
		return m, m.configView.Init(), true

	case key.Matches(msg, m.keys.Refresh):
		m.poller.RefreshAll()
		m.statusMsg = "refreshing sources..."
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewConfig:
		m.configView, cmd = m.configView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	// Engine steps keep arriving while another view is open.
	if m.currentView != ViewList {
		if _, ok := msg.(tea.KeyMsg); !ok {
			var listCmd tea.Cmd
			m.list, listCmd = m.list.Update(msg)
			cmd = tea.Batch(cmd, listCmd)
		}
	}

	return m, cmd
}

// handleSyncResult merges the messages a poll fetched for the shown folder
// and keeps listening for results.
func (m Model) handleSyncResult(msg msync.SyncResultMsg) (tea.Model, tea.Cmd) {
	if msg.AuthError != nil {
		m.authErrorMessage = msg.AuthError.Message
	} else if msg.Error == nil {
		// Clear auth error on successful sync.
		m.authErrorMessage = ""
	}

	cmds := []tea.Cmd{m.poller.WaitForNextResult()}
	if msg.Error == nil && msg.Folder == m.list.Folder().Name() && len(msg.Messages) > 0 {
		n, err := m.list.Merge(context.Background(), msg.Messages)
		if err != nil {
			m.log.WithError(err).WithField("source", msg.SourceID).Error("merging fetched messages")
		} else if n > 0 {
			m.statusMsg = fmt.Sprintf("%d new message(s) from %s", n, msg.SourceID)
		}
		cmds = append(cmds, m.list.Refresh())
	}
	return m, tea.Batch(cmds...)
}

// saveConfig writes the configuration in the background. Failures are
// logged; the running view keeps its settings either way.
func (m Model) saveConfig() tea.Cmd {
	if m.cfgPath == "" {
		return nil
	}
	path, cfg, log := m.cfgPath, *m.cfg, m.log
	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			log.WithError(err).Warn("saving view settings")
		}
		return nil
	}
}

// View renders the header, the active view and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.list.Progress())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerTitle() string {
	e := m.list.Engine()
	total, unread := e.GroupStats(e.Root())
	title := fmt.Sprintf("%s (%d)", m.list.Folder().Name(), total)
	if unread > 0 {
		title = fmt.Sprintf("%s (%d, %d unread)", m.list.Folder().Name(), total, unread)
	}
	return title
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewConfig:
		return m.configView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) syncStatus() string {
	statuses := m.poller.GetStatuses()
	if len(statuses) == 0 {
		return "no sources"
	}

	running := 0
	var failing []string
	for _, s := range statuses {
		switch s.State {
		case msync.SyncRunning:
			running++
		case msync.SyncError:
			failing = append(failing, s.Name)
		}
	}

	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if len(failing) > 0 {
		return "⚠ unreachable: " + joinNames(failing)
	}
	return "idle"
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	result := names[0]
	for i := 1; i < len(names); i++ {
		result += ", " + names[i]
	}
	return result
}

func (m Model) keyHints() string {
	if m.authErrorMessage != "" && m.currentView == ViewList {
		return m.authErrorMessage
	}
	if m.statusMsg != "" {
		return m.statusMsg
	}
	if err := m.list.Err(); err != nil && m.currentView == ViewList {
		return "error: " + err.Error()
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewConfig:
		return "a add | e edit | d delete | enter test | v view | esc back"
	default:
		if m.list.Filtering() {
			return "enter keep filter | esc clear"
		}
		if summary := m.list.FilterSummary(); summary != "" {
			return summary + " | :clear"
		}
		return "q quit | ? help | / search | enter expand | m read | 1 group | 2 thread | tab sort"
	}
}
