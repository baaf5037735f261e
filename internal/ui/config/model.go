package config

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/credential"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source"
	"github.com/nhle/messagelist/internal/source/email"
	"github.com/nhle/messagelist/internal/theme"
)

// validateTimeout bounds a connection test.
const validateTimeout = 20 * time.Second

// ConfigMode represents the current state of the configuration view.
type ConfigMode int

const (
	ModeList           ConfigMode = iota // List configured sources
	ModeSourceForm                       // Add or edit an IMAP source
	ModeSettingsForm                     // Grouping, threading and sorting
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show validation result
	ModeConfirmDelete                    // Confirm source deletion
)

// ConfigDoneMsg signals the config view should close and return to the main app.
type ConfigDoneMsg struct{}

// SourceSavedMsg signals a source was saved successfully.
type SourceSavedMsg struct {
	Source model.SourceConfig
}

// SourceDeletedMsg signals a source was deleted.
type SourceDeletedMsg struct {
	ID string
}

// SettingsSavedMsg signals new view settings were saved.
type SettingsSavedMsg struct {
	Aggregation core.Aggregation
	SortOrder   core.SortOrder
}

// ValidateResultMsg carries the result of a connection validation attempt.
type ValidateResultMsg struct {
	Info string
	Err  error
}

// configSavedMsg is sent after the configuration file was written.
type configSavedMsg struct {
	then tea.Msg
	err  error
}

// sourceValidatedMsg carries a source whose connection test passed.
type sourceValidatedMsg struct {
	source model.SourceConfig
}

// Validator tests a source with the given password.
type Validator func(ctx context.Context, src model.SourceConfig, password string) (string, error)

// ValidateIMAP connects to the IMAP server of src and reports its size.
func ValidateIMAP(ctx context.Context, src model.SourceConfig, password string) (string, error) {
	return email.NewAdapter(src, password).ValidateConnection(ctx)
}

// Model is the Bubble Tea model for the configuration UI.
type Model struct {
	mode        ConfigMode
	path        string
	cfg         *model.AppConfig
	validate    Validator
	selectedIdx int
	editingID   string

	sourceForm    *huh.Form
	settingsForm  *huh.Form
	confirmDelete *huh.Form
	deleteConfirm bool

	// Form field values (huh binds to these)
	formName     string
	formHost     string
	formPort     string
	formUsername string
	formPassword string
	formTLS      bool
	formMailbox  string
	formFolder   string
	formInterval string

	formGrouping     string
	formGroupExpand  string
	formThreading    string
	formThreadLeader string
	formThreadExpand string
	formMessageSort  string
	formMessageDir   string
	formGroupSort    string
	formGroupDir     string
	formFill         string

	validResult string
	validError  error
	spinner     spinner.Model

	// Status message for transient feedback
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a configuration view editing cfg, saved to path.
func New(cfg *model.AppConfig, path string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:     ModeList,
		path:     path,
		cfg:      cfg,
		validate: ValidateIMAP,
		keys:     k,
		spinner:  sp,
		width:    width,
		height:   height,
	}
}

// WithValidator replaces the connection test.
func (m Model) WithValidator(v Validator) Model {
	m.validate = v
	return m
}

// Init resets the view to the source list.
func (m Model) Init() tea.Cmd {
	return nil
}

// Sources returns the configured sources.
func (m Model) Sources() []model.SourceConfig { return m.cfg.Sources }

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case configSavedMsg:
		m.mode = ModeList
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving configuration: %v", msg.err)
			return m, nil
		}
		switch then := msg.then.(type) {
		case SourceSavedMsg:
			m.statusMsg = fmt.Sprintf("Source %q saved", then.Source.Name)
		case SourceDeletedMsg:
			m.statusMsg = "Source deleted"
			m.selectedIdx = min(m.selectedIdx, max(0, len(m.cfg.Sources)-1))
		case SettingsSavedMsg:
			m.statusMsg = "View settings saved"
		}
		then := msg.then
		return m, func() tea.Msg { return then }

	case sourceValidatedMsg:
		src := msg.source
		sources := slices.Clone(m.cfg.Sources)
		if i := m.sourceIndex(src.ID); i >= 0 {
			sources[i] = src
		} else {
			sources = append(sources, src)
		}
		m.cfg.Sources = sources
		return m, m.saveConfig(SourceSavedMsg{Source: src})

	case ValidateResultMsg:
		m.validResult = msg.Info
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	// Delegate to active form
	return m.updateActiveForm(msg)
}

// handleKeyMsg processes key messages based on the current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeList:
		return m.handleListKeys(msg)
	case ModeValidateResult:
		return m.handleValidateResultKeys(msg)
	case ModeValidating:
		// Only allow escape during validation
		if msg.String() == "esc" {
			m.mode = ModeList
			return m, nil
		}
		return m, nil
	}
	return m.updateActiveForm(msg)
}

// handleListKeys processes key events in the source list mode.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return ConfigDoneMsg{} }

	case msg.String() == "a":
		m.editingID = ""
		m.resetSourceFields(model.SourceConfig{Port: "993", TLS: true, Mailbox: "INBOX", Folder: m.cfg.Folder, PollIntervalSec: 120})
		m.mode = ModeSourceForm
		m.sourceForm = m.buildSourceForm()
		return m, m.sourceForm.Init()

	case msg.String() == "e":
		if len(m.cfg.Sources) == 0 {
			return m, nil
		}
		src := m.cfg.Sources[m.selectedIdx]
		m.editingID = src.ID
		m.resetSourceFields(src)
		m.mode = ModeSourceForm
		m.sourceForm = m.buildSourceForm()
		return m, m.sourceForm.Init()

	case msg.String() == "v":
		m.resetSettingsFields()
		m.mode = ModeSettingsForm
		m.settingsForm = m.buildSettingsForm()
		return m, m.settingsForm.Init()

	case msg.String() == "d":
		if len(m.cfg.Sources) == 0 {
			return m, nil
		}
		m.deleteConfirm = false
		m.confirmDelete = m.buildDeleteConfirmForm()
		m.mode = ModeConfirmDelete
		return m, m.confirmDelete.Init()

	case msg.String() == "enter":
		if len(m.cfg.Sources) == 0 {
			return m, nil
		}
		m.mode = ModeValidating
		return m, tea.Batch(
			m.spinner.Tick,
			m.validateSource(m.cfg.Sources[m.selectedIdx], ""),
		)

	case key.Matches(msg, m.keys.Down):
		if n := len(m.cfg.Sources); n > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if n := len(m.cfg.Sources); n > 0 {
			m.selectedIdx = (m.selectedIdx - 1 + n) % n
		}
		return m, nil
	}

	return m, nil
}

// handleValidateResultKeys processes key events on the validation result screen.
func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = ModeList
		m.validResult = ""
		m.validError = nil
		return m, nil
	case "r":
		if m.validError != nil && len(m.cfg.Sources) > 0 {
			m.mode = ModeValidating
			return m, tea.Batch(
				m.spinner.Tick,
				m.validateSource(m.cfg.Sources[m.selectedIdx], ""),
			)
		}
	}
	return m, nil
}

// updateActiveForm forwards msg to the form of the current mode.
func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeSourceForm:
		return m.updateSourceForm(msg)
	case ModeSettingsForm:
		return m.updateSettingsForm(msg)
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m, nil
}

// --- Source Form ---

func (m *Model) resetSourceFields(src model.SourceConfig) {
	m.formName = src.Name
	m.formHost = src.Host
	m.formPort = src.Port
	m.formUsername = src.Username
	m.formPassword = "" // Never pre-fill credentials
	m.formTLS = src.TLS
	m.formMailbox = src.Mailbox
	m.formFolder = src.Folder
	m.formInterval = strconv.Itoa(src.PollIntervalSec)
}

func (m *Model) buildSourceForm() *huh.Form {
	passwordHelp := "Account password or app password"
	if m.editingID != "" {
		passwordHelp += " (leave empty to keep the stored one)"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("A label for this mailbox").
				Placeholder("Work").
				Value(&m.formName).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&m.formHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&m.formPort).
				Validate(validateNumber("port")),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&m.formUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description(passwordHelp).
				EchoMode(huh.EchoModePassword).
				Value(&m.formPassword).
				Validate(m.validatePassword),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formTLS),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Mailbox").
				Description("Remote mailbox to poll").
				Value(&m.formMailbox).
				Validate(validateRequired("Mailbox")),
			huh.NewInput().
				Title("Local folder").
				Description("Folder the messages are listed in").
				Value(&m.formFolder).
				Validate(validateRequired("Local folder")),
			huh.NewInput().
				Title("Poll interval").
				Description("Seconds between polls").
				Value(&m.formInterval).
				Validate(validateNumber("poll interval")),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) validatePassword(s string) error {
	if m.editingID == "" && strings.TrimSpace(s) == "" {
		return fmt.Errorf("Password is required")
	}
	return nil
}

func (m Model) updateSourceForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.sourceForm == nil {
		return m, nil
	}

	mdl, cmd := m.sourceForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.sourceForm = f
	}

	if m.sourceForm.State == huh.StateCompleted {
		return m.saveSourceForm()
	}
	if m.sourceForm.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

// saveSourceForm validates the connection, then stores the password and
// writes the source into the configuration.
func (m Model) saveSourceForm() (Model, tea.Cmd) {
	src := m.buildSourceConfig()
	password := m.formPassword
	m.mode = ModeValidating
	return m, tea.Batch(m.spinner.Tick, m.validateAndSave(src, password))
}

func (m Model) buildSourceConfig() model.SourceConfig {
	interval, _ := strconv.Atoi(m.formInterval)
	src := model.SourceConfig{
		ID:              m.editingID,
		Name:            strings.TrimSpace(m.formName),
		Host:            strings.TrimSpace(m.formHost),
		Port:            strings.TrimSpace(m.formPort),
		Username:        strings.TrimSpace(m.formUsername),
		TLS:             m.formTLS,
		Mailbox:         strings.TrimSpace(m.formMailbox),
		Folder:          strings.TrimSpace(m.formFolder),
		Enabled:         true,
		PollIntervalSec: interval,
		FetchLimit:      200,
	}
	if i := m.sourceIndex(m.editingID); i >= 0 {
		src.Enabled = m.cfg.Sources[i].Enabled
		src.FetchLimit = m.cfg.Sources[i].FetchLimit
	}
	if src.ID == "" {
		src.ID = m.newSourceID(src.Name)
	}
	return src
}

// newSourceID derives a short identifier from name, usable on the command
// line. Names without letters or digits, and taken IDs, get a random one.
func (m Model) newSourceID(name string) string {
	id := slug(name)
	if id == "" || m.sourceIndex(id) >= 0 {
		id = strings.TrimSuffix(id+"-"+uuid.New().String()[:8], "-")
		id = strings.TrimPrefix(id, "-")
	}
	return id
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (m Model) sourceIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(m.cfg.Sources, func(s model.SourceConfig) bool { return s.ID == id })
}

// --- Settings Form ---

func (m *Model) resetSettingsFields() {
	a, s := m.cfg.Aggregation, m.cfg.Sort
	// Normalize through the parsers so every select starts on a valid option.
	if agg, err := core.AggregationFromConfig(a); err == nil {
		a = agg.Config()
	}
	if order, err := core.SortOrderFromConfig(s); err == nil {
		s = order.Config()
	}
	m.formGrouping = a.Grouping
	m.formGroupExpand = a.GroupExpand
	m.formThreading = a.Threading
	m.formThreadLeader = a.ThreadLeader
	m.formThreadExpand = a.ThreadExpand
	m.formFill = a.FillStrategy
	m.formGroupSort = s.Groups
	m.formGroupDir = s.GroupDirection
	m.formMessageSort = s.Messages
	m.formMessageDir = s.MessageDirection
}

func selectOf(title string, names []string, value *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(names...)...).
		Value(value)
}

func (m *Model) buildSettingsForm() *huh.Form {
	directions := []string{core.Ascending.String(), core.Descending.String()}
	return huh.NewForm(
		huh.NewGroup(
			selectOf("Grouping", core.GroupingNames(), &m.formGrouping),
			selectOf("Expand groups", core.GroupExpandPolicyNames(), &m.formGroupExpand),
			selectOf("Group order", core.GroupSortingNames(), &m.formGroupSort),
			selectOf("Group direction", directions, &m.formGroupDir),
		),
		huh.NewGroup(
			selectOf("Threading", core.ThreadingNames(), &m.formThreading),
			selectOf("Thread leader", core.ThreadLeaderNames(), &m.formThreadLeader),
			selectOf("Expand threads", core.ThreadExpandPolicyNames(), &m.formThreadExpand),
			selectOf("Message order", core.MessageSortingNames(), &m.formMessageSort),
			selectOf("Message direction", directions, &m.formMessageDir),
			selectOf("Fill strategy", core.FillViewStrategyNames(), &m.formFill),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateSettingsForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.settingsForm == nil {
		return m, nil
	}

	mdl, cmd := m.settingsForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.settingsForm = f
	}

	if m.settingsForm.State == huh.StateCompleted {
		return m.saveSettings()
	}
	if m.settingsForm.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) saveSettings() (Model, tea.Cmd) {
	aggCfg := m.cfg.Aggregation
	aggCfg.Grouping = m.formGrouping
	aggCfg.GroupExpand = m.formGroupExpand
	aggCfg.Threading = m.formThreading
	aggCfg.ThreadLeader = m.formThreadLeader
	aggCfg.ThreadExpand = m.formThreadExpand
	aggCfg.FillStrategy = m.formFill
	sortCfg := model.SortConfig{
		Groups:           m.formGroupSort,
		GroupDirection:   m.formGroupDir,
		Messages:         m.formMessageSort,
		MessageDirection: m.formMessageDir,
	}

	agg, err := core.AggregationFromConfig(aggCfg)
	if err == nil {
		var order core.SortOrder
		if order, err = core.SortOrderFromConfig(sortCfg); err == nil {
			m.cfg.Aggregation = aggCfg
			m.cfg.Sort = sortCfg
			return m, m.saveConfig(SettingsSavedMsg{Aggregation: agg, SortOrder: order})
		}
	}
	m.mode = ModeList
	m.statusMsg = fmt.Sprintf("Invalid settings: %v", err)
	return m, nil
}

// --- Delete Confirmation ---

func (m *Model) buildDeleteConfirmForm() *huh.Form {
	sourceName := m.cfg.Sources[m.selectedIdx].Name

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete source %q?", sourceName)).
				Description(
					"This removes the source and its stored password. " +
						"Messages already fetched stay in their folder.",
				).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.deleteConfirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirmDelete(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmDelete == nil {
		return m, nil
	}

	mdl, cmd := m.confirmDelete.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmDelete = f
	}

	if m.confirmDelete.State == huh.StateCompleted {
		if m.deleteConfirm {
			return m.deleteSource(m.selectedIdx)
		}
		m.mode = ModeList
		return m, nil
	}
	if m.confirmDelete.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) deleteSource(idx int) (Model, tea.Cmd) {
	src := m.cfg.Sources[idx]
	m.cfg.Sources = slices.Delete(slices.Clone(m.cfg.Sources), idx, idx+1)
	// Best-effort deletion
	_ = credential.Delete(credential.SourcePasswordKey(src.ID))
	return m, m.saveConfig(SourceDeletedMsg{ID: src.ID})
}

// --- Commands ---

// saveConfig writes the configuration and reports then on success.
func (m Model) saveConfig(then tea.Msg) tea.Cmd {
	path, cfg := m.path, m.cfg
	return func() tea.Msg {
		return configSavedMsg{then: then, err: model.SaveConfig(path, cfg)}
	}
}

// validateSource tests the connection for a source. An empty password is
// looked up in the keyring.
func (m Model) validateSource(src model.SourceConfig, password string) tea.Cmd {
	validate := m.validate
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		if password == "" {
			var err error
			if password, err = credential.Get(credential.SourcePasswordKey(src.ID)); err != nil {
				return ValidateResultMsg{Err: &source.AuthError{
					SourceType: source.SourceTypeIMAP,
					Message:    fmt.Sprintf("no password stored for %s: %v", src.ID, err),
				}}
			}
		}

		info, err := validate(ctx, src, password)
		return ValidateResultMsg{Info: info, Err: err}
	}
}

// validateAndSave validates the connection, then stores the password and
// hands the source back to Update for saving.
func (m Model) validateAndSave(src model.SourceConfig, password string) tea.Cmd {
	validateCmd := m.validateSource(src, password)
	return func() tea.Msg {
		res, _ := validateCmd().(ValidateResultMsg)
		if res.Err != nil {
			return res
		}

		if password != "" {
			if err := credential.Set(credential.SourcePasswordKey(src.ID), password); err != nil {
				return ValidateResultMsg{Info: res.Info, Err: fmt.Errorf("connection OK but storing the password failed: %w", err)}
			}
		}
		return sourceValidatedMsg{source: src}
	}
}

// --- View ---

// View renders the configuration UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeSourceForm:
		return m.viewForm(m.sourceForm)
	case ModeSettingsForm:
		return m.viewForm(m.settingsForm)
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	case ModeConfirmDelete:
		return m.viewForm(m.confirmDelete)
	default:
		return ""
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("Mailboxes"))
	b.WriteString("\n\n")

	if len(m.cfg.Sources) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true)
		b.WriteString(emptyStyle.Render(
			"No mailboxes configured.\nPress 'a' to add one.",
		))
	} else {
		for i, src := range m.cfg.Sources {
			b.WriteString(m.renderSourceItem(i, src))
			b.WriteString("\n")
		}
	}

	a := m.cfg.Aggregation
	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(
		"view: grouping %s, threading %s, messages by %s %s",
		a.Grouping, a.Threading, m.cfg.Sort.Messages, m.cfg.Sort.MessageDirection,
	)))

	if m.statusMsg != "" {
		b.WriteString("\n\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	hintStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	b.WriteString(hintStyle.Render(
		"a add | e edit | d delete | enter test | v view settings | esc back",
	))

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

func (m Model) renderSourceItem(idx int, src model.SourceConfig) string {
	enabledLabel := "enabled"
	enabledColor := theme.ColorGreen
	if !src.Enabled {
		enabledLabel = "disabled"
		enabledColor = theme.ColorGray
	}

	name := src.Name
	if name == "" {
		name = "(unnamed)"
	}

	statusLabel := lipgloss.NewStyle().
		Foreground(enabledColor).
		Render(enabledLabel)

	line := fmt.Sprintf("%s  [%s]  %s@%s/%s → %s  %s",
		name, src.ID, src.Username, src.Host, src.Mailbox, src.Folder, statusLabel,
	)

	if idx == m.selectedIdx {
		return theme.SelectedRowStyle.Render(line)
	}
	return theme.RowStyle.Render(line)
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(f.View())
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection...\n\nPress esc to cancel.",
		m.spinner.View(),
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	var content string
	if m.validError != nil {
		content = theme.ErrorStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("r retry | enter/esc back")
	} else {
		okStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)
		info := m.validResult
		if info == "" {
			info = "OK"
		}
		content = okStyle.Render("Connection successful") + "\n\n" +
			info + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("enter/esc back")
	}

	return style.Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateNumber(fieldName string) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		if n, err := strconv.Atoi(s); err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}
