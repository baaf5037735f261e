package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/keys"
	"github.com/nhle/messagelist/internal/model"
)

func newTestModel(t *testing.T) (Model, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := model.DefaultAppConfig()
	cfg.Sources = []model.SourceConfig{
		{ID: "work", Name: "Work", Host: "imap.work.example", Port: "993", Username: "me", Mailbox: "INBOX", Folder: "INBOX", Enabled: true},
		{ID: "home", Name: "Home", Host: "imap.home.example", Port: "993", Username: "me", Mailbox: "INBOX", Folder: "Home", Enabled: false},
	}
	return New(cfg, path, keys.DefaultKeyMap(), 100, 30), path
}

// run executes cmd, feeding the view's internal messages back into m, and
// returns the first message meant for the parent.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Msg) {
	t.Helper()
	require.NotNil(t, cmd)
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case sourceValidatedMsg, configSavedMsg:
			m, cmd = m.Update(msg)
		default:
			return m, msg
		}
	}
	return m, nil
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "work-mail", slug("Work Mail"))
	assert.Equal(t, "a-b", slug("  A -- b!! "))
	assert.Empty(t, slug("!!!"))
}

func TestModel_NewSourceID(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, "personal", m.newSourceID("Personal"))

	id := m.newSourceID("Work")
	assert.NotEqual(t, "work", id, "taken IDs get a random suffix")
	assert.Regexp(t, `^work-[0-9a-f]{8}$`, id)

	assert.Regexp(t, `^[0-9a-f]{8}$`, m.newSourceID("???"))
}

func TestModel_SavesValidatedSource(t *testing.T) {
	m, path := newTestModel(t)

	src := model.SourceConfig{ID: "work", Name: "Work", Host: "mail.example", Port: "143", Folder: "INBOX", Enabled: true}
	m, then := run(t, m, func() tea.Msg { return sourceValidatedMsg{source: src} })

	saved, ok := then.(SourceSavedMsg)
	require.True(t, ok, "got %T", then)
	assert.Equal(t, "mail.example", saved.Source.Host)
	assert.Len(t, m.Sources(), 2)
	assert.Equal(t, ModeList, m.mode)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, loaded.Sources, 2)
	assert.Equal(t, "mail.example", loaded.Sources[0].Host)
	assert.Equal(t, "143", loaded.Sources[0].Port)
}

func TestModel_ValidateFailureShowsResult(t *testing.T) {
	m, _ := newTestModel(t)
	m = m.WithValidator(func(context.Context, model.SourceConfig, string) (string, error) {
		return "", errors.New("connection refused")
	})

	cmd := m.validateSource(m.Sources()[0], "secret")
	m, _ = m.Update(cmd())

	assert.Equal(t, ModeValidateResult, m.mode)
	assert.Contains(t, m.View(), "connection refused")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
}

func TestModel_SaveSettings(t *testing.T) {
	m, path := newTestModel(t)
	m.resetSettingsFields()
	m.formGrouping = core.GroupBySender.String()
	m.formThreading = core.NoThreading.String()
	m.formMessageDir = core.Ascending.String()

	m, cmd := m.saveSettings()
	m, then := run(t, m, cmd)

	settings, ok := then.(SettingsSavedMsg)
	require.True(t, ok, "got %T", then)
	assert.Equal(t, core.GroupBySender, settings.Aggregation.Grouping)
	assert.Equal(t, core.NoThreading, settings.Aggregation.Threading)
	assert.Equal(t, core.Ascending, settings.SortOrder.MessageSortDirection)
	assert.Equal(t, "View settings saved", m.statusMsg)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sender", loaded.Aggregation.Grouping)
}

func TestModel_SaveSettingsRejectsUnknownNames(t *testing.T) {
	m, _ := newTestModel(t)
	m.resetSettingsFields()
	m.formGrouping = "by-weather"

	m, cmd := m.saveSettings()
	assert.Nil(t, cmd)
	assert.Contains(t, m.statusMsg, "Invalid settings")
	assert.Equal(t, "date_range", m.cfg.Aggregation.Grouping)
}

func TestModel_ListNavigation(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.selectedIdx)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 0, m.selectedIdx, "wraps around")

	view := m.View()
	assert.Contains(t, view, "Work")
	assert.Contains(t, view, "disabled")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, ConfigDoneMsg{}, cmd())
}

func TestValidators(t *testing.T) {
	assert.Error(t, validateRequired("Host")(" "))
	assert.NoError(t, validateRequired("Host")("x"))

	num := validateNumber("port")
	assert.NoError(t, num("993"))
	assert.Error(t, num("abc"))
	assert.Error(t, num("0"))
	assert.Error(t, num(""))
}
