package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/credential"
	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source/email"
	msync "github.com/nhle/messagelist/internal/sync"
)

// sourcesRegisteredMsg is sent when all configured sources have been
// registered with the poller.
type sourcesRegisteredMsg struct {
	count int
}

// watchedMsg carries records of files that appeared in the watched
// directory.
type watchedMsg struct {
	recs   []model.MessageRecord
	closed bool
}

// registerSources resets the poller and registers each enabled IMAP source
// with it. Passwords are loaded from the system keyring.
func (m Model) registerSources() tea.Cmd {
	p := m.poller
	sources := append([]model.SourceConfig(nil), m.cfg.Sources...)
	log := m.log

	return func() tea.Msg {
		return sourcesRegisteredMsg{count: RegisterSources(p, sources, log)}
	}
}

// RegisterSources resets p and registers every enabled source of sources
// that has a stored password. It returns the number registered.
func RegisterSources(p *msync.Poller, sources []model.SourceConfig, log *logrus.Entry) int {
	p.Reset()

	registered := 0
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		adapter := createIMAPAdapter(src, log)
		if adapter == nil {
			continue
		}
		p.RegisterSource(adapter, src)
		registered++
	}
	return registered
}

// createIMAPAdapter builds an IMAP adapter from a source configuration,
// loading the password from the system keyring.
func createIMAPAdapter(src model.SourceConfig, log *logrus.Entry) *email.Adapter {
	password, err := credential.Get(credential.SourcePasswordKey(src.ID))
	if err != nil {
		log.WithError(err).WithField("source", src.ID).Warnf(
			"skipping source %q: no stored password, run 'messagelist login %s'",
			src.Name, src.ID,
		)
		return nil
	}
	return email.NewAdapter(src, password)
}

// waitForWatched waits for the next watched record, then collects every
// record already queued behind it. A nil channel never delivers.
func waitForWatched(ch <-chan model.MessageRecord) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return watchedMsg{closed: true}
		}
		recs := []model.MessageRecord{rec}
		for {
			select {
			case rec, ok := <-ch:
				if !ok {
					return watchedMsg{recs: recs, closed: true}
				}
				recs = append(recs, rec)
			default:
				return watchedMsg{recs: recs}
			}
		}
	}
}

// handleWatched merges watched records into the folder and waits for more
// until the watcher stops.
func (m Model) handleWatched(msg watchedMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if len(msg.recs) > 0 {
		n, err := m.list.Merge(context.Background(), msg.recs)
		if err != nil {
			m.log.WithError(err).Error("merging watched messages")
		} else if n > 0 {
			m.statusMsg = fmt.Sprintf("%d new message(s) in %s", n, m.list.Folder().Name())
		}
		cmds = append(cmds, m.list.Refresh())
	}
	if !msg.closed {
		cmds = append(cmds, waitForWatched(m.watched))
	}
	return m, tea.Batch(cmds...)
}
