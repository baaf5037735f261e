package sync

import (
	"context"
	"fmt"
	"io"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source"
	"github.com/nhle/messagelist/internal/store"
)

// SyncState represents the current state of a source sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the sync state for a single source.
type SyncStatus struct {
	SourceID string
	Name     string
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a sync operation completes.
// Messages carry the IDs the store assigned to them.
type SyncResultMsg struct {
	SourceID  string
	Folder    string
	Messages  []model.MessageRecord
	Error     error
	AuthError *AuthErrorMsg
	NewCount  int
}

// AuthErrorMsg is a tea.Msg sent when a source returns an authentication error.
type AuthErrorMsg struct {
	SourceID string
	Message  string
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// sourceEntry holds a registered source and its configuration.
type sourceEntry struct {
	src     source.Source
	cfg     model.SourceConfig
	trigger chan struct{}
}

// Poller orchestrates background polling of registered sources. Fetched
// messages are written to the store and reported as SyncResultMsg.
type Poller struct {
	store    store.Store
	log      *logrus.Entry
	sources  []sourceEntry
	statuses map[string]*SyncStatus
	resultCh chan SyncResultMsg
	stopCh   chan struct{}
	mu       gosync.Mutex
	running  bool
}

// New creates a new Poller with the given store. A nil log discards
// output.
func New(s store.Store, log *logrus.Entry) *Poller {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Poller{
		store:    s,
		log:      log.WithField("component", "poller"),
		statuses: make(map[string]*SyncStatus),
		resultCh: make(chan SyncResultMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// RegisterSource adds a source adapter and its configuration to the poller.
func (p *Poller) RegisterSource(src source.Source, cfg model.SourceConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sources = append(p.sources, sourceEntry{
		src:     src,
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
	})
	p.statuses[cfg.ID] = &SyncStatus{
		SourceID: cfg.ID,
		Name:     cfg.Name,
		State:    SyncIdle,
	}
}

// Start returns a tea.Cmd that starts all polling goroutines and
// subscribes to results. The returned command waits on the result
// channel and returns SyncResultMsg messages to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	sources := append([]sourceEntry(nil), p.sources...)
	stop := p.stopCh
	p.mu.Unlock()

	for _, entry := range sources {
		go p.pollSource(entry, stop)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Reset stops polling and forgets every registered source, so sources can
// be registered and started again. Commands waiting for results stay valid.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		close(p.stopCh)
		p.running = false
	}
	p.stopCh = make(chan struct{})
	p.sources = nil
	clear(p.statuses)
}

// RefreshAll triggers an immediate poll of all registered sources.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	sources := append([]sourceEntry(nil), p.sources...)
	p.mu.Unlock()

	for _, entry := range sources {
		select {
		case entry.trigger <- struct{}{}:
		default:
			// a poll is already queued
		}
	}
}

// SyncOnce polls every registered source once, in registration order,
// and returns the results. It does not need Start.
func (p *Poller) SyncOnce(ctx context.Context) []SyncResultMsg {
	p.mu.Lock()
	sources := append([]sourceEntry(nil), p.sources...)
	p.mu.Unlock()

	results := make([]SyncResultMsg, 0, len(sources))
	for _, entry := range sources {
		results = append(results, p.fetchAndUpsert(ctx, entry))
	}
	return results
}

// GetStatuses returns the current sync status of all registered sources.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.sources))
	for _, entry := range p.sources {
		statuses = append(statuses, *p.statuses[entry.cfg.ID])
	}
	return statuses
}

// pollSource runs the polling loop for a single source.
func (p *Poller) pollSource(entry sourceEntry, stop <-chan struct{}) {
	interval := time.Duration(entry.cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 120 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p.sendResult(p.fetchAndUpsert(ctx, entry))
	}

	// Do an initial fetch immediately
	poll()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			poll()
		case <-entry.trigger:
			poll()
		}
	}
}

// fetchAndUpsert performs a single fetch operation and upserts the results
// to the store.
func (p *Poller) fetchAndUpsert(ctx context.Context, entry sourceEntry) SyncResultMsg {
	id := entry.cfg.ID
	log := p.log.WithField("source", id)
	res := SyncResultMsg{SourceID: id, Folder: entry.cfg.Folder}

	opts := source.FetchOptions{Limit: entry.cfg.FetchLimit}
	if last := p.lastSync(id); !last.IsZero() {
		// SINCE has day granularity on IMAP
		opts.Since = last.AddDate(0, 0, -1)
	}

	p.setStatus(id, SyncRunning, nil)
	result, err := entry.src.FetchMessages(ctx, opts)
	if err != nil {
		p.setStatus(id, SyncError, err)
		log.WithError(err).Warn("fetch failed")
		res.Error = err

		// Detect auth errors and emit a specific message.
		if source.IsAuthError(err) {
			res.AuthError = &AuthErrorMsg{
				SourceID: id,
				Message: fmt.Sprintf(
					"%s: authentication failed. Run 'messagelist login %s'.",
					entry.cfg.Name, id,
				),
			}
		}
		return res
	}

	msgs := result.Messages
	if len(msgs) > 0 {
		known, err := p.knownMessageIDs(ctx, entry.cfg.Folder)
		if err != nil {
			p.setStatus(id, SyncError, err)
			res.Error = err
			return res
		}
		for _, m := range msgs {
			if m.MessageID == "" || !known[m.MessageID] {
				res.NewCount++
			}
		}

		if err := p.store.UpsertMessages(ctx, msgs); err != nil {
			p.setStatus(id, SyncError, err)
			res.Error = err
			return res
		}
	}

	p.setStatus(id, SyncIdle, nil)
	log.WithFields(logrus.Fields{
		"fetched": len(msgs),
		"new":     res.NewCount,
	}).Info("source synced")
	res.Messages = msgs
	return res
}

// knownMessageIDs returns the Message-Ids already stored in folder.
func (p *Poller) knownMessageIDs(ctx context.Context, folder string) (map[string]bool, error) {
	existing, err := p.store.GetMessages(ctx, store.MessageFilter{Folder: &folder})
	if err != nil {
		return nil, fmt.Errorf("reading folder %s: %w", folder, err)
	}
	known := make(map[string]bool, len(existing))
	for _, m := range existing {
		known[m.MessageID] = true
	}
	return known, nil
}

func (p *Poller) lastSync(id string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.statuses[id]; ok {
		return s.LastSync
	}
	return time.Time{}
}

// setStatus updates the sync status for a source.
func (p *Poller) setStatus(id string, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[id]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
