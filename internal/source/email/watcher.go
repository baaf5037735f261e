package email

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/model"
)

// DefaultDebounce is how long a new file must stay quiet before it is
// parsed.
const DefaultDebounce = 200 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a new file is parsed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) WatcherOption {
	return func(w *Watcher) {
		w.log = l.WithField("component", "watcher")
	}
}

// Watcher reports message files appearing in a directory, or in the cur
// and new directories of a maildir, as records on Messages.
type Watcher struct {
	dir      string
	folder   string
	debounce time.Duration
	log      *logrus.Entry

	fsw  *fsnotify.Watcher
	out  chan model.MessageRecord
	seen map[string]bool
}

// NewWatcher starts watching dir. Records are assigned to folder.
func NewWatcher(dir, folder string, opts ...WatcherOption) (*Watcher, error) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	w := &Watcher{
		dir:      dir,
		folder:   folder,
		debounce: DefaultDebounce,
		log:      logrus.NewEntry(l),
		out:      make(chan model.MessageRecord, 64),
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	for _, sub := range []string{"new", "cur"} {
		path := filepath.Join(dir, sub)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := fsw.Add(path); err != nil {
				fsw.Close()
				return nil, fmt.Errorf("watching %s: %w", path, err)
			}
		}
	}
	w.fsw = fsw
	return w, nil
}

// Messages delivers the parsed records. It is closed when Run returns.
func (w *Watcher) Messages() <-chan model.MessageRecord {
	return w.out
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsMessageFile(event.Name) || w.seen[event.Name] {
				continue
			}
			pending[event.Name] = struct{}{}
			flush = time.After(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")

		case <-flush:
			flush = nil
			if err := w.flush(ctx, pending); err != nil {
				return err
			}
			clear(pending)
		}
	}
}

// flush parses the pending files in path order and delivers their records.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) error {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, path := range paths {
		rec, err := ParseFile(path, w.folder)
		if err != nil {
			// moved on (maildir new -> cur) or not a message
			w.log.WithError(err).Debug("skipping file")
			continue
		}
		w.seen[path] = true
		select {
		case w.out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
