package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/model"
)

// outboundFolders are the folder names whose messages were written by the
// user, matched case-insensitively against the last path element.
var outboundFolders = []string{"sent", "sent items", "sent mail", "outbox", "drafts"}

// Folder is an in-memory snapshot of one message folder. Rows are loaded in
// date order; appended rows go at the end. It implements core.StorageModel: every mutation is written through to the
// backing Store (when there is one) and then reported to the subscribed
// sinks as flat row changes.
//
// A Folder is not safe for concurrent use; mutate it from the goroutine that
// steps the engine.
type Folder struct {
	name  string
	store Store
	log   *logrus.Entry
	recs  []model.MessageRecord
	sinks []core.StorageSink
}

// NewFolder returns a folder holding recs, not backed by any store.
func NewFolder(name string, recs ...model.MessageRecord) *Folder {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Folder{
		name: name,
		log:  logrus.NewEntry(l),
		recs: slices.Clone(recs),
	}
}

// OpenFolder loads folder name from s.
func OpenFolder(ctx context.Context, s Store, name string, log *logrus.Entry) (*Folder, error) {
	f := NewFolder(name)
	f.store = s
	if log != nil {
		f.log = log.WithFields(logrus.Fields{"component": "folder", "folder": name})
	}
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Folder) load(ctx context.Context) error {
	recs, err := f.store.GetMessages(ctx, MessageFilter{Folder: &f.name})
	if err != nil {
		return fmt.Errorf("loading folder %s: %w", f.name, err)
	}
	f.recs = recs
	f.log.WithField("messages", len(recs)).Debug("folder loaded")
	return nil
}

// Reload re-reads the folder from its store and reports a reset.
func (f *Folder) Reload(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	if err := f.load(ctx); err != nil {
		return err
	}
	for _, s := range f.sinks {
		s.Reset()
	}
	return nil
}

// Name returns the folder name.
func (f *Folder) Name() string { return f.name }

// Record returns a copy of the record at row.
func (f *Folder) Record(row int) (model.MessageRecord, bool) {
	if row < 0 || row >= len(f.recs) {
		return model.MessageRecord{}, false
	}
	return f.recs[row], true
}

// RowOf returns the row of the message with the given ID, or -1.
func (f *Folder) RowOf(id string) int {
	return slices.IndexFunc(f.recs, func(r model.MessageRecord) bool { return r.ID == id })
}

// Append adds recs at the end of the folder.
func (f *Folder) Append(ctx context.Context, recs ...model.MessageRecord) error {
	if len(recs) == 0 {
		return nil
	}
	recs = slices.Clone(recs)
	for i := range recs {
		recs[i].Folder = f.name
	}
	if f.store != nil {
		if err := f.store.UpsertMessages(ctx, recs); err != nil {
			return fmt.Errorf("appending to folder %s: %w", f.name, err)
		}
	}

	from := len(f.recs)
	f.recs = append(f.recs, recs...)
	for _, s := range f.sinks {
		s.RowsInserted(from, len(f.recs)-1)
	}
	return nil
}

// Merge adds the records of recs the folder does not hold yet and refreshes
// the status of those it does. Records are matched by ID, then by
// Message-Id. It returns the number of appended records.
func (f *Folder) Merge(ctx context.Context, recs []model.MessageRecord) (int, error) {
	byID := make(map[string]int, len(f.recs))
	byMessageID := make(map[string]int, len(f.recs))
	for row, r := range f.recs {
		byID[r.ID] = row
		if r.MessageID != "" {
			byMessageID[r.MessageID] = row
		}
	}

	var fresh []model.MessageRecord
	for _, r := range recs {
		row, ok := -1, false
		if r.ID != "" {
			row, ok = byID[r.ID]
		}
		if !ok && r.MessageID != "" {
			row, ok = byMessageID[r.MessageID]
		}
		if !ok {
			if r.MessageID != "" {
				byMessageID[r.MessageID] = -1
			}
			fresh = append(fresh, r)
			continue
		}
		if row >= 0 && f.recs[row].Status != r.Status {
			if err := f.SetStatus(ctx, row, r.Status); err != nil {
				return 0, err
			}
		}
	}

	if err := f.Append(ctx, fresh...); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// Remove drops count rows starting at from.
func (f *Folder) Remove(ctx context.Context, from, count int) error {
	if from < 0 || count <= 0 || from+count > len(f.recs) {
		return fmt.Errorf("removing rows %d+%d from folder %s with %d rows", from, count, f.name, len(f.recs))
	}
	if f.store != nil {
		ids := make([]string, 0, count)
		for _, r := range f.recs[from : from+count] {
			ids = append(ids, r.ID)
		}
		if err := f.store.DeleteMessages(ctx, ids); err != nil {
			return fmt.Errorf("removing from folder %s: %w", f.name, err)
		}
	}

	f.recs = slices.Delete(f.recs, from, from+count)
	for _, s := range f.sinks {
		s.RowsRemoved(from, from+count-1)
	}
	return nil
}

// SetStatus replaces the status flags of the message at row. Deleted rows
// stay in the folder but are not shown, so toggling the deleted flag is
// reported as the row going away and coming back.
func (f *Folder) SetStatus(ctx context.Context, row int, status model.Status) error {
	if row < 0 || row >= len(f.recs) {
		return fmt.Errorf("row %d out of range in folder %s", row, f.name)
	}
	if f.recs[row].Status == status {
		return nil
	}
	if f.store != nil {
		if err := f.store.UpdateStatus(ctx, f.recs[row].ID, status); err != nil {
			return err
		}
	}

	visibility := f.recs[row].Status.Has(model.StatusDeleted) != status.Has(model.StatusDeleted)
	f.recs[row].Status = status
	for _, s := range f.sinks {
		if visibility {
			s.RowsRemoved(row, row)
			s.RowsInserted(row, row)
		} else {
			s.DataChanged(row, row)
		}
	}
	return nil
}

// ID implements core.StorageModel.
func (f *Folder) ID() string { return f.name }

// ContainsOutboundMessages implements core.StorageModel.
func (f *Folder) ContainsOutboundMessages() bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(f.name, ".", "/")))
	return slices.Contains(outboundFolders, base)
}

// InitialUnreadRowCountGuess implements core.StorageModel.
func (f *Folder) InitialUnreadRowCountGuess() int {
	n := 0
	for _, r := range f.recs {
		if !r.Status.IsRead() {
			n++
		}
	}
	return n
}

// RowCount implements core.StorageModel.
func (f *Folder) RowCount() int { return len(f.recs) }

// InitializeMessageItem implements core.StorageModel.
func (f *Folder) InitializeMessageItem(it *core.Item, row int, _ bool) bool {
	if row < 0 || row >= len(f.recs) || f.recs[row].Status.Has(model.StatusDeleted) {
		return false
	}
	core.InitializeFromRecord(it, &f.recs[row])
	return true
}

// FillMessageItemThreadingData implements core.StorageModel.
func (f *Folder) FillMessageItemThreadingData(it *core.Item, row int, subset core.ThreadingDataSubset) {
	core.FillThreadingFromRecord(it, &f.recs[row], subset)
}

// UpdateMessageItemData implements core.StorageModel.
func (f *Folder) UpdateMessageItemData(it *core.Item, row int) {
	core.UpdateFromRecord(it, &f.recs[row])
}

// SetMessageItemStatus implements core.StorageModel. Write failures are
// logged; the row keeps its old status.
func (f *Folder) SetMessageItemStatus(_ *core.Item, row int, status model.Status) {
	if err := f.SetStatus(context.Background(), row, status); err != nil {
		f.log.WithError(err).Warn("status not saved")
	}
}

// PrepareForScan implements core.StorageModel.
func (f *Folder) PrepareForScan() {
	f.log.WithField("rows", len(f.recs)).Debug("scan started")
}

// Subscribe implements core.StorageModel.
func (f *Folder) Subscribe(sink core.StorageSink) {
	if !slices.Contains(f.sinks, sink) {
		f.sinks = append(f.sinks, sink)
	}
}

// Unsubscribe implements core.StorageModel.
func (f *Folder) Unsubscribe(sink core.StorageSink) {
	f.sinks = slices.DeleteFunc(f.sinks, func(s core.StorageSink) bool { return s == sink })
}
