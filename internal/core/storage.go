package core

import "github.com/nhle/messagelist/internal/model"

// ThreadingDataSubset tells the storage which threading keys to compute.
// Each subset includes the previous ones.
type ThreadingDataSubset int

const (
	PerfectThreadingOnly ThreadingDataSubset = iota
	PerfectThreadingPlusReferences
	PerfectThreadingReferencesAndSubject
)

// StorageModel is a flat list of messages the engine builds its tree from.
// Rows shift when the storage inserts or removes messages; every change must
// be reported to the subscribed StorageSink.
type StorageModel interface {
	// ID identifies the backing folder.
	ID() string

	// ContainsOutboundMessages is true for sent/outbox style folders, where
	// the receiver is more interesting than the sender.
	ContainsOutboundMessages() bool

	// InitialUnreadRowCountGuess estimates how many of the newest rows are
	// unread. It only tunes the first fill job.
	InitialUnreadRowCountGuess() int

	RowCount() int

	// InitializeMessageItem fills the display fields of it from row. A false
	// return skips the row.
	InitializeMessageItem(it *Item, row int, useReceiver bool) bool

	// FillMessageItemThreadingData sets the threading digests of it.
	FillMessageItemThreadingData(it *Item, row int, subset ThreadingDataSubset)

	// UpdateMessageItemData refreshes the mutable fields of it (status, date).
	UpdateMessageItemData(it *Item, row int)

	// SetMessageItemStatus writes a new status through to the storage.
	SetMessageItemStatus(it *Item, row int, status model.Status)

	// PrepareForScan is called before a full fill starts.
	PrepareForScan()

	Subscribe(sink StorageSink)
	Unsubscribe(sink StorageSink)
}

// StorageSink receives flat row change notifications. Ranges are inclusive,
// as [from, to].
type StorageSink interface {
	RowsInserted(from, to int)
	RowsRemoved(from, to int)
	DataChanged(from, to int)
	LayoutChanged()
	HeaderDataChanged()
	Reset()
}

// InitializeFromRecord copies the display fields of r into it. Storage
// implementations backed by model.MessageRecord use it from
// InitializeMessageItem.
func InitializeFromRecord(it *Item, r *model.MessageRecord) {
	it.SetUniqueID(r.ID)
	it.SetSubject(r.Subject)
	it.SetSender(r.Sender)
	it.SetReceiver(r.Receiver)
	it.SetDate(r.Date)
	it.SetSize(r.Size)
	it.SetStatus(r.Status)
}

// FillThreadingFromRecord sets the threading digests of it from r, limited
// to subset.
func FillThreadingFromRecord(it *Item, r *model.MessageRecord, subset ThreadingDataSubset) {
	it.SetMessageIDDigest(DigestMessageID(r.MessageID))
	it.SetInReplyToDigest(DigestMessageID(r.InReplyTo))
	if subset >= PerfectThreadingPlusReferences {
		it.SetReferencesDigest(DigestMessageID(r.ReferenceForThreading()))
	}
	if subset >= PerfectThreadingReferencesAndSubject {
		stripped, prefixed := StripSubject(r.Subject)
		it.SetStrippedSubjectDigest(DigestSubject(stripped), prefixed)
	}
}

// UpdateFromRecord refreshes the mutable fields of it from r.
func UpdateFromRecord(it *Item, r *model.MessageRecord) {
	it.SetStatus(r.Status)
	it.SetDate(r.Date)
	it.SetSubject(r.Subject)
	it.SetSender(r.Sender)
	it.SetReceiver(r.Receiver)
	it.SetSize(r.Size)
}
