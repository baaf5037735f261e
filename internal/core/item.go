package core

import (
	"time"

	"github.com/nhle/messagelist/internal/model"
)

// ItemID addresses a node of the tree. IDs are never reused while the engine
// lives, so a stale ID simply resolves to nothing.
type ItemID uint32

// NoItem is the invalid ItemID.
const NoItem ItemID = 0

// Kind tags the closed set of node kinds.
type Kind uint8

const (
	KindRoot Kind = iota + 1
	KindGroupHeader
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroupHeader:
		return "group"
	case KindMessage:
		return "message"
	default:
		return "invalid"
	}
}

// ExpandStatus records whether the view still has to expand a node.
type ExpandStatus uint8

const (
	NoExpandNeeded ExpandStatus = iota
	ExpandNeeded
	ExpandExecuted
)

// ThreadingStatus classifies how a message got (or failed to get) its
// thread parent.
type ThreadingStatus uint8

const (
	NonThreadable ThreadingStatus = iota
	PerfectParentFound
	ImperfectParentFound
	ParentMissing
)

func (s ThreadingStatus) String() string {
	switch s {
	case PerfectParentFound:
		return "perfect"
	case ImperfectParentFound:
		return "imperfect"
	case ParentMissing:
		return "missing"
	default:
		return "non-threadable"
	}
}

// Item is a tree node: the invisible root, a group header or a message.
// Kind specific data hangs off msg or group; exactly one is set for the
// non-root kinds.
type Item struct {
	id         ItemID
	kind       Kind
	parent     ItemID
	children   []ItemID
	indexGuess int

	viewable      bool
	matchesFilter bool
	expand        ExpandStatus

	date     time.Time
	maxDate  time.Time
	size     int64
	status   model.Status
	subject  string
	sender   string
	receiver string

	msg   *MessageItem
	group *GroupHeaderItem
}

// MessageItem carries the message specific part of an Item.
type MessageItem struct {
	uniqueID    string
	useReceiver bool

	messageID         Digest
	inReplyTo         Digest
	references        Digest
	strippedSubject   Digest
	subjectIsPrefixed bool

	threadingStatus ThreadingStatus
	index           *InvariantIndex

	// cache membership, maintained by the engine only
	inIDCache      bool
	inPendingCache bool
	inSubjectCache bool
}

// GroupHeaderItem carries the group header specific part of an Item.
type GroupHeaderItem struct {
	label string
}

func (it *Item) ID() ItemID           { return it.id }
func (it *Item) Kind() Kind           { return it.kind }
func (it *Item) Parent() ItemID       { return it.parent }
func (it *Item) ChildCount() int      { return len(it.children) }
func (it *Item) IsViewable() bool     { return it.viewable }
func (it *Item) MatchesFilter() bool  { return it.matchesFilter }
func (it *Item) Date() time.Time      { return it.date }
func (it *Item) MaxDate() time.Time   { return it.maxDate }
func (it *Item) Size() int64          { return it.size }
func (it *Item) Status() model.Status { return it.status }
func (it *Item) Subject() string      { return it.subject }
func (it *Item) Sender() string       { return it.sender }
func (it *Item) Receiver() string     { return it.receiver }

// ExpandStatus returns the pending expansion state of the node.
func (it *Item) ExpandStatus() ExpandStatus { return it.expand }

// Children returns a copy of the child list.
func (it *Item) Children() []ItemID {
	out := make([]ItemID, len(it.children))
	copy(out, it.children)
	return out
}

// Message returns the message part, or nil when it is not a message.
func (it *Item) Message() *MessageItem {
	if it.kind != KindMessage {
		return nil
	}
	return it.msg
}

// GroupHeader returns the group part, or nil when it is not a group header.
func (it *Item) GroupHeader() *GroupHeaderItem {
	if it.kind != KindGroupHeader {
		return nil
	}
	return it.group
}

// Label is the display label of a group header, or the subject otherwise.
func (it *Item) Label() string {
	if it.group != nil {
		return it.group.label
	}
	return it.subject
}

// DisplaySenderOrReceiver shows the receiver for outbound folders and the
// sender otherwise.
func (it *Item) DisplaySenderOrReceiver() string {
	if it.msg != nil && it.msg.useReceiver {
		return it.receiver
	}
	return it.sender
}

// UniqueID is the storage id of a message, empty for other kinds.
func (it *Item) UniqueID() string {
	if it.msg == nil {
		return ""
	}
	return it.msg.uniqueID
}

// ThreadingStatus returns how the message was threaded.
func (it *Item) ThreadingStatus() ThreadingStatus {
	if it.msg == nil {
		return NonThreadable
	}
	return it.msg.threadingStatus
}

// The setters below are for the storage collaborator filling a message.

func (it *Item) SetSubject(s string)      { it.subject = s }
func (it *Item) SetSender(s string)       { it.sender = s }
func (it *Item) SetReceiver(s string)     { it.receiver = s }
func (it *Item) SetDate(d time.Time)      { it.date = d }
func (it *Item) SetSize(n int64)          { it.size = n }
func (it *Item) SetStatus(s model.Status) { it.status = s }

// SetUniqueID sets the stable storage id of the message.
func (it *Item) SetUniqueID(id string) {
	if it.msg != nil {
		it.msg.uniqueID = id
	}
}

// SetMessageIDDigest sets the digest of the message's own Message-Id.
func (it *Item) SetMessageIDDigest(d Digest) {
	if it.msg != nil {
		it.msg.messageID = d
	}
}

// SetInReplyToDigest sets the digest of the In-Reply-To identifier.
func (it *Item) SetInReplyToDigest(d Digest) {
	if it.msg != nil {
		it.msg.inReplyTo = d
	}
}

// SetReferencesDigest sets the digest of the References entry used for
// imperfect threading.
func (it *Item) SetReferencesDigest(d Digest) {
	if it.msg != nil {
		it.msg.references = d
	}
}

// SetStrippedSubjectDigest sets the subject threading key.
func (it *Item) SetStrippedSubjectDigest(d Digest, prefixed bool) {
	if it.msg != nil {
		it.msg.strippedSubject = d
		it.msg.subjectIsPrefixed = prefixed
	}
}

// MessageIDDigest returns the message's own id digest.
func (m *MessageItem) MessageIDDigest() Digest { return m.messageID }

// InReplyToDigest returns the In-Reply-To digest.
func (m *MessageItem) InReplyToDigest() Digest { return m.inReplyTo }

// ReferencesDigest returns the References digest.
func (m *MessageItem) ReferencesDigest() Digest { return m.references }

// SubjectIsPrefixed reports whether the subject carried a reply prefix.
func (m *MessageItem) SubjectIsPrefixed() bool { return m.subjectIsPrefixed }

// Label returns the group label.
func (g *GroupHeaderItem) Label() string { return g.label }
