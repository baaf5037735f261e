package model

import "time"

// MessageRecord is one row of a flat message folder as held by storage.
type MessageRecord struct {
	// ID is the storage-assigned unique identifier (a UUID).
	ID string `json:"id" db:"id"`

	// Folder is the name of the folder the message lives in.
	Folder string `json:"folder" db:"folder"`

	// MessageID is the Message-Id header without angle brackets.
	MessageID string `json:"message_id" db:"message_id"`

	// InReplyTo is the first identifier of the In-Reply-To header.
	InReplyTo string `json:"in_reply_to" db:"in_reply_to"`

	// References holds the References header identifiers,
	// ordered oldest ancestor first.
	References []string `json:"references,omitempty" db:"-"`

	Subject  string    `json:"subject" db:"subject"`
	Sender   string    `json:"sender" db:"sender"`
	Receiver string    `json:"receiver" db:"receiver"`
	Date     time.Time `json:"date" db:"date"`
	Size     int64     `json:"size" db:"size"`
	Status   Status    `json:"status" db:"status"`
}

// ReferenceForThreading returns the References entry to use for imperfect
// threading: the newest reference that differs from In-Reply-To. It returns
// an empty string when there is none.
func (m MessageRecord) ReferenceForThreading() string {
	for i := len(m.References) - 1; i >= 0; i-- {
		if m.References[i] != "" && m.References[i] != m.InReplyTo {
			return m.References[i]
		}
	}
	return ""
}
