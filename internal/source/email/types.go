package email

import "time"

// Envelope holds the threading relevant headers of one message.
type Envelope struct {
	MessageID  string
	InReplyTo  string
	References []string // oldest ancestor first
	Subject    string
	From       string
	To         []string
	Date       time.Time
	Flags      []string // \Seen, \Flagged, \Answered, \Deleted
	Size       int64
	UID        uint32

	HasAttachment bool
}
