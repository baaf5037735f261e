package model

import "strings"

// Status is the bitset of per-message state flags.
type Status uint32

// Status flags.
const (
	StatusRead Status = 1 << iota
	StatusImportant
	StatusToAct
	StatusWatched
	StatusIgnored
	StatusHasAttachment
	StatusReplied
	StatusForwarded
	StatusSpam
	StatusHam
	StatusDeleted
	StatusSent
	StatusQueued
)

var statusNames = []struct {
	flag Status
	name string
}{
	{StatusRead, "read"},
	{StatusImportant, "important"},
	{StatusToAct, "todo"},
	{StatusWatched, "watched"},
	{StatusIgnored, "ignored"},
	{StatusHasAttachment, "attachment"},
	{StatusReplied, "replied"},
	{StatusForwarded, "forwarded"},
	{StatusSpam, "spam"},
	{StatusHam, "ham"},
	{StatusDeleted, "deleted"},
	{StatusSent, "sent"},
	{StatusQueued, "queued"},
}

// Has reports whether every flag in f is set.
func (s Status) Has(f Status) bool { return s&f == f }

// Set returns s with f added.
func (s Status) Set(f Status) Status { return s | f }

// Clear returns s with f removed.
func (s Status) Clear(f Status) Status { return s &^ f }

// IsRead reports whether the message has been seen.
func (s Status) IsRead() bool { return s.Has(StatusRead) }

// IsImportant reports whether the message is flagged.
func (s Status) IsImportant() bool { return s.Has(StatusImportant) }

// IsToAct reports whether the message is marked as an action item.
func (s Status) IsToAct() bool { return s.Has(StatusToAct) }

// HasAttachment reports whether the message carries attachments.
func (s Status) HasAttachment() bool { return s.Has(StatusHasAttachment) }

// String renders the set flags as a comma separated list.
func (s Status) String() string {
	if s == 0 {
		return "new"
	}
	var parts []string
	for _, n := range statusNames {
		if s.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseStatus parses a comma separated list of flag names as produced by
// String. Unknown names are ignored.
func ParseStatus(s string) Status {
	var st Status
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		for _, n := range statusNames {
			if n.name == part {
				st |= n.flag
			}
		}
	}
	return st
}
