package core

import "github.com/nhle/messagelist/internal/model"

// GroupSorting selects the order of group headers below the root.
type GroupSorting int

const (
	NoGroupSorting GroupSorting = iota
	SortGroupsByDateTime
	SortGroupsByDateTimeOfMostRecent
	SortGroupsBySenderOrReceiver
	SortGroupsBySender
	SortGroupsByReceiver
)

// MessageSorting selects the order of messages below any parent.
type MessageSorting int

const (
	NoSorting MessageSorting = iota
	SortMessagesByDateTime
	SortMessagesByDateTimeOfMostRecent
	SortMessagesBySenderOrReceiver
	SortMessagesBySender
	SortMessagesByReceiver
	SortMessagesBySubject
	SortMessagesBySize
	SortMessagesByActionItemStatus
	SortMessagesByUnreadStatus
	SortMessagesByImportantStatus
	SortMessagesByAttachmentStatus
)

// SortDirection is ascending or descending.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

var groupSortingNames = []enumName[GroupSorting]{
	{NoGroupSorting, "none"},
	{SortGroupsByDateTime, "date_time"},
	{SortGroupsByDateTimeOfMostRecent, "date_time_most_recent"},
	{SortGroupsBySenderOrReceiver, "sender_or_receiver"},
	{SortGroupsBySender, "sender"},
	{SortGroupsByReceiver, "receiver"},
}

var messageSortingNames = []enumName[MessageSorting]{
	{NoSorting, "none"},
	{SortMessagesByDateTime, "date_time"},
	{SortMessagesByDateTimeOfMostRecent, "date_time_most_recent"},
	{SortMessagesBySenderOrReceiver, "sender_or_receiver"},
	{SortMessagesBySender, "sender"},
	{SortMessagesByReceiver, "receiver"},
	{SortMessagesBySubject, "subject"},
	{SortMessagesBySize, "size"},
	{SortMessagesByActionItemStatus, "action_item"},
	{SortMessagesByUnreadStatus, "unread"},
	{SortMessagesByImportantStatus, "important"},
	{SortMessagesByAttachmentStatus, "attachment"},
}

var sortDirectionNames = []enumName[SortDirection]{
	{Ascending, "ascending"},
	{Descending, "descending"},
}

func (s GroupSorting) String() string   { return enumString(groupSortingNames, s) }
func (s MessageSorting) String() string { return enumString(messageSortingNames, s) }
func (d SortDirection) String() string  { return enumString(sortDirectionNames, d) }

// ParseGroupSorting parses a group sorting name.
func ParseGroupSorting(s string) (GroupSorting, error) {
	return enumParse(groupSortingNames, "group sorting", s)
}

// ParseMessageSorting parses a message sorting name.
func ParseMessageSorting(s string) (MessageSorting, error) {
	return enumParse(messageSortingNames, "message sorting", s)
}

// ParseSortDirection parses "ascending" or "descending".
func ParseSortDirection(s string) (SortDirection, error) {
	return enumParse(sortDirectionNames, "sort direction", s)
}

// GroupSortingNames lists the accepted group sorting names.
func GroupSortingNames() []string { return enumNames(groupSortingNames) }

// MessageSortingNames lists the accepted message sorting names.
func MessageSortingNames() []string { return enumNames(messageSortingNames) }

// SortOrder is the immutable sort configuration of a view.
type SortOrder struct {
	GroupSorting         GroupSorting
	GroupSortDirection   SortDirection
	MessageSorting       MessageSorting
	MessageSortDirection SortDirection
}

// DefaultSortOrder shows the newest groups and messages first.
func DefaultSortOrder() SortOrder {
	return SortOrder{
		GroupSorting:         SortGroupsByDateTimeOfMostRecent,
		GroupSortDirection:   Descending,
		MessageSorting:       SortMessagesByDateTime,
		MessageSortDirection: Descending,
	}
}

// SortOrderFromConfig converts the textual configuration section.
func SortOrderFromConfig(cfg model.SortConfig) (SortOrder, error) {
	var (
		s   = DefaultSortOrder()
		err error
	)
	if cfg.Groups != "" {
		if s.GroupSorting, err = ParseGroupSorting(cfg.Groups); err != nil {
			return SortOrder{}, err
		}
	}
	if cfg.GroupDirection != "" {
		if s.GroupSortDirection, err = ParseSortDirection(cfg.GroupDirection); err != nil {
			return SortOrder{}, err
		}
	}
	if cfg.Messages != "" {
		if s.MessageSorting, err = ParseMessageSorting(cfg.Messages); err != nil {
			return SortOrder{}, err
		}
	}
	if cfg.MessageDirection != "" {
		if s.MessageSortDirection, err = ParseSortDirection(cfg.MessageDirection); err != nil {
			return SortOrder{}, err
		}
	}
	return s, nil
}

// Config renders s back into its textual configuration section.
func (s SortOrder) Config() model.SortConfig {
	return model.SortConfig{
		Groups:           s.GroupSorting.String(),
		GroupDirection:   s.GroupSortDirection.String(),
		Messages:         s.MessageSorting.String(),
		MessageDirection: s.MessageSortDirection.String(),
	}
}

// messageSortDependsOn returns the property change bits that can move a
// message among its siblings under s. Ties on the primary key fall back to
// the date, so every key but plain date also depends on DateChanged.
func (s SortOrder) messageSortDependsOn() PropertyChange {
	var key PropertyChange
	switch s.MessageSorting {
	case SortMessagesByDateTime:
		return DateChanged
	case SortMessagesByDateTimeOfMostRecent:
		key = MaxDateChanged
	case SortMessagesByActionItemStatus:
		key = ActionItemStatusChanged
	case SortMessagesByUnreadStatus:
		key = UnreadStatusChanged
	case SortMessagesByImportantStatus:
		key = ImportantStatusChanged
	case SortMessagesByAttachmentStatus:
		key = AttachmentStatusChanged
	case SortMessagesBySender, SortMessagesByReceiver,
		SortMessagesBySenderOrReceiver, SortMessagesBySubject, SortMessagesBySize:
		key = FieldsChanged
	default:
		return 0
	}
	return key | DateChanged
}

// groupSortDependsOn returns the property change bits that can move a group
// header among its siblings under s.
func (s SortOrder) groupSortDependsOn() PropertyChange {
	switch s.GroupSorting {
	case SortGroupsByDateTime:
		return DateChanged
	case SortGroupsByDateTimeOfMostRecent:
		return MaxDateChanged
	default:
		return 0
	}
}
