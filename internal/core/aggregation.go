package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/messagelist/internal/model"
)

// Grouping selects how top-level threads are bucketed under group headers.
type Grouping int

const (
	NoGrouping Grouping = iota
	GroupByDate
	GroupByDateRange
	GroupBySenderOrReceiver
	GroupBySender
	GroupByReceiver
)

// GroupExpandPolicy decides which group headers start expanded.
type GroupExpandPolicy int

const (
	NeverExpandGroups GroupExpandPolicy = iota
	ExpandRecentGroups
	AlwaysExpandGroups
)

// Threading selects which threading passes run.
type Threading int

const (
	NoThreading Threading = iota
	PerfectOnly
	PerfectAndReferences
	PerfectReferencesAndSubject
)

// ThreadLeader selects which message of a thread represents it for
// grouping purposes.
type ThreadLeader int

const (
	TopmostMessage ThreadLeader = iota
	MostRecentMessage
)

// ThreadExpandPolicy decides which threads start expanded.
type ThreadExpandPolicy int

const (
	NeverExpandThreads ThreadExpandPolicy = iota
	ExpandThreadsWithNewMessages
	ExpandThreadsWithUnreadMessages
	AlwaysExpandThreads
	ExpandThreadsWithUnreadOrImportantMessages
)

// FillViewStrategy trades interactivity for raw fill speed.
type FillViewStrategy int

const (
	FavorInteractivity FillViewStrategy = iota
	FavorSpeed
	BatchNoInteractivity
)

type enumName[T ~int] struct {
	value T
	name  string
}

func enumString[T ~int](table []enumName[T], v T) string {
	for _, e := range table {
		if e.value == v {
			return e.name
		}
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

func enumParse[T ~int](table []enumName[T], kind, s string) (T, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, e := range table {
		if e.name == s {
			return e.value, nil
		}
	}
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.name
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}

func enumNames[T ~int](table []enumName[T]) []string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.name
	}
	return names
}

var groupingNames = []enumName[Grouping]{
	{NoGrouping, "none"},
	{GroupByDate, "date"},
	{GroupByDateRange, "date_range"},
	{GroupBySenderOrReceiver, "sender_or_receiver"},
	{GroupBySender, "sender"},
	{GroupByReceiver, "receiver"},
}

var groupExpandNames = []enumName[GroupExpandPolicy]{
	{NeverExpandGroups, "never"},
	{ExpandRecentGroups, "recent"},
	{AlwaysExpandGroups, "always"},
}

var threadingNames = []enumName[Threading]{
	{NoThreading, "none"},
	{PerfectOnly, "perfect"},
	{PerfectAndReferences, "perfect_references"},
	{PerfectReferencesAndSubject, "perfect_references_subject"},
}

var threadLeaderNames = []enumName[ThreadLeader]{
	{TopmostMessage, "topmost"},
	{MostRecentMessage, "most_recent"},
}

var threadExpandNames = []enumName[ThreadExpandPolicy]{
	{NeverExpandThreads, "never"},
	{ExpandThreadsWithNewMessages, "new"},
	{ExpandThreadsWithUnreadMessages, "unread"},
	{AlwaysExpandThreads, "always"},
	{ExpandThreadsWithUnreadOrImportantMessages, "unread_or_important"},
}

var fillStrategyNames = []enumName[FillViewStrategy]{
	{FavorInteractivity, "interactivity"},
	{FavorSpeed, "speed"},
	{BatchNoInteractivity, "batch"},
}

func (g Grouping) String() string           { return enumString(groupingNames, g) }
func (p GroupExpandPolicy) String() string  { return enumString(groupExpandNames, p) }
func (t Threading) String() string          { return enumString(threadingNames, t) }
func (l ThreadLeader) String() string       { return enumString(threadLeaderNames, l) }
func (p ThreadExpandPolicy) String() string { return enumString(threadExpandNames, p) }
func (f FillViewStrategy) String() string   { return enumString(fillStrategyNames, f) }

// ParseGrouping parses a grouping name such as "date_range".
func ParseGrouping(s string) (Grouping, error) { return enumParse(groupingNames, "grouping", s) }

// ParseGroupExpandPolicy parses a group expand policy name.
func ParseGroupExpandPolicy(s string) (GroupExpandPolicy, error) {
	return enumParse(groupExpandNames, "group expand policy", s)
}

// ParseThreading parses a threading name.
func ParseThreading(s string) (Threading, error) { return enumParse(threadingNames, "threading", s) }

// ParseThreadLeader parses a thread leader name.
func ParseThreadLeader(s string) (ThreadLeader, error) {
	return enumParse(threadLeaderNames, "thread leader", s)
}

// ParseThreadExpandPolicy parses a thread expand policy name.
func ParseThreadExpandPolicy(s string) (ThreadExpandPolicy, error) {
	return enumParse(threadExpandNames, "thread expand policy", s)
}

// ParseFillViewStrategy parses a fill strategy name.
func ParseFillViewStrategy(s string) (FillViewStrategy, error) {
	return enumParse(fillStrategyNames, "fill strategy", s)
}

// GroupingNames lists the accepted grouping names in declaration order.
func GroupingNames() []string { return enumNames(groupingNames) }

// ThreadingNames lists the accepted threading names in declaration order.
func ThreadingNames() []string { return enumNames(threadingNames) }

// ThreadLeaderNames lists the accepted thread leader names.
func ThreadLeaderNames() []string { return enumNames(threadLeaderNames) }

// GroupExpandPolicyNames lists the accepted group expand policy names.
func GroupExpandPolicyNames() []string { return enumNames(groupExpandNames) }

// ThreadExpandPolicyNames lists the accepted thread expand policy names.
func ThreadExpandPolicyNames() []string { return enumNames(threadExpandNames) }

// FillViewStrategyNames lists the accepted fill strategy names.
func FillViewStrategyNames() []string { return enumNames(fillStrategyNames) }

// Aggregation is the immutable grouping/threading configuration of a view.
// It is a plain value: copy it freely, never mutate a shared one.
type Aggregation struct {
	Grouping           Grouping
	GroupExpandPolicy  GroupExpandPolicy
	Threading          Threading
	ThreadLeader       ThreadLeader
	ThreadExpandPolicy ThreadExpandPolicy
	FillViewStrategy   FillViewStrategy
}

// DefaultAggregation groups by date range with full threading.
func DefaultAggregation() Aggregation {
	return Aggregation{
		Grouping:           GroupByDateRange,
		GroupExpandPolicy:  ExpandRecentGroups,
		Threading:          PerfectReferencesAndSubject,
		ThreadLeader:       TopmostMessage,
		ThreadExpandPolicy: ExpandThreadsWithUnreadMessages,
		FillViewStrategy:   FavorInteractivity,
	}
}

// IsDateGrouping reports whether group labels depend on the current day.
func (a Aggregation) IsDateGrouping() bool {
	return a.Grouping == GroupByDate || a.Grouping == GroupByDateRange
}

// threadingDataSubset returns the threading keys the storage must provide.
func (a Aggregation) threadingDataSubset() ThreadingDataSubset {
	switch a.Threading {
	case PerfectAndReferences:
		return PerfectThreadingPlusReferences
	case PerfectReferencesAndSubject:
		return PerfectThreadingReferencesAndSubject
	default:
		return PerfectThreadingOnly
	}
}

// jobTiming holds the slice budget parameters of a fill job.
type jobTiming struct {
	chunkTimeout      time.Duration
	idleInterval      time.Duration
	messageCheckCount int
}

// AggregationFromConfig converts the textual configuration section.
func AggregationFromConfig(cfg model.AggregationConfig) (Aggregation, error) {
	var (
		a   = DefaultAggregation()
		err error
	)
	if cfg.Grouping != "" {
		if a.Grouping, err = ParseGrouping(cfg.Grouping); err != nil {
			return Aggregation{}, err
		}
	}
	if cfg.GroupExpand != "" {
		if a.GroupExpandPolicy, err = ParseGroupExpandPolicy(cfg.GroupExpand); err != nil {
			return Aggregation{}, err
		}
	}
	if cfg.Threading != "" {
		if a.Threading, err = ParseThreading(cfg.Threading); err != nil {
			return Aggregation{}, err
		}
	}
	if cfg.ThreadLeader != "" {
		if a.ThreadLeader, err = ParseThreadLeader(cfg.ThreadLeader); err != nil {
			return Aggregation{}, err
		}
	}
	if cfg.ThreadExpand != "" {
		if a.ThreadExpandPolicy, err = ParseThreadExpandPolicy(cfg.ThreadExpand); err != nil {
			return Aggregation{}, err
		}
	}
	if cfg.FillStrategy != "" {
		if a.FillViewStrategy, err = ParseFillViewStrategy(cfg.FillStrategy); err != nil {
			return Aggregation{}, err
		}
	}
	return a, nil
}

// Config renders a back into its textual configuration section.
func (a Aggregation) Config() model.AggregationConfig {
	return model.AggregationConfig{
		Grouping:     a.Grouping.String(),
		GroupExpand:  a.GroupExpandPolicy.String(),
		Threading:    a.Threading.String(),
		ThreadLeader: a.ThreadLeader.String(),
		ThreadExpand: a.ThreadExpandPolicy.String(),
		FillStrategy: a.FillViewStrategy.String(),
	}
}
