package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/messagelist/internal/model"
)

func TestAggregationFromConfig_Defaults(t *testing.T) {
	a, err := AggregationFromConfig(model.AggregationConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAggregation(), a)

	d := model.DefaultAppConfig()
	a, err = AggregationFromConfig(d.Aggregation)
	require.NoError(t, err)
	assert.Equal(t, DefaultAggregation(), a)

	s, err := SortOrderFromConfig(d.Sort)
	require.NoError(t, err)
	assert.Equal(t, DefaultSortOrder(), s)
}

func TestAggregation_ConfigRoundTrip(t *testing.T) {
	a := Aggregation{
		Grouping:           GroupBySenderOrReceiver,
		GroupExpandPolicy:  NeverExpandGroups,
		Threading:          PerfectOnly,
		ThreadLeader:       MostRecentMessage,
		ThreadExpandPolicy: ExpandThreadsWithUnreadOrImportantMessages,
		FillViewStrategy:   BatchNoInteractivity,
	}
	back, err := AggregationFromConfig(a.Config())
	require.NoError(t, err)
	assert.Equal(t, a, back)

	s := SortOrder{
		GroupSorting:         SortGroupsByReceiver,
		GroupSortDirection:   Ascending,
		MessageSorting:       SortMessagesByAttachmentStatus,
		MessageSortDirection: Descending,
	}
	sback, err := SortOrderFromConfig(s.Config())
	require.NoError(t, err)
	assert.Equal(t, s, sback)
}

func TestAggregationFromConfig_RejectsUnknownNames(t *testing.T) {
	_, err := AggregationFromConfig(model.AggregationConfig{Grouping: "by_mood"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown grouping "by_mood"`)
	assert.Contains(t, err.Error(), "date_range")

	_, err = SortOrderFromConfig(model.SortConfig{MessageDirection: "sideways"})
	require.Error(t, err)
}

func TestParse_IsCaseInsensitive(t *testing.T) {
	g, err := ParseGrouping(" Date_Range ")
	require.NoError(t, err)
	assert.Equal(t, GroupByDateRange, g)

	m, err := ParsePreSelectionMode("FIRST_UNREAD")
	require.NoError(t, err)
	assert.Equal(t, PreSelectFirstUnread, m)

	assert.Equal(t, "unknown(42)", Grouping(42).String())
	assert.Equal(t, []string{"none", "perfect", "perfect_references", "perfect_references_subject"}, ThreadingNames())
}

func TestAggregation_ThreadingDataSubset(t *testing.T) {
	assert.Equal(t, PerfectThreadingOnly, Aggregation{Threading: PerfectOnly}.threadingDataSubset())
	assert.Equal(t, PerfectThreadingPlusReferences, Aggregation{Threading: PerfectAndReferences}.threadingDataSubset())
	assert.Equal(t, PerfectThreadingReferencesAndSubject, Aggregation{Threading: PerfectReferencesAndSubject}.threadingDataSubset())
	assert.True(t, Aggregation{Grouping: GroupByDate}.IsDateGrouping())
	assert.False(t, Aggregation{Grouping: GroupBySender}.IsDateGrouping())
}
