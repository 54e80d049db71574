package flow

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
)

func TestKeyOf(t *testing.T) {
	tests := []struct {
		id   conversation.NodeID
		want SortKey
	}{
		{conversation.NodeID{}, SortKey{Tier: TierAbsent}},
		{conversation.ID("42"), SortKey{Tier: TierNumeric, Digits: "42"}},
		{conversation.ID(" -3 "), SortKey{Tier: TierNumeric, Neg: true, Digits: "3"}},
		{conversation.ID("+007"), SortKey{Tier: TierNumeric, Digits: "7"}},
		{conversation.ID("-0"), SortKey{Tier: TierNumeric}},
		{conversation.ID("-"), SortKey{Tier: TierText, Text: "-"}},
		{conversation.ID("abc"), SortKey{Tier: TierText, Text: "abc"}},
		{conversation.ID(""), SortKey{Tier: TierText, Text: ""}},
		{conversation.ID("1.5"), SortKey{Tier: TierText, Text: "1.5"}},
		{conversation.ID("99999999999999999999"), SortKey{Tier: TierNumeric, Digits: "99999999999999999999"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyOf(tt.id), "KeyOf(%+v)", tt.id)
	}
}

func TestSortKey_TotalOrderOverMixedIDs(t *testing.T) {
	ids := []conversation.NodeID{
		conversation.ID("b"), {}, conversation.ID("10"), conversation.ID("2"),
		conversation.ID("a"), {}, conversation.ID("node-x"), conversation.ID("0"),
	}
	rng := rand.New(rand.NewSource(1))

	for range 20 {
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		entries := make([]FlowEntry, len(ids))
		for i, id := range ids {
			entries[i] = FlowEntry{Node: &conversation.Node{ID: id}}
		}

		sorted := SortEntries(entries, nil)

		require.Len(t, sorted, len(ids))
		for i := 1; i < len(sorted); i++ {
			prev, cur := KeyOf(sorted[i-1].Node.ID), KeyOf(sorted[i].Node.ID)
			assert.LessOrEqual(t, prev.Tier, cur.Tier)
			assert.False(t, cur.Less(prev), "%+v sorted before %+v", prev, cur)
		}
		assert.False(t, sorted[0].Node.ID.Valid)
		assert.False(t, sorted[1].Node.ID.Valid)
		assert.Equal(t, "0", sorted[2].Node.ID.Value)
		assert.Equal(t, "node-x", sorted[len(sorted)-1].Node.ID.Value)
	}
}

func TestSortEntries_IntegersBeyondInt64StayNumeric(t *testing.T) {
	ids := []string{"0a", "99999999999999999999", "5", "-99999999999999999999", "-4", "0"}
	entries := make([]FlowEntry, len(ids))
	for i, id := range ids {
		entries[i] = FlowEntry{Node: &conversation.Node{ID: conversation.ID(id)}}
	}

	sorted := SortEntries(entries, nil)

	got := make([]string, len(sorted))
	for i, e := range sorted {
		got[i] = e.Node.ID.Value
	}
	assert.Equal(t, []string{"-99999999999999999999", "-4", "0", "5", "99999999999999999999", "0a"}, got)
}

func TestSortEntries_FallsBackToScanOrder(t *testing.T) {
	var logged []string
	entries := []FlowEntry{
		{Node: &conversation.Node{ID: conversation.ID("3")}},
		{Node: nil},
		{Node: &conversation.Node{ID: conversation.ID("1")}},
	}

	sorted := SortEntries(entries, LoggerFunc(func(m string) { logged = append(logged, m) }))

	require.Len(t, sorted, 3)
	assert.Equal(t, "3", sorted[0].Node.ID.Value)
	assert.Nil(t, sorted[1].Node)
	assert.Equal(t, "1", sorted[2].Node.ID.Value)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "keeping scan order")
}

func TestSortSearchResults(t *testing.T) {
	results := []conversation.SearchResult{
		{Title: "three", CiteIndex: "3"},
		{Title: "absent"},
		{Title: "text", CiteIndex: "x"},
		{Title: "one", CiteIndex: "1"},
	}

	sorted := SortSearchResults(results, nil)

	titles := make([]string, len(sorted))
	for i, r := range sorted {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{"absent", "one", "three", "text"}, titles)
	assert.Equal(t, "three", results[0].Title, "input is not reordered")
}
