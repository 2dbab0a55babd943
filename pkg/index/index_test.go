package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"phenomatrix/pkg/tables"
)

func fixtureTables() *tables.Tables {
	rows := []tables.Row{
		{ConditionID: "ORPHA:20", FeatureID: "HP:0000300"},
		{ConditionID: "ORPHA:3", FeatureID: "HP:0000002"},
		{ConditionID: "ORPHA:20", FeatureID: "HP:0000002"},
		{ConditionID: "ORPHA:1", FeatureID: "HP:0000100"},
	}
	return tables.Normalize(rows, nil, nil)
}

func TestLexicographicOrder(t *testing.T) {
	m := New(fixtureTables(), Lexicographic)
	require.Equal(t, []string{"ORPHA:1", "ORPHA:20", "ORPHA:3"}, m.CondIDs())
	require.Equal(t, []string{"HP:0000002", "HP:0000100", "HP:0000300"}, m.FeatIDs())

	i, ok := m.CondIndex("ORPHA:20")
	require.True(t, ok)
	require.Equal(t, 1, i)
	j, ok := m.FeatIndex("HP:0000300")
	require.True(t, ok)
	require.Equal(t, 2, j)

	_, ok = m.CondIndex("ORPHA:999")
	require.False(t, ok)
}

func TestFirstSeenOrder(t *testing.T) {
	m := New(fixtureTables(), FirstSeen)
	require.Equal(t, []string{"ORPHA:20", "ORPHA:3", "ORPHA:1"}, m.CondIDs())
	require.Equal(t, []string{"HP:0000300", "HP:0000002", "HP:0000100"}, m.FeatIDs())
}

func TestOrderPolicyChangesOrderNotMembership(t *testing.T) {
	lex := New(fixtureTables(), Lexicographic)
	fs := New(fixtureTables(), FirstSeen)

	require.ElementsMatch(t, lex.CondIDs(), fs.CondIDs())
	require.ElementsMatch(t, lex.FeatIDs(), fs.FeatIDs())
	require.Equal(t, lex.NumConditions(), fs.NumConditions())
	require.Equal(t, lex.NumFeatures(), fs.NumFeatures())
}

func TestDeterministicAcrossRuns(t *testing.T) {
	a := New(fixtureTables(), Lexicographic)
	b := New(fixtureTables(), Lexicographic)
	require.Equal(t, a.CondIDs(), b.CondIDs())
	require.Equal(t, a.FeatIDs(), b.FeatIDs())
}

func TestNoDuplicateIDs(t *testing.T) {
	tb := fixtureTables()
	m := New(tb, Lexicographic)

	require.Equal(t, len(tb.Conditions), m.NumConditions())
	require.Equal(t, len(tb.Features), m.NumFeatures())

	seen := map[string]struct{}{}
	for _, id := range m.CondIDs() {
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
	for _, id := range m.FeatIDs() {
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}
