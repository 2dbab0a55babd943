package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"phenomatrix/pkg/index"
	"phenomatrix/pkg/tables"
)

func scenarioTables() *tables.Tables {
	rows := []tables.Row{
		{ConditionID: "C1", FeatureID: "F1", Frequency: "Very frequent"},
		{ConditionID: "C1", FeatureID: "F2", Frequency: "Rare"},
		{ConditionID: "C2", FeatureID: "F1", Frequency: "Occasional"},
	}
	return tables.Normalize(rows, nil, nil)
}

func assembleScenario(t *testing.T, order index.Order) (*index.Map, *Set, *tables.Tables) {
	tb := scenarioTables()
	im := index.New(tb, order)
	set, err := Assemble(tb.Links, im, tb.FeatureIC())
	require.NoError(t, err)
	return im, set, tb
}

func TestAssembleScenario(t *testing.T) {
	im, set, tb := assembleScenario(t, index.Lexicographic)

	c1, _ := im.CondIndex("C1")
	c2, _ := im.CondIndex("C2")
	f1, _ := im.FeatIndex("F1")
	f2, _ := im.FeatIndex("F2")

	require.Equal(t, 0.9, set.Weight.At(c1, f1))
	require.Equal(t, 0.02, set.Weight.At(c1, f2))
	require.Equal(t, 0.15, set.Weight.At(c2, f1))

	ic := tb.FeatureIC()
	require.Greater(t, ic["F2"], ic["F1"])
	require.InDelta(t, 0.9*ic["F1"], set.WeightIC.At(c1, f1), 1e-12)
	require.InDelta(t, 0.02*ic["F2"], set.WeightIC.At(c1, f2), 1e-12)
	require.InDelta(t, 0.15*ic["F1"], set.WeightIC.At(c2, f1), 1e-12)
}

func TestAssembleSharedSparsityPattern(t *testing.T) {
	_, set, _ := assembleScenario(t, index.Lexicographic)

	base := set.Weight
	for variant, m := range set.Variants() {
		require.Equal(t, base.Rows, m.Rows, variant)
		require.Equal(t, base.Cols, m.Cols, variant)
		require.Equal(t, base.NNZ(), m.NNZ(), variant)
		require.Equal(t, base.Indptr, m.Indptr, variant)
		require.Equal(t, base.Indices, m.Indices, variant)
	}
}

func TestAssembleNormalizedRowsAreUnit(t *testing.T) {
	_, set, _ := assembleScenario(t, index.Lexicographic)

	for _, m := range []*CSR{set.WeightNorm, set.WeightICNorm} {
		for i := 0; i < m.Rows; i++ {
			norm := rowNorm(m, i)
			if norm == 0 {
				continue
			}
			require.InDelta(t, 1.0, norm, 1e-9)
		}
	}
}

func TestAssembleMetas(t *testing.T) {
	_, set, _ := assembleScenario(t, index.Lexicographic)

	metas := set.Metas()
	require.Equal(t, 4, len(metas))
	for variant, meta := range metas {
		require.Equal(t, Meta{NRows: 2, NCols: 2, NNZ: 3}, meta, variant)
	}
}

func TestAssembleOrderPolicyPreservesRowSums(t *testing.T) {
	lexMap, lexSet, _ := assembleScenario(t, index.Lexicographic)
	fsMap, fsSet, _ := assembleScenario(t, index.FirstSeen)

	require.Equal(t, lexSet.Weight.NNZ(), fsSet.Weight.NNZ())

	sums := func(im *index.Map, m *CSR) map[string]float64 {
		out := map[string]float64{}
		for i, id := range im.CondIDs() {
			_, vals := m.Row(i)
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			out[id] = sum
		}
		return out
	}
	require.Equal(t, sums(lexMap, lexSet.Weight), sums(fsMap, fsSet.Weight))
}

func TestAssembleUnknownIDFails(t *testing.T) {
	tb := scenarioTables()
	im := index.New(tb, index.Lexicographic)

	ic := tb.FeatureIC()
	links := append([]tables.Link{}, tb.Links...)
	links = append(links, tables.Link{ConditionID: "C99", FeatureID: "F1", Weight: 1})
	_, err := Assemble(links, im, ic)
	require.Error(t, err)

	delete(ic, "F2")
	_, err = Assemble(tb.Links, im, ic)
	require.Error(t, err)
}

func TestAssembleDeterministic(t *testing.T) {
	_, a, _ := assembleScenario(t, index.Lexicographic)
	_, b, _ := assembleScenario(t, index.Lexicographic)

	for variant, m := range a.Variants() {
		other := b.Variants()[variant]
		require.Equal(t, m.Indptr, other.Indptr, variant)
		require.Equal(t, m.Indices, other.Indices, variant)
		require.Equal(t, m.Data, other.Data, variant)
	}
}
