package matrix

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"phenomatrix/pkg/index"
	"phenomatrix/pkg/tables"
)

// Variant names the four matrices of a Set, used as keys in the
// mapping artifact.
const (
	VariantWeight       = "weight"
	VariantWeightNorm   = "weight_norm"
	VariantWeightIC     = "weight_ic"
	VariantWeightICNorm = "weight_ic_norm"
)

// Meta is the per-variant shape summary written alongside the
// matrices. It is reporting data only; correctness never depends on it.
type Meta struct {
	NRows int `json:"n_rows"`
	NCols int `json:"n_cols"`
	NNZ   int `json:"nnz"`
}

// Set bundles the four matrix variants of one run. All four share one
// sparsity pattern: the (condition, feature) pairs of the Link table.
//
// Weight carries the raw link weights. WeightNorm row-normalizes them,
// removing the bias toward conditions with long phenotype lists, and is
// the variant to prefer for similarity and clustering. WeightIC scales
// each column by the feature's information content so rare, distinctive
// phenotypes dominate common ones, and is the variant to prefer for
// retrieval. WeightICNorm applies both.
type Set struct {
	Weight       *CSR
	WeightNorm   *CSR
	WeightIC     *CSR
	WeightICNorm *CSR
}

// Assemble builds the four variants from the Link table, the shared
// index map and the per-feature IC values. The map and IC are taken as
// explicit inputs so the result is a pure function of its arguments.
func Assemble(links []tables.Link, im *index.Map, ic map[string]float64) (*Set, error) {
	rows := make([]int, 0, len(links))
	cols := make([]int, 0, len(links))
	data := make([]float64, 0, len(links))
	for _, l := range links {
		r, ok := im.CondIndex(l.ConditionID)
		if !ok {
			return nil, fmt.Errorf("link condition %s not present in index map", l.ConditionID)
		}
		c, ok := im.FeatIndex(l.FeatureID)
		if !ok {
			return nil, fmt.Errorf("link feature %s not present in index map", l.FeatureID)
		}
		rows = append(rows, r)
		cols = append(cols, c)
		data = append(data, l.Weight)
	}

	s := &Set{Weight: FromCOO(rows, cols, data, im.NumConditions(), im.NumFeatures())}

	icVec := make([]float64, im.NumFeatures())
	for j, id := range im.FeatIDs() {
		v, ok := ic[id]
		if !ok {
			return nil, fmt.Errorf("no IC value for feature %s", id)
		}
		icVec[j] = v
	}

	// The derived variants only read Weight and icVec.
	var g errgroup.Group
	g.Go(func() error {
		s.WeightNorm = s.Weight.RowNormalizeL2()
		return nil
	})
	g.Go(func() error {
		s.WeightIC = s.Weight.ScaleColumns(icVec)
		s.WeightICNorm = s.WeightIC.RowNormalizeL2()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// Metas returns the shape summary per variant name.
func (s *Set) Metas() map[string]Meta {
	meta := func(m *CSR) Meta {
		return Meta{NRows: m.Rows, NCols: m.Cols, NNZ: m.NNZ()}
	}
	return map[string]Meta{
		VariantWeight:       meta(s.Weight),
		VariantWeightNorm:   meta(s.WeightNorm),
		VariantWeightIC:     meta(s.WeightIC),
		VariantWeightICNorm: meta(s.WeightICNorm),
	}
}

// Variants returns the matrices keyed by variant name.
func (s *Set) Variants() map[string]*CSR {
	return map[string]*CSR{
		VariantWeight:       s.Weight,
		VariantWeightNorm:   s.WeightNorm,
		VariantWeightIC:     s.WeightIC,
		VariantWeightICNorm: s.WeightICNorm,
	}
}
