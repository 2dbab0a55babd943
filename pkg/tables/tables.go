// Package tables normalizes raw annotation rows into the three entity
// tables the matrix pipeline is built from: Condition, Feature and Link.
package tables

import (
	"math"
	"strings"

	"phenomatrix/pkg/freq"
)

// Row is one raw annotation record: a single condition-phenotype link
// with an optional condition name and frequency token. Identifier
// validation happens at load time; Normalize assumes both IDs are set.
type Row struct {
	ConditionID   string
	ConditionName string
	FeatureID     string
	Frequency     string
}

// Condition is one distinct condition identifier. Name is the first
// non-empty name seen for the ID, possibly empty.
type Condition struct {
	ID   string
	Name string
}

// Feature is one distinct phenotype identifier. Label is never empty:
// it is the external label when one exists, otherwise the ID itself.
// IC is filled in after the Link table is final.
type Feature struct {
	ID    string
	Label string
	IC    float64
}

// Link is one weighted condition-feature association. At most one Link
// exists per (ConditionID, FeatureID) pair; duplicates in the raw rows
// are resolved first-occurrence-wins.
type Link struct {
	ConditionID string
	FeatureID   string
	Weight      float64
}

// ICFunc scores a feature from its document frequency df (number of
// distinct conditions linked to it) and the total condition count n.
type ICFunc func(df, n int) float64

// LaplaceIC is the default scoring function: -log((df+1)/(n+1)).
// It is zero-safe, non-negative for df <= n and strictly decreasing
// in df.
func LaplaceIC(df, n int) float64 {
	return -math.Log(float64(df+1) / float64(n+1))
}

// Tables holds the three normalized tables of one pipeline run.
// Conditions and Features are ordered by first appearance in the raw
// rows; Links keep raw-row order with duplicates removed. The tables
// are write-once: nothing mutates them after Normalize returns.
type Tables struct {
	Conditions []Condition
	Features   []Feature
	Links      []Link

	// FallbackLabels counts features whose label fell back to the ID.
	FallbackLabels int
}

// Normalize builds the three tables from raw rows. labels maps feature
// IDs to display labels and may be nil; missing or empty labels fall
// back to the feature ID. ic may be nil, in which case LaplaceIC is
// used. Rows are processed in input order, so repeated runs over the
// same rows produce identical tables.
func Normalize(rows []Row, labels map[string]string, ic ICFunc) *Tables {
	if ic == nil {
		ic = LaplaceIC
	}

	t := &Tables{}
	condSeen := map[string]int{}
	featSeen := map[string]int{}
	linkSeen := map[[2]string]struct{}{}

	for _, row := range rows {
		if i, ok := condSeen[row.ConditionID]; !ok {
			condSeen[row.ConditionID] = len(t.Conditions)
			t.Conditions = append(t.Conditions, Condition{ID: row.ConditionID, Name: row.ConditionName})
		} else if t.Conditions[i].Name == "" && row.ConditionName != "" {
			t.Conditions[i].Name = row.ConditionName
		}

		if _, ok := featSeen[row.FeatureID]; !ok {
			featSeen[row.FeatureID] = len(t.Features)
			t.Features = append(t.Features, Feature{ID: row.FeatureID, Label: t.featureLabel(row.FeatureID, labels)})
		}

		key := [2]string{row.ConditionID, row.FeatureID}
		if _, ok := linkSeen[key]; ok {
			continue // first occurrence wins
		}
		linkSeen[key] = struct{}{}
		t.Links = append(t.Links, Link{
			ConditionID: row.ConditionID,
			FeatureID:   row.FeatureID,
			Weight:      freq.Weight(row.Frequency),
		})
	}

	computeIC(t, ic)
	return t
}

// featureLabel applies the label fallback: the external label when one
// exists, otherwise the ID itself so no Feature ever lacks a label.
func (t *Tables) featureLabel(id string, labels map[string]string) string {
	if label, ok := labels[id]; ok && strings.TrimSpace(label) != "" {
		return label
	}
	t.FallbackLabels++
	return id
}

// computeIC fills Feature.IC from the finalized Link table. df counts
// distinct conditions per feature; the Link table is already unique per
// pair, so a plain count suffices.
func computeIC(t *Tables, ic ICFunc) {
	df := make(map[string]int, len(t.Features))
	for _, l := range t.Links {
		df[l.FeatureID]++
	}
	n := len(t.Conditions)
	for i := range t.Features {
		t.Features[i].IC = ic(df[t.Features[i].ID], n)
	}
}

// FeatureIC returns the IC value per feature ID.
func (t *Tables) FeatureIC() map[string]float64 {
	out := make(map[string]float64, len(t.Features))
	for _, f := range t.Features {
		out[f.ID] = f.IC
	}
	return out
}
