// Package index assigns stable row and column indices to condition and
// feature identifiers. The resulting Map is an immutable value shared
// by every matrix variant of a run: a given ID occupies the same index
// everywhere.
package index

import (
	"sort"

	"phenomatrix/pkg/tables"
)

// Order selects the deterministic ID ordering policy.
type Order int

const (
	// Lexicographic sorts IDs as strings. This is the default: it is
	// stable across runs regardless of raw-row order.
	Lexicographic Order = iota

	// FirstSeen keeps the order in which IDs appear in the normalized
	// tables. Changing the policy permutes rows/columns but never
	// changes membership.
	FirstSeen
)

// Map holds the row order for conditions and the column order for
// features, with reverse lookups. Construct with New; do not mutate.
type Map struct {
	condIDs []string
	featIDs []string
	condIdx map[string]int
	featIdx map[string]int
}

// New builds a Map from the normalized tables using the given order
// policy. The same tables and policy always produce the same Map.
func New(t *tables.Tables, order Order) *Map {
	condIDs := make([]string, len(t.Conditions))
	for i, c := range t.Conditions {
		condIDs[i] = c.ID
	}
	featIDs := make([]string, len(t.Features))
	for i, f := range t.Features {
		featIDs[i] = f.ID
	}

	if order == Lexicographic {
		sort.Strings(condIDs)
		sort.Strings(featIDs)
	}

	m := &Map{
		condIDs: condIDs,
		featIDs: featIDs,
		condIdx: make(map[string]int, len(condIDs)),
		featIdx: make(map[string]int, len(featIDs)),
	}
	for i, id := range condIDs {
		m.condIdx[id] = i
	}
	for j, id := range featIDs {
		m.featIdx[id] = j
	}
	return m
}

// CondIndex returns the matrix row for a condition ID.
func (m *Map) CondIndex(id string) (int, bool) {
	i, ok := m.condIdx[id]
	return i, ok
}

// FeatIndex returns the matrix column for a feature ID.
func (m *Map) FeatIndex(id string) (int, bool) {
	j, ok := m.featIdx[id]
	return j, ok
}

// CondIDs returns a copy of the row order.
func (m *Map) CondIDs() []string {
	out := make([]string, len(m.condIDs))
	copy(out, m.condIDs)
	return out
}

// FeatIDs returns a copy of the column order.
func (m *Map) FeatIDs() []string {
	out := make([]string, len(m.featIDs))
	copy(out, m.featIDs)
	return out
}

// NumConditions returns the matrix row count.
func (m *Map) NumConditions() int { return len(m.condIDs) }

// NumFeatures returns the matrix column count.
func (m *Map) NumFeatures() int { return len(m.featIDs) }
