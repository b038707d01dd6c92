// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"slices"
	"sort"
)

// Rename maps a source column name to its name on the shadow table.
type Rename struct {
	Old string
	New string
}

// ProjectColumns derives the origin→destination column projection from the
// columns of both tables and the declared renames. The shared set is
// sorted; the rename lists are appended in order of original name. The
// returned slices are always the same length and positionally aligned:
// originColumns[i] on the source feeds destColumns[i] on the shadow.
func ProjectColumns(origin, dest []string, renames []Rename) (originColumns, destColumns []string) {
	shared := make([]string, 0, len(origin))
	for _, col := range origin {
		if !slices.Contains(dest, col) {
			continue
		}
		if renameTarget(renames, col) {
			continue
		}
		shared = append(shared, col)
	}
	sort.Strings(shared)

	ordered := make([]Rename, len(renames))
	copy(ordered, renames)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Old < ordered[j].Old })

	originColumns = shared
	destColumns = slices.Clone(shared)
	for _, r := range ordered {
		originColumns = append(originColumns, r.Old)
		destColumns = append(destColumns, r.New)
	}
	return originColumns, destColumns
}

func renameTarget(renames []Rename, col string) bool {
	for _, r := range renames {
		if r.New == col || r.Old == col {
			return true
		}
	}
	return false
}
