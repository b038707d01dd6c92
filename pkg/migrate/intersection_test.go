// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectColumns(t *testing.T) {
	t.Parallel()

	origin := []string{"id", "name", "address", "city", "state", "zip"}
	dest := []string{"id", "name", "address", "city", "state", "zipcode"}
	renames := []Rename{{Old: "zip", New: "zipcode"}}

	originColumns, destColumns := ProjectColumns(origin, dest, renames)

	assert.Equal(t, []string{"address", "city", "id", "name", "state", "zip"}, originColumns)
	assert.Equal(t, []string{"address", "city", "id", "name", "state", "zipcode"}, destColumns)
}

func TestProjectColumnsNoRenames(t *testing.T) {
	t.Parallel()

	originColumns, destColumns := ProjectColumns(
		[]string{"id", "name", "created_at"},
		[]string{"id", "name", "profession"},
		nil,
	)

	// Shared columns only, sorted.
	assert.Equal(t, []string{"id", "name"}, originColumns)
	assert.Equal(t, originColumns, destColumns)
}

func TestProjectColumnsMultipleRenames(t *testing.T) {
	t.Parallel()

	origin := []string{"id", "zip", "addr"}
	dest := []string{"id", "zipcode", "address"}
	// Declared out of order: the projection orders renames by original
	// name.
	renames := []Rename{{Old: "zip", New: "zipcode"}, {Old: "addr", New: "address"}}

	originColumns, destColumns := ProjectColumns(origin, dest, renames)

	assert.Equal(t, []string{"id", "addr", "zip"}, originColumns)
	assert.Equal(t, []string{"id", "address", "zipcode"}, destColumns)
}

func TestProjectColumnsAlwaysAligned(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		origin  []string
		dest    []string
		renames []Rename
	}{
		{"empty", nil, nil, nil},
		{"disjoint", []string{"a"}, []string{"b"}, nil},
		{"rename only", []string{"a"}, []string{"b"}, []Rename{{Old: "a", New: "b"}}},
		{"shared and renamed", []string{"id", "a", "b"}, []string{"id", "x", "b"}, []Rename{{Old: "a", New: "x"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			originColumns, destColumns := ProjectColumns(tc.origin, tc.dest, tc.renames)
			assert.Len(t, destColumns, len(originColumns))
		})
	}
}
