// SPDX-License-Identifier: Apache-2.0

package plan_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/shadowtable/pkg/plan"
)

func TestReadPlanYAML(t *testing.T) {
	t.Parallel()

	doc := `
name: rename_zip
table: users
renames:
  - from: zip
    to: zipcode
statements:
  - ALTER TABLE migrate_users ADD COLUMN profession varchar(20)
chunkSize: 500
throttle: 250ms
`

	p, err := plan.ReadPlan(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "rename_zip", p.Name)
	assert.Equal(t, "users", p.Table)
	assert.Equal(t, "id", p.PrimaryKey)
	assert.Equal(t, []plan.Rename{{From: "zip", To: "zipcode"}}, p.Renames)
	assert.Len(t, p.Statements, 1)
	assert.Equal(t, 500, p.ChunkSize)

	throttle, err := p.ThrottleDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, throttle)
}

func TestReadPlanDefaults(t *testing.T) {
	t.Parallel()

	p, err := plan.ReadPlan(strings.NewReader(`table: users`))
	require.NoError(t, err)

	assert.Equal(t, "users", p.Table)
	assert.Equal(t, "id", p.PrimaryKey)
	assert.True(t, strings.HasPrefix(p.Name, "plan_"))

	throttle, err := p.ThrottleDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), throttle)
}

func TestReadPlanRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
	}{
		{"missing table", `name: no_table`},
		{"empty table", `table: ""`},
		{"bad rename", "table: users\nrenames:\n  - from: zip"},
		{"unknown field", "table: users\ncascade: true"},
		{"bad chunk size", "table: users\nchunkSize: 0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := plan.ReadPlan(strings.NewReader(tc.doc))
			assert.Error(t, err)
		})
	}
}
