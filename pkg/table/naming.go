// SPDX-License-Identifier: Apache-2.0

package table

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/copperline/shadowtable/pkg/schema"
)

const nameCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = nameCharset[rand.Intn(len(nameCharset))] // #nosec G404
	}
	return string(b)
}

// NewFKIndexName mints a collision-resistant name for a foreign key
// constraint.
func (t *Table) NewFKIndexName(column, fkColumn string) string {
	return fmt.Sprintf("%s_refs_%s_%s", column, fkColumn, randomString(8))
}

// NewConstraintName mints a name for a UNIQUE or PRIMARY KEY constraint.
// The shadow prefix is stripped so post-swap names read naturally.
func (t *Table) NewConstraintName(column string, typ schema.ConstraintType) (string, error) {
	name := strings.TrimPrefix(t.Name, MigratePrefix)
	name = truncate(name, 30)

	switch typ {
	case schema.ConstraintUnique:
		return fmt.Sprintf("%s_%s_%s_uniq", name, truncate(column, 15), randomString(8)), nil
	case schema.ConstraintPrimaryKey:
		return fmt.Sprintf("%s_%s_pkey", name, randomString(4)), nil
	default:
		return "", fmt.Errorf("name not implemented for constraint type %q", typ)
	}
}

// NewIndexName mints a name for an index over the joined column list.
func (t *Table) NewIndexName(columns string, unique bool) string {
	name := strings.TrimPrefix(t.Name, MigratePrefix)
	columns = strings.ReplaceAll(columns, ", ", "")

	suffix := ""
	if unique {
		suffix = "_unique"
	}
	return fmt.Sprintf("%s_%s_%s%s", name, columns, randomString(6), suffix)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
