// SPDX-License-Identifier: Apache-2.0

// Package schema holds the value objects describing the parts of a table
// that an online migration has to carry over to the shadow table:
// constraints, foreign keys and indexes.
package schema

import "fmt"

// ConstraintType enumerates the constraint kinds that are replayed onto a
// shadow table. Foreign keys are modelled separately because the two sides
// of the relationship need different treatment during a migration.
type ConstraintType string

const (
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintCheck      ConstraintType = "CHECK"
)

// Constraint represents a non-foreign-key constraint on a table.
type Constraint struct {
	Name        string
	TableName   string
	Type        ConstraintType
	Column      string
	CheckClause string
}

// NewConstraint builds a Constraint, rejecting unknown constraint types.
func NewConstraint(name, tableName string, typ ConstraintType, column, checkClause string) (Constraint, error) {
	switch typ {
	case ConstraintUnique, ConstraintPrimaryKey, ConstraintCheck:
	default:
		return Constraint{}, fmt.Errorf("constraint type %q not in [UNIQUE, PRIMARY KEY, CHECK]", typ)
	}

	return Constraint{
		Name:        name,
		TableName:   tableName,
		Type:        typ,
		Column:      column,
		CheckClause: checkClause,
	}, nil
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %s, %s - %s", c.Type, c.Name, c.TableName, c.Column)
}

// ForeignKey represents a foreign key constraint seen from the perspective
// of one table. Referenced is true when the constraint is defined on some
// other table and points at this one ("incoming"); false when the
// constraint is defined on this table ("outgoing").
type ForeignKey struct {
	Name       string
	TableName  string
	Column     string
	FKTable    string
	FKColumn   string
	Referenced bool
}

// Equal reports whether two foreign keys describe the same relationship.
// Name and Referenced are database-assigned bookkeeping, not part of the
// constraint's identity, so they are excluded from the comparison.
func (fk ForeignKey) Equal(other ForeignKey) bool {
	return fk.TableName == other.TableName &&
		fk.Column == other.Column &&
		fk.FKColumn == other.FKColumn
}

// SelfReferential reports whether the key points back at its own table.
// The classification is by name comparison only.
func (fk ForeignKey) SelfReferential() bool {
	return fk.TableName == fk.FKTable
}

func (fk ForeignKey) String() string {
	return fmt.Sprintf("FOREIGN KEY %s: %s.%s ref %s.%s", fk.Name, fk.TableName, fk.Column, fk.FKTable, fk.FKColumn)
}

// Index represents a single-column table index.
type Index struct {
	Table  string
	Name   string
	Unique bool
	Column string
}

// Equal reports whether two indexes are the same index. Uniqueness is not
// part of an index's identity.
func (ix Index) Equal(other Index) bool {
	return ix.Table == other.Table &&
		ix.Name == other.Name &&
		ix.Column == other.Column
}

func (ix Index) String() string {
	return fmt.Sprintf("Index %s: %s", ix.Name, ix.Column)
}
