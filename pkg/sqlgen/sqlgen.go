// SPDX-License-Identifier: Apache-2.0

// Package sqlgen produces ready-to-execute SQL statements for the two
// supported dialects. It is a pure value: no I/O, no connection state.
// Everything dialect-specific in the migration pipeline lives here or in
// the capability hooks exposed on Commands.
package sqlgen

import (
	"fmt"

	"github.com/copperline/shadowtable/pkg/schema"
)

// Dialect tags one of the supported SQL dialects.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// TriggerVerb names one of the three mirror triggers installed on a source
// table during a migration.
type TriggerVerb string

const (
	TriggerInsert TriggerVerb = "insert"
	TriggerUpdate TriggerVerb = "update"
	TriggerDelete TriggerVerb = "delete"
)

// Verbs lists the trigger verbs in installation order.
var Verbs = []TriggerVerb{TriggerInsert, TriggerUpdate, TriggerDelete}

// TriggerConfig carries everything needed to build one mirror trigger. The
// column lists are positionally aligned: OriginColumns[i] on the source
// maps to DestColumns[i] on the shadow.
type TriggerConfig struct {
	Name          string
	SourceTable   string
	DestTable     string
	PKColumn      string
	OriginColumns []string
	DestColumns   []string
}

// Commands is the set of statement-producing operations for one dialect.
// Each method yields a complete SQL string (or a short list of statements
// to run in order, for triggers). Semantics are identical across dialects
// unless noted on the implementation.
type Commands interface {
	Dialect() Dialect

	// Introspection
	Tables(schemaName string) string
	CreateStatement(table string) string
	TableColumns(schemaName, table string) string
	ColumnDefinition(schemaName, table, column string) string
	Constraints(schemaName, table string) string
	ForeignKeys(schemaName, table string) string
	ForeignKeyExists(schemaName, table, column, refTable, refColumn string) string
	Indexes(schemaName, table string) string
	Triggers(schemaName, table string) string

	// DDL
	CreateTable(table, pkColumn string) string
	DropTable(table string, cascade bool) string
	AddColumn(table, column, definition string) string
	AlterColumn(table, column, definition string) string
	DropColumn(table, column string) string
	RenameColumn(table, oldName, newName, columnType string) string
	AddCheck(table, checkClause string) string
	AddCheckNotNull(table, column string) string
	AddConstraint(table, name string, typ schema.ConstraintType, column string) string
	DropConstraint(table, name string) string
	AddForeignKey(table, name, column, fkTable, fkColumn string) string
	DropForeignKey(table, name string) string
	AddIndex(table, name, columns string, unique bool) string
	DropIndex(table, name string) string
	RenameTable(oldName, newName string) string

	// DML
	SelectRow(columns, table, pkColumn string, pk int64) string
	InsertRow(table, columns, values string) string
	UpdateRow(table, assignments, pkColumn string, pk int64) string
	DeleteRow(table, pkColumn string, pk int64) string
	Count(table string) string
	MinPK(table, pkColumn string) string
	MaxPK(table, pkColumn string) string

	// Chunked copy
	NextPK(table, pkColumn string, lastPK int64, limit int) string
	CopyChunk(dest, destColumns, originColumns, source, pkColumn string, lastPK int64, limit int) string

	// Mirror triggers. Each call returns the statements to run in order;
	// postgres needs a PL/pgSQL function plus a trigger, mysql inlines the
	// body into a single CREATE TRIGGER.
	InsertTrigger(cfg TriggerConfig) []string
	UpdateTrigger(cfg TriggerConfig) []string
	DeleteTrigger(cfg TriggerConfig) []string
	DropTrigger(name, sourceTable, destTable string, verb TriggerVerb) []string

	// Capability hooks, the dialect-varying seams of the one shared
	// migration algorithm.

	// LastInsertIDQuery returns the follow-up query reporting the id of
	// the last inserted row, or "" when the driver reports it directly.
	LastInsertIDQuery() string
	// CreateTemplate rewrites a CREATE statement for sourceTable into a
	// template carrying the {} name placeholder.
	CreateTemplate(statement, sourceTable string) string
	// AtomicRename returns the single-statement swap of
	// source→archive, shadow→source, or "" when the dialect needs two
	// RenameTable calls inside an explicit transaction.
	AtomicRename(source, archive, shadow string) string

	// Identifier helpers, quoted per dialect.
	JoinColumns(columns []string) string
	QualifyColumns(table string, columns []string) string
	AssignColumns(columns []string, fromTable string, fromColumns []string) string
}

// For returns the Commands implementation for the given dialect.
func For(d Dialect) (Commands, error) {
	switch d {
	case Postgres:
		return &postgresCommands{}, nil
	case MySQL:
		return &mysqlCommands{}, nil
	default:
		return nil, fmt.Errorf("dialect %q not supported", d)
	}
}

// SequenceCommands is implemented by dialects whose serial columns are
// backed by owned sequences (postgres). Callers probe for it with a type
// assertion.
type SequenceCommands interface {
	OwnedSequences(table string) string
	DatabaseSequences(catalog string) string
	CreateSequence(name string) string
	DropColumnDefault(table, column string) string
	SetSequenceOwner(sequence, table, column string) string
}

// ForeignKeyCheckCommands is implemented by dialects that can toggle
// foreign key enforcement per session (mysql).
type ForeignKeyCheckCommands interface {
	SetForeignKeyChecks(on bool) string
}

// NamePlaceholder is the token substituted with the target table name when
// executing a CREATE statement obtained from CreateStatement.
const NamePlaceholder = "{}"
