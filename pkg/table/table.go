// SPDX-License-Identifier: Apache-2.0

// Package table is a thin façade over one live table: introspection, DDL,
// DML and best-effort replay of constraints, foreign keys and indexes.
// All state lives in the database; the handle itself is a stateless
// projection.
package table

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/schema"
	"github.com/copperline/shadowtable/pkg/sqlgen"
)

// MigratePrefix and ArchivePrefix name the shadow and post-swap tables of
// a migration.
const (
	MigratePrefix = "migrate_"
	ArchivePrefix = "archive_"
)

var whitespace = regexp.MustCompile(`\s+`)

// Table is a handle on one live table.
type Table struct {
	DB               *db.Database
	Name             string
	PrimaryKeyColumn string
}

// New returns a handle with the default primary key column "id".
func New(d *db.Database, name string) *Table {
	return NewWithPrimaryKey(d, name, "id")
}

// NewWithPrimaryKey returns a handle bound to an explicit primary key
// column.
func NewWithPrimaryKey(d *db.Database, name, pkColumn string) *Table {
	return &Table{DB: d, Name: name, PrimaryKeyColumn: pkColumn}
}

func (t *Table) commands() sqlgen.Commands { return t.DB.Commands() }

// MigrateName is the name of this table's shadow.
func (t *Table) MigrateName() string { return MigratePrefix + t.Name }

// ArchiveName is the name this table gets after the rename swap.
func (t *Table) ArchiveName() string { return ArchivePrefix + t.Name }

// Create makes an initial empty table with an auto-incrementing primary
// key.
func (t *Table) Create(ctx context.Context) error {
	if err := t.DB.Exec(ctx, t.commands().CreateTable(t.Name, t.PrimaryKeyColumn)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// CreateStatement fetches the table's CREATE statement with whitespace
// collapsed.
func (t *Table) CreateStatement(ctx context.Context) (string, error) {
	exists, err := t.DB.TableExists(ctx, t.Name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("table %q does not exist, no create statement", t.Name)
	}

	rows, err := t.DB.Query(ctx, t.commands().CreateStatement(t.Name))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no create statement for table %q", t.Name)
	}

	// SHOW CREATE TABLE yields (name, statement); postgres yields the
	// statement alone.
	idx := 0
	if t.commands().Dialect() == sqlgen.MySQL {
		idx = 1
	}
	statement, ok := rows[0][idx].(string)
	if !ok {
		return "", fmt.Errorf("unexpected create statement row for table %q", t.Name)
	}

	return whitespace.ReplaceAllString(statement, " "), nil
}

// CreateFromStatement executes a CREATE statement template (carrying the
// {} name placeholder) when the table is absent, pre-creating any
// sequences the statement mentions.
func (t *Table) CreateFromStatement(ctx context.Context, statement string) error {
	exists, err := t.DB.TableExists(ctx, t.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := t.addSequences(ctx, statement); err != nil {
		return err
	}
	if err := t.DB.Exec(ctx, strings.Replace(statement, sqlgen.NamePlaceholder, t.Name, 1)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// addSequences pre-creates the sequences named in a CREATE statement's
// column defaults, e.g. nextval('users_id_seq'::regclass).
func (t *Table) addSequences(ctx context.Context, statement string) error {
	if _, ok := t.commands().(sqlgen.SequenceCommands); !ok {
		return nil
	}

	for _, part := range strings.Split(statement, "'") {
		if strings.HasSuffix(part, "_seq") {
			if err := t.DB.AddSequence(ctx, part); err != nil {
				return err
			}
		}
	}
	return nil
}

// Drop removes the table, dropping its foreign keys first.
func (t *Table) Drop(ctx context.Context, cascade bool) error {
	exists, err := t.DB.TableExists(ctx, t.Name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := t.DropForeignKeys(ctx); err != nil {
		return err
	}
	if err := t.DB.Exec(ctx, t.commands().DropTable(t.Name, cascade)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// Row methods.

// GetRow returns the row with the given pk as a column→value mapping, or
// nil when absent.
func (t *Table) GetRow(ctx context.Context, pk int64) (map[string]any, error) {
	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := t.DB.Query(ctx, t.commands().SelectRow(
		strings.Join(columns, ", "), t.Name, t.PrimaryKeyColumn, pk))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) != len(columns) {
		return nil, fmt.Errorf("row width %d does not match %d columns", len(rows[0]), len(columns))
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = rows[0][i]
	}
	return row, nil
}

// InsertRow adds a row and returns its new pk.
func (t *Table) InsertRow(ctx context.Context, row map[string]any) (int64, error) {
	columns, values, err := formatRow(row)
	if err != nil {
		return 0, err
	}

	if err := t.DB.Exec(ctx, t.commands().InsertRow(t.Name, columns, values)); err != nil {
		return 0, err
	}

	// Dialect hook: postgres reads the id back with LASTVAL(), mysql's
	// driver reports it directly.
	if q := t.commands().LastInsertIDQuery(); q != "" {
		v, err := t.DB.QueryValue(ctx, q)
		if err != nil {
			return 0, err
		}
		return toInt64(v), nil
	}
	return t.DB.LastInsertID(), nil
}

// InsertRows adds several rows sharing one column set in a single
// statement.
func (t *Table) InsertRows(ctx context.Context, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		vals := make([]string, len(row))
		for j, v := range row {
			formatted, err := formatValue(v)
			if err != nil {
				return err
			}
			vals[j] = formatted
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}

	statement := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		t.Name, strings.Join(columns, ", "), strings.Join(tuples, ", "))
	if err := t.DB.Exec(ctx, statement); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// UpdateRow updates the row with the given pk.
func (t *Table) UpdateRow(ctx context.Context, pk int64, row map[string]any) error {
	assignments, err := formatAssignments(row)
	if err != nil {
		return err
	}
	return t.DB.Exec(ctx, t.commands().UpdateRow(t.Name, assignments, t.PrimaryKeyColumn, pk))
}

// DeleteRow deletes the row with the given pk.
func (t *Table) DeleteRow(ctx context.Context, pk int64) error {
	return t.DB.Exec(ctx, t.commands().DeleteRow(t.Name, t.PrimaryKeyColumn, pk))
}

// Count returns the table's row count.
func (t *Table) Count(ctx context.Context) (int64, error) {
	v, err := t.DB.QueryValue(ctx, t.commands().Count(t.Name))
	if err != nil {
		return 0, err
	}
	return toInt64(v), nil
}

// MinPK returns the minimum pk; ok is false on an empty table.
func (t *Table) MinPK(ctx context.Context) (int64, bool, error) {
	v, err := t.DB.QueryValue(ctx, t.commands().MinPK(t.Name, t.PrimaryKeyColumn))
	if err != nil || v == nil {
		return 0, false, err
	}
	return toInt64(v), true, nil
}

// MaxPK returns the maximum pk; ok is false on an empty table.
func (t *Table) MaxPK(ctx context.Context) (int64, bool, error) {
	v, err := t.DB.QueryValue(ctx, t.commands().MaxPK(t.Name, t.PrimaryKeyColumn))
	if err != nil || v == nil {
		return 0, false, err
	}
	return toInt64(v), true, nil
}

// Column methods.

// Columns returns the table's column names in ordinal order.
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	rows, err := t.DB.Query(ctx, t.commands().TableColumns(t.DB.Schema(), t.Name))
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row[0].(string); ok {
			columns = append(columns, s)
		}
	}
	return columns, nil
}

// ColumnExists reports whether the column is present.
func (t *Table) ColumnExists(ctx context.Context, column string) (bool, error) {
	columns, err := t.Columns(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

// ColumnDefinition reconstructs a column's SQL definition from the
// information schema: type, optional length, nullability.
func (t *Table) ColumnDefinition(ctx context.Context, column string) (string, error) {
	rows, err := t.DB.Query(ctx, t.commands().ColumnDefinition(t.DB.Schema(), t.Name, column))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) < 4 {
		return "", fmt.Errorf("no definition for column %s.%s", t.Name, column)
	}

	row := rows[0]
	def, _ := row[0].(string)
	if row[1] != nil {
		def = fmt.Sprintf("%s(%d)", def, toInt64(row[1]))
	}
	if nullable, _ := row[2].(string); nullable == "NO" {
		def += " NOT NULL"
	}
	if row[3] != nil {
		def = fmt.Sprintf("%s default %v", def, row[3])
	}
	return def, nil
}

// AddColumn adds the column unless it is already present.
func (t *Table) AddColumn(ctx context.Context, column, definition string) error {
	exists, err := t.ColumnExists(ctx, column)
	if err != nil || exists {
		return err
	}
	return t.DB.Exec(ctx, t.commands().AddColumn(t.Name, column, definition))
}

// AlterColumn applies a definition change to the column.
func (t *Table) AlterColumn(ctx context.Context, column, definition string) error {
	return t.DB.Exec(ctx, t.commands().AlterColumn(t.Name, column, definition))
}

// DropColumn removes the column.
func (t *Table) DropColumn(ctx context.Context, column string) error {
	return t.DB.Exec(ctx, t.commands().DropColumn(t.Name, column))
}

// RenameColumn renames a column. On mysql the statement must restate the
// column type, which is looked up from the information schema first.
func (t *Table) RenameColumn(ctx context.Context, oldName, newName string) error {
	var columnType string
	if t.commands().Dialect() == sqlgen.MySQL {
		def, err := t.ColumnDefinition(ctx, oldName)
		if err != nil {
			return err
		}
		columnType = def
	}
	return t.DB.Exec(ctx, t.commands().RenameColumn(t.Name, oldName, newName, columnType))
}

// Constraints.

// Constraints returns the table's non-foreign-key constraints.
func (t *Table) Constraints(ctx context.Context) ([]schema.Constraint, error) {
	rows, err := t.DB.Query(ctx, t.commands().Constraints(t.DB.Schema(), t.Name))
	if err != nil {
		return nil, err
	}

	constraints := make([]schema.Constraint, 0, len(rows))
	for _, row := range rows {
		name, _ := row[0].(string)
		tableName, _ := row[1].(string)
		typ, _ := row[2].(string)
		column, _ := row[3].(string)
		check, _ := row[4].(string)

		c, err := schema.NewConstraint(name, tableName, schema.ConstraintType(typ), column, check)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

// PrimaryKey returns the table's primary key constraint.
func (t *Table) PrimaryKey(ctx context.Context) (schema.Constraint, error) {
	constraints, err := t.Constraints(ctx)
	if err != nil {
		return schema.Constraint{}, err
	}
	for _, c := range constraints {
		if c.Type == schema.ConstraintPrimaryKey {
			return c, nil
		}
	}
	return schema.Constraint{}, fmt.Errorf("table %q has no primary key constraint", t.Name)
}

// AddConstraints replays constraint objects onto the table.
func (t *Table) AddConstraints(ctx context.Context, constraints []schema.Constraint) error {
	for _, c := range constraints {
		if err := t.AddConstraint(ctx, c.Type, c.Column, c.CheckClause); err != nil {
			return err
		}
	}
	return nil
}

// AddConstraint applies one non-foreign-key constraint. CHECK clauses
// containing NOT NULL become a column NOT NULL; the literal VALUE in a
// CHECK clause is substituted with the column name. Failures are logged
// and swallowed: constraint replay onto a shadow is best effort.
func (t *Table) AddConstraint(ctx context.Context, typ schema.ConstraintType, column, checkClause string) error {
	var sql string
	switch {
	case typ == schema.ConstraintCheck && strings.Contains(checkClause, "NOT NULL"):
		sql = t.commands().AddCheckNotNull(t.Name, strings.Fields(checkClause)[0])
	case typ == schema.ConstraintCheck:
		if column != "" && strings.Contains(checkClause, "VALUE") {
			checkClause = strings.ReplaceAll(checkClause, "VALUE", column)
		}
		sql = t.commands().AddCheck(t.Name, checkClause)
	case typ == schema.ConstraintUnique || typ == schema.ConstraintPrimaryKey:
		name, err := t.NewConstraintName(column, typ)
		if err != nil {
			return err
		}
		sql = t.commands().AddConstraint(t.Name, name, typ, column)
	default:
		return fmt.Errorf("invalid constraint parameters: type %q", typ)
	}

	if err := t.DB.Exec(ctx, sql); err != nil {
		log.Printf("unable to add constraint: %v", err)
	}
	return t.DB.Commit(ctx)
}

// DropConstraint removes a constraint by name.
func (t *Table) DropConstraint(ctx context.Context, name string) error {
	if err := t.DB.Exec(ctx, t.commands().DropConstraint(t.Name, name)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// Foreign keys.

// ForeignKeys returns the table's foreign keys in both directions: keys
// it owns and keys on other tables pointing at it, tagged by Referenced.
func (t *Table) ForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	rows, err := t.DB.Query(ctx, t.commands().ForeignKeys(t.DB.Schema(), t.Name))
	if err != nil {
		return nil, err
	}

	keys := make([]schema.ForeignKey, 0, len(rows))
	for _, row := range rows {
		name, _ := row[0].(string)
		tableName, _ := row[1].(string)
		column, _ := row[2].(string)
		fkTable, _ := row[3].(string)
		fkColumn, _ := row[4].(string)

		keys = append(keys, schema.ForeignKey{
			Name:       name,
			TableName:  tableName,
			Column:     column,
			FKTable:    fkTable,
			FKColumn:   fkColumn,
			Referenced: toBool(row[5]),
		})
	}
	return keys, nil
}

// GetForeignKey returns the foreign key with the given name, or nil.
func (t *Table) GetForeignKey(ctx context.Context, name string) (*schema.ForeignKey, error) {
	keys, err := t.ForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].Name == name {
			return &keys[i], nil
		}
	}
	return nil, nil
}

// ForeignKeyExists probes for an equivalent key.
func (t *Table) ForeignKeyExists(ctx context.Context, tableName, column, refTable, refColumn string) (bool, error) {
	rows, err := t.DB.Query(ctx, t.commands().ForeignKeyExists(t.DB.Schema(), tableName, column, refTable, refColumn))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// AddForeignKeys replays foreign key objects. When overrideTable is set,
// the migrating side of each relationship is remapped to it:
// self-referential keys remap both sides; incoming (Referenced) keys keep
// their owner and point at the override; outgoing keys are owned by the
// override and keep their target.
func (t *Table) AddForeignKeys(ctx context.Context, keys []schema.ForeignKey, overrideTable string) error {
	if overrideTable == "" {
		overrideTable = t.Name
	}

	for _, key := range keys {
		var owner, foreign string
		switch {
		case key.SelfReferential():
			owner, foreign = overrideTable, overrideTable
		case key.Referenced:
			owner, foreign = key.TableName, overrideTable
		default:
			owner, foreign = overrideTable, key.FKTable
		}
		if err := t.AddForeignKey(ctx, owner, key.Column, foreign, key.FKColumn, ""); err != nil {
			return err
		}
	}
	return nil
}

// AddForeignKey creates one foreign key constraint, logging and
// swallowing integrity failures.
func (t *Table) AddForeignKey(ctx context.Context, tableName, column, fkTable, fkColumn, name string) error {
	if tableName == "" {
		tableName = t.Name
	}
	if name == "" {
		name = t.NewFKIndexName(column, fkColumn)
	}

	if err := t.DB.Exec(ctx, t.commands().AddForeignKey(tableName, name, column, fkTable, fkColumn)); err != nil {
		if db.IsIntegrityViolation(err) {
			log.Printf("cannot add fk, integrity error: %v", err)
			return nil
		}
		return err
	}
	return t.DB.Commit(ctx)
}

// DropForeignKeys drops all of the table's foreign keys, tolerating keys
// that are already gone.
func (t *Table) DropForeignKeys(ctx context.Context) error {
	keys, err := t.ForeignKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := t.DropForeignKey(ctx, key.TableName, key.Name); err != nil {
			log.Printf("tried to drop key %s, did not exist: %v", key.Name, err)
		}
	}
	return nil
}

// DropForeignKey removes one foreign key constraint.
func (t *Table) DropForeignKey(ctx context.Context, fkTableName, fkName string) error {
	if err := t.DB.Exec(ctx, t.commands().DropForeignKey(fkTableName, fkName)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// Indexes.

// Indexes returns the table's indexes.
func (t *Table) Indexes(ctx context.Context) ([]schema.Index, error) {
	rows, err := t.DB.Query(ctx, t.commands().Indexes(t.DB.Schema(), t.Name))
	if err != nil {
		return nil, err
	}

	indexes := make([]schema.Index, 0, len(rows))
	for _, row := range rows {
		tableName, _ := row[0].(string)
		name, _ := row[1].(string)
		column, _ := row[3].(string)

		indexes = append(indexes, schema.Index{
			Table:  tableName,
			Name:   name,
			Unique: toBool(row[2]),
			Column: column,
		})
	}
	return indexes, nil
}

// GetIndex returns the index with the given name, or nil.
func (t *Table) GetIndex(ctx context.Context, name string) (*schema.Index, error) {
	indexes, err := t.Indexes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range indexes {
		if indexes[i].Name == name {
			return &indexes[i], nil
		}
	}
	return nil, nil
}

// AddIndexes replays index objects, skipping unique ones: those are
// implied by the unique constraints already applied.
func (t *Table) AddIndexes(ctx context.Context, indexes []schema.Index) error {
	for _, ix := range indexes {
		if ix.Unique {
			continue
		}
		if err := t.AddIndex(ctx, []string{ix.Column}, "", false); err != nil {
			return err
		}
	}
	return nil
}

// AddIndex creates an index, minting a name when none is given.
func (t *Table) AddIndex(ctx context.Context, columns []string, name string, unique bool) error {
	joined := strings.Join(columns, ", ")
	if name == "" {
		name = t.NewIndexName(joined, unique)
	}

	if err := t.DB.Exec(ctx, t.commands().AddIndex(t.Name, name, joined, unique)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// DropIndex removes an index by name.
func (t *Table) DropIndex(ctx context.Context, name string) error {
	return t.DB.Exec(ctx, t.commands().DropIndex(t.Name, name))
}

// Triggers.

// Triggers lists the trigger names on the given table, defaulting to this
// one.
func (t *Table) Triggers(ctx context.Context, tableName string) ([]string, error) {
	if tableName == "" {
		tableName = t.Name
	}

	rows, err := t.DB.Query(ctx, t.commands().Triggers(t.DB.Schema(), tableName))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row[0].(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// Sequences.

// SequenceColumns returns the (sequence, column) pairs owned by the
// table. Dialects without sequences return nil.
func (t *Table) SequenceColumns(ctx context.Context) ([][2]string, error) {
	sc, ok := t.commands().(sqlgen.SequenceCommands)
	if !ok {
		return nil, nil
	}

	rows, err := t.DB.Query(ctx, sc.OwnedSequences(t.Name))
	if err != nil {
		return nil, err
	}

	pairs := make([][2]string, 0, len(rows))
	for _, row := range rows {
		seq, _ := row[0].(string)
		col, _ := row[1].(string)
		pairs = append(pairs, [2]string{seq, col})
	}
	return pairs, nil
}

// RemoveSequenceFromColumn drops the column default that ties a sequence
// to this table.
func (t *Table) RemoveSequenceFromColumn(ctx context.Context, column string) error {
	sc, ok := t.commands().(sqlgen.SequenceCommands)
	if !ok {
		return nil
	}
	if err := t.DB.Exec(ctx, sc.DropColumnDefault(t.Name, column)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// SetSequenceOwner reparents a sequence onto a table column.
func (t *Table) SetSequenceOwner(ctx context.Context, sequence, tableName, column string) error {
	sc, ok := t.commands().(sqlgen.SequenceCommands)
	if !ok {
		return nil
	}
	if err := t.DB.Exec(ctx, sc.SetSequenceOwner(sequence, tableName, column)); err != nil {
		return err
	}
	return t.DB.Commit(ctx)
}

// Value formatting. Row maps are rendered in sorted key order so
// generated statements are deterministic.

func formatRow(row map[string]any) (columns, values string, err error) {
	keys := sortedKeys(row)

	vals := make([]string, len(keys))
	for i, k := range keys {
		v, err := formatValue(row[k])
		if err != nil {
			return "", "", err
		}
		vals[i] = v
	}
	return strings.Join(keys, ", "), strings.Join(vals, ", "), nil
}

func formatAssignments(row map[string]any) (string, error) {
	keys := sortedKeys(row)

	assignments := make([]string, len(keys))
	for i, k := range keys {
		v, err := formatValue(row[k])
		if err != nil {
			return "", err
		}
		assignments[i] = k + "=" + v
	}
	return strings.Join(assignments, ", "), nil
}

// formatValue renders a value as a SQL literal: numbers as decimal
// literals, strings single-quoted with embedded quotes doubled. Anything
// else fails. Naive quote-doubling is acceptable for trusted migration
// inputs.
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	default:
		return "", db.ValueError{Value: v}
	}
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case string:
		return val == "t" || val == "true" || val == "1" || val == "YES"
	default:
		return false
	}
}
