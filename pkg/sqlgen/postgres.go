// SPDX-License-Identifier: Apache-2.0

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/copperline/shadowtable/pkg/schema"
)

// postgresCommands produces postgres statements. Identifiers are embedded
// unquoted; generated names are lowercase and migration inputs are trusted.
type postgresCommands struct{}

func (postgresCommands) Dialect() Dialect { return Postgres }

func (postgresCommands) Tables(schemaName string) string {
	return fmt.Sprintf(`SELECT DISTINCT(tablename)
FROM pg_catalog.pg_tables
WHERE schemaname = '%s'`, schemaName)
}

func (postgresCommands) CreateStatement(table string) string {
	return fmt.Sprintf("SELECT show_create_table('%s')", table)
}

func (postgresCommands) TableColumns(schemaName, table string) string {
	return fmt.Sprintf(`SELECT column_name
FROM information_schema.columns
WHERE table_schema = '%s'
AND table_name = '%s'
ORDER BY ordinal_position`, schemaName, table)
}

func (postgresCommands) ColumnDefinition(schemaName, table, column string) string {
	return fmt.Sprintf(`SELECT udt_name, character_maximum_length, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = '%s'
AND table_name = '%s'
AND column_name = '%s'`, schemaName, table, column)
}

func (postgresCommands) Constraints(schemaName, table string) string {
	return fmt.Sprintf(`SELECT tc.constraint_name,
tc.table_name,
tc.constraint_type,
ccu.column_name,
cc.check_clause
FROM information_schema.table_constraints AS tc
LEFT OUTER JOIN information_schema.constraint_column_usage AS ccu
ON ccu.constraint_name = tc.constraint_name
LEFT OUTER JOIN information_schema.check_constraints AS cc
ON cc.constraint_name = tc.constraint_name
WHERE tc.table_name = '%s'
AND tc.constraint_type != 'FOREIGN KEY'`, table)
}

// ForeignKeys lists keys in both directions: rows where the table owns the
// key and rows where another table's key points at it. The final column is
// the referenced flag.
func (postgresCommands) ForeignKeys(schemaName, table string) string {
	return fmt.Sprintf(`SELECT tc.constraint_name,
tc.table_name,
kcu.column_name,
ccu.table_name AS ref_table,
ccu.column_name AS ref_column,
CASE WHEN ccu.table_name = '%[1]s' THEN TRUE ELSE FALSE END
FROM information_schema.table_constraints AS tc
LEFT OUTER JOIN information_schema.key_column_usage AS kcu
ON tc.constraint_name = kcu.constraint_name
LEFT OUTER JOIN information_schema.constraint_column_usage AS ccu
ON ccu.constraint_name = tc.constraint_name
WHERE (tc.table_name = '%[1]s' OR ccu.table_name = '%[1]s')
AND tc.constraint_type = 'FOREIGN KEY'`, table)
}

func (postgresCommands) ForeignKeyExists(schemaName, table, column, refTable, refColumn string) string {
	return fmt.Sprintf(`SELECT *
FROM information_schema.key_column_usage AS kcu
JOIN information_schema.constraint_column_usage AS ccu
ON ccu.constraint_name = kcu.constraint_name
WHERE kcu.table_name = '%s'
AND kcu.column_name = '%s'
AND ccu.table_name = '%s'
AND ccu.column_name = '%s'`, table, column, refTable, refColumn)
}

func (postgresCommands) Indexes(schemaName, table string) string {
	return fmt.Sprintf(`SELECT
 t.relname AS table_name,
 i.relname AS index_name,
 ix.indisunique AS index_unique,
 a.attname AS column_name
FROM
 pg_class t,
 pg_class i,
 pg_index ix,
 pg_attribute a
WHERE t.oid = ix.indrelid
 AND i.oid = ix.indexrelid
 AND a.attrelid = t.oid
 AND a.attnum = ANY(ix.indkey)
 AND t.relkind = 'r'
 AND t.relname = '%s'
ORDER BY
 t.relname,
 i.relname`, table)
}

func (postgresCommands) Triggers(schemaName, table string) string {
	return fmt.Sprintf(`SELECT trigger_name FROM information_schema.triggers AS it
WHERE it.trigger_schema = '%s'
AND it.event_object_table = '%s'`, schemaName, table)
}

func (postgresCommands) CreateTable(table, pkColumn string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s SERIAL PRIMARY KEY)", table, pkColumn)
}

func (postgresCommands) DropTable(table string, cascade bool) string {
	sql := "DROP TABLE " + table
	if cascade {
		sql += " CASCADE"
	}
	return sql
}

func (postgresCommands) AddColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
}

func (postgresCommands) AlterColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", table, column, definition)
}

func (postgresCommands) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP %s", table, column)
}

// RenameColumn ignores columnType; postgres renames do not restate it.
func (postgresCommands) RenameColumn(table, oldName, newName, columnType string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, oldName, newName)
}

func (postgresCommands) AddCheck(table, checkClause string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CHECK (%s)", table, checkClause)
}

func (postgresCommands) AddCheckNotNull(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column)
}

func (postgresCommands) AddConstraint(table, name string, typ schema.ConstraintType, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s (%s)", table, name, typ, column)
}

func (postgresCommands) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name)
}

func (postgresCommands) AddForeignKey(table, name, column, fkTable, fkColumn string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		table, name, column, fkTable, fkColumn)
}

func (postgresCommands) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", table, name)
}

func (postgresCommands) AddIndex(table, name, columns string, unique bool) string {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", uniqueStr, name, table, columns)
}

func (postgresCommands) DropIndex(table, name string) string {
	return "DROP INDEX IF EXISTS " + name
}

func (postgresCommands) RenameTable(oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", oldName, newName)
}

func (postgresCommands) SelectRow(columns, table, pkColumn string, pk int64) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s=%d", columns, table, pkColumn, pk)
}

func (postgresCommands) InsertRow(table, columns, values string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, values)
}

func (postgresCommands) UpdateRow(table, assignments, pkColumn string, pk int64) string {
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s=%d", table, assignments, pkColumn, pk)
}

func (postgresCommands) DeleteRow(table, pkColumn string, pk int64) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s=%d", table, pkColumn, pk)
}

func (postgresCommands) Count(table string) string {
	return "SELECT COUNT(1) FROM " + table
}

func (postgresCommands) MinPK(table, pkColumn string) string {
	return fmt.Sprintf("SELECT MIN(%s) FROM %s", pkColumn, table)
}

func (postgresCommands) MaxPK(table, pkColumn string) string {
	return fmt.Sprintf("SELECT MAX(%s) FROM %s", pkColumn, table)
}

func (postgresCommands) NextPK(table, pkColumn string, lastPK int64, limit int) string {
	return fmt.Sprintf(`SELECT MAX(T1.%[1]s) FROM (
SELECT %[1]s
FROM %[2]s
WHERE %[1]s>%[3]d
ORDER BY %[1]s
LIMIT %[4]d) AS T1`, pkColumn, table, lastPK, limit)
}

// CopyChunk inserts the next chunk of source rows into the shadow. The
// LEFT JOIN anti-match skips rows already present; >= rather than > keeps
// the final boundary row from being skipped.
func (postgresCommands) CopyChunk(dest, destColumns, originColumns, source, pkColumn string, lastPK int64, limit int) string {
	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s) (
SELECT %[3]s FROM %[4]s
LEFT OUTER JOIN %[1]s
ON %[4]s.%[5]s=%[1]s.%[5]s
WHERE %[1]s.%[5]s IS NULL
AND %[4]s.%[5]s >= %[6]d
ORDER BY %[4]s.%[5]s
LIMIT %[7]d
)`, dest, destColumns, originColumns, source, pkColumn, lastPK, limit)
}

func (c postgresCommands) InsertTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("pg_insert_function", pgInsertFunction, triggerData{
			DestTable: cfg.DestTable,
			Columns:   c.JoinColumns(cfg.DestColumns),
			Values:    c.QualifyColumns("NEW", cfg.OriginColumns),
		}),
		renderTemplate("pg_trigger", pgTrigger, triggerData{
			Name:        cfg.Name,
			Event:       "INSERT",
			Function:    "insert_" + cfg.DestTable,
			SourceTable: cfg.SourceTable,
		}),
	}
}

func (c postgresCommands) UpdateTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("pg_update_function", pgUpdateFunction, triggerData{
			DestTable:   cfg.DestTable,
			Assignments: c.AssignColumns(cfg.DestColumns, "NEW", cfg.OriginColumns),
			PKColumn:    cfg.PKColumn,
		}),
		renderTemplate("pg_trigger", pgTrigger, triggerData{
			Name:        cfg.Name,
			Event:       "UPDATE",
			Function:    "update_" + cfg.DestTable,
			SourceTable: cfg.SourceTable,
		}),
	}
}

func (c postgresCommands) DeleteTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("pg_delete_function", pgDeleteFunction, triggerData{
			DestTable: cfg.DestTable,
			PKColumn:  cfg.PKColumn,
		}),
		renderTemplate("pg_trigger", pgTrigger, triggerData{
			Name:        cfg.Name,
			Event:       "DELETE",
			Function:    "delete_" + cfg.DestTable,
			SourceTable: cfg.SourceTable,
		}),
	}
}

// DropTrigger removes the trigger and its backing function.
func (postgresCommands) DropTrigger(name, sourceTable, destTable string, verb TriggerVerb) []string {
	return []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", name, sourceTable),
		fmt.Sprintf("DROP FUNCTION IF EXISTS %s_%s()", verb, destTable),
	}
}

// LastInsertIDQuery: lib/pq does not report LastInsertId, so inserted ids
// are read back with LASTVAL().
func (postgresCommands) LastInsertIDQuery() string {
	return "SELECT LASTVAL()"
}

// CreateTemplate is the identity on postgres: show_create_table already
// emits the {} placeholder.
func (postgresCommands) CreateTemplate(statement, sourceTable string) string {
	return statement
}

// AtomicRename returns "" — postgres swaps with two renames inside an
// explicit transaction.
func (postgresCommands) AtomicRename(source, archive, shadow string) string {
	return ""
}

func (postgresCommands) JoinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

func (postgresCommands) QualifyColumns(table string, columns []string) string {
	qualified := make([]string, len(columns))
	for i, col := range columns {
		qualified[i] = table + "." + col
	}
	return strings.Join(qualified, ", ")
}

func (postgresCommands) AssignColumns(columns []string, fromTable string, fromColumns []string) string {
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s=%s.%s", col, fromTable, fromColumns[i])
	}
	return strings.Join(assignments, ", ")
}

// Sequence management, postgres only.

func (postgresCommands) OwnedSequences(table string) string {
	return fmt.Sprintf(`SELECT s.relname, a.attname
FROM pg_class s
JOIN pg_depend d ON d.objid=s.oid
  AND d.classid='pg_class'::regclass
  AND d.refclassid='pg_class'::regclass
JOIN pg_class t ON t.oid=d.refobjid
JOIN pg_attribute a ON a.attrelid=t.oid
  AND a.attnum=d.refobjsubid
WHERE s.relkind='S' AND d.deptype='a'
AND t.relname='%s'`, table)
}

func (postgresCommands) DatabaseSequences(catalog string) string {
	return fmt.Sprintf(`SELECT sequence_name
FROM information_schema.sequences
WHERE sequence_catalog = '%s'`, catalog)
}

func (postgresCommands) CreateSequence(name string) string {
	return "CREATE SEQUENCE " + name
}

func (postgresCommands) DropColumnDefault(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, column)
}

func (postgresCommands) SetSequenceOwner(sequence, table, column string) string {
	return fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s.%s", sequence, table, column)
}
