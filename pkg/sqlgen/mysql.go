// SPDX-License-Identifier: Apache-2.0

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/copperline/shadowtable/pkg/schema"
)

// mysqlCommands produces mysql statements. Column identifiers are
// backtick-quoted in the ADD/MODIFY/DROP column statements and by the
// column-list helpers; the pk and single column names in renames,
// constraints, indexes, row DML and chunk statements are embedded bare.
// schemaName is the database name.
type mysqlCommands struct{}

func (mysqlCommands) Dialect() Dialect { return MySQL }

func (mysqlCommands) Tables(schemaName string) string {
	return "SHOW TABLES IN " + schemaName
}

func (mysqlCommands) CreateStatement(table string) string {
	return "SHOW CREATE TABLE " + table
}

func (mysqlCommands) TableColumns(schemaName, table string) string {
	return fmt.Sprintf(`SELECT COLUMN_NAME
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = '%s'
AND TABLE_NAME = '%s'
ORDER BY ORDINAL_POSITION`, schemaName, table)
}

// ColumnDefinition selects the same four fields as the postgres variant.
// COLUMN_TYPE already carries the length, so the length and default slots
// are NULL.
func (mysqlCommands) ColumnDefinition(schemaName, table, column string) string {
	return fmt.Sprintf(`SELECT COLUMN_TYPE, NULL, IS_NULLABLE, NULL
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = '%s'
AND TABLE_NAME = '%s'
AND COLUMN_NAME = '%s'`, schemaName, table, column)
}

func (mysqlCommands) Constraints(schemaName, table string) string {
	return fmt.Sprintf(`SELECT tc.CONSTRAINT_NAME, tc.TABLE_NAME, tc.CONSTRAINT_TYPE, kcu.COLUMN_NAME, cc.CHECK_CLAUSE
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS AS tc
LEFT OUTER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE AS kcu
ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
AND kcu.TABLE_NAME = tc.TABLE_NAME
LEFT OUTER JOIN INFORMATION_SCHEMA.CHECK_CONSTRAINTS AS cc
ON cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = '%s'
AND tc.TABLE_NAME = '%s'
AND tc.CONSTRAINT_TYPE != 'FOREIGN KEY'`, schemaName, table)
}

// ForeignKeys lists keys in both directions with the referenced flag, the
// same row shape as the postgres variant.
func (mysqlCommands) ForeignKeys(schemaName, table string) string {
	return fmt.Sprintf(`SELECT CONSTRAINT_NAME, TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME,
(REFERENCED_TABLE_NAME = '%[2]s')
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = '%[1]s'
AND REFERENCED_TABLE_NAME IS NOT NULL
AND (TABLE_NAME = '%[2]s' OR REFERENCED_TABLE_NAME = '%[2]s')`, schemaName, table)
}

func (mysqlCommands) ForeignKeyExists(schemaName, table, column, refTable, refColumn string) string {
	return fmt.Sprintf(`SELECT * FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = '%s'
AND TABLE_NAME = '%s'
AND COLUMN_NAME = '%s'
AND REFERENCED_TABLE_NAME = '%s'
AND REFERENCED_COLUMN_NAME = '%s'`, schemaName, table, column, refTable, refColumn)
}

func (mysqlCommands) Indexes(schemaName, table string) string {
	return fmt.Sprintf(`SELECT TABLE_NAME, INDEX_NAME, (NON_UNIQUE = 0), COLUMN_NAME
FROM INFORMATION_SCHEMA.STATISTICS
WHERE TABLE_SCHEMA = '%s'
AND TABLE_NAME = '%s'
ORDER BY TABLE_NAME, INDEX_NAME`, schemaName, table)
}

func (mysqlCommands) Triggers(schemaName, table string) string {
	return fmt.Sprintf(`SELECT trigger_name FROM information_schema.triggers AS it
WHERE it.trigger_schema = '%s'
AND it.event_object_table = '%s'`, schemaName, table)
}

func (mysqlCommands) CreateTable(table, pkColumn string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s integer AUTO_INCREMENT NOT NULL PRIMARY KEY)", table, pkColumn)
}

func (mysqlCommands) DropTable(table string, cascade bool) string {
	sql := "DROP TABLE " + table
	if cascade {
		sql += " CASCADE"
	}
	return sql
}

func (mysqlCommands) AddColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN `%s` %s", table, column, definition)
}

func (mysqlCommands) AlterColumn(table, column, definition string) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN `%s` %s", table, column, definition)
}

func (mysqlCommands) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP `%s`", table, column)
}

// RenameColumn must restate the column type on mysql.
func (mysqlCommands) RenameColumn(table, oldName, newName, columnType string) string {
	return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s", table, oldName, newName, columnType)
}

func (mysqlCommands) AddCheck(table, checkClause string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CHECK (%s)", table, checkClause)
}

func (mysqlCommands) AddCheckNotNull(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column)
}

func (mysqlCommands) AddConstraint(table, name string, typ schema.ConstraintType, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s (%s)", table, name, typ, column)
}

func (mysqlCommands) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name)
}

func (mysqlCommands) AddForeignKey(table, name, column, fkTable, fkColumn string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		table, name, column, fkTable, fkColumn)
}

func (mysqlCommands) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY IF EXISTS %s", table, name)
}

func (mysqlCommands) AddIndex(table, name, columns string, unique bool) string {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE "
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %sINDEX %s (%s)", table, uniqueStr, name, columns)
}

func (mysqlCommands) DropIndex(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP INDEX IF EXISTS %s", table, name)
}

func (mysqlCommands) RenameTable(oldName, newName string) string {
	return fmt.Sprintf("RENAME TABLE `%s` TO `%s`", oldName, newName)
}

func (mysqlCommands) SelectRow(columns, table, pkColumn string, pk int64) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s=%d", columns, table, pkColumn, pk)
}

func (mysqlCommands) InsertRow(table, columns, values string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, values)
}

func (mysqlCommands) UpdateRow(table, assignments, pkColumn string, pk int64) string {
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s=%d", table, assignments, pkColumn, pk)
}

func (mysqlCommands) DeleteRow(table, pkColumn string, pk int64) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s=%d", table, pkColumn, pk)
}

func (mysqlCommands) Count(table string) string {
	return "SELECT COUNT(1) FROM " + table
}

func (mysqlCommands) MinPK(table, pkColumn string) string {
	return fmt.Sprintf("SELECT MIN(%s) FROM %s", pkColumn, table)
}

func (mysqlCommands) MaxPK(table, pkColumn string) string {
	return fmt.Sprintf("SELECT MAX(%s) FROM %s", pkColumn, table)
}

func (mysqlCommands) NextPK(table, pkColumn string, lastPK int64, limit int) string {
	return fmt.Sprintf(`SELECT MAX(T1.%[1]s) FROM (
SELECT %[1]s
FROM %[2]s
WHERE %[1]s>%[3]d
ORDER BY %[1]s
LIMIT %[4]d) AS T1`, pkColumn, table, lastPK, limit)
}

// CopyChunk uses INSERT IGNORE so a re-run of the same chunk is a no-op on
// rows that already landed, on top of the LEFT JOIN anti-match.
func (mysqlCommands) CopyChunk(dest, destColumns, originColumns, source, pkColumn string, lastPK int64, limit int) string {
	return fmt.Sprintf(`INSERT IGNORE INTO %[1]s (%[2]s) (
SELECT %[3]s FROM %[4]s
LEFT OUTER JOIN %[1]s
ON %[4]s.%[5]s=%[1]s.%[5]s
WHERE %[1]s.%[5]s IS NULL
AND %[4]s.%[5]s >= %[6]d
ORDER BY %[4]s.%[5]s
LIMIT %[7]d
)`, dest, destColumns, originColumns, source, pkColumn, lastPK, limit)
}

func (c mysqlCommands) InsertTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("my_insert_trigger", myInsertTrigger, triggerData{
			Name:        cfg.Name,
			SourceTable: cfg.SourceTable,
			DestTable:   cfg.DestTable,
			Columns:     c.JoinColumns(cfg.DestColumns),
			Values:      c.QualifyColumns("NEW", cfg.OriginColumns),
		}),
	}
}

func (c mysqlCommands) UpdateTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("my_update_trigger", myUpdateTrigger, triggerData{
			Name:        cfg.Name,
			SourceTable: cfg.SourceTable,
			DestTable:   cfg.DestTable,
			Assignments: c.AssignColumns(cfg.DestColumns, "NEW", cfg.OriginColumns),
			PKColumn:    cfg.PKColumn,
		}),
	}
}

func (c mysqlCommands) DeleteTrigger(cfg TriggerConfig) []string {
	return []string{
		renderTemplate("my_delete_trigger", myDeleteTrigger, triggerData{
			Name:        cfg.Name,
			SourceTable: cfg.SourceTable,
			DestTable:   cfg.DestTable,
			PKColumn:    cfg.PKColumn,
		}),
	}
}

func (mysqlCommands) DropTrigger(name, sourceTable, destTable string, verb TriggerVerb) []string {
	return []string{fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`", name)}
}

// LastInsertIDQuery returns "" — the driver reports the last insert id.
func (mysqlCommands) LastInsertIDQuery() string {
	return ""
}

// CreateTemplate swaps the backticked source name in a SHOW CREATE TABLE
// statement for the {} placeholder.
func (mysqlCommands) CreateTemplate(statement, sourceTable string) string {
	return strings.Replace(statement,
		fmt.Sprintf("CREATE TABLE `%s`", sourceTable),
		fmt.Sprintf("CREATE TABLE `%s`", NamePlaceholder),
		1)
}

// AtomicRename swaps both names in one statement, which mysql executes as
// a single atomic metadata operation.
func (mysqlCommands) AtomicRename(source, archive, shadow string) string {
	return fmt.Sprintf("RENAME TABLE `%s` TO `%s`, `%s` TO `%s`", source, archive, shadow, source)
}

func (mysqlCommands) JoinColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "`" + col + "`"
	}
	return strings.Join(quoted, ", ")
}

func (mysqlCommands) QualifyColumns(table string, columns []string) string {
	qualified := make([]string, len(columns))
	for i, col := range columns {
		qualified[i] = fmt.Sprintf("`%s`.`%s`", table, col)
	}
	return strings.Join(qualified, ", ")
}

func (mysqlCommands) AssignColumns(columns []string, fromTable string, fromColumns []string) string {
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("`%s`=`%s`.`%s`", col, fromTable, fromColumns[i])
	}
	return strings.Join(assignments, ", ")
}

// SetForeignKeyChecks toggles per-session foreign key enforcement.
func (mysqlCommands) SetForeignKeyChecks(on bool) string {
	state := 0
	if on {
		state = 1
	}
	return fmt.Sprintf("SET FOREIGN_KEY_CHECKS = %d", state)
}
