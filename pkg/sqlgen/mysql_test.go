// SPDX-License-Identifier: Apache-2.0

package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/shadowtable/pkg/sqlgen"
)

func myCommands(t *testing.T) sqlgen.Commands {
	t.Helper()

	commands, err := sqlgen.For(sqlgen.MySQL)
	require.NoError(t, err)
	return commands
}

func TestMySQLDDL(t *testing.T) {
	t.Parallel()
	c := myCommands(t)

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS users (id integer AUTO_INCREMENT NOT NULL PRIMARY KEY)",
		c.CreateTable("users", "id"))
	assert.Equal(t, "ALTER TABLE users ADD COLUMN `email` varchar(255)", c.AddColumn("users", "email", "varchar(255)"))
	assert.Equal(t, "ALTER TABLE users MODIFY COLUMN `active` bool NOT NULL", c.AlterColumn("users", "active", "bool NOT NULL"))
	// Renames must restate the column type.
	assert.Equal(t, "ALTER TABLE users CHANGE COLUMN zip zipcode int(11)", c.RenameColumn("users", "zip", "zipcode", "int(11)"))
	assert.Equal(t, "ALTER TABLE users ADD INDEX users_name_ix (name)", c.AddIndex("users", "users_name_ix", "name", false))
	assert.Equal(t, "ALTER TABLE users DROP FOREIGN KEY IF EXISTS org_id_refs_id_AAAA", c.DropForeignKey("users", "org_id_refs_id_AAAA"))
	assert.Equal(t, "RENAME TABLE `users` TO `archive_users`", c.RenameTable("users", "archive_users"))
}

func TestMySQLChunkStatements(t *testing.T) {
	t.Parallel()
	c := myCommands(t)

	chunk := c.CopyChunk("migrate_users", "`id`, `name`", "`users`.`id`, `users`.`name`", "users", "id", 100, 1000)
	assert.Contains(t, chunk, "INSERT IGNORE INTO migrate_users")
	assert.Contains(t, chunk, "AND users.id >= 100")
	assert.Contains(t, chunk, "LIMIT 1000")
}

func TestMySQLTriggers(t *testing.T) {
	t.Parallel()
	c := myCommands(t)

	cfg := sqlgen.TriggerConfig{
		Name:          "migration_trigger_insert_users",
		SourceTable:   "users",
		DestTable:     "migrate_users",
		PKColumn:      "id",
		OriginColumns: []string{"id", "zip"},
		DestColumns:   []string{"id", "zipcode"},
	}

	// Trigger bodies are inline, one statement per trigger.
	insert := c.InsertTrigger(cfg)
	require.Len(t, insert, 1)
	assert.Contains(t, insert[0], "AFTER INSERT ON users")
	assert.Contains(t, insert[0], "INSERT INTO migrate_users (`id`, `zipcode`) VALUES (`NEW`.`id`, `NEW`.`zip`)")

	cfg.Name = "migration_trigger_update_users"
	update := c.UpdateTrigger(cfg)
	require.Len(t, update, 1)
	assert.Contains(t, update[0], "UPDATE migrate_users SET `id`=`NEW`.`id`, `zipcode`=`NEW`.`zip`")
	assert.Contains(t, update[0], "WHERE `id`=`NEW`.`id`")

	cfg.Name = "migration_trigger_delete_users"
	del := c.DeleteTrigger(cfg)
	require.Len(t, del, 1)
	// DELETE IGNORE absorbs rows that were never copied.
	assert.Contains(t, del[0], "DELETE IGNORE FROM migrate_users")
	assert.Contains(t, del[0], "WHERE migrate_users.id = OLD.id")

	drop := c.DropTrigger("migration_trigger_insert_users", "users", "migrate_users", sqlgen.TriggerInsert)
	require.Len(t, drop, 1)
	assert.Equal(t, "DROP TRIGGER IF EXISTS `migration_trigger_insert_users`", drop[0])
}

func TestMySQLCapabilities(t *testing.T) {
	t.Parallel()
	c := myCommands(t)

	// The driver reports the last insert id directly.
	assert.Equal(t, "", c.LastInsertIDQuery())

	assert.Equal(t,
		"RENAME TABLE `users` TO `archive_users`, `migrate_users` TO `users`",
		c.AtomicRename("users", "archive_users", "migrate_users"))

	statement := "CREATE TABLE `users` ( `id` int(11) NOT NULL AUTO_INCREMENT)"
	assert.Equal(t,
		"CREATE TABLE `{}` ( `id` int(11) NOT NULL AUTO_INCREMENT)",
		c.CreateTemplate(statement, "users"))

	fc, ok := c.(sqlgen.ForeignKeyCheckCommands)
	require.True(t, ok)
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS = 0", fc.SetForeignKeyChecks(false))

	_, ok = c.(sqlgen.SequenceCommands)
	assert.False(t, ok)
}

func TestMySQLColumnHelpers(t *testing.T) {
	t.Parallel()
	c := myCommands(t)

	assert.Equal(t, "`this`, `that`", c.JoinColumns([]string{"this", "that"}))
	assert.Equal(t, "`NEW`.`col1`, `NEW`.`col2`", c.QualifyColumns("NEW", []string{"col1", "col2"}))
	assert.Equal(t, "`a`=`NEW`.`b`", c.AssignColumns([]string{"a"}, "NEW", []string{"b"}))
}
