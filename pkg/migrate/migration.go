// SPDX-License-Identifier: Apache-2.0

// Package migrate drives the shadow-table lifecycle of an online schema
// migration: create the shadow from the source, mirror live writes into
// it with database triggers, backfill historical rows in bounded chunks,
// and atomically swap the shadow into the source's name.
package migrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/sqlgen"
	"github.com/copperline/shadowtable/pkg/table"
)

// TriggerPrefix prefixes the mirror trigger names installed on a source
// table.
const TriggerPrefix = "migration_trigger_"

// MigrationTable is the shadow table of one migration. It embeds the
// table handle for the shadow itself ("migrate_" + source name) and keeps
// the session state of the migration: declared renames and the trigger
// names.
type MigrationTable struct {
	*table.Table

	Source *table.Table

	renames  []Rename
	triggers map[sqlgen.TriggerVerb]string
}

// New returns the shadow handle for a source table. Only one shadow per
// source can be active: the shadow name is derived from the source name,
// so a second migration collides on it.
func New(d *db.Database, source *table.Table) *MigrationTable {
	m := &MigrationTable{
		Table:    table.NewWithPrimaryKey(d, source.MigrateName(), source.PrimaryKeyColumn),
		Source:   source,
		triggers: make(map[sqlgen.TriggerVerb]string, len(sqlgen.Verbs)),
	}
	for _, verb := range sqlgen.Verbs {
		m.triggers[verb] = m.triggerName(verb)
	}
	return m
}

func (m *MigrationTable) triggerName(verb sqlgen.TriggerVerb) string {
	name := fmt.Sprintf("%s%s_%s", TriggerPrefix, verb, m.Source.Name)
	if bound := m.DB.Config().MaxNameLength; len(name) > bound {
		name = name[:bound]
	}
	return name
}

// TriggerNames returns the mirror trigger name per verb.
func (m *MigrationTable) TriggerNames() map[sqlgen.TriggerVerb]string {
	out := make(map[sqlgen.TriggerVerb]string, len(m.triggers))
	for verb, name := range m.triggers {
		out[verb] = name
	}
	return out
}

// Renames returns the declared column renames in declaration order.
func (m *MigrationTable) Renames() []Rename {
	out := make([]Rename, len(m.renames))
	copy(out, m.renames)
	return out
}

// CreateFromSource scaffolds the shadow like the source: the CREATE
// statement (with sequences pre-created where the dialect needs it), then
// the non-FK constraints, the non-unique indexes, and the outgoing
// foreign keys. Incoming foreign keys are deferred until after the
// backfill: applying them before the shadow is populated would be
// vacuous, and applying them during the copy would force lookups on a
// partially filled table.
func (m *MigrationTable) CreateFromSource(ctx context.Context) error {
	statement, err := m.Source.CreateStatement(ctx)
	if err != nil {
		return fmt.Errorf("fetching create statement for %q: %w", m.Source.Name, err)
	}
	statement = m.DB.Commands().CreateTemplate(statement, m.Source.Name)

	if err := m.CreateFromStatement(ctx, statement); err != nil {
		return fmt.Errorf("creating shadow table %q: %w", m.Name, err)
	}

	constraints, err := m.Source.Constraints(ctx)
	if err != nil {
		return err
	}
	if err := m.AddConstraints(ctx, constraints); err != nil {
		return err
	}

	indexes, err := m.Source.Indexes(ctx)
	if err != nil {
		return err
	}
	if err := m.AddIndexes(ctx, indexes); err != nil {
		return err
	}

	keys, err := m.Source.ForeignKeys(ctx)
	if err != nil {
		return err
	}
	outgoing := keys[:0:0]
	for _, key := range keys {
		if !key.Referenced {
			outgoing = append(outgoing, key)
		}
	}
	return m.AddForeignKeys(ctx, outgoing, m.Name)
}

// RenameColumn declares a rename and applies it physically when the
// shadow does not carry the new name yet. Renames are append-only within
// a migration session; the intersection routes the data on the next
// chunk.
func (m *MigrationTable) RenameColumn(ctx context.Context, oldName, newName string) error {
	m.renames = append(m.renames, Rename{Old: oldName, New: newName})

	exists, err := m.ColumnExists(ctx, newName)
	if err != nil || exists {
		return err
	}
	return m.Table.RenameColumn(ctx, oldName, newName)
}

// Intersection computes the current positionally aligned column
// projection from source to shadow.
func (m *MigrationTable) Intersection(ctx context.Context) (originColumns, destColumns []string, err error) {
	origin, err := m.Source.Columns(ctx)
	if err != nil {
		return nil, nil, err
	}
	dest, err := m.Columns(ctx)
	if err != nil {
		return nil, nil, err
	}

	originColumns, destColumns = ProjectColumns(origin, dest, m.renames)
	return originColumns, destColumns, nil
}

// SourceTriggers lists the triggers currently on the source table.
func (m *MigrationTable) SourceTriggers(ctx context.Context) ([]string, error) {
	return m.Triggers(ctx, m.Source.Name)
}

// CreateTriggers installs the INSERT, UPDATE and DELETE mirror triggers
// on the source. It is a no-op when the source already bears triggers,
// so an interrupted migration can call it again safely. The intersection
// is snapshotted at install time.
func (m *MigrationTable) CreateTriggers(ctx context.Context) error {
	existing, err := m.SourceTriggers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	originColumns, destColumns, err := m.Intersection(ctx)
	if err != nil {
		return err
	}

	commands := m.DB.Commands()
	for _, verb := range sqlgen.Verbs {
		cfg := sqlgen.TriggerConfig{
			Name:          m.triggers[verb],
			SourceTable:   m.Source.Name,
			DestTable:     m.Name,
			PKColumn:      m.PrimaryKeyColumn,
			OriginColumns: originColumns,
			DestColumns:   destColumns,
		}

		var statements []string
		switch verb {
		case sqlgen.TriggerInsert:
			statements = commands.InsertTrigger(cfg)
		case sqlgen.TriggerUpdate:
			statements = commands.UpdateTrigger(cfg)
		case sqlgen.TriggerDelete:
			statements = commands.DeleteTrigger(cfg)
		}

		if err := m.DB.BatchExec(ctx, statements); err != nil {
			return fmt.Errorf("creating %s trigger on %q: %w", verb, m.Source.Name, err)
		}
	}
	return m.DB.Commit(ctx)
}

// DeleteTriggers removes the mirror triggers and, where the dialect backs
// them with functions, the functions too. Missing objects are tolerated.
func (m *MigrationTable) DeleteTriggers(ctx context.Context) error {
	commands := m.DB.Commands()
	for verb, name := range m.triggers {
		for _, statement := range commands.DropTrigger(name, m.Source.Name, m.Name, verb) {
			if err := m.DB.Exec(ctx, statement); err != nil {
				if db.IsMissingObject(err) {
					log.Printf("tried to drop trigger %s, did not exist", name)
					continue
				}
				return err
			}
		}
	}
	return m.DB.Commit(ctx)
}

// CopyInChunks backfills the shadow from the source in bounded chunks.
// Triggers are installed first when absent, so every write visible after
// this call starts is mirrored. The copy is idempotent and resumable:
// rows already in the shadow are skipped, and a restart with the same
// arguments converges on the same final state. After the last chunk the
// deferred incoming foreign keys are applied against the shadow.
func (m *MigrationTable) CopyInChunks(ctx context.Context, opts ...CopyOption) error {
	if err := m.CreateTriggers(ctx); err != nil {
		return err
	}

	cfg := copyConfig{
		chunkSize: m.DB.Config().ChunkSize,
		throttle:  m.DB.Config().Throttle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	done, err := m.copied(ctx)
	if err != nil {
		return err
	}
	if !done {
		if err := m.copyLoop(ctx, cfg); err != nil {
			return err
		}
	}

	log.Printf("Copy complete! Adding referenced foreign keys")
	keys, err := m.Source.ForeignKeys(ctx)
	if err != nil {
		return err
	}
	incoming := keys[:0:0]
	for _, key := range keys {
		if key.Referenced {
			incoming = append(incoming, key)
		}
	}
	return m.AddForeignKeys(ctx, incoming, m.Name)
}

// copied reports whether the shadow already holds every source row, the
// idempotent-restart guard.
func (m *MigrationTable) copied(ctx context.Context) (bool, error) {
	count, err := m.Count(ctx)
	if err != nil {
		return false, err
	}
	sourceCount, err := m.Source.Count(ctx)
	if err != nil {
		return false, err
	}
	return count != 0 && count == sourceCount, nil
}

func (m *MigrationTable) copyLoop(ctx context.Context, cfg copyConfig) error {
	pointer, ok, err := m.startPK(ctx, cfg)
	if err != nil || !ok {
		return err
	}
	limit, ok, err := m.limitPK(ctx, cfg)
	if err != nil || !ok {
		return err
	}

	start := pointer
	startTime := time.Now()

	for pointer < limit {
		if err := m.copyChunk(ctx, pointer, cfg.chunkSize); err != nil {
			return err
		}

		next, ok, err := m.nextPK(ctx, pointer, cfg.chunkSize)
		if err != nil {
			return err
		}
		if !ok {
			// No rows beyond the pointer; the chunk above already carried
			// the tail.
			return nil
		}
		pointer = next

		m.report(cfg, Progress{
			Start:   start,
			Pointer: pointer,
			Limit:   limit,
			RunTime: time.Since(startTime),
		})

		if err := sleepCtx(ctx, cfg.throttle); err != nil {
			return err
		}
	}

	if pointer == limit {
		// The chunk statement matches pk >= pointer, so the boundary row
		// is never skipped.
		if err := m.copyChunk(ctx, pointer, cfg.chunkSize); err != nil {
			return err
		}
		m.report(cfg, Progress{
			Start:   start,
			Pointer: pointer,
			Limit:   limit,
			RunTime: time.Since(startTime),
		})
	}
	return nil
}

func (m *MigrationTable) startPK(ctx context.Context, cfg copyConfig) (int64, bool, error) {
	if cfg.start != nil {
		return *cfg.start, true, nil
	}
	return m.Source.MinPK(ctx)
}

func (m *MigrationTable) limitPK(ctx context.Context, cfg copyConfig) (int64, bool, error) {
	if cfg.limit != nil {
		return *cfg.limit, true, nil
	}
	return m.Source.MaxPK(ctx)
}

// copyChunk copies up to chunkSize rows with pk >= lastPK that are not
// yet in the shadow. The anti-join (plus INSERT IGNORE on mysql) makes a
// re-run of the same chunk a no-op.
func (m *MigrationTable) copyChunk(ctx context.Context, lastPK int64, chunkSize int) error {
	originColumns, destColumns, err := m.Intersection(ctx)
	if err != nil {
		return err
	}

	commands := m.DB.Commands()
	if err := m.DB.Exec(ctx, commands.CopyChunk(
		m.Name,
		commands.JoinColumns(destColumns),
		commands.QualifyColumns(m.Source.Name, originColumns),
		m.Source.Name,
		m.PrimaryKeyColumn,
		lastPK,
		chunkSize,
	)); err != nil {
		return err
	}
	return m.DB.Commit(ctx)
}

// nextPK returns the highest pk within the next chunkSize rows strictly
// beyond lastPK; ok is false when no rows remain.
func (m *MigrationTable) nextPK(ctx context.Context, lastPK int64, chunkSize int) (int64, bool, error) {
	rows, err := m.DB.Query(ctx, m.DB.Commands().NextPK(m.Source.Name, m.PrimaryKeyColumn, lastPK, chunkSize))
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] == nil {
		return 0, false, nil
	}

	switch v := rows[0][0].(type) {
	case int64:
		return v, true, nil
	case int32:
		return int64(v), true, nil
	default:
		return 0, false, fmt.Errorf("unexpected next pk value %v (%T)", v, v)
	}
}

func (m *MigrationTable) report(cfg copyConfig, p Progress) {
	if p.Percent() == 0 {
		return
	}
	if len(cfg.callbacks) == 0 {
		log.Print(p.String())
		return
	}
	for _, cb := range cfg.callbacks {
		cb(p)
	}
}

// RenameTables drops the mirror triggers, then atomically swaps
// source→archive and shadow→source. On success it returns handles on the
// new source and the archive, with sequences reparented where the dialect
// has them.
//
// The swap is the critical failure window: the triggers are gone before
// the rename runs. On postgres a failed rename rolls back and the error
// must be surfaced loudly so the caller reinstalls triggers and resumes.
// On mysql the rename is retried on lock-wait timeouts up to the
// configured bound; on exhaustion the triggers are reinstalled and the
// failure returned so the copy can be resumed later.
func (m *MigrationTable) RenameTables(ctx context.Context) (*table.Table, *table.Table, error) {
	if err := m.DeleteTriggers(ctx); err != nil {
		return nil, nil, err
	}

	sourceName, archiveName := m.Source.Name, m.Source.ArchiveName()

	commands := m.DB.Commands()
	if atomic := commands.AtomicRename(sourceName, archiveName, m.Name); atomic != "" {
		if err := m.renameWithRetries(ctx, atomic); err != nil {
			return nil, nil, err
		}
	} else {
		if err := m.renameTransaction(ctx, sourceName, archiveName); err != nil {
			return nil, nil, err
		}
	}

	log.Printf("Rename complete!")

	newSource := table.NewWithPrimaryKey(m.DB, sourceName, m.PrimaryKeyColumn)
	archive := table.NewWithPrimaryKey(m.DB, archiveName, m.PrimaryKeyColumn)

	if err := m.moveSequences(ctx, archive, newSource.Name); err != nil {
		return nil, nil, err
	}
	return newSource, archive, nil
}

// renameWithRetries performs the single-statement atomic swap, absorbing
// lock-wait timeouts up to the configured retry bound. On exhaustion or a
// non-lock failure the triggers are reinstalled so the caller can resume
// the copy later.
func (m *MigrationTable) renameWithRetries(ctx context.Context, statement string) error {
	cfg := m.DB.Config()

	var err error
	for retries := 0; retries <= cfg.MaxRenameRetries; retries++ {
		if retries > 0 {
			log.Printf("Rename retry %d, error: %v", retries, err)
			if errSleep := sleepCtx(ctx, cfg.RetrySleep); errSleep != nil {
				return errSleep
			}
		}

		err = m.DB.Exec(ctx, statement)
		if err == nil {
			return nil
		}
		if !db.IsLockTimeout(err) {
			break
		}
	}

	if errTriggers := m.CreateTriggers(ctx); errTriggers != nil {
		return fmt.Errorf("rename failed (%v) and triggers could not be reinstalled: %w", err, errTriggers)
	}
	return fmt.Errorf("unable to rename %q, triggers reinstalled: %w", m.Source.Name, err)
}

// renameTransaction wraps the two renames in one explicit transaction.
// Failure here must be surfaced loudly: the triggers are already dropped,
// so the caller has to reinstall them and retry.
func (m *MigrationTable) renameTransaction(ctx context.Context, sourceName, archiveName string) error {
	commands := m.DB.Commands()

	statements := []string{
		"BEGIN",
		commands.RenameTable(sourceName, archiveName),
		commands.RenameTable(m.Name, sourceName),
		"COMMIT",
	}
	if err := m.DB.BatchExec(ctx, statements); err != nil {
		// Roll back whatever was opened; the rename transaction leaves no
		// partial state behind.
		_ = m.DB.Exec(ctx, "ROLLBACK")
		return fmt.Errorf("unable to rename %q (triggers are dropped, reinstall before resuming): %w", sourceName, err)
	}
	return nil
}

// moveSequences reparents every sequence owned by the archive onto the
// new source table. Without this, dropping the archive would drop the
// live sequence.
func (m *MigrationTable) moveSequences(ctx context.Context, archive *table.Table, newTableName string) error {
	pairs, err := archive.SequenceColumns(ctx)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		seq, col := pair[0], pair[1]
		if err := archive.RemoveSequenceFromColumn(ctx, col); err != nil {
			return err
		}
		if err := archive.SetSequenceOwner(ctx, seq, newTableName, col); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
