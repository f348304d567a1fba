package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/signet-ai/signet/internal/storage/sqlite/migrations"
)

// Migration is one forward-only, idempotent schema revision.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
	// Verify probes for on-disk evidence that Up's effect is actually
	// present, independent of whether schema_migrations says so. This
	// backstops the historical stamped-but-unapplied quirk: some old
	// CLIs recorded a version without ever running its migration.
	Verify func(*sql.DB) (bool, error)
}

// migrationsList is the full, ordered revision history of the memories
// database. Every entry's Up must be safe to re-run (CREATE TABLE/INDEX
// IF NOT EXISTS, ADD COLUMN guarded by columnExists).
var migrationsList = []Migration{
	{1, "core_memories_table", migrations.CoreMemoriesTable, migrations.VerifyCoreMemoriesTable},
	{2, "content_hash_column", migrations.ContentHashColumn, migrations.VerifyContentHashColumn},
	{3, "idempotency_key_column", migrations.IdempotencyKeyColumn, migrations.VerifyIdempotencyKeyColumn},
	{4, "runtime_path_column", migrations.RuntimePathColumn, migrations.VerifyRuntimePathColumn},
	{5, "signing_columns", migrations.SigningColumns, migrations.VerifySigningColumns},
	{6, "provenance_columns", migrations.ProvenanceColumns, migrations.VerifyProvenanceColumns},
	{7, "extraction_status_column", migrations.ExtractionStatusColumn, migrations.VerifyExtractionStatusColumn},
	{8, "memory_history_table", migrations.MemoryHistoryTable, migrations.VerifyMemoryHistoryTable},
	{9, "fts_index", migrations.FTSIndex, migrations.VerifyFTSIndex},
	{10, "vector_store", migrations.VectorStore, migrations.VerifyVectorStore},
	{11, "embeddings_table", migrations.EmbeddingsTable, migrations.VerifyEmbeddingsTable},
	{12, "entities_table", migrations.EntitiesTable, migrations.VerifyEntitiesTable},
	{13, "relations_table", migrations.RelationsTable, migrations.VerifyRelationsTable},
	{14, "mentions_table", migrations.MentionsTable, migrations.VerifyMentionsTable},
	{15, "jobs_table", migrations.JobsTable, migrations.VerifyJobsTable},
	{16, "documents_tables", migrations.DocumentsTables, migrations.VerifyDocumentsTables},
	{17, "sessions_table", migrations.SessionsTable, migrations.VerifySessionsTable},
	{18, "content_hash_unique_index", migrations.ContentHashUniqueIndex, migrations.VerifyContentHashUniqueIndex},
}

// ListMigrations returns metadata about every registered migration, applied
// or not — useful for `signetd migrate --dry-run`-style introspection.
func ListMigrations() []migrations.Info {
	out := make([]migrations.Info, len(migrationsList))
	for i, m := range migrationsList {
		out[i] = migrations.Info{Version: m.Version, Name: m.Name}
	}
	return out
}

// RunMigrations brings db forward to the latest revision. Idempotent: a
// database already at the latest revision is a no-op. Wrapped in a single
// EXCLUSIVE transaction so concurrent daemon starts against the same file
// can't race on check-then-modify DDL.
func RunMigrations(db *sql.DB) error {
	if err := EnsureBootstrap(db); err != nil {
		return fmt.Errorf("bootstrap schema_migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquire exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}

	for _, m := range migrationsList {
		stamped := applied[m.Version]

		actuallyPresent := false
		if stamped && m.Verify != nil {
			actuallyPresent, err = m.Verify(db)
			if err != nil {
				return fmt.Errorf("verify migration %d (%s): %w", m.Version, m.Name, err)
			}
		}

		if stamped && actuallyPresent {
			continue
		}
		// Either never stamped, or stamped-but-unapplied (a version was
		// recorded by a historical CLI without its DDL ever running).
		// Up is required to be safe to run again in the latter case.
		start := time.Now()
		if err := m.Up(db); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if err := stampVersion(db, m.Version, m.Name, time.Since(start)); err != nil {
			return fmt.Errorf("stamp migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	committed = true
	return nil
}
