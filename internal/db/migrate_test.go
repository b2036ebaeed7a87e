package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"), "write", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db))
	return db
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		require.NoError(t, rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func indexNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query(fmt.Sprintf("PRAGMA index_list(%s)", table))
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		require.NoError(t, rows.Scan(&seq, &name, &unique, &origin, &partial))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestRunMigrations_CreatesAuditSchema(t *testing.T) {
	db := openMigrated(t)

	assert.Equal(t,
		[]string{"id", "domain", "timestamp", "client_origin", "results", "user_agent", "email", "score"},
		tableColumns(t, db, "audit_log"))

	names := indexNames(t, db, "audit_log")
	assert.Contains(t, names, "idx_audit_log_domain")
	assert.Contains(t, names, "idx_audit_log_timestamp")
	assert.Contains(t, names, "idx_audit_log_email")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openMigrated(t)

	colsOnce := tableColumns(t, db, "audit_log")
	idxOnce := indexNames(t, db, "audit_log")

	// Reapplying against an already-current store is a no-op, not an error.
	require.NoError(t, RunMigrations(db))

	assert.Equal(t, colsOnce, tableColumns(t, db, "audit_log"))
	assert.ElementsMatch(t, idxOnce, indexNames(t, db, "audit_log"))
}
