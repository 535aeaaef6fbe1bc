package identity

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE role_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			role TEXT NOT NULL,
			granted_by TEXT,
			granted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(subject, role)
		);
	`)
	require.NoError(t, err)
	return db
}

func TestSQLRoleStore_GrantAndLookup(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLRoleStore(db)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "u1", "namespace-admin:ISBD", "admin1"))
	require.NoError(t, store.Grant(ctx, "u1", "user", "admin1"))
	// Duplicate grants are no-ops.
	require.NoError(t, store.Grant(ctx, "u1", "user", "admin2"))

	roles, err := store.RolesFor(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, roles, 2)
	assert.Contains(t, roles, "namespace-admin:ISBD")
	assert.Contains(t, roles, "user")

	roles, err = store.RolesFor(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestSQLRoleStore_Revoke(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLRoleStore(db)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "u1", "user", ""))
	require.NoError(t, store.Revoke(ctx, "u1", "user"))

	roles, err := store.RolesFor(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roles)

	assert.ErrorContains(t, store.Revoke(ctx, "u1", "user"), "not found")
}

func TestSQLRoleStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT role").WillReturnError(fmt.Errorf("connection reset"))

	store := NewSQLRoleStore(db)
	_, err = store.RolesFor(context.Background(), "u1")
	assert.ErrorContains(t, err, "failed to query role assignments")
	assert.NoError(t, mock.ExpectationsWereMet())
}
