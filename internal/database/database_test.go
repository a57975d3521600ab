package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"": MySQL, "MySQL": MySQL, "sqlite": SQLite, "sqlite3": SQLite} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseDialect("postgres")
	assert.Error(t, err)
}

func TestTimeScan(t *testing.T) {
	want := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, src := range []any{want, want.In(time.FixedZone("x", 3600)), "2026-02-03 04:05:06", []byte("2026-02-03T04:05:06Z")} {
		var got Time
		require.NoError(t, got.Scan(src))
		assert.True(t, got.Valid)
		assert.True(t, want.Equal(got.Time), "%v", src)
		assert.Equal(t, time.UTC, got.Time.Location())
	}

	var null Time
	require.NoError(t, null.Scan(nil))
	assert.False(t, null.Valid)
	assert.Nil(t, null.Ptr())

	var bad Time
	assert.Error(t, bad.Scan("yesterday"))
	assert.Error(t, bad.Scan(42))

	assert.Equal(t, "2026-02-03 04:05:06", TimeArg(want))
	assert.Nil(t, NullTimeArg(nil))
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, IsDuplicate(nil))
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsDuplicate(errors.New("sqlite3: constraint failed: UNIQUE constraint failed: users.login")))
	assert.False(t, IsDuplicate(errors.New("database is locked")))
}

func TestMigrateSQLite(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seating.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, SQLite))
	require.NoError(t, Migrate(ctx, db, SQLite), "migrate is repeatable")

	now := TimeArg(time.Now())
	_, err = db.ExecContext(ctx, `INSERT INTO rooms (name, created_at, updated_at) VALUES ('A', ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO layout_nodes (room_id, x, y, kind, created_at, updated_at) VALUES (999, 0, 0, 'SEAT', ?, ?)`, now, now)
	assert.Error(t, err, "foreign keys are enforced")

	var got Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT created_at FROM rooms`).Scan(&got))
	assert.True(t, got.Valid)
}
