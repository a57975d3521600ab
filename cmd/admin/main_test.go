package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seating/internal/config"
	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/repository"
	"github.com/iliyamo/studyroom-seating/internal/utils"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "admin.db"),
		BcryptCost: 4,
	}
}

func TestMigrateAndAddUser(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(ctx, []string{"migrate"}, cfg, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "schema up to date")

	err := run(ctx, []string{"adduser", "-login", "Kim", "-name", "Kim Minji", "-role", "student", "-grade", "2"},
		cfg, strings.NewReader("s3cret-pass\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created STUDENT kim")

	db, err := database.OpenSQLite(cfg.SQLitePath)
	require.NoError(t, err)
	defer db.Close()
	u, err := repository.NewUserRepo(db).GetByLogin(ctx, "kim")
	require.NoError(t, err)
	assert.Equal(t, "Kim Minji", u.Name)
	require.NotNil(t, u.Grade)
	assert.Equal(t, 2, *u.Grade)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret-pass"))

	err = run(ctx, []string{"adduser", "-login", "kim", "-name", "Other"}, cfg, strings.NewReader("another-pass\n"), &out)
	assert.ErrorContains(t, err, "is taken")
}

func TestAddUserRejectsInput(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"migrate"}, cfg, strings.NewReader(""), &out))

	err := run(ctx, []string{"adduser", "-login", "x", "-name", "X", "-role", "JANITOR"}, cfg, strings.NewReader("longenough\n"), &out)
	assert.ErrorContains(t, err, "invalid role")

	err = run(ctx, []string{"adduser", "-login", "x", "-name", "X"}, cfg, strings.NewReader("short\n"), &out)
	assert.ErrorContains(t, err, "at least 8")

	err = run(ctx, []string{"adduser", "-name", "X"}, cfg, strings.NewReader("longenough\n"), &out)
	assert.ErrorContains(t, err, "required")

	assert.ErrorContains(t, run(ctx, nil, cfg, nil, &out), "usage")
	assert.ErrorContains(t, run(ctx, []string{"frobnicate"}, cfg, nil, &out), "unknown command")
}

func TestReadPasswordFromTerminal(t *testing.T) {
	origRead, origTerm := readPasswordFunc, isTerminalFunc
	t.Cleanup(func() { readPasswordFunc, isTerminalFunc = origRead, origTerm })
	readPasswordFunc = func(int) ([]byte, error) { return []byte("typed-secret"), nil }
	isTerminalFunc = func(int) bool { return true }

	var out bytes.Buffer
	pw, err := readPassword(os.Stdin, &out)
	require.NoError(t, err)
	assert.Equal(t, "typed-secret", pw)
	assert.Contains(t, out.String(), "Password:")
}
