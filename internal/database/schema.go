package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the tables the service needs when they do not exist
// yet.  Statements run one at a time since neither driver accepts a
// multi-statement Exec by default.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := mysqlSchema
	if d == SQLite {
		stmts = sqliteSchema
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

// The active_*_key columns mirror seat_id/student_id while the assignment
// is active and are NULL otherwise.  Both engines allow any number of
// NULLs in a UNIQUE column, so storage itself rejects a second active
// assignment for a seat or a student.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100)    NOT NULL,
		grade      INT             NULL,
		created_at DATETIME        NOT NULL,
		updated_at DATETIME        NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		login         VARCHAR(64)     NOT NULL,
		name          VARCHAR(100)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(16)     NOT NULL,
		grade         INT             NULL,
		is_active     TINYINT(1)      NOT NULL DEFAULT 1,
		created_at    DATETIME        NOT NULL,
		updated_at    DATETIME        NOT NULL,
		UNIQUE KEY uq_users_login (login),
		KEY idx_users_role_name (role, name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS layout_nodes (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		room_id    BIGINT UNSIGNED NOT NULL,
		x          INT             NOT NULL,
		y          INT             NOT NULL,
		width      INT             NOT NULL DEFAULT 1,
		height     INT             NOT NULL DEFAULT 1,
		kind       VARCHAR(16)     NOT NULL,
		label      VARCHAR(32)     NOT NULL DEFAULT '',
		rotation   INT             NOT NULL DEFAULT 0,
		created_at DATETIME        NOT NULL,
		updated_at DATETIME        NOT NULL,
		KEY idx_layout_nodes_room (room_id),
		CONSTRAINT fk_layout_nodes_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_assignments (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		seat_id            BIGINT UNSIGNED NOT NULL,
		student_id         BIGINT UNSIGNED NOT NULL,
		active             TINYINT(1)      NOT NULL,
		started_at         DATETIME        NOT NULL,
		ended_at           DATETIME        NULL,
		active_seat_key    BIGINT UNSIGNED NULL,
		active_student_key BIGINT UNSIGNED NULL,
		UNIQUE KEY uq_seat_assignments_active_seat (active_seat_key),
		UNIQUE KEY uq_seat_assignments_active_student (active_student_key),
		KEY idx_seat_assignments_seat (seat_id),
		KEY idx_seat_assignments_student (student_id),
		CONSTRAINT fk_seat_assignments_seat FOREIGN KEY (seat_id) REFERENCES layout_nodes (id),
		CONSTRAINT fk_seat_assignments_student FOREIGN KEY (student_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS permissions (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		student_id BIGINT UNSIGNED NOT NULL,
		type       VARCHAR(16)     NOT NULL,
		status     VARCHAR(16)     NOT NULL,
		reason     VARCHAR(255)    NOT NULL DEFAULT '',
		starts_at  DATETIME        NOT NULL,
		ends_at    DATETIME        NOT NULL,
		decided_by BIGINT UNSIGNED NULL,
		created_at DATETIME        NOT NULL,
		KEY idx_permissions_window (status, starts_at, ends_at),
		KEY idx_permissions_student (student_id),
		CONSTRAINT fk_permissions_student FOREIGN KEY (student_id) REFERENCES users (id),
		CONSTRAINT fk_permissions_decider FOREIGN KEY (decided_by) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		grade      INTEGER NULL,
		created_at TEXT    NOT NULL,
		updated_at TEXT    NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		login         TEXT    NOT NULL UNIQUE,
		name          TEXT    NOT NULL,
		password_hash TEXT    NOT NULL,
		role          TEXT    NOT NULL,
		grade         INTEGER NULL,
		is_active     INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT    NOT NULL,
		updated_at    TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role_name ON users (role, name)`,

	`CREATE TABLE IF NOT EXISTS layout_nodes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id    INTEGER NOT NULL REFERENCES rooms (id),
		x          INTEGER NOT NULL,
		y          INTEGER NOT NULL,
		width      INTEGER NOT NULL DEFAULT 1,
		height     INTEGER NOT NULL DEFAULT 1,
		kind       TEXT    NOT NULL,
		label      TEXT    NOT NULL DEFAULT '',
		rotation   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL,
		updated_at TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_layout_nodes_room ON layout_nodes (room_id)`,

	`CREATE TABLE IF NOT EXISTS seat_assignments (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		seat_id            INTEGER NOT NULL REFERENCES layout_nodes (id),
		student_id         INTEGER NOT NULL REFERENCES users (id),
		active             INTEGER NOT NULL,
		started_at         TEXT    NOT NULL,
		ended_at           TEXT    NULL,
		active_seat_key    INTEGER NULL UNIQUE,
		active_student_key INTEGER NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_assignments_seat ON seat_assignments (seat_id)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_assignments_student ON seat_assignments (student_id)`,

	`CREATE TABLE IF NOT EXISTS permissions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES users (id),
		type       TEXT    NOT NULL,
		status     TEXT    NOT NULL,
		reason     TEXT    NOT NULL DEFAULT '',
		starts_at  TEXT    NOT NULL,
		ends_at    TEXT    NOT NULL,
		decided_by INTEGER NULL REFERENCES users (id),
		created_at TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_permissions_window ON permissions (status, starts_at, ends_at)`,
}
