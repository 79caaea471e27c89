package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dialect holds the SQL differences between the supported databases.
type dialect struct {
	name       string
	sqlDriver  string
	createDDL  []string
	columnDefs map[string]string // "table.column" -> definition for ADD COLUMN
	columnsSQL string
	upsertMeta string
	returning  bool

	dateText  func(col string) string
	clockText func(col string) string

	unknownColumn   func(err error) bool
	duplicateKey    func(err error) bool
	duplicateColumn func(err error) bool
}

func dialectFor(driver string) (*dialect, error) {
	switch strings.ToLower(driver) {
	case DriverMySQL:
		return mysqlDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	case DriverSQLite, "sqlite3":
		return sqliteDialect, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites ? placeholders for postgres.
func (d *dialect) rebind(q string) string {
	if d.name != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// syncSequence returns the statement that moves a serial sequence past
// explicitly inserted ids, or "" when the database needs none.
func (d *dialect) syncSequence(table string) string {
	if d.name != DriverPostgres {
		return ""
	}
	return fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT COALESCE(MAX(id), 1) FROM %s))`,
		table, table,
	)
}

var mysqlDialect = &dialect{
	name:      DriverMySQL,
	sqlDriver: "mysql",
	createDDL: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INT AUTO_INCREMENT PRIMARY KEY,
			email         VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS clients (
			id         INT AUTO_INCREMENT PRIMARY KEY,
			user_id    INT NOT NULL,
			name       VARCHAR(255) NOT NULL,
			logo       VARCHAR(512) NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_clients_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS work_days (
			id         INT AUTO_INCREMENT PRIMARY KEY,
			user_id    INT NOT NULL,
			client_id  INT NULL,
			date       DATE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_work_day (user_id, client_id, date),
			CONSTRAINT fk_work_days_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_work_days_client FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id          INT AUTO_INCREMENT PRIMARY KEY,
			work_day_id INT NOT NULL,
			description TEXT NOT NULL,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_tasks_work_day FOREIGN KEY (work_day_id) REFERENCES work_days(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS worklog_meta (
			meta_key   VARCHAR(64) PRIMARY KEY,
			meta_value TEXT NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	columnDefs: map[string]string{
		"clients.website":   "VARCHAR(512) NULL",
		"tasks.assigned_by": "TEXT NULL",
		"tasks.start_time":  "TIME NOT NULL DEFAULT '08:00:00'",
		"tasks.end_time":    "TIME NOT NULL DEFAULT '16:00:00'",
		"tasks.status":      "VARCHAR(32) NOT NULL DEFAULT 'do zrobienia'",
		"tasks.completed":   "TINYINT(1) NOT NULL DEFAULT 0",
		"tasks.task_uid":    "VARCHAR(12) NULL",
		"tasks.attachments": "JSON NULL",
	},
	columnsSQL: `SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
	upsertMeta: `INSERT INTO worklog_meta (meta_key, meta_value) VALUES (?, ?) ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)`,
	dateText:   func(col string) string { return "DATE_FORMAT(" + col + ", '%Y-%m-%d')" },
	clockText:  func(col string) string { return "TIME_FORMAT(" + col + ", '%H:%i')" },
	unknownColumn: func(err error) bool {
		return mysqlErrorNumber(err) == 1054
	},
	duplicateKey: func(err error) bool {
		return mysqlErrorNumber(err) == 1062
	},
	duplicateColumn: func(err error) bool {
		return mysqlErrorNumber(err) == 1060
	},
}

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

var postgresDialect = &dialect{
	name:      DriverPostgres,
	sqlDriver: "pgx",
	returning: true,
	createDDL: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            SERIAL PRIMARY KEY,
			email         VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id         SERIAL PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       VARCHAR(255) NOT NULL,
			logo       VARCHAR(512),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS work_days (
			id         SERIAL PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			client_id  INTEGER REFERENCES clients(id) ON DELETE CASCADE,
			date       DATE NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (user_id, client_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id          SERIAL PRIMARY KEY,
			work_day_id INTEGER NOT NULL REFERENCES work_days(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS worklog_meta (
			meta_key   VARCHAR(64) PRIMARY KEY,
			meta_value TEXT NOT NULL
		)`,
	},
	columnDefs: map[string]string{
		"clients.website":   "VARCHAR(512)",
		"tasks.assigned_by": "TEXT",
		"tasks.start_time":  "TIME NOT NULL DEFAULT '08:00:00'",
		"tasks.end_time":    "TIME NOT NULL DEFAULT '16:00:00'",
		"tasks.status":      "VARCHAR(32) NOT NULL DEFAULT 'do zrobienia'",
		"tasks.completed":   "SMALLINT NOT NULL DEFAULT 0",
		"tasks.task_uid":    "VARCHAR(12)",
		"tasks.attachments": "JSONB",
	},
	columnsSQL: `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?`,
	upsertMeta: `INSERT INTO worklog_meta (meta_key, meta_value) VALUES (?, ?) ON CONFLICT (meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
	dateText:   func(col string) string { return "to_char(" + col + ", 'YYYY-MM-DD')" },
	clockText:  func(col string) string { return "to_char(" + col + ", 'HH24:MI')" },
	unknownColumn: func(err error) bool {
		return pgErrorCode(err) == "42703"
	},
	duplicateKey: func(err error) bool {
		return pgErrorCode(err) == "23505"
	},
	duplicateColumn: func(err error) bool {
		return pgErrorCode(err) == "42701"
	},
}

func pgErrorCode(err error) string {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

var sqliteDialect = &dialect{
	name:      DriverSQLite,
	sqlDriver: "sqlite",
	createDDL: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			logo       TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS work_days (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			client_id  INTEGER REFERENCES clients(id) ON DELETE CASCADE,
			date       TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
			UNIQUE(user_id, client_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			work_day_id INTEGER NOT NULL REFERENCES work_days(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS worklog_meta (
			meta_key   TEXT PRIMARY KEY,
			meta_value TEXT NOT NULL
		)`,
	},
	columnDefs: map[string]string{
		"clients.website":   "TEXT",
		"tasks.assigned_by": "TEXT",
		"tasks.start_time":  "TEXT NOT NULL DEFAULT '08:00:00'",
		"tasks.end_time":    "TEXT NOT NULL DEFAULT '16:00:00'",
		"tasks.status":      "TEXT NOT NULL DEFAULT 'do zrobienia'",
		"tasks.completed":   "INTEGER NOT NULL DEFAULT 0",
		"tasks.task_uid":    "TEXT",
		"tasks.attachments": "TEXT",
	},
	columnsSQL: `SELECT name FROM pragma_table_info(?)`,
	upsertMeta: `INSERT INTO worklog_meta (meta_key, meta_value) VALUES (?, ?) ON CONFLICT(meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
	dateText:   func(col string) string { return col },
	clockText:  func(col string) string { return "substr(" + col + ", 1, 5)" },
	unknownColumn: func(err error) bool {
		return errContains(err, "no such column", "has no column named")
	},
	duplicateKey: func(err error) bool {
		return errContains(err, "UNIQUE constraint failed")
	},
	duplicateColumn: func(err error) bool {
		return errContains(err, "duplicate column name")
	},
}

func errContains(err error, subs ...string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
