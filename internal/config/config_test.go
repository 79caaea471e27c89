package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbEnv = []string{"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_PATH", "WORKLOG_DATA_DIR"}

// clearEnv blanks every variable Load looks at for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range dbEnv {
		t.Setenv(k, "")
	}
	// Keep a stray .env in the package directory from leaking in.
	t.Chdir(t.TempDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ModeMySQL, cfg.Mode)
	assert.Equal(t, int64(1), cfg.UserID)
	assert.False(t, cfg.Relational(), "defaults have no host, so json is used")
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	in := &Config{
		Mode: ModeJSON,
		Database: Database{
			Driver: DriverPostgres, Host: "db", Port: 5433, User: "u", Password: "p", Name: "work",
		},
		DataDir: "/var/lib/worklog",
		UserID:  4,
	}
	require.NoError(t, Save(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadFileUnknownModeMeansRelational(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: MYSQL\n"), 0o600))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeMySQL, cfg.Mode)

	require.NoError(t, os.WriteFile(path, []byte("mode: Json\n"), 0o600))
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeJSON, cfg.Mode)
}

func TestLoadEnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, &Config{
		Mode:     ModeMySQL,
		Database: Database{Driver: DriverMySQL, Host: "file-host", User: "file-user", Name: "file-db", Password: "secret"},
		UserID:   1,
	}))

	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("WORKLOG_DATA_DIR", "/tmp/worklog-data")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "file-user", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "/tmp/worklog-data", cfg.DataDir)
	assert.True(t, cfg.Relational())
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PORT", "abc")
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_DRIVER=sqlite\nDB_PATH=/tmp/x.db\n"), 0o600))
	// godotenv never overrides variables that are already set, even to "".
	require.NoError(t, os.Unsetenv("DB_DRIVER"))
	require.NoError(t, os.Unsetenv("DB_PATH"))
	t.Cleanup(func() {
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("DB_PATH")
	})

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.DriverName())
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.True(t, cfg.Relational())
}

func TestJSONModeIgnoresDatabase(t *testing.T) {
	cfg := Config{Mode: ModeJSON, Database: Database{Driver: DriverSQLite, Path: "/tmp/x.db"}}
	assert.False(t, cfg.Relational())
}

// ============================================================
// Connection strings
// ============================================================

func TestValid(t *testing.T) {
	assert.False(t, Database{}.Valid())
	assert.False(t, Database{Host: "h", User: "u"}.Valid())
	assert.True(t, Database{Host: "h", User: "u", Name: "n"}.Valid())
	assert.True(t, Database{Driver: "sqlite3", Path: "x.db"}.Valid())
	assert.False(t, Database{Driver: "oracle", Host: "h", User: "u", Name: "n"}.Valid())
}

func TestDSNMySQL(t *testing.T) {
	dsn, err := Database{Host: "db.local", User: "app", Password: "p@ss", Name: "worklog"}.DSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "app:p@ss@tcp(db.local:3306)/worklog?"), dsn)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestDSNPostgres(t *testing.T) {
	dsn, err := Database{Driver: "postgresql", Host: "db", Port: 6543, User: "app", Password: "pw", Name: "worklog"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:6543/worklog?connect_timeout=5&sslmode=disable", dsn)
}

func TestDSNSQLite(t *testing.T) {
	dsn, err := Database{Driver: DriverSQLite, Path: "/tmp/w.db"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w.db", dsn)
}

func TestDSNIncomplete(t *testing.T) {
	_, err := Database{Host: "h"}.DSN()
	assert.Error(t, err)
}
