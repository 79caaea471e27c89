package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db      *sql.DB
	dialect *dialect
	caps    *Capabilities
	log     *log.Logger
}

// Options tune Open.
type Options struct {
	// SkipEvolve opens the database without altering its schema. The store
	// then works with whatever columns already exist.
	SkipEvolve bool
	Logger     *log.Logger
}

// Open connects to the database, evolves its schema and records which
// columns are available.
func Open(ctx context.Context, driver, dsn string, opts Options) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d.name == DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("exec pragma %q: %w", p, err)
			}
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{db: db, dialect: d, caps: newCapabilities(), log: logger}

	if !opts.SkipEvolve {
		if err := s.EnsureSchema(ctx); err != nil {
			// Keep going: inserts narrow their column list to what exists.
			s.log.Printf("schema evolution failed, continuing with existing columns: %v", err)
		}
	}
	if err := s.refreshCapabilities(ctx); err != nil {
		s.log.Printf("read schema catalog: %v", err)
	}
	return s, nil
}

// New opens (or creates) the SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), DriverSQLite, dbPath, Options{})
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports the dialect in use.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Capabilities exposes the column map built at startup.
func (s *Store) Capabilities() *Capabilities {
	return s.caps
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(q), args...)
}

// insert runs an INSERT and returns the new row id.
func (s *Store) insert(ctx context.Context, q string, args ...any) (int64, error) {
	if s.dialect.returning {
		var id int64
		err := s.queryRow(ctx, q+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) syncSequence(ctx context.Context, table string) {
	if q := s.dialect.syncSequence(table); q != "" {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			s.log.Printf("sync %s id sequence: %v", table, err)
		}
	}
}

// Stats counts the rows of the core tables.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"users", &st.Users},
		{"clients", &st.Clients},
		{"work_days", &st.WorkDays},
		{"tasks", &st.Tasks},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return st, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return st, nil
}
