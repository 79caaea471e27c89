package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// schemaVersion is bumped whenever createDDL or revisionColumns change.
const schemaVersion = 2

// revisionColumns were added after the first release. They are created
// additively, in this order, and never dropped or renamed.
var revisionColumns = []struct{ table, column string }{
	{"clients", "website"},
	{"tasks", "assigned_by"},
	{"tasks", "start_time"},
	{"tasks", "end_time"},
	{"tasks", "status"},
	{"tasks", "completed"},
	{"tasks", "task_uid"},
	{"tasks", "attachments"},
}

var coreTables = []string{"users", "clients", "work_days", "tasks"}

// EnsureSchema creates missing tables and columns. Each step is
// idempotent, so concurrent or repeated calls are harmless.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range s.dialect.createDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	for _, rc := range revisionColumns {
		cols, err := s.tableColumns(ctx, rc.table)
		if err != nil {
			return fmt.Errorf("read columns of %s: %w", rc.table, err)
		}
		if cols[rc.column] {
			continue
		}
		def := s.dialect.columnDefs[rc.table+"."+rc.column]
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", rc.table, rc.column, def)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			if s.dialect.duplicateColumn(err) {
				continue
			}
			return fmt.Errorf("add column %s.%s: %w", rc.table, rc.column, err)
		}
		s.log.Printf("added column %s.%s", rc.table, rc.column)
	}

	if err := s.SetMeta(ctx, metaSchemaVersion, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return s.refreshCapabilities(ctx)
}

// SchemaVersion returns the recorded schema version, 0 when none.
func (s *Store) SchemaVersion(ctx context.Context) int {
	v, err := s.GetMeta(ctx, metaSchemaVersion)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.query(ctx, s.dialect.columnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func (s *Store) refreshCapabilities(ctx context.Context) error {
	tables := make(map[string]map[string]bool, len(coreTables))
	for _, t := range coreTables {
		cols, err := s.tableColumns(ctx, t)
		if err != nil {
			return err
		}
		if len(cols) > 0 {
			tables[t] = cols
		}
	}
	s.caps.set(tables)
	return nil
}

// Capabilities records which columns each table has. A table that could
// not be introspected is assumed to have every column; inserts still
// narrow on failure.
type Capabilities struct {
	mu     sync.RWMutex
	tables map[string]map[string]bool
}

func newCapabilities() *Capabilities {
	return &Capabilities{tables: map[string]map[string]bool{}}
}

func (c *Capabilities) set(tables map[string]map[string]bool) {
	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()
}

// Has reports whether table.column is known to exist.
func (c *Capabilities) Has(table, column string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cols, ok := c.tables[table]
	if !ok {
		return true
	}
	return cols[column]
}

// forget marks a column as missing after the database rejected it.
func (c *Capabilities) forget(table, column string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cols, ok := c.tables[table]; ok {
		delete(cols, column)
	}
}

// Filter keeps the columns of table that are known to exist.
func (c *Capabilities) Filter(table string, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if c.Has(table, col) {
			out = append(out, col)
		}
	}
	return out
}
