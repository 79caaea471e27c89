// Package repo is the read/write surface over a user's month of work
// records. It stores them in the relational database when one is
// configured and in the flat JSON file otherwise, and falls back to the
// file for a single call whenever the database fails.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/jsonstore"
	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/store"
)

// Backend names reported by Backend.
const (
	BackendRelational = "mysql"
	BackendJSON       = "json"
)

// OpenFunc opens the relational store. Tests swap it out.
type OpenFunc func(ctx context.Context, db config.Database, opts store.Options) (*store.Store, error)

// OpenStore is the default OpenFunc.
func OpenStore(ctx context.Context, db config.Database, opts store.Options) (*store.Store, error) {
	dsn, err := db.DSN()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, db.DriverName(), dsn, opts)
}

type Options struct {
	Logger    *log.Logger
	Generator *record.IDGenerator
	Open      OpenFunc
}

type backend interface {
	ReadMonth(ctx context.Context, userID, clientID int64, month string, gen *record.IDGenerator) (record.Month, error)
	SaveMonth(ctx context.Context, userID, clientID int64, month string, days record.Month, gen *record.IDGenerator) error
}

// Repository owns the flat-file store and, lazily, the database pool.
// Build a new one when the configuration changes.
type Repository struct {
	cfg   config.Config
	files *jsonstore.Store
	gen   *record.IDGenerator
	log   *log.Logger
	open  OpenFunc

	mu sync.Mutex
	db *store.Store
}

func New(cfg config.Config, opts Options) (*Repository, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.DataDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	files, err := jsonstore.New(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	gen := opts.Generator
	if gen == nil {
		gen = record.NewIDGenerator()
	}
	open := opts.Open
	if open == nil {
		open = OpenStore
	}
	return &Repository{cfg: cfg, files: files, gen: gen, log: logger, open: open}, nil
}

// Backend reports which backend calls try first.
func (r *Repository) Backend() string {
	if r.cfg.Relational() {
		return BackendRelational
	}
	return BackendJSON
}

// Config returns the configuration the repository was built with.
func (r *Repository) Config() config.Config { return r.cfg }

// Files exposes the flat-file store.
func (r *Repository) Files() *jsonstore.Store { return r.files }

// Store returns the relational store, opening the pool on first use. It
// fails when no database is configured.
func (r *Repository) Store(ctx context.Context) (*store.Store, error) {
	if !r.cfg.Database.Valid() {
		return nil, ErrNoDatabase
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		return r.db, nil
	}
	db, err := r.open(ctx, r.cfg.Database, store.Options{Logger: r.log})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", r.cfg.Database.DriverName(), err)
	}
	r.db = db
	return db, nil
}

// ErrNoDatabase means no usable relational configuration exists.
var ErrNoDatabase = errors.New("no relational database configured")

// Close drains the database pool if one was opened.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Repository) primary(ctx context.Context) (backend, error) {
	if !r.cfg.Relational() {
		return nil, nil
	}
	return r.Store(ctx)
}

// ReadMonth returns the days of month for the user and client. Only an
// invalid month key is an error: when every backend fails the month reads
// as empty.
func (r *Repository) ReadMonth(ctx context.Context, userID, clientID int64, month string) (record.Month, error) {
	if _, _, err := record.MonthBounds(month); err != nil {
		return nil, err
	}

	db, err := r.primary(ctx)
	if err != nil {
		r.log.Printf("read %s: %v; using %s", month, err, jsonstore.DataFile)
	} else if db != nil {
		m, err := db.ReadMonth(ctx, userID, clientID, month, r.gen)
		if err == nil {
			return m, nil
		}
		r.log.Printf("read %s from database: %v; using %s", month, err, jsonstore.DataFile)
	}

	m, err := r.files.ReadMonth(ctx, userID, clientID, month, r.gen)
	if err != nil {
		r.log.Printf("read %s from %s: %v", month, jsonstore.DataFile, err)
		return record.Month{}, nil
	}
	return m, nil
}

// SaveMonth replaces the supplied days of month. On a database failure
// the days are written to the flat file instead; only a failure of that
// write is returned.
func (r *Repository) SaveMonth(ctx context.Context, userID, clientID int64, month string, days record.Month) error {
	if _, _, err := record.MonthBounds(month); err != nil {
		return err
	}

	db, err := r.primary(ctx)
	if err != nil {
		r.log.Printf("save %s: %v; using %s", month, err, jsonstore.DataFile)
	} else if db != nil {
		err := db.SaveMonth(ctx, userID, clientID, month, days, r.gen)
		if err == nil {
			return nil
		}
		r.log.Printf("save %s to database: %v; using %s", month, err, jsonstore.DataFile)
	}
	return r.files.SaveMonth(ctx, userID, clientID, month, days, r.gen)
}
