// Package jsonstore keeps work records in a single JSON document shaped
// {user: {client: {month: {date: day}}}}.
//
// Every operation reads the file, changes the part it owns and rewrites the
// whole document. Access from one process is serialized; nothing guards
// against another process writing the file at the same time.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/sadopc/worklog/internal/record"
)

const (
	DataFile    = "worklog.json"
	CatalogFile = "clients.json"
)

// node is one level of the document. Values stay raw so the parts an
// operation does not touch are written back as they were read.
type node map[string]json.RawMessage

type Store struct {
	mu      sync.Mutex
	path    string
	catalog string
	log     *log.Logger
}

// New returns a store keeping its files in dir, creating dir if needed.
func New(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		path:    filepath.Join(dir, DataFile),
		catalog: filepath.Join(dir, CatalogFile),
		log:     logger,
	}, nil
}

// Path is the location of the data document.
func (s *Store) Path() string { return s.path }

func (s *Store) loadLocked() (node, error) {
	return readNode(s.path)
}

func (s *Store) saveLocked(doc node) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(s.path, b)
}

// writeFile replaces path with b through a temporary file in the same
// directory, so readers see either the old or the new document.
func writeFile(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readNode(path string) (node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return node{}, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return node{}, nil
	}
	var n node
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if n == nil {
		n = node{}
	}
	return n, nil
}

// child decodes n[key] as an object. A missing or non-object value reads as
// an empty object.
func (n node) child(key string) node {
	raw, ok := n[key]
	if !ok {
		return node{}
	}
	var c node
	if err := json.Unmarshal(raw, &c); err != nil || c == nil {
		return node{}
	}
	return c
}

func (n node) setChild(key string, c node) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	n[key] = b
	return nil
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// monthNode walks doc down to the month object, defaulting every missing
// level to an empty object.
func monthNode(doc node, userID, clientID int64, month string) node {
	return doc.child(idKey(userID)).child(idKey(clientID)).child(month)
}

// putMonth stores m as the month object and rebuilds the levels above it.
func putMonth(doc node, userID, clientID int64, month string, m node) error {
	user := doc.child(idKey(userID))
	client := user.child(idKey(clientID))
	if err := client.setChild(month, m); err != nil {
		return err
	}
	if err := user.setChild(idKey(clientID), client); err != nil {
		return err
	}
	return doc.setChild(idKey(userID), user)
}

// ReadMonth returns the days of month for the user and client. Missing
// levels yield an empty month. Tasks stored without a usable id get one,
// and the month is written back so the ids stay stable.
func (s *Store) ReadMonth(ctx context.Context, userID, clientID int64, month string, gen *record.IDGenerator) (record.Month, error) {
	if _, _, err := record.MonthBounds(month); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	mn := monthNode(doc, userID, clientID, month)

	// An id also held by a task of another month or client is given up
	// by this month.
	norm := record.NewNormalizer(gen, allTaskIDs(doc))
	norm.Reserve(taskIDs(doc, func(user, client, m string) bool {
		return user == idKey(userID) && client == idKey(clientID) && m == month
	}))
	out := make(record.Month, len(mn))
	for date, raw := range mn {
		if !record.InMonth(date, month) {
			continue
		}
		out[date] = norm.Day(date, record.DayTasks(raw))
	}

	if norm.Minted() > 0 {
		for date, day := range out {
			b, err := json.Marshal(day)
			if err != nil {
				return nil, err
			}
			mn[date] = b
		}
		if err := putMonth(doc, userID, clientID, month, mn); err != nil {
			return nil, err
		}
		if err := s.saveLocked(doc); err != nil {
			// The ids are still valid for this read.
			s.log.Printf("persist minted task ids: %v", err)
		}
	}
	return out, nil
}

// SaveMonth merges days into the month object, replacing each supplied
// day wholesale and leaving other days and months untouched.
func (s *Store) SaveMonth(ctx context.Context, userID, clientID int64, month string, days record.Month, gen *record.IDGenerator) error {
	if _, _, err := record.MonthBounds(month); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	mn := monthNode(doc, userID, clientID, month)

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	// Ids of the days being replaced may be reused; any other id may not.
	all := allTaskIDs(doc)
	own := record.IDSet{}
	for _, date := range dates {
		for _, t := range record.DayTasks(mn[date]) {
			own.Add(record.DecodeTask(t).Upgrade().ID)
		}
	}

	norm := record.NewNormalizer(gen, all)
	for _, date := range dates {
		if !record.InMonth(date, month) {
			s.log.Printf("save month %s: skipping day key %q", month, date)
			continue
		}
		tasks := make([]record.Task, 0, len(days[date].Tasks))
		for _, t := range days[date].Tasks {
			if all.Has(t.ID) && !own.Has(t.ID) {
				t.ID = ""
			}
			tasks = append(tasks, norm.Task(t))
		}
		b, err := json.Marshal(record.NewDay(date, tasks))
		if err != nil {
			return err
		}
		mn[date] = b
	}

	if err := putMonth(doc, userID, clientID, month, mn); err != nil {
		return err
	}
	if err := s.saveLocked(doc); err != nil {
		return fmt.Errorf("write %s: %w", DataFile, err)
	}
	return nil
}

// allTaskIDs collects every task id in the document.
func allTaskIDs(doc node) record.IDSet {
	return taskIDs(doc, nil)
}

// taskIDs collects the task ids of every month object skip does not
// match.
func taskIDs(doc node, skip func(user, client, month string) bool) record.IDSet {
	ids := record.IDSet{}
	for user := range doc {
		un := doc.child(user)
		for client := range un {
			cn := un.child(client)
			for month := range cn {
				if !record.IsMonthKey(month) || (skip != nil && skip(user, client, month)) {
					continue
				}
				for _, raw := range cn.child(month) {
					for _, t := range record.DayTasks(raw) {
						ids.Add(record.DecodeTask(t).Upgrade().ID)
					}
				}
			}
		}
	}
	return ids
}
