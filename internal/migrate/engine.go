// Package migrate imports the flat-file data set into the relational store
// and reconciles it with what is already there. A run can be repeated: an
// unchanged source produces no writes.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/worklog/internal/jsonstore"
	"github.com/sadopc/worklog/internal/record"
	"github.com/sadopc/worklog/internal/repo"
	"github.com/sadopc/worklog/internal/store"
)

// ErrNoDatabase is returned when there is no relational target.
var ErrNoDatabase = errors.New("migration needs a relational database")

const metaLastMigration = "last_migration"

// Progress receives a snapshot of the running counts after each day.
type Progress func(Report)

type Options struct {
	Logger    *log.Logger
	Generator *record.IDGenerator
	Progress  Progress
}

type Engine struct {
	db       *store.Store
	files    *jsonstore.Store
	gen      *record.IDGenerator
	log      *log.Logger
	progress Progress
}

func New(db *store.Store, files *jsonstore.Store, opts Options) (*Engine, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gen := opts.Generator
	if gen == nil {
		gen = record.NewIDGenerator()
	}
	return &Engine{db: db, files: files, gen: gen, log: logger, progress: opts.Progress}, nil
}

// FromRepository builds an engine over the repository's stores.
func FromRepository(ctx context.Context, r *repo.Repository, opts Options) (*Engine, error) {
	db, err := r.Store(ctx)
	if errors.Is(err, repo.ErrNoDatabase) {
		return nil, ErrNoDatabase
	}
	if err != nil {
		return nil, err
	}
	return New(db, r.Files(), opts)
}

// run carries the state of one Migrate call.
type run struct {
	*Engine
	userID  int64
	report  *Report
	known   record.IDSet
	catalog map[string]jsonstore.ClientMeta
	withUID bool
	fields  fieldSet
}

// fieldSet tells which optional task fields the schema can hold.
type fieldSet struct {
	status, attachments bool
}

// Migrate imports every client bucket of userID. Failures of single
// clients, days or tasks are recorded in the report and do not stop the
// run; an error is returned only when the run cannot start.
func (e *Engine) Migrate(ctx context.Context, userID int64) (*Report, error) {
	report := &Report{RunID: uuid.New(), UserID: userID, Started: time.Now(), Errors: []RecordError{}}

	if err := e.db.EnsureSchema(ctx); err != nil {
		e.log.Printf("migrate: ensure schema: %v", err)
		report.fail(RecordError{}, fmt.Errorf("ensure schema: %w", err))
	}
	if _, _, err := e.db.EnsureUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure user %d: %w", userID, err)
	}

	ds, err := e.files.LoadUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", jsonstore.DataFile, err)
	}
	meta, err := e.files.Clients(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", jsonstore.CatalogFile, err)
	}
	known, err := e.db.TaskUIDs(ctx)
	if err != nil {
		return nil, err
	}
	report.Skipped = ds.Skipped
	for _, s := range ds.Skipped {
		e.log.Printf("migrate: skipping key %s", s)
	}

	caps := e.db.Capabilities()
	r := &run{
		Engine:  e,
		userID:  userID,
		report:  report,
		known:   known,
		catalog: make(map[string]jsonstore.ClientMeta, len(meta)),
		withUID: caps.Has("tasks", "task_uid"),
		fields: fieldSet{
			status:      caps.Has("tasks", "status"),
			attachments: caps.Has("tasks", "attachments"),
		},
	}
	for _, m := range meta {
		r.catalog[m.ID] = m
	}

	plan := r.plan(ctx, ds.Buckets)
	if err := ctx.Err(); err != nil {
		report.fail(RecordError{}, err)
	} else {
		r.apply(ctx, plan)
	}

	report.Finished = time.Now()
	if err := e.db.SetMeta(ctx, metaLastMigration, report.RunID.String()+" "+report.Finished.UTC().Format(time.RFC3339)); err != nil {
		e.log.Printf("migrate: record run: %v", err)
	}
	return report, nil
}

func (r *run) notify() {
	if r.progress != nil {
		r.progress(*r.report)
	}
}

// dayKey identifies a relational work day of the run's user.
type dayKey struct {
	clientID int64
	date     string
}

// dayWork is the incoming content of one work day. Several client keys of
// the file can resolve to the same client; their tasks for a date are
// reconciled together.
type dayWork struct {
	dayKey
	where RecordError
	raws  []json.RawMessage
}

// plan resolves every bucket to its client and groups the non-empty days
// by client and date, in file order.
func (r *run) plan(ctx context.Context, buckets []jsonstore.Bucket) []*dayWork {
	var order []*dayWork
	byKey := map[dayKey]*dayWork{}

	for _, b := range buckets {
		if ctx.Err() != nil {
			return order
		}
		r.report.Clients++
		client, err := r.resolveClient(ctx, b.ClientKey)
		if err != nil {
			r.log.Printf("migrate: client %s: %v", b.ClientKey, err)
			r.report.fail(RecordError{Client: b.ClientKey}, err)
			continue
		}

		for _, month := range b.MonthKeys() {
			r.report.Months++
			days := b.Months[month]
			dates := make([]string, 0, len(days))
			for date := range days {
				dates = append(dates, date)
			}
			sort.Strings(dates)

			for _, date := range dates {
				if len(days[date]) == 0 {
					continue
				}
				k := dayKey{clientID: client.ID, date: date}
				w, ok := byKey[k]
				if !ok {
					w = &dayWork{dayKey: k, where: RecordError{Client: b.ClientKey, Month: month, Date: date}}
					byKey[k] = w
					order = append(order, w)
				} else {
					r.log.Printf("migrate: merging %s/%s into client %d", b.ClientKey, date, client.ID)
					w.where.Client += "," + b.ClientKey
				}
				w.raws = append(w.raws, days[date]...)
			}
		}
	}
	return order
}

func (r *run) apply(ctx context.Context, plan []*dayWork) {
	for _, w := range plan {
		if err := ctx.Err(); err != nil {
			r.report.fail(w.where, err)
			return
		}
		if err := r.day(ctx, w.clientID, w.where, w.raws); err != nil {
			r.report.fail(w.where, err)
			r.log.Printf("migrate: %v", r.report.Errors[len(r.report.Errors)-1])
			continue
		}
		r.report.DaysMigrated++
		r.notify()
	}
}

// resolveClient finds or creates the relational client for a bucket key.
// A key that fits the id column is used as the id. Any other key is
// matched by the catalog name, then created with a fresh id.
func (r *run) resolveClient(ctx context.Context, key string) (*store.Client, error) {
	meta, hasMeta := r.catalog[key]
	id, err := strconv.ParseInt(key, 10, 64)
	if err == nil && store.FitsRowID(id) {
		c, err := r.db.GetClient(ctx, r.userID, id)
		if errors.Is(err, store.ErrNotFound) {
			return r.createClient(ctx, store.Client{ID: id, UserID: r.userID, Name: clientName(key, meta)}, meta)
		}
		if err != nil {
			return nil, err
		}
		return r.refreshClient(ctx, c, meta, hasMeta)
	}

	// Placeholder names are matched exactly.
	name := clientName(key, meta)
	find := r.db.FindClientByName
	if store.IsPlaceholderName(name) || !hasMeta {
		find = r.db.ClientNamed
	}
	c, err := find(ctx, r.userID, name)
	if errors.Is(err, store.ErrNotFound) {
		return r.createClient(ctx, store.Client{UserID: r.userID, Name: name}, meta)
	}
	if err != nil {
		return nil, err
	}
	return r.refreshClient(ctx, c, meta, hasMeta)
}

func clientName(key string, meta jsonstore.ClientMeta) string {
	if n := strings.TrimSpace(meta.Name); n != "" {
		return n
	}
	return "Client " + key
}

func (r *run) createClient(ctx context.Context, c store.Client, meta jsonstore.ClientMeta) (*store.Client, error) {
	c.Logo = meta.Logo
	c.Website = meta.Website
	created, err := r.db.CreateClient(ctx, c)
	if err != nil {
		return nil, err
	}
	r.report.ClientsCreated++
	return created, nil
}

// refreshClient copies catalog metadata onto c. Placeholder names in the
// catalog never overwrite a stored name, and empty logo or website values
// keep what is stored.
func (r *run) refreshClient(ctx context.Context, c *store.Client, meta jsonstore.ClientMeta, hasMeta bool) (*store.Client, error) {
	if !hasMeta {
		return c, nil
	}
	want := *c
	if n := strings.TrimSpace(meta.Name); n != "" && !store.IsPlaceholderName(n) {
		want.Name = n
	}
	if meta.Logo != "" {
		want.Logo = meta.Logo
	}
	if meta.Website != "" {
		want.Website = meta.Website
	}
	if want == *c {
		return c, nil
	}
	if err := r.db.UpdateClient(ctx, want); err != nil {
		return nil, err
	}
	r.report.ClientsUpdated++
	return &want, nil
}

// day reconciles the stored tasks of one date with the incoming ones.
func (r *run) day(ctx context.Context, clientID int64, where RecordError, raws []json.RawMessage) error {
	wd, _, err := r.db.EnsureWorkDay(ctx, r.userID, clientID, where.Date)
	if err != nil {
		return err
	}
	existing, err := r.db.ListTasks(ctx, wd.ID)
	if err != nil {
		return err
	}

	own := record.IDSet{}
	byKey := map[string][]store.TaskRow{}
	for _, row := range existing {
		own.Add(row.Task.ID)
		k := diffKey(row.Task)
		byKey[k] = append(byKey[k], row)
	}
	claimed := record.IDSet{}
	claim := func(candidates ...string) string {
		for _, id := range candidates {
			if record.ValidTaskID(id) && !claimed.Has(id) && (own.Has(id) || !r.known.Has(id)) {
				claimed.Add(id)
				r.known.Add(id)
				return id
			}
		}
		id := r.gen.Next(r.known)
		claimed.Add(id)
		return id
	}

	for i, raw := range raws {
		in := record.DecodeTask(raw).Upgrade()
		label := in.ID
		if label == "" {
			label = "#" + strconv.Itoa(i+1)
		}
		k := diffKey(in)

		if rows := byKey[k]; len(rows) > 0 {
			row := rows[0]
			byKey[k] = rows[1:]
			in.ID = claim(row.Task.ID, in.ID)
			if !r.changed(row.Task, in) {
				r.report.Unchanged++
				r.report.TasksMigrated++
				continue
			}
			if err := r.db.UpdateTask(ctx, row.RowID, in); err != nil {
				r.report.fail(RecordError{Client: where.Client, Month: where.Month, Date: where.Date, Task: label}, err)
				continue
			}
			r.report.Updated++
			r.report.TasksMigrated++
			continue
		}

		in.ID = claim(in.ID)
		if _, err := r.db.InsertTask(ctx, wd.ID, in); err != nil {
			r.report.fail(RecordError{Client: where.Client, Month: where.Month, Date: where.Date, Task: label}, err)
			continue
		}
		r.report.Inserted++
		r.report.TasksMigrated++
	}

	var leftovers []store.TaskRow
	for _, rows := range byKey {
		leftovers = append(leftovers, rows...)
	}
	sort.Slice(leftovers, func(i, j int) bool { return leftovers[i].RowID < leftovers[j].RowID })
	for _, row := range leftovers {
		if err := r.db.DeleteTask(ctx, row.RowID); err != nil {
			r.report.fail(RecordError{Client: where.Client, Month: where.Month, Date: where.Date, Task: row.Task.ID}, err)
			continue
		}
		r.report.Deleted++
	}
	return nil
}

// changed reports whether writing in over stored would alter any column
// the schema has.
func (r *run) changed(stored, in record.Task) bool {
	if stored.Text != in.Text {
		return true
	}
	if r.withUID && stored.ID != in.ID {
		return true
	}
	if r.fields.status && stored.Status != in.Status {
		return true
	}
	if r.fields.attachments && !slices.Equal(stored.Attachments, in.Attachments) {
		return true
	}
	return false
}

// diffKey identifies a task across the two stores: trimmed description,
// start and end as stored in a TIME column, and the encoded assignees.
func diffKey(t record.Task) string {
	return strings.Join([]string{
		strings.TrimSpace(t.Text),
		keyClock(t.StartTime, record.DefaultStartTime),
		keyClock(t.EndTime, record.DefaultEndTime),
		record.EncodeAssignees(t.AssignedBy),
	}, "|")
}

func keyClock(v, def string) string {
	m, ok := record.ParseClock(v)
	if !ok || m >= 24*60 {
		m, _ = record.ParseClock(def)
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
