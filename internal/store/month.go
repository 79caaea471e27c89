package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sadopc/worklog/internal/record"
)

// ReadMonth loads every work day of the user and client inside month.
// Tasks stored without a task_uid get one minted against every uid in the
// database, and it is written back so the id stays stable. A uid shared by
// several rows stays with the oldest row; the others get fresh ones.
func (s *Store) ReadMonth(ctx context.Context, userID, clientID int64, month string, gen *record.IDGenerator) (record.Month, error) {
	first, next, err := record.MonthBounds(month)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		gen = record.NewIDGenerator()
	}

	days, err := s.ListWorkDays(ctx, userID, clientID, first, next)
	if err != nil {
		return nil, err
	}

	shared, err := s.sharedTaskUIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make(record.Month, len(days))
	var known record.IDSet
	for _, d := range days {
		rows, err := s.ListTasks(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		tasks := make([]record.Task, 0, len(rows))
		for _, r := range rows {
			t := r.Task
			owner, isShared := shared[t.ID]
			if !record.ValidTaskID(t.ID) || (isShared && owner != r.RowID) {
				if known == nil {
					if known, err = s.TaskUIDs(ctx); err != nil {
						return nil, err
					}
				}
				t.ID = gen.Next(known)
				s.persistUID(ctx, r.RowID, t.ID)
			}
			tasks = append(tasks, t)
		}
		out[d.Date] = record.NewDay(d.Date, tasks)
	}
	return out, nil
}

func (s *Store) persistUID(ctx context.Context, rowID int64, uid string) {
	if !s.caps.Has("tasks", "task_uid") {
		return
	}
	if err := s.SetTaskUID(ctx, rowID, uid); err != nil {
		s.log.Printf("store task uid for row %d: %v", rowID, err)
	}
}

// SaveMonth replaces the tasks of every day in days. Days outside month
// are skipped. Each day is written on its own; a failing day or task does
// not stop the others and the failures are returned together.
func (s *Store) SaveMonth(ctx context.Context, userID, clientID int64, month string, days record.Month, gen *record.IDGenerator) error {
	if _, _, err := record.MonthBounds(month); err != nil {
		return err
	}
	if gen == nil {
		gen = record.NewIDGenerator()
	}
	if err := s.ensureOwner(ctx, userID, clientID); err != nil {
		return err
	}

	known, err := s.TaskUIDs(ctx)
	if err != nil {
		return err
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var errs []error
	for _, date := range dates {
		if !record.InMonth(date, month) {
			s.log.Printf("save month %s: skipping day key %q", month, date)
			continue
		}
		if err := s.saveDay(ctx, userID, clientID, date, days[date].Tasks, known, gen); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureOwner makes sure the user and client rows a work day points at
// exist. A missing client that fits the id column gets a placeholder row.
func (s *Store) ensureOwner(ctx context.Context, userID, clientID int64) error {
	if _, _, err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.GetClient(ctx, userID, clientID)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if !FitsRowID(clientID) {
		return fmt.Errorf("client %d does not fit the id column: %w", clientID, ErrNotFound)
	}
	_, err = s.CreateClient(ctx, Client{ID: clientID, UserID: userID, Name: PlaceholderName(clientID)})
	return err
}

func (s *Store) saveDay(ctx context.Context, userID, clientID int64, date string, tasks []record.Task, known record.IDSet, gen *record.IDGenerator) error {
	wd, _, err := s.EnsureWorkDay(ctx, userID, clientID, date)
	if err != nil {
		return err
	}

	stored, err := s.ListTasks(ctx, wd.ID)
	if err != nil {
		return err
	}
	own := record.IDSet{}
	for _, r := range stored {
		own.Add(r.Task.ID)
	}

	if err := s.DeleteDayTasks(ctx, wd.ID); err != nil {
		return fmt.Errorf("clear day %s: %w", date, err)
	}

	norm := record.NewNormalizer(gen, known)
	var errs []error
	for i, t := range tasks {
		// An id that belongs to a task on another day is not ours to keep.
		if known.Has(t.ID) && !own.Has(t.ID) {
			t.ID = ""
		}
		t = norm.Task(t)
		if _, err := s.InsertTask(ctx, wd.ID, t); err != nil {
			s.log.Printf("day %s task %d: %v", date, i, err)
			errs = append(errs, fmt.Errorf("day %s task %d: %w", date, i, err))
		}
	}
	return errors.Join(errs...)
}
