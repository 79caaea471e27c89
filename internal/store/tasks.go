package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sadopc/worklog/internal/record"
)

// taskInsertTiers lists the column sets tried when inserting a task, widest
// first. Each tier is further cut down to the columns the capability map
// knows about.
var taskInsertTiers = [][]string{
	{"description", "assigned_by", "start_time", "end_time", "status", "completed", "task_uid", "attachments"},
	{"description", "assigned_by", "start_time", "end_time", "status", "completed"},
	{"description", "assigned_by", "start_time", "end_time"},
	{"description", "assigned_by"},
	{"description"},
}

var taskReadColumns = []string{"assigned_by", "start_time", "end_time", "status", "completed", "task_uid", "attachments"}

// taskValues maps each task column to the value written for t.
func taskValues(t record.Task) map[string]any {
	uid := sql.NullString{String: t.ID, Valid: record.ValidTaskID(t.ID)}
	completed := 0
	if t.Completed() {
		completed = 1
	}
	return map[string]any{
		"description": t.Text,
		"assigned_by": record.EncodeAssignees(t.AssignedBy),
		"start_time":  clockForDB(t.StartTime, record.DefaultStartTime),
		"end_time":    clockForDB(t.EndTime, record.DefaultEndTime),
		"status":      string(t.Status),
		"completed":   completed,
		"task_uid":    uid,
		"attachments": record.EncodeAttachments(t.Attachments),
	}
}

// clockForDB turns a task time into HH:MM:SS. Values a TIME column cannot
// hold are replaced by the default.
func clockForDB(v, def string) string {
	m, ok := record.ParseClock(v)
	if !ok || m >= 24*60 {
		m, _ = record.ParseClock(def)
	}
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

// InsertTask stores t under the work day and returns the row id. When the
// database rejects a column the insert is retried with the next narrower
// tier; the error is returned only after the last tier fails.
func (s *Store) InsertTask(ctx context.Context, workDayID int64, t record.Task) (int64, error) {
	values := taskValues(t)
	var lastErr error
	tried := map[string]bool{}

	for _, tier := range taskInsertTiers {
		cols := s.caps.Filter("tasks", tier)
		if !containsString(cols, "description") {
			cols = append([]string{"description"}, cols...)
		}
		key := strings.Join(cols, ",")
		if tried[key] {
			continue
		}
		tried[key] = true

		args := []any{workDayID}
		for _, c := range cols {
			args = append(args, values[c])
		}
		q := fmt.Sprintf(`INSERT INTO tasks (work_day_id, %s) VALUES (%s)`,
			strings.Join(cols, ", "), placeholders(len(cols)+1))

		id, err := s.insert(ctx, q, args...)
		if err == nil {
			return id, nil
		}
		if !s.dialect.unknownColumn(err) {
			return 0, fmt.Errorf("insert task: %w", err)
		}
		lastErr = err
		s.log.Printf("insert task with columns %s failed, narrowing: %v", key, err)
		s.forgetRejected(err, cols)
	}
	return 0, fmt.Errorf("insert task: %w", lastErr)
}

// forgetRejected drops the column named in an unknown-column error from
// the capability map so later inserts skip it straight away.
func (s *Store) forgetRejected(err error, cols []string) {
	msg := err.Error()
	for _, c := range cols {
		if c != "description" && strings.Contains(msg, c) {
			s.caps.forget("tasks", c)
		}
	}
}

// UpdateTask rewrites the stored fields of a task row.
func (s *Store) UpdateTask(ctx context.Context, rowID int64, t record.Task) error {
	values := taskValues(t)
	cols := s.caps.Filter("tasks", taskInsertTiers[0])
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
		args = append(args, values[c])
	}
	args = append(args, rowID)
	_, err := s.exec(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task %d: %w", rowID, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, rowID int64) error {
	_, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, rowID)
	return err
}

// DeleteDayTasks removes every task of a work day.
func (s *Store) DeleteDayTasks(ctx context.Context, workDayID int64) error {
	_, err := s.exec(ctx, `DELETE FROM tasks WHERE work_day_id = ?`, workDayID)
	return err
}

// SetTaskUID assigns the external id of a task row.
func (s *Store) SetTaskUID(ctx context.Context, rowID int64, uid string) error {
	_, err := s.exec(ctx, `UPDATE tasks SET task_uid = ? WHERE id = ?`, uid, rowID)
	return err
}

// TaskUIDs returns every task_uid persisted anywhere in the database.
func (s *Store) TaskUIDs(ctx context.Context) (record.IDSet, error) {
	ids := record.IDSet{}
	if !s.caps.Has("tasks", "task_uid") {
		return ids, nil
	}
	rows, err := s.query(ctx, `SELECT task_uid FROM tasks WHERE task_uid IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list task uids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		ids.Add(uid)
	}
	return ids, rows.Err()
}

// sharedTaskUIDs maps every task_uid held by more than one row to the
// lowest row id holding it.
func (s *Store) sharedTaskUIDs(ctx context.Context) (map[string]int64, error) {
	owners := map[string]int64{}
	if !s.caps.Has("tasks", "task_uid") {
		return owners, nil
	}
	rows, err := s.query(ctx, `SELECT task_uid, MIN(id) FROM tasks
		WHERE task_uid IS NOT NULL AND task_uid <> ''
		GROUP BY task_uid HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, fmt.Errorf("list shared task uids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		var rowID int64
		if err := rows.Scan(&uid, &rowID); err != nil {
			return nil, err
		}
		owners[uid] = rowID
	}
	return owners, rows.Err()
}

type taskScan struct {
	rowID, workDayID int64
	description      sql.NullString
	assignedBy       sql.NullString
	startTime        sql.NullString
	endTime          sql.NullString
	status           sql.NullString
	completed        sql.NullInt64
	uid              sql.NullString
	attachments      sql.NullString
}

func (ts *taskScan) dest(cols []string) []any {
	d := []any{&ts.rowID, &ts.workDayID, &ts.description}
	for _, c := range cols {
		switch c {
		case "assigned_by":
			d = append(d, &ts.assignedBy)
		case "start_time":
			d = append(d, &ts.startTime)
		case "end_time":
			d = append(d, &ts.endTime)
		case "status":
			d = append(d, &ts.status)
		case "completed":
			d = append(d, &ts.completed)
		case "task_uid":
			d = append(d, &ts.uid)
		case "attachments":
			d = append(d, &ts.attachments)
		}
	}
	return d
}

func (ts *taskScan) row() TaskRow {
	status := record.Status(strings.TrimSpace(ts.status.String))
	if status == "" && ts.completed.Valid {
		status = record.StatusTodo
		if ts.completed.Int64 != 0 {
			status = record.StatusDone
		}
	}
	t := record.NormalizeTask(record.Task{
		ID:          ts.uid.String,
		Text:        ts.description.String,
		AssignedBy:  record.ParseAssignees(ts.assignedBy.String),
		StartTime:   ts.startTime.String,
		EndTime:     ts.endTime.String,
		Status:      status,
		Attachments: record.ParseAttachments(ts.attachments.String),
	})
	return TaskRow{RowID: ts.rowID, WorkDayID: ts.workDayID, Task: t}
}

// ListTasks returns the tasks of a work day in insertion order. Columns
// missing from the schema read as their defaults.
func (s *Store) ListTasks(ctx context.Context, workDayID int64) ([]TaskRow, error) {
	rows, cols, err := s.selectTasks(ctx, workDayID)
	if err != nil && s.dialect.unknownColumn(err) {
		if rerr := s.refreshCapabilities(ctx); rerr == nil {
			rows, cols, err = s.selectTasks(ctx, workDayID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var ts taskScan
		if err := rows.Scan(ts.dest(cols)...); err != nil {
			return nil, err
		}
		out = append(out, ts.row())
	}
	return out, rows.Err()
}

func (s *Store) selectTasks(ctx context.Context, workDayID int64) (*sql.Rows, []string, error) {
	cols := s.caps.Filter("tasks", taskReadColumns)
	exprs := []string{"id", "work_day_id", "description"}
	for _, c := range cols {
		switch c {
		case "start_time", "end_time":
			exprs = append(exprs, s.dialect.clockText(c))
		default:
			exprs = append(exprs, c)
		}
	}
	rows, err := s.query(ctx,
		`SELECT `+strings.Join(exprs, ", ")+` FROM tasks WHERE work_day_id = ? ORDER BY id`,
		workDayID,
	)
	return rows, cols, err
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
