package store

import "github.com/sadopc/worklog/internal/record"

type User struct {
	ID    int64
	Email string
}

type Client struct {
	ID      int64
	UserID  int64
	Name    string
	Logo    string
	Website string
}

type WorkDay struct {
	ID       int64
	UserID   int64
	ClientID int64
	Date     string // YYYY-MM-DD
}

// TaskRow is a stored task together with its row identity. Task.ID holds
// task_uid and is empty when the row has none yet.
type TaskRow struct {
	RowID     int64
	WorkDayID int64
	Task      record.Task
}

// Stats counts rows per core table.
type Stats struct {
	Users    int
	Clients  int
	WorkDays int
	Tasks    int
}
