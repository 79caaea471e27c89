package migrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordError describes one record the engine could not import. Empty
// fields mean the failure happened above that level.
type RecordError struct {
	Client string `json:"client,omitempty"`
	Month  string `json:"month,omitempty"`
	Date   string `json:"date,omitempty"`
	Task   string `json:"task,omitempty"`
	Err    string `json:"error"`
}

func (e RecordError) Error() string {
	var where []string
	for _, p := range []struct{ k, v string }{
		{"client", e.Client}, {"month", e.Month}, {"date", e.Date}, {"task", e.Task},
	} {
		if p.v != "" {
			where = append(where, p.k+" "+p.v)
		}
	}
	if len(where) == 0 {
		return e.Err
	}
	return strings.Join(where, ", ") + ": " + e.Err
}

// Report summarizes a migration run. The counts are informational.
type Report struct {
	RunID  uuid.UUID `json:"runId"`
	UserID int64     `json:"userId"`

	Clients int `json:"clients"`
	Months  int `json:"months"`

	DaysMigrated  int `json:"daysMigrated"`
	TasksMigrated int `json:"tasksMigrated"`

	ClientsCreated int `json:"clientsCreated"`
	ClientsUpdated int `json:"clientsUpdated"`

	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`

	// Skipped lists keys of the data file that were not months or dates.
	Skipped []string      `json:"skipped,omitempty"`
	Errors  []RecordError `json:"errors"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Changes is the number of task rows written or removed.
func (r *Report) Changes() int {
	return r.Inserted + r.Updated + r.Deleted
}

func (r *Report) fail(e RecordError, err error) {
	e.Err = err.Error()
	r.Errors = append(r.Errors, e)
}

func (r *Report) String() string {
	return fmt.Sprintf("%d days, %d tasks (%d inserted, %d updated, %d deleted, %d unchanged), %d errors",
		r.DaysMigrated, r.TasksMigrated, r.Inserted, r.Updated, r.Deleted, r.Unchanged, len(r.Errors))
}
