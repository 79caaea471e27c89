package record

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "do zrobienia"
	StatusInProgress Status = "w trakcie"
	StatusDone       Status = "wykonano"
	StatusCancelled  Status = "anulowane"
	StatusScheduled  Status = "zaplanowano"
)

const (
	DefaultStartTime = "08:00"
	DefaultEndTime   = "16:00"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled, StatusScheduled:
		return true
	}
	return false
}

// Task is the canonical task shape. Every task handed out by the
// repository has all fields populated.
type Task struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	AssignedBy  []string `json:"assignedBy"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Status      Status   `json:"status"`
	Attachments []string `json:"attachments"`
}

// Completed mirrors the legacy boolean flag.
func (t Task) Completed() bool {
	return t.Status == StatusDone
}

// DayRecord holds the tasks logged for one calendar date.
type DayRecord struct {
	Date       string  `json:"date"`
	Tasks      []Task  `json:"tasks"`
	TotalHours float64 `json:"totalHours"`
}

// Month maps YYYY-MM-DD keys to day records.
type Month map[string]DayRecord
