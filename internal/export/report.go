package export

import (
	"fmt"
	"sort"

	"github.com/sadopc/worklog/internal/record"
)

// Report is one client's month as handed out by the repository.
type Report struct {
	Client string
	Month  string
	Days   record.Month
}

type row struct {
	date string
	task record.Task
}

// rows flattens the report in date order, keeping task order within a day.
func (r Report) rows() []row {
	dates := make([]string, 0, len(r.Days))
	for d := range r.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []row
	for _, d := range dates {
		for _, t := range r.Days[d].Tasks {
			out = append(out, row{date: d, task: t})
		}
	}
	return out
}

// taskSeconds is the plain length of a task's range. Overlaps are only
// merged in the day and month totals.
func taskSeconds(t record.Task) int64 {
	start, ok1 := record.ParseClock(t.StartTime)
	end, ok2 := record.ParseClock(t.EndTime)
	if !ok1 || !ok2 || end <= start {
		return 0
	}
	return int64(end-start) * 60
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
