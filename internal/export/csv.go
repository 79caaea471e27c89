package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

var csvHeader = []string{"Date", "Task ID", "Description", "Assigned by", "Start", "End", "Duration (s)", "Duration", "Status", "Attachments"}

func ToCSV(r Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, r)
}

// WriteCSV writes one line per task.
func WriteCSV(out io.Writer, r Report) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range r.rows() {
		t := row.task
		secs := taskSeconds(t)
		rec := []string{
			row.date,
			t.ID,
			t.Text,
			strings.Join(t.AssignedBy, "; "),
			t.StartTime,
			t.EndTime,
			fmt.Sprintf("%d", secs),
			formatDuration(secs),
			string(t.Status),
			strings.Join(t.Attachments, "; "),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
