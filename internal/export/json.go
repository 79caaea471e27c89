package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Client     string    `json:"client,omitempty"`
	Month      string    `json:"month"`
	TotalHours float64   `json:"total_hours"`
	Count      int       `json:"count"`
	Days       []jsonDay `json:"days"`
}

type jsonDay struct {
	Date       string     `json:"date"`
	TotalHours float64    `json:"total_hours"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	AssignedBy  []string `json:"assigned_by"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	DurationSec int64    `json:"duration_seconds"`
	Duration    string   `json:"duration"`
	Status      string   `json:"status"`
	Attachments []string `json:"attachments,omitempty"`
}

func ToJSON(r Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()
	if err := WriteJSON(f, r); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// WriteJSON writes the report grouped by day. Day totals merge
// overlapping tasks.
func WriteJSON(w io.Writer, r Report) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Client:     r.Client,
		Month:      r.Month,
		TotalHours: record.MonthHours(r.Days),
	}

	var day *jsonDay
	for _, row := range r.rows() {
		if day == nil || day.Date != row.date {
			export.Days = append(export.Days, jsonDay{
				Date:       row.date,
				TotalHours: record.DayHours(r.Days[row.date].Tasks),
			})
			day = &export.Days[len(export.Days)-1]
		}
		t := row.task
		secs := taskSeconds(t)
		day.Tasks = append(day.Tasks, jsonTask{
			ID:          t.ID,
			Text:        t.Text,
			AssignedBy:  t.AssignedBy,
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
			DurationSec: secs,
			Duration:    formatDuration(secs),
			Status:      string(t.Status),
			Attachments: t.Attachments,
		})
		export.Count++
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
