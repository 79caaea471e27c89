package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/worklog/internal/record"
)

func sampleReport() Report {
	return Report{
		Client: "Acme",
		Month:  "2025-03",
		Days: record.Month{
			"2025-03-06": {Tasks: []record.Task{
				{ID: "300003", Text: "Late task", AssignedBy: []string{}, StartTime: "13:00", EndTime: "14:30", Status: record.StatusTodo, Attachments: []string{}},
			}},
			"2025-03-05": {Tasks: []record.Task{
				{ID: "100001", Text: "Invoice", AssignedBy: []string{"Marta", "Jan"}, StartTime: "09:00", EndTime: "11:00", Status: record.StatusDone, Attachments: []string{"a.pdf"}},
				{ID: "200002", Text: "Overlapping call", AssignedBy: []string{}, StartTime: "10:00", EndTime: "12:00", Status: record.StatusInProgress, Attachments: []string{}},
			}},
		},
	}
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")

	err := ToCSV(sampleReport(), path)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// header + 3 task rows
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	for i, h := range csvHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	// Dates are sorted; task order within a day is kept.
	row := records[1]
	if row[0] != "2025-03-05" || row[1] != "100001" {
		t.Fatalf("first row = %v", row)
	}
	if row[3] != "Marta; Jan" {
		t.Fatalf("Assigned by = %q, want 'Marta; Jan'", row[3])
	}
	if row[6] != "7200" {
		t.Fatalf("Duration (s) = %q, want 7200", row[6])
	}
	if row[7] != "02:00:00" {
		t.Fatalf("Duration = %q, want 02:00:00", row[7])
	}
	if row[8] != "wykonano" {
		t.Fatalf("Status = %q", row[8])
	}
	if row[9] != "a.pdf" {
		t.Fatalf("Attachments = %q", row[9])
	}
	if records[3][0] != "2025-03-06" {
		t.Fatalf("last row date = %q, want 2025-03-06", records[3][0])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := ToCSV(Report{Month: "2025-03"}, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, _ := csv.NewReader(f).ReadAll()
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	err := ToCSV(sampleReport(), "/nonexistent/dir/file.csv")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestWriteCSVSpecialCharacters(t *testing.T) {
	r := Report{Month: "2025-03", Days: record.Month{
		"2025-03-05": {Tasks: []record.Task{{ID: "100001", Text: `notes with "quotes" and, commas`, StartTime: "08:00", EndTime: "16:00"}}},
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV should be valid even with special chars: %v", err)
	}
	if records[1][2] != `notes with "quotes" and, commas` {
		t.Fatalf("description mangled: %q", records[1][2])
	}
}

func TestWriteCSVUnparsableTimes(t *testing.T) {
	r := Report{Month: "2025-03", Days: record.Month{
		"2025-03-05": {Tasks: []record.Task{{ID: "100001", Text: "x", StartTime: "soon", EndTime: "16:00"}}},
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatal(err)
	}
	records, _ := csv.NewReader(&buf).ReadAll()
	if records[1][6] != "0" {
		t.Fatalf("Duration (s) = %q, want 0", records[1][6])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToJSON(sampleReport(), path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 3 {
		t.Fatalf("count = %d, want 3", result.Count)
	}
	if result.Client != "Acme" || result.Month != "2025-03" {
		t.Fatalf("client/month = %q/%q", result.Client, result.Month)
	}
	if len(result.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(result.Days))
	}

	// 09:00-11:00 and 10:00-12:00 merge to 3h.
	day := result.Days[0]
	if day.Date != "2025-03-05" || day.TotalHours != 3 {
		t.Fatalf("first day = %s %.2fh, want 2025-03-05 3h", day.Date, day.TotalHours)
	}
	if len(day.Tasks) != 2 {
		t.Fatalf("first day tasks = %d, want 2", len(day.Tasks))
	}
	if day.Tasks[0].DurationSec != 7200 || day.Tasks[0].Duration != "02:00:00" {
		t.Fatalf("task duration = %d %q", day.Tasks[0].DurationSec, day.Tasks[0].Duration)
	}
	if result.TotalHours != 4.5 {
		t.Fatalf("total hours = %.2f, want 4.5", result.TotalHours)
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := ToJSON(Report{Month: "2025-03"}, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.Days != nil {
		t.Fatal("days should be nil/null for empty export")
	}
}

func TestToJSONBadPath(t *testing.T) {
	err := ToJSON(sampleReport(), "/nonexistent/dir/file.json")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	var buf bytes.Buffer
	WriteJSON(&buf, sampleReport())

	if !strings.Contains(buf.String(), "\n") {
		t.Fatal("JSON should be pretty-printed with newlines")
	}
	if !strings.Contains(buf.String(), "  ") {
		t.Fatal("JSON should be indented with spaces")
	}
}

func TestToJSONValidTimestamp(t *testing.T) {
	var buf bytes.Buffer
	WriteJSON(&buf, sampleReport())

	var result jsonExport
	json.Unmarshal(buf.Bytes(), &result)

	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestTaskSeconds(t *testing.T) {
	tests := []struct {
		start, end string
		want       int64
	}{
		{"09:00", "10:30", 5400},
		{"10:00", "09:00", 0},
		{"bad", "10:00", 0},
		{"23:00", "24:00", 3600},
	}
	for _, tt := range tests {
		got := taskSeconds(record.Task{StartTime: tt.start, EndTime: tt.end})
		if got != tt.want {
			t.Errorf("taskSeconds(%s-%s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}
