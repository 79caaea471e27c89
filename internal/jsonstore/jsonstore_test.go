package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/worklog/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func writeDoc(t *testing.T, s *Store, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))
}

func readDoc(t *testing.T, s *Store) map[string]any {
	t.Helper()
	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestReadMonthMissingFile(t *testing.T) {
	s := newTestStore(t)
	m, err := s.ReadMonth(context.Background(), 1, 2, "2025-03", nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestReadMonthMissingLevels(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {"2": {"2025-02": {}}}, "9": "not an object"}`)

	ctx := context.Background()
	for _, c := range []struct{ user, client int64 }{{1, 2}, {1, 3}, {5, 2}, {9, 1}} {
		m, err := s.ReadMonth(ctx, c.user, c.client, "2025-03", nil)
		require.NoError(t, err)
		assert.Empty(t, m)
	}
}

func TestReadMonthNormalizesLegacyTasks(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {"2": {"2025-03": {
		"2025-03-05": {"date": "2025-03-05", "tasks": [
			"Clean office",
			{"id": "654321", "text": "Call", "assignedBy": "Jan", "completed": true, "startTime": "09:00", "endTime": "12:00"},
			{"text": "Write", "startTime": "11:00", "endTime": "13:00"}
		], "totalHours": 99},
		"summary": {"tasks": ["junk"]}
	}}}}`)

	m, err := s.ReadMonth(context.Background(), 1, 2, "2025-03", nil)
	require.NoError(t, err)
	require.Len(t, m, 1)

	day := m["2025-03-05"]
	require.Len(t, day.Tasks, 3)
	assert.Equal(t, "Clean office", day.Tasks[0].Text)
	assert.Equal(t, []string{}, day.Tasks[0].AssignedBy)
	assert.Equal(t, record.StatusTodo, day.Tasks[0].Status)
	assert.Equal(t, "654321", day.Tasks[1].ID)
	assert.Equal(t, []string{"Jan"}, day.Tasks[1].AssignedBy)
	assert.Equal(t, record.StatusDone, day.Tasks[1].Status)

	// 08:00-16:00 covers the other two ranges.
	assert.Equal(t, 8.0, day.TotalHours)
	for _, task := range day.Tasks {
		assert.True(t, record.ValidTaskID(task.ID), "task %q has id %q", task.Text, task.ID)
	}
}

func TestReadMonthPersistsMintedIDs(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {"2": {"2025-03": {"2025-03-05": {"tasks": ["a", "b"]}}}}}`)
	ctx := context.Background()

	first, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)
	second, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)

	require.Len(t, second["2025-03-05"].Tasks, 2)
	assert.Equal(t, first["2025-03-05"].Tasks[0].ID, second["2025-03-05"].Tasks[0].ID)
	assert.Equal(t, first["2025-03-05"].Tasks[1].ID, second["2025-03-05"].Tasks[1].ID)
	assert.NotEqual(t, first["2025-03-05"].Tasks[0].ID, first["2025-03-05"].Tasks[1].ID)
}

func TestReadMonthAvoidsIDsElsewhere(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{
		"1": {"2": {"2025-01": {"2025-01-02": {"tasks": [{"id": "100000", "text": "old"}]}}}},
		"3": {"4": {"2025-03": {"2025-03-05": {"tasks": ["new"]}}}}
	}`)

	calls := 0
	gen := record.NewIDGeneratorWith(func(n int) int {
		calls++
		return calls - 1 // 100000 first, then 100001
	}, nil)

	m, err := s.ReadMonth(context.Background(), 3, 4, "2025-03", gen)
	require.NoError(t, err)
	assert.Equal(t, "100001", m["2025-03-05"].Tasks[0].ID)
}

func TestReadMonthRemintsIDsHeldElsewhere(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {
		"2": {"2025-03": {"2025-03-05": {"tasks": [{"id": "555555", "text": "acme"}]}}},
		"3": {"2025-04": {"2025-04-01": {"tasks": [{"id": "555555", "text": "globex"}]}}}
	}}`)
	ctx := context.Background()

	march, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)
	moved := march["2025-03-05"].Tasks[0].ID
	assert.NotEqual(t, "555555", moved)
	assert.True(t, record.ValidTaskID(moved))

	april, err := s.ReadMonth(ctx, 1, 3, "2025-04", nil)
	require.NoError(t, err)
	assert.Equal(t, "555555", april["2025-04-01"].Tasks[0].ID)

	again, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)
	assert.Equal(t, moved, again["2025-03-05"].Tasks[0].ID)
}

func TestReadMonthInvalidKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadMonth(context.Background(), 1, 2, "2025-3", nil)
	assert.ErrorIs(t, err, record.ErrInvalidMonth)
}

func TestSaveMonthMergesDays(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{
		"1": {
			"2": {
				"2025-02": {"2025-02-03": {"tasks": ["feb"]}},
				"2025-03": {"2025-03-01": {"tasks": ["keep"]}, "2025-03-05": {"tasks": ["replace me"]}}
			},
			"8": {"2025-03": {"2025-03-05": {"tasks": ["other client"]}}}
		},
		"note": "artifact"
	}`)

	days := record.Month{
		"2025-03-05": {Tasks: []record.Task{{Text: "new", StartTime: "10:00", EndTime: "11:30"}}},
		"2025-03-09": {Tasks: []record.Task{}},
	}
	ctx := context.Background()
	require.NoError(t, s.SaveMonth(ctx, 1, 2, "2025-03", days, nil))

	m, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)
	require.Len(t, m, 3)
	assert.Equal(t, "keep", m["2025-03-01"].Tasks[0].Text)
	require.Len(t, m["2025-03-05"].Tasks, 1)
	assert.Equal(t, "new", m["2025-03-05"].Tasks[0].Text)
	assert.Equal(t, 1.5, m["2025-03-05"].TotalHours)
	assert.Empty(t, m["2025-03-09"].Tasks)

	feb, err := s.ReadMonth(ctx, 1, 2, "2025-02", nil)
	require.NoError(t, err)
	assert.Equal(t, "feb", feb["2025-02-03"].Tasks[0].Text)

	other, err := s.ReadMonth(ctx, 1, 8, "2025-03", nil)
	require.NoError(t, err)
	assert.Equal(t, "other client", other["2025-03-05"].Tasks[0].Text)

	assert.Equal(t, "artifact", readDoc(t, s)["note"])
}

func TestSaveMonthCreatesFile(t *testing.T) {
	s := newTestStore(t)
	days := record.Month{"2025-03-05": {Tasks: []record.Task{{Text: "T", AssignedBy: []string{"Ola"}}}}}
	require.NoError(t, s.SaveMonth(context.Background(), 1, 2, "2025-03", days, nil))

	doc := readDoc(t, s)
	month := doc["1"].(map[string]any)["2"].(map[string]any)["2025-03"].(map[string]any)
	day := month["2025-03-05"].(map[string]any)
	assert.Equal(t, "2025-03-05", day["date"])
	assert.Equal(t, 8.0, day["totalHours"])
	task := day["tasks"].([]any)[0].(map[string]any)
	assert.Equal(t, "T", task["text"])
	assert.Equal(t, "08:00", task["startTime"])
	assert.Equal(t, string(record.StatusTodo), task["status"])
	assert.Len(t, task["id"], 6)
}

func TestSaveMonthSkipsForeignDays(t *testing.T) {
	s := newTestStore(t)
	days := record.Month{
		"2025-04-01": {Tasks: []record.Task{{Text: "april"}}},
		"totals":     {Tasks: []record.Task{{Text: "junk"}}},
	}
	require.NoError(t, s.SaveMonth(context.Background(), 1, 2, "2025-03", days, nil))

	m, err := s.ReadMonth(context.Background(), 1, 2, "2025-03", nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestSaveMonthReassignsForeignIDs(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {"2": {"2025-01": {"2025-01-02": {"tasks": [{"id": "222222", "text": "jan"}]}}}}}`)
	ctx := context.Background()

	days := record.Month{"2025-03-05": {Tasks: []record.Task{{ID: "222222", Text: "copy"}, {ID: "333333", Text: "mine"}}}}
	require.NoError(t, s.SaveMonth(ctx, 1, 2, "2025-03", days, nil))

	m, err := s.ReadMonth(ctx, 1, 2, "2025-03", nil)
	require.NoError(t, err)
	tasks := m["2025-03-05"].Tasks
	assert.NotEqual(t, "222222", tasks[0].ID)
	assert.Equal(t, "333333", tasks[1].ID)
}

func TestSaveMonthReplacesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()
	writeDoc(t, s, `{"1": {}}`)

	// A link to the old document keeps its content when the file is
	// replaced rather than rewritten in place.
	old := filepath.Join(dir, "old.json")
	require.NoError(t, os.Link(s.Path(), old))

	days := record.Month{"2025-03-05": {Tasks: []record.Task{{Text: "a"}}}}
	require.NoError(t, s.SaveMonth(ctx, 1, 2, "2025-03", days, nil))
	require.NoError(t, s.PutClient(ctx, 1, ClientMeta{ID: "2", Name: "Acme"}))

	b, err := os.ReadFile(old)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": {}}`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{CatalogFile, DataFile, "old.json"}, names)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestLoadUserSkipsArtifacts(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {
		"2": {"2025-03": {"2025-03-05": {"tasks": ["a", "b"]}, "total": 5}, "meta": {}},
		"1700000000000": {"2024-12": {"2024-12-24": {"tasks": ["c"]}, "2025-01-01": {"tasks": ["wrong month"]}}}
	}}`)

	ds, err := s.LoadUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ds.Buckets, 2)

	assert.Equal(t, "1700000000000", ds.Buckets[0].ClientKey)
	assert.Len(t, ds.Buckets[0].Months["2024-12"], 1)
	assert.Equal(t, "2", ds.Buckets[1].ClientKey)
	assert.Equal(t, []string{"2025-03"}, ds.Buckets[1].MonthKeys())
	assert.Len(t, ds.Buckets[1].Months["2025-03"]["2025-03-05"], 2)

	assert.ElementsMatch(t, []string{"1700000000000/2024-12/2025-01-01", "2/2025-03/total", "2/meta"}, ds.Skipped)
}

func TestClientKeys(t *testing.T) {
	s := newTestStore(t)
	writeDoc(t, s, `{"1": {"5": {}, "2": {}}}`)
	keys, err := s.ClientKeys(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "5"}, keys)
}

// ============================================================
// Client catalog
// ============================================================

func TestCatalogMissingFile(t *testing.T) {
	s := newTestStore(t)
	clients, err := s.Clients(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestCatalogNumericAndStringIDs(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CatalogFile), []byte(`{
		"1": [{"id": 1700000000000, "name": "Acme", "logo": "uploads/acme.png"}, {"id": "7", "name": "Globex"}, {"name": "no id"}]
	}`), 0o644))

	clients, err := s.Clients(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "1700000000000", clients[0].ID)
	assert.Equal(t, "uploads/acme.png", clients[0].Logo)
	assert.Equal(t, "7", clients[1].ID)
}

func TestPutClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutClient(ctx, 1, ClientMeta{ID: "7", Name: "Acme"}))
	require.NoError(t, s.PutClient(ctx, 1, ClientMeta{ID: "8", Name: "Globex"}))
	require.NoError(t, s.PutClient(ctx, 1, ClientMeta{ID: "7", Name: "Acme SA", Website: "https://acme.example"}))

	c, ok, err := s.Client(ctx, 1, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme SA", c.Name)
	assert.Equal(t, "https://acme.example", c.Website)

	clients, err := s.Clients(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, clients, 2)

	assert.Error(t, s.PutClient(ctx, 1, ClientMeta{Name: "no id"}))
}
