package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upgrade(t *testing.T, src string) Task {
	t.Helper()
	return DecodeTask(json.RawMessage(src)).Upgrade()
}

func TestNormalizeBareString(t *testing.T) {
	raw := DecodeTask(json.RawMessage(`"Clean office"`))
	require.Equal(t, ShapeText, raw.Shape)

	got := raw.Upgrade()
	assert.Equal(t, Task{
		Text:        "Clean office",
		AssignedBy:  []string{},
		StartTime:   "08:00",
		EndTime:     "16:00",
		Status:      StatusTodo,
		Attachments: []string{},
	}, got)
}

func TestNormalizeLegacySingleAssignee(t *testing.T) {
	raw := DecodeTask(json.RawMessage(`{"text":"Invoice","assignedBy":"  Anna "}`))
	require.Equal(t, ShapeLegacy, raw.Shape)
	assert.Equal(t, []string{"Anna"}, raw.Upgrade().AssignedBy)
}

func TestNormalizeAssigneeArrayDropsEmpty(t *testing.T) {
	got := upgrade(t, `{"text":"x","assignedBy":["Anna", null, "  ", "Bob", 7, "Anna"]}`)
	assert.Equal(t, []string{"Anna", "Bob", "Anna"}, got.AssignedBy)
}

func TestNormalizeCompletedFlag(t *testing.T) {
	assert.Equal(t, StatusDone, upgrade(t, `{"text":"x","completed":true}`).Status)
	assert.Equal(t, StatusTodo, upgrade(t, `{"text":"x","completed":false}`).Status)
	assert.Equal(t, StatusDone, upgrade(t, `{"text":"x","completed":1}`).Status)
	assert.Equal(t, StatusInProgress, upgrade(t, `{"text":"x","completed":true,"status":"w trakcie"}`).Status)
	assert.Equal(t, StatusDone, upgrade(t, `{"text":"x","completed":true,"status":""}`).Status)
	assert.Equal(t, StatusTodo, upgrade(t, `{"text":"x"}`).Status)
}

func TestNormalizeTimes(t *testing.T) {
	got := upgrade(t, `{"text":"x","startTime":"9:00:00","endTime":""}`)
	assert.Equal(t, "09:00", got.StartTime)
	assert.Equal(t, "16:00", got.EndTime)

	// Unparsable values are kept as they are.
	got = upgrade(t, `{"text":"x","startTime":"soon"}`)
	assert.Equal(t, "soon", got.StartTime)
}

func TestNormalizeAttachments(t *testing.T) {
	cases := map[string][]string{
		`{"attachments":["a.pdf","b.png"]}`:        {"a.pdf", "b.png"},
		`{"attachments":"[\"a.pdf\"]"}`:             {"a.pdf"},
		`{"attachments":"not json"}`:                {},
		`{"attachments":{"a":1}}`:                   {},
		`{"attachments":null}`:                      {},
		`{"attachments":[1, "c.txt", {"x": true}]}`: {"c.txt"},
	}
	for src, want := range cases {
		assert.Equal(t, want, upgrade(t, src).Attachments, src)
	}
}

func TestNormalizeNumericID(t *testing.T) {
	assert.Equal(t, "123456", upgrade(t, `{"id":123456,"text":"x"}`).ID)
	assert.Equal(t, "654321", upgrade(t, `{"id":"654321","text":"x"}`).ID)
}

func TestNormalizeDescriptionAlias(t *testing.T) {
	assert.Equal(t, "from db", upgrade(t, `{"description":"from db"}`).Text)
}

func TestNormalizeMalformed(t *testing.T) {
	for _, src := range []string{`null`, `42`, `[1,2]`, `{bad`, ``} {
		raw := DecodeTask(json.RawMessage(src))
		assert.Equal(t, ShapeInvalid, raw.Shape, src)
		got := raw.Upgrade()
		assert.Equal(t, StatusTodo, got.Status)
		assert.NotNil(t, got.AssignedBy)
		assert.NotNil(t, got.Attachments)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	canonical := Task{
		ID:          "482913",
		Text:        "Review",
		AssignedBy:  []string{"Anna"},
		StartTime:   "09:30",
		EndTime:     "11:00",
		Status:      StatusScheduled,
		Attachments: []string{"uploads/r.pdf"},
	}
	assert.Equal(t, canonical, NormalizeTask(canonical))
	assert.Equal(t, canonical, NormalizeTask(NormalizeTask(canonical)))

	n := NewNormalizer(nil, NewIDSet("482913"))
	assert.Equal(t, canonical, n.Task(canonical))
	assert.Equal(t, 0, n.Minted())
}

func TestNormalizerMintsMissingAndDuplicateIDs(t *testing.T) {
	n := NewNormalizer(nil, NewIDSet("111111"))
	a := n.Task(Task{Text: "a"})
	b := n.Task(Task{ID: "111111", Text: "b"})
	c := n.Task(Task{ID: "111111", Text: "c"})
	d := n.Task(Task{ID: "12", Text: "d"})

	assert.True(t, ValidTaskID(a.ID))
	assert.Equal(t, "111111", b.ID)
	assert.NotEqual(t, "111111", c.ID)
	assert.True(t, ValidTaskID(d.ID))
	assert.Equal(t, 3, n.Minted())

	ids := NewIDSet(a.ID, b.ID, c.ID, d.ID)
	assert.Len(t, ids, 4)
}

func TestNormalizerReservedIDs(t *testing.T) {
	n := NewNormalizer(nil, nil)
	n.Reserve(NewIDSet("222222"))

	kept := n.Task(Task{ID: "333333", Text: "kept"})
	moved := n.Task(Task{ID: "222222", Text: "moved"})

	assert.Equal(t, "333333", kept.ID)
	assert.NotEqual(t, "222222", moved.ID)
	assert.True(t, ValidTaskID(moved.ID))
	assert.Equal(t, 1, n.Minted())
}

func TestParseAssignees(t *testing.T) {
	assert.Equal(t, []string{}, ParseAssignees(""))
	assert.Equal(t, []string{"Anna"}, ParseAssignees("Anna"))
	assert.Equal(t, []string{"Anna", "Bob"}, ParseAssignees(`["Anna","Bob"]`))
	assert.Equal(t, []string{"[broken"}, ParseAssignees("[broken"))
}

func TestEncodeAssignees(t *testing.T) {
	assert.Equal(t, "", EncodeAssignees(nil))
	assert.Equal(t, "", EncodeAssignees([]string{" "}))
	assert.Equal(t, `["Anna","Bob"]`, EncodeAssignees([]string{"Anna", "Bob"}))
	assert.Equal(t, "[]", EncodeAttachments(nil))
}

func TestDecodeMonthPayload(t *testing.T) {
	payload := []byte(`{
		"2025-03-05": {"tasks": ["Clean office", {"text":"Meet","startTime":"09:00","endTime":"12:00","assignedBy":"Anna"}]},
		"2025-03-06": {"tasks": "oops"}
	}`)
	m, err := DecodeMonthPayload(payload, NewNormalizer(nil, nil))
	require.NoError(t, err)
	require.Len(t, m, 2)

	day := m["2025-03-05"]
	require.Len(t, day.Tasks, 2)
	assert.Equal(t, "2025-03-05", day.Date)
	assert.Equal(t, 8.0, day.TotalHours)
	assert.Equal(t, []string{"Anna"}, day.Tasks[1].AssignedBy)
	assert.NotEqual(t, day.Tasks[0].ID, day.Tasks[1].ID)

	assert.Empty(t, m["2025-03-06"].Tasks)
	assert.NotNil(t, m["2025-03-06"].Tasks)

	_, err = DecodeMonthPayload([]byte(`[]`), NewNormalizer(nil, nil))
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.True(t, IsMonthKey("2025-03"))
	assert.False(t, IsMonthKey("2025-13"))
	assert.False(t, IsMonthKey("notes"))
	assert.True(t, IsDateKey("2024-02-29"))
	assert.False(t, IsDateKey("2025-02-29"))
	assert.True(t, InMonth("2025-03-05", "2025-03"))
	assert.False(t, InMonth("2025-04-05", "2025-03"))

	first, next, err := MonthBounds("2025-12")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", first)
	assert.Equal(t, "2026-01-01", next)

	_, _, err = MonthBounds("2025/12")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
