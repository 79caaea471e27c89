package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Shape tells which stored representation a task came in.
type Shape int

const (
	ShapeInvalid Shape = iota
	// ShapeText is a bare string holding only the description.
	ShapeText
	// ShapeLegacy is an object using a single-string assignee or the
	// boolean completed flag instead of a status.
	ShapeLegacy
	// ShapeCurrent is an object in the canonical layout (fields may still
	// be missing).
	ShapeCurrent
)

// RawTask is a decoded but not yet upgraded task value.
type RawTask struct {
	Shape Shape
	text  string
	obj   rawObject
}

type rawObject struct {
	ID          json.RawMessage `json:"id"`
	Text        json.RawMessage `json:"text"`
	Description json.RawMessage `json:"description"`
	AssignedBy  json.RawMessage `json:"assignedBy"`
	StartTime   json.RawMessage `json:"startTime"`
	EndTime     json.RawMessage `json:"endTime"`
	Status      json.RawMessage `json:"status"`
	Completed   json.RawMessage `json:"completed"`
	Attachments json.RawMessage `json:"attachments"`
}

// DecodeTask classifies a stored task value. It never fails; anything it
// cannot read is reported as ShapeInvalid and upgrades to an empty task.
func DecodeTask(raw json.RawMessage) RawTask {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return RawTask{Shape: ShapeInvalid}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return RawTask{Shape: ShapeInvalid}
		}
		return RawTask{Shape: ShapeText, text: s}
	case '{':
		var obj rawObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return RawTask{Shape: ShapeInvalid}
		}
		shape := ShapeCurrent
		if isJSONString(obj.AssignedBy) || (jsonString(obj.Status) == "" && !isMissing(obj.Completed)) {
			shape = ShapeLegacy
		}
		return RawTask{Shape: shape, obj: obj}
	}
	return RawTask{Shape: ShapeInvalid}
}

// Upgrade converts the raw value into a canonical task. The id is left
// empty when the source had none; see Normalizer.
func (r RawTask) Upgrade() Task {
	switch r.Shape {
	case ShapeText:
		return upgradeText(r.text)
	case ShapeLegacy:
		return upgradeLegacy(r.obj)
	case ShapeCurrent:
		return upgradeCurrent(r.obj)
	}
	return NormalizeTask(Task{})
}

func upgradeText(s string) Task {
	return NormalizeTask(Task{Text: s})
}

func upgradeLegacy(o rawObject) Task {
	t := upgradeCurrent(o)
	if strings.TrimSpace(jsonString(o.Status)) == "" {
		t.Status = statusFromCompleted(o.Completed)
	}
	return t
}

func upgradeCurrent(o rawObject) Task {
	text := jsonString(o.Text)
	if isMissing(o.Text) {
		text = jsonString(o.Description)
	}
	return NormalizeTask(Task{
		ID:          jsonScalar(o.ID),
		Text:        text,
		AssignedBy:  assigneesFromJSON(o.AssignedBy),
		StartTime:   jsonString(o.StartTime),
		EndTime:     jsonString(o.EndTime),
		Status:      Status(jsonString(o.Status)),
		Attachments: ParseAttachments(o.Attachments),
	})
}

func statusFromCompleted(raw json.RawMessage) Status {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return StatusDone
		}
		return StatusTodo
	}
	// Some rows stored the flag as 0/1.
	if jsonScalar(raw) == "1" {
		return StatusDone
	}
	return StatusTodo
}

// NormalizeTask fills defaults on a typed task. It does not mint ids.
// Normalizing a canonical task returns it unchanged.
func NormalizeTask(t Task) Task {
	t.ID = strings.TrimSpace(t.ID)
	t.AssignedBy = cleanStrings(t.AssignedBy)
	t.Attachments = cleanStrings(t.Attachments)
	t.StartTime = normalizeClock(t.StartTime, DefaultStartTime)
	t.EndTime = normalizeClock(t.EndTime, DefaultEndTime)
	t.Status = Status(strings.TrimSpace(string(t.Status)))
	if t.Status == "" {
		t.Status = StatusTodo
	}
	return t
}

// ValidTaskID reports whether id is 6 to 12 ASCII digits, the range the
// relational task_uid column can hold.
func ValidTaskID(id string) bool {
	if len(id) < 6 || len(id) > 12 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

func normalizeClock(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if m, ok := ParseClock(s); ok {
		return fmt.Sprintf("%02d:%02d", m/60, m%60)
	}
	return s
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseAssignees reads the relational assigned_by column, which holds a
// JSON array or, in old rows, a single bare name.
func ParseAssignees(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	if strings.HasPrefix(s, "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return stringItems(items)
		}
	}
	return []string{s}
}

// EncodeAssignees is the inverse of ParseAssignees: a JSON array, or ""
// for no assignees.
func EncodeAssignees(names []string) string {
	names = cleanStrings(names)
	if len(names) == 0 {
		return ""
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// EncodeAttachments always yields a JSON array.
func EncodeAttachments(paths []string) string {
	b, _ := json.Marshal(cleanStrings(paths))
	return string(b)
}

// ParseAttachments accepts a string slice, a decoded JSON array, a JSON
// document in a string or byte slice. Anything else is an empty list.
func ParseAttachments(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []string:
		return cleanStrings(x)
	case []any:
		return stringItems(x)
	case json.RawMessage:
		return parseAttachmentBytes([]byte(x))
	case []byte:
		return parseAttachmentBytes(x)
	case string:
		return parseAttachmentBytes([]byte(x))
	}
	return []string{}
}

func parseAttachmentBytes(b []byte) []string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []string{}
	}
	switch b[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(b, &items); err == nil {
			return stringItems(items)
		}
	case '"':
		// A JSON document that was itself encoded as a string.
		var inner string
		if err := json.Unmarshal(b, &inner); err == nil {
			return parseAttachmentBytes([]byte(inner))
		}
	}
	return []string{}
}

func assigneesFromJSON(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if isMissing(raw) {
		return []string{}
	}
	if raw[0] == '"' {
		return cleanStrings([]string{jsonString(raw)})
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	return stringItems(items)
}

func stringItems(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isMissing(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

func jsonString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// jsonScalar renders a string or number as text.
func jsonScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if isMissing(raw) {
		return ""
	}
	if raw[0] == '"' {
		return jsonString(raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

// Normalizer upgrades tasks of one load and mints ids for those lacking a
// usable one. seen holds every id known to the load; an id repeated within
// the same pass is replaced.
type Normalizer struct {
	gen     *IDGenerator
	seen    IDSet
	claimed IDSet
	minted  int
}

func NewNormalizer(gen *IDGenerator, seen IDSet) *Normalizer {
	if gen == nil {
		gen = NewIDGenerator()
	}
	if seen == nil {
		seen = IDSet{}
	}
	return &Normalizer{gen: gen, seen: seen, claimed: IDSet{}}
}

// Reserve marks ids owned by tasks outside this load. A task carrying one
// of them gets a fresh id.
func (n *Normalizer) Reserve(ids IDSet) {
	for id := range ids {
		n.seen.Add(id)
		n.claimed.Add(id)
	}
}

// Task normalizes t and makes sure it carries a unique id.
func (n *Normalizer) Task(t Task) Task {
	t = NormalizeTask(t)
	if !ValidTaskID(t.ID) || n.claimed.Has(t.ID) {
		t.ID = n.gen.Generate(n.seen)
		n.minted++
	}
	n.seen.Add(t.ID)
	n.claimed.Add(t.ID)
	return t
}

// Raw decodes, upgrades and normalizes a stored task value.
func (n *Normalizer) Raw(raw json.RawMessage) Task {
	return n.Task(DecodeTask(raw).Upgrade())
}

// Tasks normalizes a slice; the result is never nil.
func (n *Normalizer) Tasks(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, n.Task(t))
	}
	return out
}

// Day builds a day record from stored task values, recomputing the total.
func (n *Normalizer) Day(date string, raw []json.RawMessage) DayRecord {
	tasks := make([]Task, 0, len(raw))
	for _, r := range raw {
		tasks = append(tasks, n.Raw(r))
	}
	return NewDay(date, tasks)
}

// Minted is the number of ids generated so far.
func (n *Normalizer) Minted() int { return n.minted }

// NewDay assembles a day record and its merged total.
func NewDay(date string, tasks []Task) DayRecord {
	if tasks == nil {
		tasks = []Task{}
	}
	return DayRecord{Date: date, Tasks: tasks, TotalHours: DayHours(tasks)}
}

// DecodeMonthPayload reads a month payload whose tasks may be in any
// stored shape. Day keys are kept as given; callers filter them.
func DecodeMonthPayload(data []byte, n *Normalizer) (Month, error) {
	var days map[string]json.RawMessage
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("decode month payload: %w", err)
	}
	m := make(Month, len(days))
	for date, raw := range days {
		m[date] = n.Day(date, DayTasks(raw))
	}
	return m, nil
}

// DayTasks extracts the raw task list of a stored day object. A day
// without a readable "tasks" array has no tasks.
func DayTasks(raw json.RawMessage) []json.RawMessage {
	var day struct {
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &day); err != nil {
		return nil
	}
	var tasks []json.RawMessage
	if err := json.Unmarshal(day.Tasks, &tasks); err != nil {
		return nil
	}
	return tasks
}
