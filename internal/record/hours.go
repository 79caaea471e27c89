package record

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Range is a half-open time range in minutes since midnight.
type Range struct {
	Start int
	End   int
}

// TotalCoveredMinutes returns the length of the union of ranges. Ranges
// with End <= Start are ignored; touching ranges merge.
func TotalCoveredMinutes(ranges []Range) int {
	valid := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.End > r.Start {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return 0
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	total := 0
	cur := valid[0]
	for _, r := range valid[1:] {
		if r.Start <= cur.End {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		total += cur.End - cur.Start
		cur = r
	}
	return total + cur.End - cur.Start
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are dropped.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	if h == 24 && m != 0 {
		return 0, false
	}
	return h*60 + m, true
}

// TaskRanges converts the parsable task times into ranges.
func TaskRanges(tasks []Task) []Range {
	ranges := make([]Range, 0, len(tasks))
	for _, t := range tasks {
		start, ok1 := ParseClock(t.StartTime)
		end, ok2 := ParseClock(t.EndTime)
		if !ok1 || !ok2 {
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// DayMinutes is the overlap-aware worked time of a day's tasks.
func DayMinutes(tasks []Task) int {
	return TotalCoveredMinutes(TaskRanges(tasks))
}

// DayHours is DayMinutes in hours, rounded to two decimals.
func DayHours(tasks []Task) float64 {
	return minutesToHours(DayMinutes(tasks))
}

// MonthHours sums the merged minutes of every day in m.
func MonthHours(m Month) float64 {
	total := 0
	for _, d := range m {
		total += DayMinutes(d.Tasks)
	}
	return minutesToHours(total)
}

func minutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
