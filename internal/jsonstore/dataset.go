package jsonstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/sadopc/worklog/internal/record"
)

// Bucket is everything stored under one client key of a user: month key
// to date key to the raw task values of that day.
type Bucket struct {
	ClientKey string
	Months    map[string]map[string][]json.RawMessage
}

// MonthKeys returns the month keys in order.
func (b Bucket) MonthKeys() []string {
	return sortedKeys(b.Months)
}

// Dataset is the part of the document belonging to one user, with
// artifact keys removed.
type Dataset struct {
	Buckets []Bucket
	// Skipped lists the paths of keys that were not month or date keys.
	Skipped []string
}

// LoadUser reads the data of userID. Keys that do not look like months or
// dates at their level are recorded in Skipped and otherwise ignored.
func (s *Store) LoadUser(ctx context.Context, userID int64) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	doc, err := s.loadLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	un := doc.child(idKey(userID))
	for _, client := range sortedKeys(un) {
		cn := un.child(client)
		b := Bucket{ClientKey: client, Months: map[string]map[string][]json.RawMessage{}}
		for month := range cn {
			if !record.IsMonthKey(month) {
				ds.Skipped = append(ds.Skipped, client+"/"+month)
				continue
			}
			days := map[string][]json.RawMessage{}
			for date, raw := range cn.child(month) {
				if !record.InMonth(date, month) {
					ds.Skipped = append(ds.Skipped, client+"/"+month+"/"+date)
					continue
				}
				days[date] = record.DayTasks(raw)
			}
			b.Months[month] = days
		}
		ds.Buckets = append(ds.Buckets, b)
	}
	sort.Strings(ds.Skipped)
	return ds, nil
}

// ClientKeys lists the client keys found under userID.
func (s *Store) ClientKeys(ctx context.Context, userID int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.child(idKey(userID))), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
