package record

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	minTaskID         = 100000
	taskIDSpan        = 900000
	maxRandomAttempts = 500
)

// IDSet is a set of task ids already in use.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// IDGenerator mints decimal task ids of six or more digits. It keeps no
// state of its own; uniqueness is checked against the set passed in.
type IDGenerator struct {
	intN func(n int) int
	now  func() time.Time
}

// NewIDGenerator returns a generator backed by math/rand/v2 and the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{intN: rand.IntN, now: time.Now}
}

// NewIDGeneratorWith lets tests pin the random and clock sources.
func NewIDGeneratorWith(intN func(n int) int, now func() time.Time) *IDGenerator {
	return &IDGenerator{intN: intN, now: now}
}

// Generate returns an id not present in existing. It tries uniform random
// six-digit values first, then falls back to a clock-derived value probed
// linearly. The probe widens to seven digits (and so on) once a width is
// exhausted, so it always terminates.
func (g *IDGenerator) Generate(existing IDSet) string {
	for i := 0; i < maxRandomAttempts; i++ {
		id := strconv.Itoa(minTaskID + g.intN(taskIDSpan))
		if !existing.Has(id) {
			return id
		}
	}
	return g.probe(existing)
}

// Next generates an id and records it in seen.
func (g *IDGenerator) Next(seen IDSet) string {
	id := g.Generate(seen)
	seen.Add(id)
	return id
}

func (g *IDGenerator) probe(existing IDSet) string {
	lo, span := minTaskID, taskIDSpan
	for {
		offset := int(g.now().UnixMilli() % int64(span))
		if offset < 0 {
			offset += span
		}
		for k := 0; k < span; k++ {
			id := strconv.Itoa(lo + (offset+k)%span)
			if !existing.Has(id) {
				return id
			}
		}
		lo *= 10
		span *= 10
	}
}
