package record

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSixDigits(t *testing.T) {
	g := NewIDGenerator()
	for i := 0; i < 1000; i++ {
		id := g.Generate(nil)
		require.Len(t, id, 6)
		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateAvoidsExisting(t *testing.T) {
	calls := 0
	// Random source keeps returning the same value until the fourth call.
	g := NewIDGeneratorWith(func(n int) int {
		calls++
		if calls < 4 {
			return 0
		}
		return 1
	}, time.Now)

	id := g.Generate(NewIDSet("100000"))
	assert.Equal(t, "100001", id)
	assert.Equal(t, 4, calls)
}

func TestGenerateFallsBackToClock(t *testing.T) {
	// 123456 ms past the epoch lands on offset 123456 -> 223456.
	now := func() time.Time { return time.UnixMilli(123456) }
	g := NewIDGeneratorWith(func(int) int { return 0 }, now)

	existing := NewIDSet("100000", "223456", "223457")
	assert.Equal(t, "223458", g.Generate(existing))
}

func TestGenerateUniqueAcrossLargeSet(t *testing.T) {
	if testing.Short() {
		t.Skip("fills 800k ids")
	}
	g := NewIDGenerator()
	seen := IDSet{}
	for i := 0; i < 800000; i++ {
		id := g.Next(seen)
		require.Lenf(t, seen, i+1, "duplicate id %s after %d ids", id, i)
	}
}

func TestGenerateWidensWhenSpaceExhausted(t *testing.T) {
	if testing.Short() {
		t.Skip("fills the whole six-digit space")
	}
	seen := make(IDSet, taskIDSpan)
	for n := minTaskID; n < minTaskID+taskIDSpan; n++ {
		seen.Add(strconv.Itoa(n))
	}
	g := NewIDGenerator()
	id := g.Generate(seen)
	assert.Len(t, id, 7)
	assert.False(t, seen.Has(id))
}

func TestIDSetIgnoresEmpty(t *testing.T) {
	s := NewIDSet("", "123456")
	assert.Len(t, s, 1)
	assert.True(t, s.Has("123456"))
}
