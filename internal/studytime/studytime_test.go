package studytime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 90, Elapsed(start, start.Add(90*time.Second)))
	assert.Equal(t, 90, Elapsed(start, start.Add(90*time.Second+999*time.Millisecond)))
	assert.Equal(t, 0, Elapsed(start, start.Add(-5*time.Second)))
	assert.Equal(t, 0, Elapsed(start, start))
}

func TestLiveSeconds(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	now := start.Add(42 * time.Second)

	assert.Equal(t, 100, LiveSeconds(100, nil, false, now), "no session")
	assert.Equal(t, 100, LiveSeconds(100, ptr(start), false, now), "finished session")
	assert.Equal(t, 142, LiveSeconds(100, ptr(start), true, now), "active session")
	assert.Equal(t, 100, LiveSeconds(100, ptr(now.Add(time.Minute)), true, now), "clock skew")
}

func TestLiveSeconds_Monotonic(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	prev := -1
	for i := 0; i < 600; i += 7 {
		now := start.Add(time.Duration(i) * 333 * time.Millisecond)
		live := LiveSeconds(500, ptr(start), true, now)
		require.GreaterOrEqual(t, live, prev)
		prev = live
	}
}

type row struct {
	name string
	snap Snapshot
}

func TestRank_StableAndOffset(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	rows := []row{
		{"a", Snapshot{Base: 300}},
		{"b", Snapshot{Base: 500}},
		{"c", Snapshot{Base: 300}},
		{"d", Snapshot{Base: 100, StartedAt: ptr(now.Add(-250 * time.Second)), IsActive: true}},
	}

	ranked := Rank(rows, now, 100, func(r row) Snapshot { return r.snap })

	require.Len(t, ranked, 4)
	names := []string{ranked[0].Item.name, ranked[1].Item.name, ranked[2].Item.name, ranked[3].Item.name}
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
	assert.Equal(t, []int{101, 102, 103, 104}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank})
	assert.Equal(t, 350, ranked[1].Live)
}

func TestRank_FlipsWhenExtrapolationCrosses(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	rows := []row{
		{"leader", Snapshot{Base: 710}},
		{"chaser", Snapshot{Base: 700, StartedAt: ptr(t0), IsActive: true}},
	}
	snap := func(r row) Snapshot { return r.snap }

	before := Rank(rows, t0.Add(5*time.Second), 0, snap)
	assert.Equal(t, "leader", before[0].Item.name)

	tie := Rank(rows, t0.Add(10*time.Second), 0, snap)
	assert.Equal(t, "leader", tie[0].Item.name, "ties keep input order")

	after := Rank(rows, t0.Add(11*time.Second), 0, snap)
	assert.Equal(t, "chaser", after[0].Item.name)
	assert.Equal(t, 1, after[0].Rank)
	assert.Equal(t, 2, after[1].Rank)
}

func TestDay_UsesNewYorkCalendar(t *testing.T) {
	// 03:30 UTC on March 11 is still March 10 in New York (EDT, -04:00).
	instant := time.Date(2026, 3, 11, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-10", FormatDay(Day(instant, 0)))
	assert.Equal(t, "2026-03-09", FormatDay(Day(instant, -1)))
	assert.Equal(t, "2026-03-11", FormatDay(Day(instant, 1)))
	assert.Equal(t, time.UTC, Day(instant, 0).Location())
}

func TestDayStart(t *testing.T) {
	instant := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	start := DayStart(instant, 0)
	assert.True(t, start.Equal(time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC)), "EST midnight is 05:00 UTC, got %v", start.UTC())

	yesterday := DayStart(instant, -1)
	assert.Equal(t, 24*time.Hour, start.Sub(yesterday))
}

func TestCurrentStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return today.AddDate(0, 0, n) }

	tests := []struct {
		name     string
		dates    []time.Time
		expected int
	}{
		{"no history", nil, 0},
		{"studied today only", []time.Time{day(0)}, 1},
		{"run ending yesterday", []time.Time{day(-1), day(-2), day(-3)}, 3},
		{"run through today", []time.Time{day(0), day(-1), day(-2)}, 3},
		{"gap breaks run", []time.Time{day(0), day(-1), day(-3), day(-4)}, 2},
		{"last study two days ago", []time.Time{day(-2), day(-3)}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CurrentStreak(tc.dates, today))
		})
	}
}
