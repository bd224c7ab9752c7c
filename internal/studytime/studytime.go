// Package studytime holds the arithmetic shared by every timer, leaderboard and
// profile view: live elapsed seconds, ranking by live seconds, and the New York
// calendar day used to bucket daily totals.
package studytime

import (
	"sort"
	"time"
	_ "time/tzdata"
)

const zoneName = "America/New_York"

var newYork = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Location returns the zone daily totals are bucketed in.
func Location() *time.Location {
	return newYork
}

// Elapsed returns whole seconds between startedAt and now, never negative.
func Elapsed(startedAt, now time.Time) int {
	d := now.Sub(startedAt)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// LiveSeconds is the banked total plus the running session, if any.
func LiveSeconds(base int, startedAt *time.Time, isActive bool, now time.Time) int {
	if !isActive || startedAt == nil {
		return base
	}
	return base + Elapsed(*startedAt, now)
}

// Snapshot is what a read endpoint knows about one user at poll time.
type Snapshot struct {
	Base      int
	StartedAt *time.Time
	IsActive  bool
}

func (s Snapshot) Live(now time.Time) int {
	return LiveSeconds(s.Base, s.StartedAt, s.IsActive, now)
}

type Ranked[T any] struct {
	Item T
	Rank int
	Live int
}

// Rank orders items by live seconds, highest first. Ties keep input order.
// Ranks start at offset+1 so paged results continue the previous page.
func Rank[T any](items []T, now time.Time, offset int, snapshot func(T) Snapshot) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		ranked[i] = Ranked[T]{Item: item, Live: snapshot(item).Live(now)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Live > ranked[j].Live
	})

	for i := range ranked {
		ranked[i].Rank = offset + i + 1
	}
	return ranked
}

// Day returns the New York calendar date containing t, shifted by offsetDays,
// as midnight UTC. This is the key stored in daily_stats.date.
func Day(t time.Time, offsetDays int) time.Time {
	y, m, d := t.In(newYork).Date()
	return time.Date(y, m, d+offsetDays, 0, 0, 0, 0, time.UTC)
}

// DayStart returns the instant New York midnight begins the day containing t,
// shifted by offsetDays.
func DayStart(t time.Time, offsetDays int) time.Time {
	y, m, d := t.In(newYork).Date()
	return time.Date(y, m, d+offsetDays, 0, 0, 0, 0, newYork)
}

// FormatDay renders a day key as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format("2006-01-02")
}

// CurrentStreak counts consecutive study days ending today or yesterday.
// dates must be day keys (see Day) sorted newest first without duplicates.
func CurrentStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	yesterday := today.AddDate(0, 0, -1)
	first := dates[0]
	if !sameDay(first, today) && !sameDay(first, yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(dates); i++ {
		expected := dates[i-1].AddDate(0, 0, -1)
		if !sameDay(dates[i], expected) {
			break
		}
		streak++
	}
	return streak
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
