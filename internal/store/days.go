package store

import (
	"sort"
	"time"
)

// DayGroup is the run of entries sent on one calendar day.
type DayGroup struct {
	Day     time.Time // local midnight
	Entries []Entry
}

// GroupByDay buckets entries by calendar day in loc. Buckets are ordered by
// day and each bucket is sorted by timestamp; equal timestamps keep their
// list order.
func GroupByDay(entries []Entry, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Message.Timestamp.Before(sorted[j].Message.Timestamp)
	})

	var groups []DayGroup
	for _, e := range sorted {
		day := startOfDay(e.Message.Timestamp.In(loc))
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, DayGroup{Day: day, Entries: []Entry{e}})
	}
	return groups
}

// DayLabel names a day divider relative to now: "Today", "Yesterday", or
// the full date.
func DayLabel(day, now time.Time) string {
	today := startOfDay(now)
	d := startOfDay(day.In(now.Location()))
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return d.Format("Monday, January 2, 2006")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
