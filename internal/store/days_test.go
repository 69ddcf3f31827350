package store

import (
	"testing"
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

func entryAt(id types.ID, at time.Time) Entry {
	return Entry{Message: types.Message{ID: id, Timestamp: at}, Status: Confirmed}
}

func TestGroupByDayThreeDays(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, loc) }

	entries := []Entry{
		entryAt("c2", day(12, 18)),
		entryAt("a1", day(10, 9)),
		entryAt("b1", day(11, 8)),
		entryAt("c1", day(12, 7)),
		entryAt("a2", day(10, 23)),
	}
	groups := GroupByDay(entries, loc)
	if len(groups) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(groups))
	}
	want := [][]types.ID{{"a1", "a2"}, {"b1"}, {"c1", "c2"}}
	for i, g := range groups {
		if i > 0 && !groups[i-1].Day.Before(g.Day) {
			t.Fatalf("buckets out of order at %d", i)
		}
		if len(g.Entries) != len(want[i]) {
			t.Fatalf("bucket %d: expected %v", i, want[i])
		}
		for j, e := range g.Entries {
			if e.Message.ID != want[i][j] {
				t.Fatalf("bucket %d entry %d: got %s want %s", i, j, e.Message.ID, want[i][j])
			}
		}
	}
}

func TestGroupByDayUsesViewerZone(t *testing.T) {
	// 03:00 UTC is still the previous evening in UTC-5.
	at := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	groups := GroupByDay([]Entry{entryAt("m1", at)}, time.FixedZone("EST", -5*3600))
	if got := groups[0].Day.Day(); got != 10 {
		t.Fatalf("expected day 10, got %d", got)
	}
}

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		day  time.Time
		want string
	}{
		{day: time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC), want: "Today"},
		{day: time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC), want: "Yesterday"},
		{day: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), want: "Tuesday, March 10, 2026"},
	}
	for _, tc := range cases {
		if got := DayLabel(tc.day, now); got != tc.want {
			t.Fatalf("DayLabel(%s): got %q want %q", tc.day, got, tc.want)
		}
	}
}
