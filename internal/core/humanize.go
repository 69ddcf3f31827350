package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rentnest/nestchat/internal/types"
)

// PresenceLabel renders presence for headers and lists.
func PresenceLabel(p types.Presence) string {
	if p.IsOnline {
		return "online"
	}
	if p.LastSeen == nil || p.LastSeen.IsZero() {
		return "offline"
	}
	return "last seen " + humanize.Time(*p.LastSeen)
}

// SizeLabel renders a byte count, e.g. "1.2 MB".
func SizeLabel(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

// DurationLabel renders a voice note length as m:ss.
func DurationLabel(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int((d%time.Minute)/time.Second))
}
