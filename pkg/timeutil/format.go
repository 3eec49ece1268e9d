// Package timeutil provides time formatting utilities for Arbor.
//
// Cache timestamps are stored as Unix nanoseconds (int64). This package
// converts them for cache listings and the navigator's status line.
package timeutil

import (
	"fmt"
	"time"
)

// NowNano returns the current time as Unix nanoseconds.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// Stamp formats a Unix nanosecond timestamp as "2006-01-02 15:04:05".
func Stamp(ns int64) string {
	return time.Unix(0, ns).Format("2006-01-02 15:04:05")
}

// Elapsed formats a duration compactly: "450ms", "1.2s", "2m 15.3s".
func Elapsed(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := int(seconds / 60)
	return fmt.Sprintf("%dm %.1fs", minutes, seconds-float64(minutes*60))
}

// Age returns how long ago ns was: "just now", "5s ago", "2m ago", "3d ago".
func Age(ns int64) string {
	return ageAt(ns, time.Now())
}

func ageAt(ns int64, now time.Time) string {
	diff := now.Sub(time.Unix(0, ns))

	switch {
	case diff < time.Second:
		return "just now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// Fresh reports whether a timestamp is younger than ttl. A non-positive
// ttl never expires.
func Fresh(ns int64, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return time.Since(time.Unix(0, ns)) < ttl
}
