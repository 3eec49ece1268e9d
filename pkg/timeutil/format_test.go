package timeutil

import (
	"testing"
	"time"
)

func TestElapsed(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{1200 * time.Millisecond, "1.2s"},
		{135300 * time.Millisecond, "2m 15.3s"},
	}
	for _, tc := range cases {
		if got := Elapsed(tc.in); got != tc.want {
			t.Errorf("Elapsed(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{5 * time.Second, "5s ago"},
		{2 * time.Minute, "2m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := ageAt(now.Add(-tc.ago).UnixNano(), now); got != tc.want {
			t.Errorf("age of %v=%q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestFresh(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour).UnixNano()
	if Fresh(old, time.Hour) {
		t.Error("two-hour-old entry should be stale with a one-hour ttl")
	}
	if !Fresh(old, 0) {
		t.Error("zero ttl should never expire")
	}
	if !Fresh(NowNano(), time.Minute) {
		t.Error("current entry should be fresh")
	}
}
