package core

import (
	"testing"
	"time"
)

func TestDateOf(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	est := time.FixedZone("EST", -5*60*60)
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
	}{
		{"utc", time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)},
		{"local midnight, positive offset", time.Date(2026, 10, 19, 0, 0, 0, 0, cest)},
		{"late evening, negative offset", time.Date(2026, 10, 19, 23, 0, 0, 0, est)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateOf(tt.t); !got.Equal(want) || got.Location() != time.UTC {
				t.Errorf("DateOf() = %v; want %v", got, want)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"same day", time.Date(2026, 10, 19, 9, 0, 0, 0, cest), true},
		{"same local day, previous UTC day", time.Date(2026, 10, 19, 0, 30, 0, 0, cest), true},
		{"next local day, same UTC day", time.Date(2026, 10, 20, 1, 0, 0, 0, cest), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDay(tt.t, day); got != tt.want {
				t.Errorf("SameDay(%v, %v) = %v; want %v", tt.t, day, got, tt.want)
			}
		})
	}
}
