package domain

import (
	"testing"
	"time"
)

func TestEffectiveDuration(t *testing.T) {
	tests := []struct {
		name string
		min  *int
		max  *int
		want int
	}{
		{"max wins", IntPtr(60), IntPtr(90), 90},
		{"min only", IntPtr(30), nil, 30},
		{"none", nil, nil, DefaultDuration},
		{"zero max falls back to min", IntPtr(45), IntPtr(0), 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{DurationMin: tt.min, DurationMax: tt.max}
			if got := s.EffectiveDuration(); got != tt.want {
				t.Fatalf("EffectiveDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	clock, _ := time.Parse(ClockLayout, "10:30")
	got := At(day, clock)
	if got.Format(InstantLayout) != "2025-01-10T10:30:00" {
		t.Fatalf("At() = %s", got.Format(InstantLayout))
	}
}
