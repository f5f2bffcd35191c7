package scheduling

import (
	"fmt"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// BusinessHours is the daily window, as offsets from midnight, in which
// suggested slots must fit. The zero value means the whole day.
type BusinessHours struct {
	Open  time.Duration
	Close time.Duration
}

// ParseBusinessHours parses "HH:MM" opening and closing times
func ParseBusinessHours(open, close string) (BusinessHours, error) {
	o, err := parseOffset(open)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("parse opening time: %w", err)
	}
	c, err := parseOffset(close)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("parse closing time: %w", err)
	}
	if c <= o {
		return BusinessHours{}, fmt.Errorf("closing time %s must be after opening time %s", close, open)
	}
	return BusinessHours{Open: o, Close: c}, nil
}

func parseOffset(s string) (time.Duration, error) {
	t, err := time.Parse(domain.ClockLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Window returns the opening and closing instants for the day of t
func (h BusinessHours) Window(t time.Time) (time.Time, time.Time) {
	day := domain.Day(t)
	if h.Close == 0 {
		return day, day.AddDate(0, 0, 1)
	}
	return day.Add(h.Open), day.Add(h.Close)
}
