package domain

import "time"

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	ClockLayoutSec = "15:04:05"
	// InstantLayout is the local ISO-8601 form used in booking responses
	InstantLayout = "2006-01-02T15:04:05"
)

// Appointment is a booked slot: one customer, one service, one employee
type Appointment struct {
	ID         int64
	CustomerID int64
	ServiceID  int64
	EmployeeID int64
	StartsAt   time.Time // date and start time in the salon timezone
	// Duration in minutes of the appointment's own service, filled by listing queries.
	// Zero when the service is unknown.
	Duration    int
	CalendarUID string
	RemindedAt  *time.Time
	CreatedAt   time.Time

	// Display fields filled by agenda queries
	CustomerName       string
	CustomerTelegramID *int64
	ServiceName        string
	EmployeeName       string
}

// EndsAt returns the end of the appointment given its duration in minutes
func (a *Appointment) EndsAt(minutes int) time.Time {
	return a.StartsAt.Add(time.Duration(minutes) * time.Minute)
}

// Date returns the appointment date as YYYY-MM-DD
func (a *Appointment) Date() string {
	return a.StartsAt.Format(DateLayout)
}

// Clock returns the start time as HH:MM:SS
func (a *Appointment) Clock() string {
	return a.StartsAt.Format(ClockLayoutSec)
}

// Day truncates t to midnight in its own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At combines a calendar day with a clock time (hours/minutes/seconds of clock)
func At(day time.Time, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}
