package caldav

import "time"

// Calendar is a calendar collection found on the server
type Calendar struct {
	Path        string
	DisplayName string
	Description string
}

// Event is a timed calendar event
type Event struct {
	UID         string // generated when empty
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// AlarmBefore adds a display alarm this long before Start; zero means none
	AlarmBefore time.Duration
}
