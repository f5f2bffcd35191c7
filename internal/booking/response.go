package booking

import (
	"encoding/json"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// Outcome tells which of the response variants a Response carries
type Outcome int

const (
	OutcomeAvailable Outcome = iota
	OutcomeSlotOccupied
	OutcomeBooked
	OutcomeValidationError
	OutcomeServiceNotFound
)

const (
	ReasonSlotOccupied    = "slot_occupied"
	ReasonValidationError = "validation_error"
	ReasonServiceNotFound = "service_not_found"
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAvailable:
		return "available"
	case OutcomeSlotOccupied:
		return ReasonSlotOccupied
	case OutcomeBooked:
		return "booked"
	case OutcomeValidationError:
		return ReasonValidationError
	case OutcomeServiceNotFound:
		return ReasonServiceNotFound
	}
	return "unknown"
}

// Response is exactly one of: available, slot occupied with suggestions,
// booked, validation error or service not found.
type Response struct {
	Outcome     Outcome
	Suggestions []time.Time
	Appointment *domain.Appointment
	Detail      string
}

func (r Response) OK() bool {
	return r.Outcome == OutcomeAvailable || r.Outcome == OutcomeBooked
}

// SuggestionClocks returns the suggested start times as HH:MM
func (r Response) SuggestionClocks() []string {
	out := make([]string, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		out = append(out, s.Format(domain.ClockLayout))
	}
	return out
}

// Start and End are local ISO instants of a booked appointment
func (r Response) Start() string {
	if r.Appointment == nil {
		return ""
	}
	return r.Appointment.StartsAt.Format(domain.InstantLayout)
}

func (r Response) End() string {
	if r.Appointment == nil {
		return ""
	}
	return r.Appointment.EndsAt(r.Appointment.Duration).Format(domain.InstantLayout)
}

type wireResponse struct {
	OK          bool     `json:"ok"`
	Reason      string   `json:"reason,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	CitaID      int64    `json:"cita_id,omitempty"`
	Inicio      string   `json:"inicio,omitempty"`
	Fin         string   `json:"fin,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Outcome {
	case OutcomeAvailable:
		return json.Marshal(wireResponse{OK: true})
	case OutcomeSlotOccupied:
		// suggestions is always present, possibly empty
		return json.Marshal(struct {
			OK          bool     `json:"ok"`
			Reason      string   `json:"reason"`
			Suggestions []string `json:"suggestions"`
		}{false, ReasonSlotOccupied, r.SuggestionClocks()})
	case OutcomeBooked:
		w := wireResponse{OK: true, Inicio: r.Start(), Fin: r.End()}
		if r.Appointment != nil {
			w.CitaID = r.Appointment.ID
		}
		return json.Marshal(w)
	default:
		return json.Marshal(wireResponse{OK: false, Reason: r.Outcome.String(), Detail: r.Detail})
	}
}
