package scheduling

import (
	"context"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// Store is the data access the engine needs. Implementations are scoped to
// one request (usually a database transaction).
type Store interface {
	// GetService returns nil, nil when the service does not exist
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	// ListAppointments returns every appointment of the employee on the given day.
	// Appointment.Duration carries the appointment's own service duration.
	ListAppointments(ctx context.Context, employeeID int64, day time.Time) ([]*domain.Appointment, error)
	// InsertAppointment stages the appointment and sets its ID
	InsertAppointment(ctx context.Context, appt *domain.Appointment) error
}

// ServiceRef points at a service either by id or by an already loaded record
type ServiceRef struct {
	ID      int64
	Service *domain.Service
}

func ServiceByID(id int64) ServiceRef {
	return ServiceRef{ID: id}
}

func LoadedService(s *domain.Service) ServiceRef {
	return ServiceRef{ID: s.ID, Service: s}
}

// Slot is a candidate (date, start time, employee, service)
type Slot struct {
	EmployeeID int64
	Start      time.Time
	Service    ServiceRef
}
