package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhate/olivabot/internal/clients/caldav"
	"github.com/tazhate/olivabot/internal/domain"
	"go.uber.org/zap"
)

const pushTimeout = 20 * time.Second

// EventPublisher writes events to a remote calendar
type EventPublisher interface {
	IsConfigured() bool
	CreateEvent(ctx context.Context, calendarPath string, event *caldav.Event) error
}

// AppointmentStore is the slice of storage the calendar push needs
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error)
	SetCalendarUID(ctx context.Context, id int64, uid string) error
}

// CalendarService pushes committed appointments to the salon calendar
type CalendarService struct {
	appointments AppointmentStore
	publisher    EventPublisher
	calendarPath string
	alarmBefore  time.Duration
	location     string
	logger       *zap.Logger
}

func NewCalendarService(appts AppointmentStore, publisher EventPublisher, calendarPath string, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		appointments: appts,
		publisher:    publisher,
		calendarPath: calendarPath,
		alarmBefore:  30 * time.Minute,
		location:     "Oliva",
		logger:       logger.Named("calendar"),
	}
}

// IsConfigured returns true if the CalDAV client has credentials
func (s *CalendarService) IsConfigured() bool {
	return s.publisher != nil && s.publisher.IsConfigured()
}

// SetAlarm changes the display alarm lead time; zero disables it
func (s *CalendarService) SetAlarm(d time.Duration) {
	s.alarmBefore = d
}

// AppointmentBooked implements booking.Listener. Errors are logged, the booking stays.
func (s *CalendarService) AppointmentBooked(ctx context.Context, appt *domain.Appointment) {
	if !s.IsConfigured() {
		return
	}
	log := s.logger.With(zap.Int64("cita_id", appt.ID))

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	uid, err := s.Push(ctx, appt.ID)
	if err != nil {
		log.Warn("calendar push failed", zap.Error(err))
		return
	}
	log.Info("calendar event created", zap.String("uid", uid))
}

// Push creates the event for an appointment and stores its UID
func (s *CalendarService) Push(ctx context.Context, appointmentID int64) (string, error) {
	appt, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return "", fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return "", fmt.Errorf("appointment %d not found", appointmentID)
	}

	event := s.eventFor(appt)
	if err := s.publisher.CreateEvent(ctx, s.calendarPath, event); err != nil {
		return "", err
	}

	if err := s.appointments.SetCalendarUID(ctx, appt.ID, event.UID); err != nil {
		return event.UID, fmt.Errorf("save calendar uid: %w", err)
	}
	return event.UID, nil
}

func (s *CalendarService) eventFor(appt *domain.Appointment) *caldav.Event {
	minutes := appt.Duration
	if minutes <= 0 {
		minutes = domain.DefaultDuration
	}

	summary := fmt.Sprintf("%s con %s", appt.ServiceName, appt.CustomerName)
	description := ""
	if appt.EmployeeName != "" {
		description = "Atiende: " + appt.EmployeeName
	}

	return &caldav.Event{
		Summary:     summary,
		Description: description,
		Location:    s.location,
		Start:       appt.StartsAt,
		End:         appt.EndsAt(minutes),
		AlarmBefore: s.alarmBefore,
	}
}
