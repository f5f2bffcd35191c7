package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// AgendaStore is the read side of the appointments table
type AgendaStore interface {
	ListAppointmentsByDate(ctx context.Context, day time.Time) ([]*domain.Appointment, error)
	ListCustomerAppointments(ctx context.Context, customerID int64, from time.Time) ([]*domain.Appointment, error)
	ListDueReminders(ctx context.Context, from, to time.Time) ([]*domain.Appointment, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

type AgendaService struct {
	store AgendaStore
	loc   *time.Location
}

func NewAgendaService(store AgendaStore, loc *time.Location) *AgendaService {
	if loc == nil {
		loc = time.Local
	}
	return &AgendaService{store: store, loc: loc}
}

func (s *AgendaService) Day(ctx context.Context, day time.Time) ([]*domain.Appointment, error) {
	appts, err := s.store.ListAppointmentsByDate(ctx, day.In(s.loc))
	if err != nil {
		return nil, fmt.Errorf("list agenda: %w", err)
	}
	return appts, nil
}

// Upcoming returns the customer's appointments that have not started yet
func (s *AgendaService) Upcoming(ctx context.Context, customerID int64, now time.Time) ([]*domain.Appointment, error) {
	now = now.In(s.loc)
	appts, err := s.store.ListCustomerAppointments(ctx, customerID, domain.Day(now))
	if err != nil {
		return nil, fmt.Errorf("list customer appointments: %w", err)
	}
	upcoming := appts[:0]
	for _, a := range appts {
		if !a.StartsAt.Before(now) {
			upcoming = append(upcoming, a)
		}
	}
	return upcoming, nil
}

// DueReminders returns appointments starting within lead from now
func (s *AgendaService) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*domain.Appointment, error) {
	now = now.In(s.loc)
	return s.store.ListDueReminders(ctx, now, now.Add(lead))
}

func (s *AgendaService) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	return s.store.MarkReminded(ctx, id, at)
}

// FormatDayAgenda renders the owner's morning agenda grouped by employee
func (s *AgendaService) FormatDayAgenda(day time.Time, appts []*domain.Appointment) string {
	day = day.In(s.loc)
	header := fmt.Sprintf("📅 <b>Agenda del %s, %s</b>\n", spanishWeekday(day.Weekday()), day.Format("02/01"))
	if len(appts) == 0 {
		return header + "\nSin citas para hoy."
	}

	byEmployee := make(map[string][]*domain.Appointment)
	var names []string
	for _, a := range appts {
		name := a.EmployeeName
		if name == "" {
			name = fmt.Sprintf("Empleado #%d", a.EmployeeID)
		}
		if _, ok := byEmployee[name]; !ok {
			names = append(names, name)
		}
		byEmployee[name] = append(byEmployee[name], a)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(fmt.Sprintf("%d citas\n", len(appts)))
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("\n👤 <b>%s</b>\n", name))
		for _, a := range byEmployee[name] {
			sb.WriteString(fmt.Sprintf("  %s %s · %s\n", timeRange(a), a.ServiceName, a.CustomerName))
		}
	}
	return sb.String()
}

// FormatCustomerAppointments renders "Mis citas" with a header per day
func (s *AgendaService) FormatCustomerAppointments(appts []*domain.Appointment) string {
	if len(appts) == 0 {
		return "No tienes citas próximas."
	}

	var sb strings.Builder
	var currentDate string
	for _, a := range appts {
		start := a.StartsAt.In(s.loc)
		date := start.Format("02/01")
		if date != currentDate {
			if currentDate != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("📅 %s, %s:\n", spanishWeekday(start.Weekday()), date))
			currentDate = date
		}
		line := fmt.Sprintf("  %s %s", timeRange(a), a.ServiceName)
		if a.EmployeeName != "" {
			line += " con " + a.EmployeeName
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (s *AgendaService) FormatReminder(a *domain.Appointment, now time.Time) string {
	start := a.StartsAt.In(s.loc)
	text := fmt.Sprintf("⏰ Recordatorio: tu cita de <b>%s</b> es hoy a las %s", a.ServiceName, start.Format(domain.ClockLayout))
	if !domain.Day(start).Equal(domain.Day(now.In(s.loc))) {
		text = fmt.Sprintf("⏰ Recordatorio: tu cita de <b>%s</b> es el %s a las %s", a.ServiceName, start.Format("02/01"), start.Format(domain.ClockLayout))
	}
	if a.EmployeeName != "" {
		text += " con " + a.EmployeeName
	}
	return text + "."
}

func timeRange(a *domain.Appointment) string {
	minutes := a.Duration
	if minutes <= 0 {
		minutes = domain.DefaultDuration
	}
	return a.StartsAt.Format(domain.ClockLayout) + "–" + a.EndsAt(minutes).Format(domain.ClockLayout)
}

func spanishWeekday(wd time.Weekday) string {
	days := []string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	return days[wd]
}
