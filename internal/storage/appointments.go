package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

const agendaQuery = `SELECT c.id, c.cliente_id, c.servicio_id, c.empleado_id, c.date, c.start_time,
		COALESCE(c.calendar_uid, ''), c.reminded_at, c.created_at,
		COALESCE(cl.nombre, ''), cl.telegram_id, COALESCE(s.nombre, ''), COALESCE(p.nombre, ''),
		CASE
			WHEN s.id IS NULL THEN 0
			WHEN s.duracion_max > 0 THEN s.duracion_max
			WHEN s.duracion_min > 0 THEN s.duracion_min
			ELSE 60
		END
	FROM citas_oliva c
	LEFT JOIN clientes_oliva cl ON cl.id = c.cliente_id
	LEFT JOIN servicios_oliva s ON s.id = c.servicio_id
	LEFT JOIN personal_oliva p ON p.id = c.empleado_id`

func (s *Storage) listAgenda(ctx context.Context, where string, args ...any) ([]*domain.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, agendaQuery+` WHERE `+where+` ORDER BY c.date, c.start_time, p.nombre`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*domain.Appointment
	for rows.Next() {
		a := &domain.Appointment{}
		var date, clock string
		var tgID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.ServiceID, &a.EmployeeID, &date, &clock,
			&a.CalendarUID, &a.RemindedAt, &a.CreatedAt,
			&a.CustomerName, &tgID, &a.ServiceName, &a.EmployeeName, &a.Duration); err != nil {
			return nil, err
		}
		if a.StartsAt, err = s.parseStart(date, clock); err != nil {
			return nil, err
		}
		if tgID.Valid {
			id := tgID.Int64
			a.CustomerTelegramID = &id
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// ListAppointmentsByDate returns the salon agenda for a day, all employees
func (s *Storage) ListAppointmentsByDate(ctx context.Context, day time.Time) ([]*domain.Appointment, error) {
	return s.listAgenda(ctx, `c.date = ?`, day.Format(domain.DateLayout))
}

// ListCustomerAppointments returns the customer's appointments from the given day on
func (s *Storage) ListCustomerAppointments(ctx context.Context, customerID int64, from time.Time) ([]*domain.Appointment, error) {
	return s.listAgenda(ctx, `c.cliente_id = ? AND c.date >= ?`, customerID, from.Format(domain.DateLayout))
}

func (s *Storage) GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	appts, err := s.listAgenda(ctx, `c.id = ?`, id)
	if err != nil || len(appts) == 0 {
		return nil, err
	}
	return appts[0], nil
}

// ListDueReminders returns not yet reminded appointments of customers with a
// Telegram account that start in [from, to].
func (s *Storage) ListDueReminders(ctx context.Context, from, to time.Time) ([]*domain.Appointment, error) {
	appts, err := s.listAgenda(ctx,
		`c.reminded_at IS NULL AND cl.telegram_id IS NOT NULL AND c.date >= ? AND c.date <= ?`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}

	var due []*domain.Appointment
	for _, a := range appts {
		if !a.StartsAt.Before(from) && !a.StartsAt.After(to) {
			due = append(due, a)
		}
	}
	return due, nil
}

func (s *Storage) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE citas_oliva SET reminded_at = ? WHERE id = ?`, at, id)
	return err
}

func (s *Storage) SetCalendarUID(ctx context.Context, id int64, uid string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE citas_oliva SET calendar_uid = ? WHERE id = ?`, uid, id)
	return err
}
