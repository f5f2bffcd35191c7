package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// Tx is a request-scoped session over one database transaction.
// It implements scheduling.Store.
type Tx struct {
	tx *sql.Tx
	s  *Storage
}

// Begin opens a write transaction. Callers defer Rollback and Commit on success;
// Rollback after Commit is a no-op.
func (s *Storage) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx, s: s}, nil
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (t *Tx) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	return getService(ctx, t.tx, id)
}

// ListAppointments returns all appointments of the employee on day with the
// duration of each appointment's own service (0 when the service is gone).
func (t *Tx) ListAppointments(ctx context.Context, employeeID int64, day time.Time) ([]*domain.Appointment, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT c.id, c.cliente_id, c.servicio_id, c.empleado_id, c.date, c.start_time, COALESCE(c.calendar_uid, ''), c.created_at,
			CASE
				WHEN s.id IS NULL THEN 0
				WHEN s.duracion_max > 0 THEN s.duracion_max
				WHEN s.duracion_min > 0 THEN s.duracion_min
				ELSE ?
			END
		 FROM citas_oliva c
		 LEFT JOIN servicios_oliva s ON s.id = c.servicio_id
		 WHERE c.empleado_id = ? AND c.date = ?
		 ORDER BY c.start_time`,
		domain.DefaultDuration, employeeID, day.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*domain.Appointment
	for rows.Next() {
		a := &domain.Appointment{}
		var date, clock string
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.ServiceID, &a.EmployeeID, &date, &clock, &a.CalendarUID, &a.CreatedAt, &a.Duration); err != nil {
			return nil, err
		}
		if a.StartsAt, err = t.s.parseStart(date, clock); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// InsertAppointment stages the row; a concurrent booking of the same
// (date, start_time, employee) fails with an error IsConflict recognizes.
func (t *Tx) InsertAppointment(ctx context.Context, a *domain.Appointment) error {
	start := a.StartsAt
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO citas_oliva (cliente_id, servicio_id, empleado_id, date, start_time, calendar_uid)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.CustomerID, a.ServiceID, a.EmployeeID, start.Format(domain.DateLayout), start.Format(domain.ClockLayoutSec), a.CalendarUID,
	)
	if err != nil {
		return err
	}
	a.ID, _ = res.LastInsertId()
	a.CreatedAt = time.Now()
	return nil
}
