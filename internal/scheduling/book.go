package scheduling

import (
	"context"
	"fmt"

	"github.com/tazhate/olivabot/internal/domain"
	"go.uber.org/zap"
)

// Book validates the slot once more and stages the appointment. The caller
// owns the transaction and decides whether to commit.
func (e *Engine) Book(ctx context.Context, store Store, customerID int64, slot Slot) (*domain.Appointment, error) {
	svc, err := e.resolveService(ctx, store, slot.Service)
	if err != nil {
		return nil, err
	}

	ok, err := e.IsAvailable(ctx, store, Slot{EmployeeID: slot.EmployeeID, Start: slot.Start, Service: LoadedService(svc)})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotOccupied
	}

	appt := &domain.Appointment{
		CustomerID: customerID,
		ServiceID:  svc.ID,
		EmployeeID: slot.EmployeeID,
		StartsAt:   slot.Start,
		Duration:   svc.EffectiveDuration(),
	}
	if err := store.InsertAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	e.logger.Info("appointment staged",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("employee_id", appt.EmployeeID),
		zap.Int64("service_id", appt.ServiceID),
		zap.String("start", appt.StartsAt.Format(domain.InstantLayout)))
	return appt, nil
}
