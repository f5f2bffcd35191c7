package scheduling

import (
	"context"
	"fmt"

	"github.com/tazhate/olivabot/internal/domain"
	"go.uber.org/zap"
)

// IsAvailable reports whether the employee is free for the whole service
// duration starting at slot.Start.
func (e *Engine) IsAvailable(ctx context.Context, store Store, slot Slot) (bool, error) {
	svc, err := e.resolveService(ctx, store, slot.Service)
	if err != nil {
		return false, err
	}

	start := slot.Start
	end := start.Add(svc.Length())

	existing, err := store.ListAppointments(ctx, slot.EmployeeID, domain.Day(start))
	if err != nil {
		return false, fmt.Errorf("list appointments: %w", err)
	}

	for _, appt := range existing {
		// Appointments whose service is gone are measured with the candidate service
		minutes := appt.Duration
		if minutes <= 0 {
			minutes = svc.EffectiveDuration()
		}
		if Overlaps(start, end, appt.StartsAt, appt.EndsAt(minutes)) {
			e.logger.Debug("slot overlaps appointment",
				zap.Int64("employee_id", slot.EmployeeID),
				zap.Int64("appointment_id", appt.ID),
				zap.Time("start", start))
			return false, nil
		}
	}
	return true, nil
}
