package scheduling

import (
	"context"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// NextFreeSlots probes slot.Start+step, slot.Start+2*step, ... and returns up
// to n start times that are available. The search stops at the end of
// business hours, or at midnight when no hours are configured.
func (e *Engine) NextFreeSlots(ctx context.Context, store Store, slot Slot, n int, step time.Duration) ([]time.Time, error) {
	if n <= 0 || step <= 0 {
		return nil, nil
	}

	svc, err := e.resolveService(ctx, store, slot.Service)
	if err != nil {
		return nil, err
	}
	probe := Slot{EmployeeID: slot.EmployeeID, Service: LoadedService(svc)}

	_, closing := e.hours.Window(slot.Start)
	day := domain.Day(slot.Start)

	var free []time.Time
	for t := slot.Start.Add(step); len(free) < n; t = t.Add(step) {
		if !domain.Day(t).Equal(day) || t.Add(svc.Length()).After(closing) {
			break
		}
		probe.Start = t
		ok, err := e.IsAvailable(ctx, store, probe)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, t)
		}
	}
	return free, nil
}
