package scheduling

import (
	"context"
	"fmt"

	"github.com/tazhate/olivabot/internal/domain"
	"go.uber.org/zap"
)

// Engine answers availability questions and books appointments.
// It holds no per-request state; the Store passed to each call does.
type Engine struct {
	hours  BusinessHours
	logger *zap.Logger
}

func NewEngine(hours BusinessHours, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{hours: hours, logger: logger}
}

func (e *Engine) resolveService(ctx context.Context, store Store, ref ServiceRef) (*domain.Service, error) {
	if ref.Service != nil {
		return ref.Service, nil
	}
	svc, err := store.GetService(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", ref.ID, err)
	}
	if svc == nil || !svc.Active {
		return nil, fmt.Errorf("%w: %d", ErrServiceNotFound, ref.ID)
	}
	return svc, nil
}
