package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/olivabot/internal/domain"
	"github.com/tazhate/olivabot/internal/scheduling"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultSuggestions = 3
	DefaultStep        = 30 * time.Minute
)

// Session is a request-scoped store with a transaction boundary
type Session interface {
	scheduling.Store
	Commit() error
	Rollback() error
}

// SessionFactory opens one session per request
type SessionFactory func(ctx context.Context) (Session, error)

// StorageSessions opens sessions as SQLite transactions
func StorageSessions(s *storage.Storage) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		tx, err := s.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// Listener is notified after a booking has been committed
type Listener interface {
	AppointmentBooked(ctx context.Context, appt *domain.Appointment)
}

type Options struct {
	Suggestions int
	Step        time.Duration
	Location    *time.Location
}

type Handler struct {
	engine      *scheduling.Engine
	sessions    SessionFactory
	extractor   Extractor
	listeners   []Listener
	suggestions int
	step        time.Duration
	loc         *time.Location
	logger      *zap.Logger
}

func NewHandler(engine *scheduling.Engine, sessions SessionFactory, extractor Extractor, opts Options, logger *zap.Logger) *Handler {
	if opts.Suggestions <= 0 {
		opts.Suggestions = DefaultSuggestions
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:      engine,
		sessions:    sessions,
		extractor:   extractor,
		suggestions: opts.Suggestions,
		step:        opts.Step,
		loc:         opts.Location,
		logger:      logger,
	}
}

func (h *Handler) AddListener(l Listener) {
	h.listeners = append(h.listeners, l)
}

// CheckAvailability answers whether the slot is free, with suggestions when it is not
func (h *Handler) CheckAvailability(ctx context.Context, req Request) (Response, error) {
	log := h.logger.With(zap.String("request_id", uuid.NewString()), zap.String("op", "check_availability"))

	p, err := h.parse(ctx, req, false)
	if resp, ok := validationResponse(err); ok {
		log.Debug("validation failed", zap.String("detail", resp.Detail))
		return resp, nil
	}
	if err != nil {
		return Response{}, err
	}

	sess, err := h.sessions(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	slot := scheduling.Slot{EmployeeID: p.employeeID, Start: p.start, Service: scheduling.ServiceByID(p.serviceID)}
	ok, err := h.engine.IsAvailable(ctx, sess, slot)
	if resp, handled := notFoundResponse(err); handled {
		return resp, nil
	}
	if err != nil {
		return Response{}, err
	}
	if ok {
		return Response{Outcome: OutcomeAvailable}, nil
	}

	log.Info("slot occupied", zap.Int64("employee_id", p.employeeID), zap.Time("start", p.start))
	return h.conflict(ctx, sess, slot)
}

// ProcessBooking books the slot or returns alternatives. The session is
// committed only when the appointment was created.
func (h *Handler) ProcessBooking(ctx context.Context, req Request) (Response, error) {
	log := h.logger.With(zap.String("request_id", uuid.NewString()), zap.String("op", "process_booking"))

	p, err := h.parse(ctx, req, true)
	if resp, ok := validationResponse(err); ok {
		log.Debug("validation failed", zap.String("detail", resp.Detail))
		return resp, nil
	}
	if err != nil {
		return Response{}, err
	}

	sess, err := h.sessions(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	slot := scheduling.Slot{EmployeeID: p.employeeID, Start: p.start, Service: scheduling.ServiceByID(p.serviceID)}
	ok, err := h.engine.IsAvailable(ctx, sess, slot)
	if resp, handled := notFoundResponse(err); handled {
		return resp, nil
	}
	if err != nil {
		return Response{}, err
	}
	if !ok {
		log.Info("slot occupied", zap.Int64("employee_id", p.employeeID), zap.Time("start", p.start))
		return h.conflict(ctx, sess, slot)
	}

	appt, err := h.engine.Book(ctx, sess, p.customerID, slot)
	if errors.Is(err, scheduling.ErrSlotOccupied) {
		return h.conflict(ctx, sess, slot)
	}
	if resp, handled := notFoundResponse(err); handled {
		return resp, nil
	}
	if err != nil {
		return Response{}, err
	}

	if err := sess.Commit(); err != nil {
		return Response{}, fmt.Errorf("commit booking: %w", err)
	}

	log.Info("appointment booked",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("customer_id", appt.CustomerID),
		zap.Int64("employee_id", appt.EmployeeID))

	for _, l := range h.listeners {
		l.AppointmentBooked(ctx, appt)
	}

	return Response{Outcome: OutcomeBooked, Appointment: appt}, nil
}

// conflict computes suggestions in the same session as the failed check
func (h *Handler) conflict(ctx context.Context, sess Session, slot scheduling.Slot) (Response, error) {
	free, err := h.engine.NextFreeSlots(ctx, sess, slot, h.suggestions, h.step)
	if err != nil {
		return Response{}, fmt.Errorf("next free slots: %w", err)
	}
	return Response{Outcome: OutcomeSlotOccupied, Suggestions: free}, nil
}

func validationResponse(err error) (Response, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Response{Outcome: OutcomeValidationError, Detail: ve.Detail}, true
	}
	return Response{}, false
}

func notFoundResponse(err error) (Response, bool) {
	if errors.Is(err, scheduling.ErrServiceNotFound) {
		return Response{Outcome: OutcomeServiceNotFound, Detail: err.Error()}, true
	}
	return Response{}, false
}
