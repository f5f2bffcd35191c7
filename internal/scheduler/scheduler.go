package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/service"
	"go.uber.org/zap"
)

// reminderSpec is how often upcoming appointments are checked
const reminderSpec = "*/5 * * * *"

const jobTimeout = time.Minute

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	agenda *service.AgendaService
	sender MessageSender
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg *config.Config, agenda *service.AgendaService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(cfg.Timezone)),
		cfg:    cfg,
		agenda: agenda,
		logger: logger.Named("scheduler"),
		now:    time.Now,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// dailySpec turns "HH:MM" into a cron spec firing once a day
func dailySpec(clock string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Start registers the jobs and blocks until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.OwnerTelegramID != 0 {
		spec, err := dailySpec(s.cfg.MorningTime)
		if err != nil {
			return fmt.Errorf("morning agenda: %w", err)
		}
		if _, err := s.cron.AddFunc(spec, func() { s.run(ctx, s.morningAgenda) }); err != nil {
			return fmt.Errorf("add morning agenda: %w", err)
		}
	}

	if s.cfg.ReminderBeforeMinutes > 0 {
		if _, err := s.cron.AddFunc(reminderSpec, func() { s.run(ctx, s.sendReminders) }); err != nil {
			return fmt.Errorf("add reminder check: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("tz", s.cfg.Timezone.String()),
		zap.String("morning", s.cfg.MorningTime),
		zap.Int("reminder_before_min", s.cfg.ReminderBeforeMinutes))

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, job func(context.Context, time.Time)) {
	if s.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
	defer cancel()
	job(ctx, s.now())
}

// morningAgenda sends the owner today's appointments
func (s *Scheduler) morningAgenda(ctx context.Context, now time.Time) {
	day := now.In(s.cfg.Timezone)
	appts, err := s.agenda.Day(ctx, day)
	if err != nil {
		s.logger.Error("morning agenda failed", zap.Error(err))
		return
	}

	text := "☀️ <b>Buenos días</b>\n\n" + s.agenda.FormatDayAgenda(day, appts)
	if err := s.sender.SendMessage(s.cfg.OwnerTelegramID, text); err != nil {
		s.logger.Error("send morning agenda", zap.Int64("chat_id", s.cfg.OwnerTelegramID), zap.Error(err))
	}
}

// sendReminders notifies customers whose appointment starts within the lead time.
// An appointment is marked only after its reminder was delivered.
func (s *Scheduler) sendReminders(ctx context.Context, now time.Time) {
	due, err := s.agenda.DueReminders(ctx, now, s.cfg.ReminderLead())
	if err != nil {
		s.logger.Error("due reminders failed", zap.Error(err))
		return
	}

	for _, a := range due {
		if a.CustomerTelegramID == nil {
			continue
		}
		chatID := *a.CustomerTelegramID
		if err := s.sender.SendMessage(chatID, s.agenda.FormatReminder(a, now)); err != nil {
			s.logger.Warn("send reminder", zap.Int64("appointment_id", a.ID), zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		if err := s.agenda.MarkReminded(ctx, a.ID, now); err != nil {
			s.logger.Error("mark reminded", zap.Int64("appointment_id", a.ID), zap.Error(err))
		}
		s.logger.Info("reminder sent", zap.Int64("appointment_id", a.ID))
	}
}
