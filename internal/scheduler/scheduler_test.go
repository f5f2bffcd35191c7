package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/domain"
	"github.com/tazhate/olivabot/internal/service"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	msgs []sent
	fail map[int64]bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.fail[chatID] {
		return errors.New("blocked")
	}
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

type fakeStore struct {
	appts    []*domain.Appointment
	reminded map[int64]time.Time
}

func (f *fakeStore) ListAppointmentsByDate(_ context.Context, day time.Time) ([]*domain.Appointment, error) {
	var out []*domain.Appointment
	for _, a := range f.appts {
		if domain.Day(a.StartsAt).Equal(domain.Day(day)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCustomerAppointments(context.Context, int64, time.Time) ([]*domain.Appointment, error) {
	return nil, nil
}

func (f *fakeStore) ListDueReminders(_ context.Context, from, to time.Time) ([]*domain.Appointment, error) {
	var out []*domain.Appointment
	for _, a := range f.appts {
		if _, done := f.reminded[a.ID]; done {
			continue
		}
		if !a.StartsAt.Before(from) && !a.StartsAt.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkReminded(_ context.Context, id int64, at time.Time) error {
	f.reminded[id] = at
	return nil
}

func tgID(v int64) *int64 { return &v }

func newTestScheduler() (*Scheduler, *fakeSender, *fakeStore) {
	store := &fakeStore{
		reminded: map[int64]time.Time{},
		appts: []*domain.Appointment{
			{ID: 1, StartsAt: time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC), Duration: 60, ServiceName: "Corte", EmployeeName: "Ana", CustomerName: "Lucía", CustomerTelegramID: tgID(501)},
			{ID: 2, StartsAt: time.Date(2025, 7, 15, 11, 0, 0, 0, time.UTC), Duration: 90, ServiceName: "Tinte", EmployeeName: "Ana", CustomerName: "Marta", CustomerTelegramID: tgID(502)},
			{ID: 3, StartsAt: time.Date(2025, 7, 15, 18, 0, 0, 0, time.UTC), Duration: 60, ServiceName: "Peinado", EmployeeName: "Rosa", CustomerName: "Eva", CustomerTelegramID: tgID(503)},
		},
	}
	cfg := &config.Config{
		OwnerTelegramID:       99,
		Timezone:              time.UTC,
		MorningTime:           "08:00",
		ReminderBeforeMinutes: 120,
	}
	sender := &fakeSender{fail: map[int64]bool{}}
	s := New(cfg, service.NewAgendaService(store, time.UTC), nil)
	s.SetSender(sender)
	return s, sender, store
}

func TestDailySpec(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"08:00", "0 8 * * *"},
		{"07:45", "45 7 * * *"},
		{"23:05", "5 23 * * *"},
	}
	for _, tt := range tests {
		got, err := dailySpec(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("dailySpec(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := dailySpec("8am"); err == nil {
		t.Error("expected error for 8am")
	}
}

func TestMorningAgenda(t *testing.T) {
	s, sender, _ := newTestScheduler()
	s.morningAgenda(context.Background(), time.Date(2025, 7, 15, 8, 0, 0, 0, time.UTC))

	if len(sender.msgs) != 1 || sender.msgs[0].chatID != 99 {
		t.Fatalf("messages = %+v", sender.msgs)
	}
	text := sender.msgs[0].text
	for _, want := range []string{"Buenos días", "martes", "3 citas", "Corte · Lucía", "Peinado · Eva"} {
		if !strings.Contains(text, want) {
			t.Errorf("agenda missing %q:\n%s", want, text)
		}
	}
}

func TestSendReminders(t *testing.T) {
	s, sender, store := newTestScheduler()
	ctx := context.Background()
	now := time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)

	s.sendReminders(ctx, now)
	if len(sender.msgs) != 2 {
		t.Fatalf("sent %d reminders, want 2: %+v", len(sender.msgs), sender.msgs)
	}
	if sender.msgs[0].chatID != 501 || !strings.Contains(sender.msgs[0].text, "es hoy a las 10:00 con Ana") {
		t.Errorf("first reminder = %+v", sender.msgs[0])
	}
	if _, ok := store.reminded[3]; ok {
		t.Error("appointment outside the lead time was marked")
	}

	// a second run does not repeat reminders
	s.sendReminders(ctx, now.Add(5*time.Minute))
	if len(sender.msgs) != 2 {
		t.Fatalf("reminders repeated: %d", len(sender.msgs))
	}
}

func TestSendRemindersKeepsUndelivered(t *testing.T) {
	s, sender, store := newTestScheduler()
	sender.fail[502] = true

	s.sendReminders(context.Background(), time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC))
	if _, ok := store.reminded[2]; ok {
		t.Fatal("failed reminder was marked")
	}
	if _, ok := store.reminded[1]; !ok {
		t.Fatal("delivered reminder not marked")
	}
}

func TestRunWithoutSender(t *testing.T) {
	s, _, _ := newTestScheduler()
	s.sender = nil
	called := false
	s.run(context.Background(), func(context.Context, time.Time) { called = true })
	if called {
		t.Fatal("job ran without a sender")
	}
}
