package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "oliva.db"), time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Storage) (svc *domain.Service, emp *domain.Employee, cust *domain.Customer) {
	t.Helper()
	ctx := context.Background()
	svc = &domain.Service{Category: "Cortes", Name: "Corte Dama", DurationMin: domain.IntPtr(60), DurationMax: domain.IntPtr(90), Active: true}
	if _, err := s.UpsertService(ctx, svc); err != nil {
		t.Fatalf("UpsertService: %v", err)
	}
	emp = &domain.Employee{Name: "Ana", Role: "estilista"}
	if _, err := s.UpsertEmployee(ctx, emp); err != nil {
		t.Fatalf("UpsertEmployee: %v", err)
	}
	cust = &domain.Customer{Name: "Lucía", Phone: "5512345678"}
	if err := s.CreateCustomer(ctx, cust); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	return svc, emp, cust
}

func TestMigrateTwice(t *testing.T) {
	s := newTestStorage(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestGetServiceMissing(t *testing.T) {
	s := newTestStorage(t)
	svc, err := s.GetService(context.Background(), 42)
	if err != nil || svc != nil {
		t.Fatalf("expected nil, nil; got %v, %v", svc, err)
	}
}

func TestUpsertServiceByName(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	svc, _, _ := seed(t, s)

	again := &domain.Service{Category: "Cortes", Name: "Corte Dama", DurationMin: domain.IntPtr(45), Active: true}
	created, err := s.UpsertService(ctx, again)
	if err != nil {
		t.Fatalf("UpsertService: %v", err)
	}
	if created || again.ID != svc.ID {
		t.Fatalf("expected update of %d, got created=%v id=%d", svc.ID, created, again.ID)
	}

	got, err := s.GetService(ctx, svc.ID)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if got.DurationMax != nil || got.EffectiveDuration() != 45 {
		t.Fatalf("expected updated durations, got %+v", got)
	}
}

func TestInsertAppointmentConflict(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	svc, emp, cust := seed(t, s)
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	first := &domain.Appointment{CustomerID: cust.ID, ServiceID: svc.ID, EmployeeID: emp.ID, StartsAt: start}
	if err := tx.InsertAppointment(ctx, first); err != nil {
		t.Fatalf("InsertAppointment: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected generated id")
	}

	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	dup := &domain.Appointment{CustomerID: cust.ID, ServiceID: svc.ID, EmployeeID: emp.ID, StartsAt: start}
	err = tx.InsertAppointment(ctx, dup)
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	if !IsConflict(err) {
		t.Fatalf("IsConflict(%v) = false", err)
	}
}

func TestListAppointmentsOwnDuration(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	svc, emp, cust := seed(t, s)
	short := &domain.Service{Category: "Cortes", Name: "Fleco", DurationMin: domain.IntPtr(15), Active: true}
	if _, err := s.UpsertService(ctx, short); err != nil {
		t.Fatalf("UpsertService: %v", err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, a := range []*domain.Appointment{
		{CustomerID: cust.ID, ServiceID: svc.ID, EmployeeID: emp.ID, StartsAt: day.Add(9 * time.Hour)},
		{CustomerID: cust.ID, ServiceID: short.ID, EmployeeID: emp.ID, StartsAt: day.Add(12 * time.Hour)},
		{CustomerID: cust.ID, ServiceID: short.ID, EmployeeID: emp.ID, StartsAt: day.AddDate(0, 0, 1).Add(12 * time.Hour)},
	} {
		if err := tx.InsertAppointment(ctx, a); err != nil {
			t.Fatalf("InsertAppointment: %v", err)
		}
	}

	appts, err := tx.ListAppointments(ctx, emp.ID, day)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments on the day, got %d", len(appts))
	}
	if appts[0].Duration != 90 || appts[1].Duration != 15 {
		t.Fatalf("durations = %d, %d; want 90, 15", appts[0].Duration, appts[1].Duration)
	}
	if !appts[0].StartsAt.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("start = %s", appts[0].StartsAt)
	}
}

func TestRollbackDiscardsInsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	svc, emp, cust := seed(t, s)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.InsertAppointment(ctx, &domain.Appointment{CustomerID: cust.ID, ServiceID: svc.ID, EmployeeID: emp.ID, StartsAt: day.Add(10 * time.Hour)}); err != nil {
		t.Fatalf("InsertAppointment: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	appts, err := s.ListAppointmentsByDate(ctx, day)
	if err != nil {
		t.Fatalf("ListAppointmentsByDate: %v", err)
	}
	if len(appts) != 0 {
		t.Fatalf("expected no appointments after rollback, got %d", len(appts))
	}
}

func TestDueRemindersAndAgenda(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	svc, emp, _ := seed(t, s)
	tg, _, err := s.EnsureTelegramCustomer(ctx, 1001, "Marta")
	if err != nil {
		t.Fatalf("EnsureTelegramCustomer: %v", err)
	}
	again, created, err := s.EnsureTelegramCustomer(ctx, 1001, "Marta")
	if err != nil || created || again.ID != tg.ID {
		t.Fatalf("expected existing customer, got %+v created=%v err=%v", again, created, err)
	}

	start := time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC)
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	appt := &domain.Appointment{CustomerID: tg.ID, ServiceID: svc.ID, EmployeeID: emp.ID, StartsAt: start}
	if err := tx.InsertAppointment(ctx, appt); err != nil {
		t.Fatalf("InsertAppointment: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	due, err := s.ListDueReminders(ctx, start.Add(-2*time.Hour), start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected nothing due yet, got %d", len(due))
	}

	due, err = s.ListDueReminders(ctx, start.Add(-time.Hour), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(due) != 1 || due[0].CustomerTelegramID == nil || *due[0].CustomerTelegramID != 1001 {
		t.Fatalf("unexpected due reminders: %+v", due)
	}
	if due[0].ServiceName != "Corte Dama" || due[0].EmployeeName != "Ana" {
		t.Fatalf("missing display fields: %+v", due[0])
	}

	if err := s.MarkReminded(ctx, appt.ID, start.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkReminded: %v", err)
	}
	due, err = s.ListDueReminders(ctx, start.Add(-time.Hour), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected reminder to be marked, got %d", len(due))
	}
}
