package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tazhate/olivabot/internal/clients/caldav"
	"github.com/tazhate/olivabot/internal/domain"
)

type fakePublisher struct {
	configured bool
	err        error
	events     []*caldav.Event
	paths      []string
}

func (p *fakePublisher) IsConfigured() bool { return p.configured }

func (p *fakePublisher) CreateEvent(_ context.Context, path string, ev *caldav.Event) error {
	if p.err != nil {
		return p.err
	}
	ev.UID = "uid-1@oliva"
	p.events = append(p.events, ev)
	p.paths = append(p.paths, path)
	return nil
}

type fakeAppointments struct {
	appts map[int64]*domain.Appointment
	uids  map[int64]string
}

func (f *fakeAppointments) GetAppointment(_ context.Context, id int64) (*domain.Appointment, error) {
	return f.appts[id], nil
}

func (f *fakeAppointments) SetCalendarUID(_ context.Context, id int64, uid string) error {
	f.uids[id] = uid
	return nil
}

func newFakeAppointments() *fakeAppointments {
	start := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	return &fakeAppointments{
		appts: map[int64]*domain.Appointment{
			7: {ID: 7, StartsAt: start, Duration: 90, ServiceName: "Tinte", CustomerName: "Lucía", EmployeeName: "Ana"},
		},
		uids: map[int64]string{},
	}
}

func TestAppointmentBookedPushesEvent(t *testing.T) {
	appts := newFakeAppointments()
	pub := &fakePublisher{configured: true}
	svc := NewCalendarService(appts, pub, "/cal/oliva/", nil)

	svc.AppointmentBooked(context.Background(), &domain.Appointment{ID: 7})

	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Summary != "Tinte con Lucía" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.Description != "Atiende: Ana" {
		t.Errorf("description = %q", ev.Description)
	}
	if got := ev.End.Sub(ev.Start); got != 90*time.Minute {
		t.Errorf("length = %v, want 90m", got)
	}
	if pub.paths[0] != "/cal/oliva/" {
		t.Errorf("path = %q", pub.paths[0])
	}
	if appts.uids[7] != "uid-1@oliva" {
		t.Errorf("uid not stored: %v", appts.uids)
	}
}

func TestAppointmentBookedNotConfigured(t *testing.T) {
	appts := newFakeAppointments()
	pub := &fakePublisher{}
	NewCalendarService(appts, pub, "", nil).AppointmentBooked(context.Background(), &domain.Appointment{ID: 7})
	if len(pub.events) != 0 {
		t.Fatalf("pushed with no credentials")
	}
}

func TestPushFailureKeepsNoUID(t *testing.T) {
	appts := newFakeAppointments()
	pub := &fakePublisher{configured: true, err: errors.New("503")}
	svc := NewCalendarService(appts, pub, "", nil)

	if _, err := svc.Push(context.Background(), 7); err == nil {
		t.Fatalf("expected error")
	}
	// listener swallows the same failure
	svc.AppointmentBooked(context.Background(), &domain.Appointment{ID: 7})
	if len(appts.uids) != 0 {
		t.Fatalf("uid stored after failure: %v", appts.uids)
	}
}

func TestPushUnknownAppointment(t *testing.T) {
	svc := NewCalendarService(newFakeAppointments(), &fakePublisher{configured: true}, "", nil)
	if _, err := svc.Push(context.Background(), 99); err == nil {
		t.Fatalf("expected error for missing appointment")
	}
}

func TestEventDefaultsDuration(t *testing.T) {
	svc := NewCalendarService(nil, nil, "", nil)
	ev := svc.eventFor(&domain.Appointment{StartsAt: time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)})
	if got := ev.End.Sub(ev.Start); got != time.Duration(domain.DefaultDuration)*time.Minute {
		t.Fatalf("length = %v", got)
	}
}
