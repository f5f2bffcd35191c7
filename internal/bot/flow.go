package bot

import (
	"sync"
	"time"
)

const flowTTL = 30 * time.Minute

// pendingBooking is a chat that picked service and employee and now owes a date and time
type pendingBooking struct {
	ServiceID  int64
	EmployeeID int64
	started    time.Time
}

type flowStore struct {
	mu    sync.Mutex
	flows map[int64]pendingBooking
	now   func() time.Time
}

func newFlowStore() *flowStore {
	return &flowStore{flows: make(map[int64]pendingBooking), now: time.Now}
}

func (s *flowStore) Start(chatID, serviceID, employeeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[chatID] = pendingBooking{ServiceID: serviceID, EmployeeID: employeeID, started: s.now()}
}

// Get returns the pending booking of the chat; expired flows are dropped
func (s *flowStore) Get(chatID int64) (pendingBooking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.flows[chatID]
	if ok && s.now().Sub(p.started) > flowTTL {
		delete(s.flows, chatID)
		return pendingBooking{}, false
	}
	return p, ok
}

func (s *flowStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, chatID)
}
