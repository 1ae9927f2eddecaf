package admission

import (
	"context"
	"sync"
)

// MemoryStore keeps admission counters in process memory. Suitable for
// single-process deployments and tests; production uses PostgresStore.
type MemoryStore struct {
	mu     sync.Mutex
	daily  map[string]int // userID + "|" + day
	active map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		daily:  make(map[string]int),
		active: make(map[string]int),
	}
}

func (s *MemoryStore) AdmitAtomic(_ context.Context, userID, day string, dailyLimit, concurrentLimit int) (AdmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayKey := userID + "|" + day
	res := AdmitResult{
		DailyExceeded:       s.daily[dayKey] >= dailyLimit,
		ConcurrencyExceeded: s.active[userID] >= concurrentLimit,
	}
	if res.DailyExceeded || res.ConcurrencyExceeded {
		return res, nil
	}

	s.daily[dayKey]++
	s.active[userID]++
	res.Granted = true
	return res, nil
}

func (s *MemoryStore) ReleaseActive(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[userID] > 0 {
		s.active[userID]--
	}
	return nil
}

// ActiveCount exposes the live-session counter for tests.
func (s *MemoryStore) ActiveCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[userID]
}

func (s *MemoryStore) Close() error { return nil }
