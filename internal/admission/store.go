package admission

import "context"

// AdmitResult reports the outcome of one atomic admit attempt. When Granted
// is false the exceeded flags say which ceilings blocked it; no counter was
// modified in that case.
type AdmitResult struct {
	Granted             bool
	DailyExceeded       bool
	ConcurrencyExceeded bool
}

// CounterStore is the shared persistent counter abstraction. AdmitAtomic
// must check the per-day and concurrent ceilings and increment both
// counters as one atomic operation; implementations back this with a
// transactional store so the same controller logic works across processes.
type CounterStore interface {
	AdmitAtomic(ctx context.Context, userID, day string, dailyLimit, concurrentLimit int) (AdmitResult, error)
	// ReleaseActive decrements the live-session count, flooring at zero so
	// duplicate releases can never corrupt the counter.
	ReleaseActive(ctx context.Context, userID string) error
	Close() error
}
