// Package admission gates session starts under per-user daily and
// concurrent ceilings backed by a shared counter store.
package admission

import (
	"context"
	"fmt"
	"time"
)

type Reason string

const (
	ReasonDailyLimit       Reason = "daily_limit"
	ReasonConcurrencyLimit Reason = "concurrency_limit"
)

const (
	DefaultDailyLimit      = 10
	DefaultConcurrentLimit = 3
)

// Decision is the admission verdict returned to callers. RetryAfter is the
// number of seconds until the daily window resets; it is nil for
// concurrency denials, where the caller must wait for a release instead of
// a timer.
type Decision struct {
	Granted    bool   `json:"granted"`
	Reason     Reason `json:"reason,omitempty"`
	RetryAfter *int   `json:"retry_after_seconds"`
}

// Controller enforces the session quotas. It holds no counter state of its
// own; every check-and-increment happens atomically in the store.
type Controller struct {
	store           CounterStore
	dailyLimit      int
	concurrentLimit int
	now             func() time.Time
}

func NewController(store CounterStore, dailyLimit, concurrentLimit int) *Controller {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if concurrentLimit <= 0 {
		concurrentLimit = DefaultConcurrentLimit
	}
	return &Controller{
		store:           store,
		dailyLimit:      dailyLimit,
		concurrentLimit: concurrentLimit,
		now:             time.Now,
	}
}

// SetClock overrides the controller clock. Test hook.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// TryAdmitSession checks both ceilings and, when granted, increments the
// daily and active counters before returning, so there is no window where a
// session runs uncounted. When both ceilings are exceeded the daily denial
// wins: it is the constraint the caller can only wait out.
func (c *Controller) TryAdmitSession(ctx context.Context, userID string) (Decision, error) {
	if userID == "" {
		return Decision{}, fmt.Errorf("user id must not be empty")
	}

	now := c.now().UTC()
	res, err := c.store.AdmitAtomic(ctx, userID, dayKey(now), c.dailyLimit, c.concurrentLimit)
	if err != nil {
		return Decision{}, fmt.Errorf("admission check for user %s: %w", userID, err)
	}

	if res.Granted {
		return Decision{Granted: true}, nil
	}
	if res.DailyExceeded {
		retry := secondsToNextUTCMidnight(now)
		return Decision{Reason: ReasonDailyLimit, RetryAfter: &retry}, nil
	}
	return Decision{Reason: ReasonConcurrencyLimit}, nil
}

// ReleaseSession frees one concurrency slot. It is idempotent and safe to
// call for a session that was never granted; the store floors the counter
// at zero. The daily counter is a lifetime-of-day count and is not
// reversed. Every teardown path must reach this call: a leaked slot
// silently locks the user out until the process state is repaired.
func (c *Controller) ReleaseSession(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id must not be empty")
	}
	if err := c.store.ReleaseActive(ctx, userID); err != nil {
		return fmt.Errorf("release session for user %s: %w", userID, err)
	}
	return nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func secondsToNextUTCMidnight(now time.Time) int {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	secs := int(next.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
