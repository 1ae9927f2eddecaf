package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusStarting Status = "starting"
	StatusActive   Status = "active"
	StatusEnding   Status = "ending"
	StatusClosed   Status = "closed"
	StatusErrored  Status = "errored"
)

var ErrNotFound = errors.New("session not found")

// statusRank orders the monotonic lifecycle. Errored sits between active
// and closed: the only legal move out of errored is to closed.
var statusRank = map[Status]int{
	StatusStarting: 0,
	StatusActive:   1,
	StatusEnding:   2,
	StatusErrored:  2,
	StatusClosed:   3,
}

// Session is one live conversation instance. The orchestrator owns the
// mutable state; callers receive clones.
type Session struct {
	ID                string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	Status            Status    `json:"status"`
	TurnCount         int       `json:"turn_count"`
	Phase             int       `json:"phase"`
	InterruptionCount int       `json:"interruption_count"`
	StartedAt         time.Time `json:"started_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`

	// DisconnectedAt is non-zero while the transport is away; a reconnect
	// inside the grace window clears it.
	DisconnectedAt time.Time `json:"-"`
}

// Manager is the in-process session registry: one entry per live session,
// expired by a janitor when inactive too long or disconnected past the
// reconnect grace window.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	graceWindow       time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout, graceWindow time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	if graceWindow < 0 {
		graceWindow = 0
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		graceWindow:       graceWindow,
	}
}

// SetExpireHook installs the teardown callback the janitor invokes for each
// expired session. The orchestrator hangs its guaranteed admission release
// off this hook.
func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(userID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusStarting,
		Phase:          1,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// SetStatus advances the session lifecycle. Transitions never move
// backwards; a regressing transition is a caller bug and is rejected.
func (m *Manager) SetStatus(sessionID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if statusRank[status] < statusRank[s.Status] {
		return fmt.Errorf("status may not regress from %s to %s", s.Status, status)
	}
	if s.Status == StatusErrored && status != StatusClosed && status != StatusErrored {
		return fmt.Errorf("errored session may only close, not %s", status)
	}
	s.Status = status
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// RecordTurn mirrors the turn manager's counters onto the session record
// for API visibility.
func (m *Manager) RecordTurn(sessionID string, turnCount, phase int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if turnCount < s.TurnCount {
		return fmt.Errorf("turn count is monotonic: have %d, got %d", s.TurnCount, turnCount)
	}
	s.TurnCount = turnCount
	if phase > s.Phase {
		s.Phase = phase
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) RecordInterruption(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.InterruptionCount++
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// MarkDisconnected starts the reconnect grace clock.
func (m *Manager) MarkDisconnected(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.DisconnectedAt = time.Now().UTC()
	return nil
}

// MarkReconnected resumes a session whose transport came back inside the
// grace window. It fails once the window has lapsed; the caller must then
// end the session instead of resuming it.
func (m *Manager) MarkReconnected(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status == StatusClosed || s.Status == StatusErrored {
		return fmt.Errorf("session %s is %s and cannot resume", sessionID, s.Status)
	}
	if !s.DisconnectedAt.IsZero() && time.Since(s.DisconnectedAt) > m.graceWindow {
		return fmt.Errorf("reconnect grace window lapsed for session %s", sessionID)
	}
	s.DisconnectedAt = time.Time{}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// Close finishes a session and removes it from the registry.
func (m *Manager) Close(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusClosed
	s.LastActivityAt = time.Now().UTC()
	delete(m.sessions, sessionID)
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireStale()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusStarting || s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireStale() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status == StatusClosed {
			delete(m.sessions, id)
			continue
		}
		lapsedGrace := !s.DisconnectedAt.IsZero() && now.Sub(s.DisconnectedAt) > m.graceWindow
		inactive := now.Sub(s.LastActivityAt) >= m.inactivityTimeout
		if !lapsedGrace && !inactive {
			continue
		}
		s.Status = StatusClosed
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		delete(m.sessions, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
