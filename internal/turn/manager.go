// Package turn tracks speaking rights within one session: who holds the
// floor, how many turns have completed, and the coarse phase derived from
// the turn count. Ambient commentary never passes through this state
// machine; it is mixed concurrently at reduced gain and cannot hold the
// floor.
package turn

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type State string

const (
	StateIdle          State = "idle"
	StateUserSpeaking  State = "user_speaking"
	StateAgentSpeaking State = "agent_speaking"
)

const (
	PhaseOpening = 1
	PhaseDeep    = 2
)

var (
	ErrAgentHoldsFloor = errors.New("an agent response is in progress")
	ErrNoFloorToGrant  = errors.New("agent speech requires a pending user utterance")
)

// Manager is the per-session floor state machine. All methods are safe for
// concurrent use.
type Manager struct {
	mu             sync.Mutex
	state          State
	speakingRole   string
	turnCount      int
	phaseThreshold int
	phaseReported  int
	turnStartedAt  time.Time
}

func NewManager(phaseThreshold int) *Manager {
	if phaseThreshold <= 0 {
		phaseThreshold = 4
	}
	return &Manager{
		state:          StateIdle,
		phaseThreshold: phaseThreshold,
		phaseReported:  PhaseOpening,
	}
}

// Snapshot returns the current state and, when an agent is speaking, its role.
func (m *Manager) Snapshot() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.speakingRole
}

func (m *Manager) TurnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turnCount
}

// Phase derives the session phase from the completed-turn count.
func (m *Manager) Phase() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return phaseFor(m.turnCount, m.phaseThreshold)
}

// BeginUserSpeech marks the start of a user utterance. It is a no-op while
// the user is already speaking. While an agent holds the floor it fails;
// barge-in goes through Interrupt first.
func (m *Manager) BeginUserSpeech(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateUserSpeaking:
		return nil
	case StateAgentSpeaking:
		return ErrAgentHoldsFloor
	default:
		m.state = StateUserSpeaking
		m.turnStartedAt = now
		return nil
	}
}

// BeginAgentSpeech hands the floor to the responding agent once the user
// utterance has been recognized.
func (m *Manager) BeginAgentSpeech(role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUserSpeaking {
		return fmt.Errorf("%w (state %s)", ErrNoFloorToGrant, m.state)
	}
	m.state = StateAgentSpeaking
	m.speakingRole = role
	return nil
}

// CompleteTurn returns the floor to idle after the agent signalled end of
// turn, increments the completed-turn count and reports a phase change
// exactly once, at the boundary where the threshold is first met. The
// returned duration measures the whole turn from first user audio.
func (m *Manager) CompleteTurn(now time.Time) (phase int, phaseChanged bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateIdle
	m.speakingRole = ""
	m.turnCount++
	if !m.turnStartedAt.IsZero() {
		elapsed = now.Sub(m.turnStartedAt)
		m.turnStartedAt = time.Time{}
	}

	phase = phaseFor(m.turnCount, m.phaseThreshold)
	if phase > m.phaseReported {
		m.phaseReported = phase
		return phase, true, elapsed
	}
	return phase, false, elapsed
}

// Interrupt forces the floor back to idle from any state (user barge-in).
// It reports whether an in-flight agent stream must be cancelled, and the
// role that was speaking. The turn does not count as completed.
func (m *Manager) Interrupt() (cancelAgent bool, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelAgent = m.state == StateAgentSpeaking
	role = m.speakingRole
	m.state = StateIdle
	m.speakingRole = ""
	m.turnStartedAt = time.Time{}
	return cancelAgent, role
}

// ForceIdle resets the floor after a hung or failed agent call. Like
// Interrupt, the turn does not count as completed.
func (m *Manager) ForceIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	m.speakingRole = ""
	m.turnStartedAt = time.Time{}
}

// RestoreTurnCount reinstates the turn count when a session resumes after a
// transient disconnect. Regressing or negative counts indicate a caller bug
// and are rejected rather than clamped.
func (m *Manager) RestoreTurnCount(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 {
		return fmt.Errorf("turn count must not be negative, got %d", n)
	}
	if n < m.turnCount {
		return fmt.Errorf("turn count is monotonic: have %d, got %d", m.turnCount, n)
	}
	m.turnCount = n
	if p := phaseFor(n, m.phaseThreshold); p > m.phaseReported {
		m.phaseReported = p
	}
	return nil
}

func phaseFor(turnCount, threshold int) int {
	if turnCount >= threshold {
		return PhaseDeep
	}
	return PhaseOpening
}
