package agent

import (
	"fmt"
	"sync"
)

const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// Profile is the behavior configuration for one (role, phase) pair. The
// orchestrator looks responses up here instead of branching on phase at
// call sites, so swapping an agent's instruction set at a phase boundary
// is a registry lookup and nothing more.
type Profile struct {
	Role         string
	Phase        int
	Instructions string
	VoiceID      string
	Gain         float64
}

type registryKey struct {
	role  string
	phase int
}

// Registry maps (role, phase) to agent profiles.
type Registry struct {
	mu       sync.RWMutex
	profiles map[registryKey]Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[registryKey]Profile)}
}

// NewDefaultRegistry seeds the two-role, two-phase layout the service ships
// with: a primary voice that warms up after the opening turns and a
// secondary commentator that is always mixed quietly.
func NewDefaultRegistry(primaryGain, ambientGain float64) *Registry {
	r := NewRegistry()
	r.Register(Profile{
		Role:         RolePrimary,
		Phase:        1,
		Instructions: "introductory, curious, draws the user out",
		VoiceID:      "voice_primary_a",
		Gain:         primaryGain,
	})
	r.Register(Profile{
		Role:         RolePrimary,
		Phase:        2,
		Instructions: "familiar, playful, references earlier turns",
		VoiceID:      "voice_primary_a",
		Gain:         primaryGain,
	})
	r.Register(Profile{
		Role:         RoleSecondary,
		Phase:        1,
		Instructions: "one-line aside, reacts to the mood, never asks questions",
		VoiceID:      "voice_secondary_a",
		Gain:         ambientGain,
	})
	r.Register(Profile{
		Role:         RoleSecondary,
		Phase:        2,
		Instructions: "one-line aside, in-jokes from the session so far",
		VoiceID:      "voice_secondary_a",
		Gain:         ambientGain,
	})
	return r
}

func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[registryKey{role: p.Role, phase: p.Phase}] = p
}

func (r *Registry) Lookup(role string, phase int) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[registryKey{role: role, phase: phase}]
	if !ok {
		return Profile{}, fmt.Errorf("no agent profile for role %q phase %d", role, phase)
	}
	return p, nil
}

// Roles lists the distinct roles in the registry.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var roles []string
	for k := range r.profiles {
		if !seen[k.role] {
			seen[k.role] = true
			roles = append(roles, k.role)
		}
	}
	return roles
}
