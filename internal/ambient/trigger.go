// Package ambient decides when a low-priority commentary utterance may be
// requested. The decision is pure apart from a per-session cooldown clock;
// it knows nothing about agents or audio.
package ambient

import (
	"sync"
	"time"
)

const (
	DefaultSentimentFloor = 0.6
	DefaultEnergyFloor    = 0.5
	DefaultCooldown       = 15 * time.Second
)

// Trigger fires when the conversation signal is strongly charged (positive
// or negative) with enough energy behind it, at most once per cooldown.
type Trigger struct {
	mu             sync.Mutex
	sentimentFloor float64
	energyFloor    float64
	cooldown       time.Duration
	lastFiredAt    time.Time
}

func NewTrigger(sentimentFloor, energyFloor float64, cooldown time.Duration) *Trigger {
	if sentimentFloor <= 0 {
		sentimentFloor = DefaultSentimentFloor
	}
	if energyFloor <= 0 {
		energyFloor = DefaultEnergyFloor
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Trigger{
		sentimentFloor: sentimentFloor,
		energyFloor:    energyFloor,
		cooldown:       cooldown,
	}
}

// ShouldTrigger reports whether a commentary request may fire at now.
// Sentiment is in [-1, 1]; energy in [0, 1]. A true return consumes the
// cooldown window.
func (t *Trigger) ShouldTrigger(sentiment, energy float64, now time.Time) bool {
	if !qualifies(sentiment, energy, t.sentimentFloor, t.energyFloor) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.lastFiredAt.IsZero() && now.Sub(t.lastFiredAt) < t.cooldown {
		return false
	}
	t.lastFiredAt = now
	return true
}

// Reset clears the cooldown clock.
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFiredAt = time.Time{}
}

func qualifies(sentiment, energy, sentimentFloor, energyFloor float64) bool {
	if energy < energyFloor {
		return false
	}
	if sentiment < 0 {
		sentiment = -sentiment
	}
	return sentiment >= sentimentFloor
}
