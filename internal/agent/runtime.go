// Package agent wraps the external conversational agent runtime. The
// runtime is untrusted-latency, potentially-failing I/O: every invocation
// is context-bounded and streams audio frames plus control signals back to
// the caller.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antonajp/ai4joy-sub003/internal/audio"
)

type EventType string

const (
	EventAudio   EventType = "audio"
	EventEndTurn EventType = "end_turn"
	EventError   EventType = "error"
)

// Event is one element of an agent response stream.
type Event struct {
	Type      EventType
	Frame     audio.Frame
	Code      string
	Detail    string
	Retryable bool
}

// InvokeRequest is the normalized request sent to the agent runtime.
type InvokeRequest struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	TurnID       string `json:"turn_id"`
	Role         string `json:"role"`
	Phase        int    `json:"phase"`
	InputText    string `json:"input_text"`
	Instructions string `json:"instructions,omitempty"`
	VoiceID      string `json:"voice_id,omitempty"`
}

// Runtime produces one response stream per invocation. The returned channel
// is closed after the final event; cancelling ctx aborts the stream.
type Runtime interface {
	Invoke(ctx context.Context, req InvokeRequest) (<-chan Event, error)
}

// Config controls runtime construction.
type Config struct {
	Mode         string
	URL          string
	SampleRate   int
	FrameSamples int
}

func NewRuntime(cfg Config) (Runtime, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPRuntime(cfg.URL, cfg.FrameSamples), nil
		}
		return NewMockRuntime(cfg.FrameSamples), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("agent runtime URL is required for http mode")
		}
		return NewHTTPRuntime(cfg.URL, cfg.FrameSamples), nil
	case "mock":
		return NewMockRuntime(cfg.FrameSamples), nil
	default:
		return nil, fmt.Errorf("unsupported agent runtime mode %q", cfg.Mode)
	}
}
