// Package speech defines the boundary to the external speech-recognition
// pipeline. The recognizer consumes raw user frames and emits recognized
// utterances with a lightweight sentiment/energy score; the orchestrator
// forwards that score to the ambient trigger.
package speech

import (
	"context"

	"github.com/antonajp/ai4joy-sub003/internal/audio"
)

// Utterance is one recognized user utterance plus its affect signal.
type Utterance struct {
	Text      string
	Sentiment float64 // [-1, 1], negative to positive
	Energy    float64 // [0, 1]
}

// Session is one live recognition stream. Commit forces end-of-utterance.
type Session interface {
	SendAudio(ctx context.Context, f audio.Frame) error
	Commit(ctx context.Context) error
	Close() error
}

// Recognizer starts one recognition session per conversation session.
type Recognizer interface {
	StartSession(ctx context.Context, sessionID string) (Session, <-chan Utterance, error)
}
