// Package orchestrator owns the lifetime of one live conversation: it
// admits the session, wires agents to the mixer, drives the turn state
// machine, and guarantees the admission slot is released on every exit
// path.
package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonajp/ai4joy-sub003/internal/admission"
	"github.com/antonajp/ai4joy-sub003/internal/agent"
	"github.com/antonajp/ai4joy-sub003/internal/ambient"
	"github.com/antonajp/ai4joy-sub003/internal/audio"
	"github.com/antonajp/ai4joy-sub003/internal/observability"
	"github.com/antonajp/ai4joy-sub003/internal/protocol"
	"github.com/antonajp/ai4joy-sub003/internal/reliability"
	"github.com/antonajp/ai4joy-sub003/internal/session"
	"github.com/antonajp/ai4joy-sub003/internal/speech"
	"github.com/antonajp/ai4joy-sub003/internal/turn"
)

const releaseRetryAttempts = 3

// Config carries the per-session tuning the orchestrator needs.
type Config struct {
	PhaseTurnThreshold    int
	TurnTimeout           time.Duration
	TurnRetryBackoff      time.Duration
	MixTick               time.Duration
	SampleRate            int
	SourceQueueLen        int
	AmbientCooldown       time.Duration
	AmbientSentimentFloor float64
	AmbientEnergyFloor    float64
}

type Orchestrator struct {
	sessions   *session.Manager
	admitter   *admission.Controller
	runtime    agent.Runtime
	registry   *agent.Registry
	recognizer speech.Recognizer
	metrics    *observability.Metrics
	cfg        Config

	mu   sync.Mutex
	live map[string]*liveSession
}

// liveSession is the orchestrator-private state behind one session record.
type liveSession struct {
	id     string
	userID string
	mixer  *audio.Mixer
	turns  *turn.Manager
	trig   *ambient.Trigger

	ctx    context.Context
	cancel context.CancelFunc

	releaseOnce sync.Once

	turnMu     sync.Mutex
	turnCancel context.CancelFunc
}

func New(
	sessions *session.Manager,
	admitter *admission.Controller,
	runtime agent.Runtime,
	registry *agent.Registry,
	recognizer speech.Recognizer,
	metrics *observability.Metrics,
	cfg Config,
) *Orchestrator {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 20 * time.Second
	}
	if cfg.MixTick <= 0 {
		cfg.MixTick = 20 * time.Millisecond
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &Orchestrator{
		sessions:   sessions,
		admitter:   admitter,
		runtime:    runtime,
		registry:   registry,
		recognizer: recognizer,
		metrics:    metrics,
		cfg:        cfg,
		live:       make(map[string]*liveSession),
	}
}

// StartSession admits and builds a new session. A denied admission returns
// the decision untouched with no session and no partial agent setup.
func (o *Orchestrator) StartSession(ctx context.Context, userID string) (*session.Session, *admission.Decision, error) {
	decision, err := o.admitter.TryAdmitSession(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Granted {
		o.metrics.AdmissionDecisions.WithLabelValues(string(decision.Reason)).Inc()
		return nil, &decision, nil
	}
	o.metrics.AdmissionDecisions.WithLabelValues("granted").Inc()

	s := o.sessions.Create(userID)
	ls, err := o.buildLiveSession(s)
	if err != nil {
		// The record never went live; free the slot before reporting.
		_, _ = o.sessions.Close(s.ID)
		o.releaseWithRetry(userID, "start_failure")
		return nil, nil, err
	}

	o.mu.Lock()
	o.live[s.ID] = ls
	o.mu.Unlock()

	if err := o.sessions.SetStatus(s.ID, session.StatusActive); err != nil {
		o.teardown(ls, "activate_failure")
		return nil, nil, err
	}

	o.metrics.SessionEvents.WithLabelValues("created").Inc()
	o.metrics.ActiveSessions.Set(float64(o.sessions.ActiveCount()))
	return s, &decision, nil
}

func (o *Orchestrator) buildLiveSession(s *session.Session) (*liveSession, error) {
	frameSamples := audio.SamplesPerTick(o.cfg.SampleRate, o.cfg.MixTick)
	mixer := audio.NewMixer(frameSamples, o.cfg.SourceQueueLen)
	mixer.SetClipHook(func(n int) {
		o.metrics.MixerClippedSamples.Add(float64(n))
	})

	for _, role := range o.registry.Roles() {
		profile, err := o.registry.Lookup(role, turn.PhaseOpening)
		if err != nil {
			return nil, fmt.Errorf("agent setup for session %s: %w", s.ID, err)
		}
		if err := mixer.AddSource(role, profile.Gain); err != nil {
			return nil, fmt.Errorf("mixer setup for session %s: %w", s.ID, err)
		}
		o.metrics.MixerSources.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &liveSession{
		id:     s.ID,
		userID: s.UserID,
		mixer:  mixer,
		turns:  turn.NewManager(o.cfg.PhaseTurnThreshold),
		trig:   ambient.NewTrigger(o.cfg.AmbientSentimentFloor, o.cfg.AmbientEnergyFloor, o.cfg.AmbientCooldown),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// EndSession tears a session down and frees its admission slot. Safe to
// call more than once.
func (o *Orchestrator) EndSession(sessionID string) error {
	ls := o.lookup(sessionID)
	if ls == nil {
		return session.ErrNotFound
	}
	_ = o.sessions.SetStatus(sessionID, session.StatusEnding)
	o.teardown(ls, "end_session")
	return nil
}

// OnSessionExpired is the janitor hook: a session that went stale or whose
// transport never came back gets the same guaranteed teardown.
func (o *Orchestrator) OnSessionExpired(s *session.Session) {
	o.metrics.SessionEvents.WithLabelValues("expired").Inc()
	if ls := o.lookup(s.ID); ls != nil {
		o.teardown(ls, "expired")
	}
}

// PushUserAudio routes one inbound user frame: the floor moves to the user
// on the first frame of an utterance, and the frame goes to the recognizer
// via the caller (RunConnection owns the recognizer session).
func (o *Orchestrator) PushUserAudio(sessionID string) error {
	ls := o.lookup(sessionID)
	if ls == nil {
		return session.ErrNotFound
	}
	_ = o.sessions.Touch(sessionID)
	err := ls.turns.BeginUserSpeech(time.Now())
	if err == turn.ErrAgentHoldsFloor {
		// Plain audio during agent speech is not a barge-in; the client
		// signals that explicitly.
		return nil
	}
	return err
}

// PullOutputAudio returns the next mixed frame, if any source had one ready.
func (o *Orchestrator) PullOutputAudio(sessionID string) (audio.Frame, bool, error) {
	ls := o.lookup(sessionID)
	if ls == nil {
		return audio.Frame{}, false, session.ErrNotFound
	}
	f, ok := ls.mixer.PullMixed()
	return f, ok, nil
}

// BargeIn cancels any in-flight agent response and idles the floor.
func (o *Orchestrator) BargeIn(sessionID string) error {
	ls := o.lookup(sessionID)
	if ls == nil {
		return session.ErrNotFound
	}
	cancelAgent, _ := ls.turns.Interrupt()
	if cancelAgent {
		ls.cancelActiveTurn()
	}
	_ = o.sessions.RecordInterruption(sessionID)
	o.metrics.SessionEvents.WithLabelValues("barge_in").Inc()
	return nil
}

func (o *Orchestrator) lookup(sessionID string) *liveSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.live[sessionID]
}

func (ls *liveSession) cancelActiveTurn() {
	ls.turnMu.Lock()
	cancel := ls.turnCancel
	ls.turnCancel = nil
	ls.turnMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// teardown runs exactly once per session: cancel all in-flight work, drain
// mixer sources, close the record, release the admission slot.
func (o *Orchestrator) teardown(ls *liveSession, path string) {
	ls.releaseOnce.Do(func() {
		ls.cancelActiveTurn()
		ls.cancel()

		for _, role := range o.registry.Roles() {
			ls.mixer.RemoveSource(role)
			o.metrics.MixerSources.Dec()
		}

		o.mu.Lock()
		delete(o.live, ls.id)
		o.mu.Unlock()

		if _, err := o.sessions.Close(ls.id); err != nil && err != session.ErrNotFound {
			log.Printf("session %s close: %v", ls.id, err)
		}

		o.releaseWithRetry(ls.userID, path)
		o.metrics.SessionEvents.WithLabelValues("ended").Inc()
		o.metrics.ActiveSessions.Set(float64(o.sessions.ActiveCount()))
	})
}

// releaseWithRetry frees the concurrency slot. A failed release silently
// locks the user out, so it is retried with backoff and loudly logged if it
// still fails.
func (o *Orchestrator) releaseWithRetry(userID, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < releaseRetryAttempts; attempt++ {
		if err = o.admitter.ReleaseSession(ctx, userID); err == nil {
			o.metrics.AdmissionReleases.WithLabelValues(path).Inc()
			return
		}
		time.Sleep(reliability.ExponentialBackoff(attempt, 50*time.Millisecond, time.Second))
	}
	o.metrics.AdmissionReleases.WithLabelValues("failed").Inc()
	log.Printf("ALERT: admission release failed for user %s (path %s): %v", userID, path, err)
}

// RunConnection drives one websocket connection for a session. A session
// may outlive the connection: on transport loss the session is marked
// disconnected and the janitor ends it if the grace window lapses.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	ls := o.lookup(s.ID)
	if ls == nil {
		return session.ErrNotFound
	}
	if err := o.sessions.MarkReconnected(s.ID); err != nil {
		return err
	}

	recSession, utterances, err := o.recognizer.StartSession(ctx, s.ID)
	if err != nil {
		o.send(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "recognizer_connect_failed",
			Source:    "speech",
			Retryable: true,
			Detail:    err.Error(),
		})
		return err
	}
	defer recSession.Close()

	// Output pump: one mixed frame per tick, silence ticks skipped.
	pumpCtx, pumpCancel := context.WithCancel(ctx)
	defer pumpCancel()
	go o.pumpOutput(pumpCtx, ls, outbound)

	defer func() {
		// Transport gone. Keep the session for the grace window unless it
		// was already torn down.
		if o.lookup(s.ID) != nil {
			_ = o.sessions.MarkDisconnected(s.ID)
			o.metrics.SessionEvents.WithLabelValues("transport_lost").Inc()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ls.ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case protocol.ClientAudioChunk:
				if err := o.PushUserAudio(s.ID); err != nil {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(m.PCM16Base64)
				if err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						SessionID: s.ID,
						Code:      "invalid_audio_payload",
						Source:    "gateway",
						Retryable: false,
						Detail:    err.Error(),
					})
					continue
				}
				if err := recSession.SendAudio(ctx, audio.FromPCM16LE(pcm)); err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						SessionID: s.ID,
						Code:      "recognizer_send_failed",
						Source:    "speech",
						Retryable: true,
						Detail:    err.Error(),
					})
				}
			case protocol.ClientControl:
				_ = o.sessions.Touch(s.ID)
				switch m.Action {
				case protocol.ActionBargeIn:
					_ = o.BargeIn(s.ID)
					o.sendTurnState(ctx, outbound, ls)
				case protocol.ActionCommit:
					_ = recSession.Commit(ctx)
				case protocol.ActionEnd:
					_ = o.EndSession(s.ID)
					return nil
				}
			}
		case utt, ok := <-utterances:
			if !ok {
				return nil
			}
			o.handleUtterance(ls, outbound, utt)
		}
	}
}

func (o *Orchestrator) pumpOutput(ctx context.Context, ls *liveSession, outbound chan<- any) {
	ticker := time.NewTicker(o.cfg.MixTick)
	defer ticker.Stop()
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ls.ctx.Done():
			return
		case <-ticker.C:
			f, ok := ls.mixer.PullMixed()
			if !ok {
				continue
			}
			seq++
			o.send(ctx, outbound, protocol.MixedAudioChunk{
				Type:        protocol.TypeMixedAudioChunk,
				SessionID:   ls.id,
				Seq:         seq,
				PCM16Base64: base64.StdEncoding.EncodeToString(f.PCM16LE()),
				SampleRate:  o.cfg.SampleRate,
			})
		}
	}
}

// handleUtterance is the end-of-utterance pivot: hand the floor to the
// primary agent, and let the ambient trigger fire a detached commentary
// call that never blocks the turn.
func (o *Orchestrator) handleUtterance(ls *liveSession, outbound chan<- any, utt speech.Utterance) {
	// A commit without preceding audio still opens a turn. An utterance
	// recognized while an agent response is still streaming is an implicit
	// barge-in: the stale response is cancelled and superseded.
	if err := ls.turns.BeginUserSpeech(time.Now()); err == turn.ErrAgentHoldsFloor {
		ls.turns.Interrupt()
		ls.cancelActiveTurn()
		if err := ls.turns.BeginUserSpeech(time.Now()); err != nil {
			return
		}
	} else if err != nil {
		return
	}

	if o.maybeTriggerAmbient(ls, outbound, utt) {
		o.metrics.AmbientTriggers.WithLabelValues("fired").Inc()
	} else {
		o.metrics.AmbientTriggers.WithLabelValues("suppressed").Inc()
	}

	if err := ls.turns.BeginAgentSpeech(agent.RolePrimary); err != nil {
		return
	}

	turnID := uuid.NewString()
	turnCtx, turnCancel := context.WithTimeout(ls.ctx, o.cfg.TurnTimeout)
	ls.turnMu.Lock()
	ls.turnCancel = turnCancel
	ls.turnMu.Unlock()

	o.sendTurnState(ls.ctx, outbound, ls)

	go func() {
		defer turnCancel()
		o.runPrimaryTurn(turnCtx, ls, outbound, turnID, utt.Text)
	}()
}

func (o *Orchestrator) runPrimaryTurn(ctx context.Context, ls *liveSession, outbound chan<- any, turnID, inputText string) {
	phase := ls.turns.Phase()
	profile, err := o.registry.Lookup(agent.RolePrimary, phase)
	if err != nil {
		o.failTurn(ls, outbound, turnID, "no_agent_profile", err, false)
		return
	}

	req := agent.InvokeRequest{
		UserID:       ls.userID,
		SessionID:    ls.id,
		TurnID:       turnID,
		Role:         agent.RolePrimary,
		Phase:        phase,
		InputText:    inputText,
		Instructions: profile.Instructions,
		VoiceID:      profile.VoiceID,
	}

	// One bounded retry for retryable failures, then surface a recoverable
	// error; the session itself stays up either way.
	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				o.finishInterruptedTurn(ls, outbound, turnID, ctx)
				return
			case <-time.After(reliability.ExponentialBackoff(attempt-1, o.cfg.TurnRetryBackoff, 2*time.Second)):
			}
			o.metrics.SessionEvents.WithLabelValues("turn_retry").Inc()
		}

		done, retryable, err := o.streamAgentResponse(ctx, ls, outbound, req)
		if done {
			return
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	if ctx.Err() != nil {
		o.finishInterruptedTurn(ls, outbound, turnID, ctx)
		return
	}
	o.failTurn(ls, outbound, turnID, "agent_turn_failed", lastErr, true)
}

// streamAgentResponse runs one agent invocation and mixes its audio. It
// reports (done, retryable, err); done=true means the turn completed and
// was accounted.
func (o *Orchestrator) streamAgentResponse(ctx context.Context, ls *liveSession, outbound chan<- any, req agent.InvokeRequest) (bool, bool, error) {
	events, err := o.runtime.Invoke(ctx, req)
	if err != nil {
		o.metrics.AgentErrors.WithLabelValues(req.Role, "invoke_failed").Inc()
		return false, true, err
	}

	for {
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		case evt, ok := <-events:
			if !ok {
				// Stream ended without end_turn: malformed response.
				o.metrics.AgentErrors.WithLabelValues(req.Role, "truncated_stream").Inc()
				return false, true, fmt.Errorf("agent stream for turn %s ended without end_turn", req.TurnID)
			}
			switch evt.Type {
			case agent.EventAudio:
				if err := ls.mixer.Push(req.Role, evt.Frame); err != nil {
					return false, false, err
				}
			case agent.EventEndTurn:
				o.completeTurn(ls, outbound, req.TurnID)
				return true, false, nil
			case agent.EventError:
				o.metrics.AgentErrors.WithLabelValues(req.Role, evt.Code).Inc()
				return false, evt.Retryable, fmt.Errorf("agent error %s: %s", evt.Code, evt.Detail)
			}
		}
	}
}

func (o *Orchestrator) completeTurn(ls *liveSession, outbound chan<- any, turnID string) {
	phase, phaseChanged, elapsed := ls.turns.CompleteTurn(time.Now())
	if elapsed > 0 {
		o.metrics.ObserveTurnDuration(elapsed)
	}
	_ = o.sessions.RecordTurn(ls.id, ls.turns.TurnCount(), phase)

	o.send(ls.ctx, outbound, protocol.TurnEnd{
		Type:      protocol.TypeTurnEnd,
		SessionID: ls.id,
		TurnID:    turnID,
		Reason:    "end_turn",
	})
	if phaseChanged {
		o.metrics.SessionEvents.WithLabelValues("phase_changed").Inc()
		o.send(ls.ctx, outbound, protocol.PhaseChanged{
			Type:      protocol.TypePhaseChanged,
			SessionID: ls.id,
			Phase:     phase,
			TurnCount: ls.turns.TurnCount(),
		})
	}
	o.sendTurnState(ls.ctx, outbound, ls)
}

func (o *Orchestrator) finishInterruptedTurn(ls *liveSession, outbound chan<- any, turnID string, ctx context.Context) {
	reason := "interrupted"
	if reliability.IsTimeout(ctx.Err()) {
		reason = "timeout"
		ls.turns.ForceIdle()
		o.metrics.SessionEvents.WithLabelValues("turn_timeout").Inc()
		o.send(ls.ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: ls.id,
			Code:      "agent_turn_timeout",
			Source:    "agent",
			Retryable: true,
			Detail:    "agent response exceeded the turn timeout",
		})
	}
	o.send(ls.ctx, outbound, protocol.TurnEnd{
		Type:      protocol.TypeTurnEnd,
		SessionID: ls.id,
		TurnID:    turnID,
		Reason:    reason,
	})
	o.sendTurnState(ls.ctx, outbound, ls)
}

func (o *Orchestrator) failTurn(ls *liveSession, outbound chan<- any, turnID, code string, err error, retryable bool) {
	ls.turns.ForceIdle()
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	o.send(ls.ctx, outbound, protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: ls.id,
		Code:      code,
		Source:    "agent",
		Retryable: retryable,
		Detail:    detail,
	})
	o.send(ls.ctx, outbound, protocol.TurnEnd{
		Type:      protocol.TypeTurnEnd,
		SessionID: ls.id,
		TurnID:    turnID,
		Reason:    "error",
	})
	o.sendTurnState(ls.ctx, outbound, ls)
}

// maybeTriggerAmbient fires a detached secondary-agent call when the affect
// signal qualifies. The call is bounded by the turn timeout and cancelled
// by session teardown, never by the primary turn.
func (o *Orchestrator) maybeTriggerAmbient(ls *liveSession, outbound chan<- any, utt speech.Utterance) bool {
	if !ls.trig.ShouldTrigger(utt.Sentiment, utt.Energy, time.Now()) {
		return false
	}

	phase := ls.turns.Phase()
	profile, err := o.registry.Lookup(agent.RoleSecondary, phase)
	if err != nil {
		return false
	}

	o.send(ls.ctx, outbound, protocol.AmbientStarted{
		Type:      protocol.TypeAmbientStarted,
		SessionID: ls.id,
		Role:      agent.RoleSecondary,
	})

	go func() {
		ctx, cancel := context.WithTimeout(ls.ctx, o.cfg.TurnTimeout)
		defer cancel()

		events, err := o.runtime.Invoke(ctx, agent.InvokeRequest{
			UserID:       ls.userID,
			SessionID:    ls.id,
			TurnID:       uuid.NewString(),
			Role:         agent.RoleSecondary,
			Phase:        phase,
			InputText:    utt.Text,
			Instructions: profile.Instructions,
			VoiceID:      profile.VoiceID,
		})
		if err != nil {
			o.metrics.AgentErrors.WithLabelValues(agent.RoleSecondary, "invoke_failed").Inc()
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				switch evt.Type {
				case agent.EventAudio:
					if ls.mixer.Push(agent.RoleSecondary, evt.Frame) != nil {
						return
					}
				case agent.EventEndTurn:
					return
				case agent.EventError:
					o.metrics.AgentErrors.WithLabelValues(agent.RoleSecondary, evt.Code).Inc()
					return
				}
			}
		}
	}()
	return true
}

// PreviewMix renders a short two-voice sample through the same gain and
// soft-clip path live sessions use and returns it as a WAV file. Useful for
// tuning the ambient gain without holding a microphone session open.
func (o *Orchestrator) PreviewMix(ctx context.Context, primaryText, ambientText string) ([]byte, error) {
	frameSamples := audio.SamplesPerTick(o.cfg.SampleRate, o.cfg.MixTick)
	mixer := audio.NewMixer(frameSamples, o.cfg.SourceQueueLen)

	inputs := map[string]string{
		agent.RolePrimary:   primaryText,
		agent.RoleSecondary: ambientText,
	}
	for _, role := range o.registry.Roles() {
		profile, err := o.registry.Lookup(role, turn.PhaseOpening)
		if err != nil {
			return nil, err
		}
		if err := mixer.AddSource(role, profile.Gain); err != nil {
			return nil, err
		}
		text := inputs[role]
		if text == "" {
			continue
		}
		events, err := o.runtime.Invoke(ctx, agent.InvokeRequest{
			SessionID:    "preview",
			TurnID:       uuid.NewString(),
			Role:         role,
			Phase:        turn.PhaseOpening,
			InputText:    text,
			Instructions: profile.Instructions,
			VoiceID:      profile.VoiceID,
		})
		if err != nil {
			return nil, err
		}
		for evt := range events {
			switch evt.Type {
			case agent.EventAudio:
				if err := mixer.Push(role, evt.Frame); err != nil {
					return nil, err
				}
			case agent.EventError:
				return nil, fmt.Errorf("preview agent error %s: %s", evt.Code, evt.Detail)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var frames []audio.Frame
	for {
		f, ok := mixer.PullMixed()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("preview produced no audio")
	}
	return audio.EncodeWAV(frames, o.cfg.SampleRate)
}

func (o *Orchestrator) sendTurnState(ctx context.Context, outbound chan<- any, ls *liveSession) {
	state, role := ls.turns.Snapshot()
	o.send(ctx, outbound, protocol.TurnState{
		Type:      protocol.TypeTurnState,
		SessionID: ls.id,
		State:     string(state),
		Role:      role,
		TurnCount: ls.turns.TurnCount(),
		Phase:     ls.turns.Phase(),
	})
}

func (o *Orchestrator) send(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}
