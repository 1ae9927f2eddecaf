package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antonajp/ai4joy-sub003/internal/admission"
	"github.com/antonajp/ai4joy-sub003/internal/agent"
	"github.com/antonajp/ai4joy-sub003/internal/audio"
	"github.com/antonajp/ai4joy-sub003/internal/config"
	"github.com/antonajp/ai4joy-sub003/internal/httpapi"
	"github.com/antonajp/ai4joy-sub003/internal/observability"
	"github.com/antonajp/ai4joy-sub003/internal/orchestrator"
	"github.com/antonajp/ai4joy-sub003/internal/session"
	"github.com/antonajp/ai4joy-sub003/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	counterStore, err := admission.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("admission store init failed: %v", err)
	}
	defer counterStore.Close()

	admitter := admission.NewController(counterStore, cfg.DailySessionLimit, cfg.ConcurrentSessionLimit)

	frameSamples := audio.SamplesPerTick(cfg.SampleRate, cfg.MixTick)
	runtime, err := agent.NewRuntime(agent.Config{
		Mode:         cfg.AgentRuntimeMode,
		URL:          cfg.AgentRuntimeURL,
		SampleRate:   cfg.SampleRate,
		FrameSamples: frameSamples,
	})
	if err != nil {
		log.Fatalf("agent runtime init failed: %v", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout, cfg.ReconnectGraceWindow)
	registry := agent.NewDefaultRegistry(cfg.PrimaryGain, cfg.AmbientGain)
	recognizer := speech.NewMockRecognizer()

	orch := orchestrator.New(
		sessions,
		admitter,
		runtime,
		registry,
		recognizer,
		metrics,
		orchestrator.Config{
			PhaseTurnThreshold:    cfg.PhaseTurnThreshold,
			TurnTimeout:           cfg.TurnTimeout,
			TurnRetryBackoff:      cfg.TurnRetryBackoff,
			MixTick:               cfg.MixTick,
			SampleRate:            cfg.SampleRate,
			SourceQueueLen:        cfg.SourceQueueLen,
			AmbientCooldown:       cfg.AmbientCooldown,
			AmbientSentimentFloor: cfg.AmbientSentimentFloor,
			AmbientEnergyFloor:    cfg.AmbientEnergyFloor,
		},
	)
	sessions.SetExpireHook(orch.OnSessionExpired)

	api := httpapi.New(cfg, sessions, orch, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sessions.StartJanitor(runCtx, 5*time.Second)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			return httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("shutdown complete")
}
