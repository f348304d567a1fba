package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/collab/embedder"
	"github.com/signet-ai/signet/internal/collab/generator"
	"github.com/signet-ai/signet/internal/collab/identity"
	"github.com/signet-ai/signet/internal/config"
	"github.com/signet-ai/signet/internal/daemon"
	"github.com/signet-ai/signet/internal/httpapi"
	"github.com/signet-ai/signet/internal/logging"
	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/session"
	"github.com/signet-ai/signet/internal/signing"
	"github.com/signet-ai/signet/internal/storage/sqlite"
	"github.com/signet-ai/signet/internal/workers"
)

var (
	serveAgentsDir string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the memory daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAgentsDir, "agents-dir", "", "path to the workspace's .agents directory")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:0", "HTTP listen address (0 picks a free port)")
}

func runServe(ctx context.Context) error {
	agentsDir, err := resolveAgentsDir(serveAgentsDir)
	if err != nil {
		return err
	}

	lock, err := daemon.Acquire(agentsDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	hub := httpapi.NewLogHub()
	logCfg := logging.DefaultConfig(agentsDir)
	logCfg.ExtraWriter = hub
	log, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("start logging: %w", err)
	}

	cfgLoader, err := config.NewLoader(agentsDir, logging.Component(log, "config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer func() { _ = cfgLoader.Close() }()
	cfg := cfgLoader.Current()

	dbPath := filepath.Join(agentsDir, "memory", "memories.db")
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	idLoader := identity.NewTomlFile(filepath.Join(agentsDir, ".secrets", "identity.toml"))
	signer := signing.New(idLoader)

	embLog := logging.Component(log, "embedder")
	genLog := logging.Component(log, "generator")
	emb := buildEmbedder(embLog)
	gen := buildGenerator(genLog)

	recallEngine := recall.New(store, emb, recall.Config{
		WeightKeyword:      0.4,
		WeightVector:       0.5,
		WeightGraph:        0.1,
		PinnedBoost:        0.05,
		GraphBoostFraction: cfg.GraphBoostWeight,
		RerankerEnabled:    cfg.RerankerEnabled,
		RerankerTopN:       cfg.RerankerTopN,
		RerankerTimeout:    time.Duration(cfg.RerankerTimeoutMs) * time.Millisecond,
	})
	sessionEngine := session.New(store, recallEngine)

	maintenanceSchedule := "@every 1h"
	if cfg.MaintenanceIntervalMs > 0 {
		maintenanceSchedule = fmt.Sprintf("@every %dms", cfg.MaintenanceIntervalMs)
	}
	maintenance := workers.NewMaintenanceScheduler(store, maintenanceSchedule, logging.Component(log, "maintenance"))
	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance scheduler: %w", err)
	}
	defer maintenance.Stop()

	retention := workers.NewRetentionScheduler(store, workers.RetentionConfig{
		Schedule:        "@every 3h",
		TombstoneWindow: time.Duration(cfg.TombstoneRetentionMs) * time.Millisecond,
		HistoryWindow:   time.Duration(cfg.HistoryRetentionMs) * time.Millisecond,
		CompletedWindow: time.Duration(cfg.CompletedJobRetentionMs) * time.Millisecond,
		DeadWindow:      time.Duration(cfg.DeadJobRetentionMs) * time.Millisecond,
		BatchLimit:      cfg.BatchLimit,
	}, logging.Component(log, "retention"))
	if err := retention.Start(ctx); err != nil {
		return fmt.Errorf("start retention scheduler: %w", err)
	}
	defer retention.Stop()

	pollCfg := workers.PollConfig{
		PollInterval: time.Duration(cfg.WorkerPollMs) * time.Millisecond,
		BatchSize:    cfg.BatchLimit,
		LeaseSeconds: cfg.LeaseTimeoutMs / 1000,
		ItemTimeout:  time.Duration(cfg.ExtractionTimeoutMs) * time.Millisecond,
		BaseBackoff:  5,
		CapBackoff:   300,
	}
	if pollCfg.LeaseSeconds == 0 {
		pollCfg.LeaseSeconds = 60
	}

	pollers := []*workers.Poller{
		workers.NewEmbedPoller(store, emb, pollCfg, logging.Component(log, "worker.embed")),
		workers.NewDocumentPoller(store, pollCfg, logging.Component(log, "worker.document")),
	}
	if gen != nil {
		pollers = append(pollers,
			workers.NewExtractPoller(store, gen, pollCfg, logging.Component(log, "worker.extract")),
			workers.NewDecidePoller(store, gen, pollCfg, logging.Component(log, "worker.decide")),
			workers.NewSummaryPoller(store, gen, pollCfg, logging.Component(log, "worker.summary")),
		)
	}

	listener, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("bind http listener: %w", err)
	}
	httpAddr := listener.Addr().String()

	srv := &httpapi.Server{
		Store:       store,
		Recall:      recallEngine,
		Session:     sessionEngine,
		Signer:      signer,
		Config:      cfgLoader,
		Maintenance: maintenance,
		Log:         logging.Component(log, "httpapi"),
		Hub:         hub,
		AgentsDir:   agentsDir,
		HTTPAddr:    httpAddr,
		PID:         os.Getpid(),
		StartedAt:   time.Now(),
	}
	httpapi.Version = Version

	httpServer := &http.Server{Handler: srv.Routes()}

	registry, err := daemon.NewRegistry()
	if err != nil {
		return fmt.Errorf("open daemon registry: %w", err)
	}
	workspacePath := filepath.Dir(agentsDir)
	if err := registry.Register(daemon.RegistryEntry{
		WorkspacePath: workspacePath,
		AgentsDir:     agentsDir,
		HTTPAddr:      httpAddr,
		PID:           os.Getpid(),
		Version:       Version,
		StartedAt:     srv.StartedAt,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register daemon")
	}
	defer func() { _ = registry.Unregister(workspacePath, os.Getpid()) }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-runCtx.Done():
		}
	}()

	group, groupCtx := errgroup.WithContext(runCtx)
	for _, p := range pollers {
		p := p
		group.Go(func() error {
			p.Run(groupCtx)
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		log.Info().Str("addr", httpAddr).Str("agentsDir", agentsDir).Msg("signetd listening")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("daemon run loop: %w", err)
	}
	log.Info().Msg("signetd shut down cleanly")
	return nil
}

// buildEmbedder uses a local Ollama embedding model when SIGNET_EMBED_MODEL
// is set and its client can be created, and otherwise falls back to the
// dependency-free hashing embedder (recall still works, just without
// semantic similarity). Ollama's reachability is not checked here.
func buildEmbedder(log zerolog.Logger) collab.Embedder {
	if model := os.Getenv("SIGNET_EMBED_MODEL"); model != "" {
		if emb, err := embedder.NewOllama(model, 768); err == nil {
			return emb
		}
		log.Warn().Str("model", model).Msg("ollama embedder unavailable, falling back to hashing embedder")
	}
	return embedder.NewHashing(768)
}

// buildGenerator prefers Anthropic when an API key is present, then a
// local Ollama model, and returns nil when neither is configured —
// extraction/decide/summary workers simply don't start in that case.
func buildGenerator(log zerolog.Logger) collab.Generator {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		model := os.Getenv("SIGNET_GENERATOR_MODEL")
		if gen, err := generator.NewAnthropic(apiKey, model); err == nil {
			return gen
		}
		log.Warn().Msg("anthropic generator unavailable despite ANTHROPIC_API_KEY set")
	}
	if model := os.Getenv("SIGNET_GENERATOR_MODEL"); model != "" {
		if gen, err := generator.NewOllama(model); err == nil {
			return gen
		}
		log.Warn().Str("model", model).Msg("ollama generator unavailable")
	}
	log.Info().Msg("no generator backend configured; extraction/decide/summary workers disabled")
	return nil
}
