package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/examtrace/vigil/internal/config"
	"github.com/examtrace/vigil/internal/detector"
	"github.com/examtrace/vigil/internal/media"
	"github.com/examtrace/vigil/internal/remotecam"
	"github.com/examtrace/vigil/internal/report"
	"github.com/examtrace/vigil/internal/session"
	"github.com/examtrace/vigil/internal/violation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Vigil agent",
		slog.String("environment", cfg.Environment),
		slog.String("test_id", cfg.TestID),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Camera and screen streams
	var provider media.Provider
	if cfg.PrimaryStreamURL != "" {
		provider = media.NewHTTPProvider(media.Config{
			VideoURL:  cfg.PrimaryStreamURL,
			ScreenURL: cfg.ScreenStreamURL,
		}, logger)
	} else {
		logger.Warn("no camera stream configured, using synthetic tracks")
		provider = media.NewFakeProvider()
	}

	// Frame analysis provider
	analyzer, err := detector.NewAnalyzer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}
	workspace := detector.NewWorkspaceAnalyzer(cfg)

	// Violation pipeline
	aggregator := violation.New(violation.Config{
		Throttle:            cfg.ThrottleInterval,
		DismissCooldown:     cfg.DismissCooldown,
		CountDegraded:       cfg.CountDegraded,
		DegradedSeverityCap: cfg.DegradedSeverityCap,
	}, logger)

	var reporter *report.Reporter
	if cfg.ViolationsURL != "" {
		if cfg.TestID == "" {
			logger.Warn("VIOLATIONS_URL set without TEST_ID, reports will be rejected")
		}
		reporter = report.NewReporter(report.Config{
			ViolationsURL: cfg.ViolationsURL,
			TestID:        cfg.TestID,
		}, logger)
	}

	// Secondary phone camera through the relay
	remoteCfg := remotecam.Config{
		BaseURL:           cfg.RelayURL,
		PollInterval:      cfg.PollInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		AnalysisEvery:     cfg.AnalysisEvery,
		FailureThreshold:  cfg.FailureThreshold,
		FrameRecency:      cfg.FrameRecency,
	}
	var relayClient *remotecam.Client
	if cfg.RemoteSessionID != "" {
		relayClient = remotecam.NewClient(remoteCfg)
	}

	sess := session.New(session.Config{
		TestID:            cfg.TestID,
		RemoteSessionID:   cfg.RemoteSessionID,
		SampleInterval:    cfg.SampleInterval,
		JPEGQuality:       cfg.JPEGQuality,
		MaxFrameWidth:     cfg.MaxFrameWidth,
		AnalysisTimeout:   cfg.AnalysisTimeout,
		GazeThreshold:     cfg.GazeThreshold,
		GazeSustained:     cfg.GazeSustained,
		ReacquireAttempts: cfg.ReacquireAttempts,
		Remote:            remoteCfg,
		OnState:           logState(logger),
	}, session.Dependencies{
		Provider:   provider,
		Analyzer:   analyzer,
		Workspace:  workspace,
		Aggregator: aggregator,
		Reporter:   reporter,
		Relay:      relayClient,
		Logger:     logger,
	})

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	logger.Info("proctoring session started", slog.Any("loops", sess.Loops()))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	sess.Stop()
	logger.Info("session stopped",
		slog.Int("integrity_score", sess.Integrity().Score),
		slog.Int("violations_total", sess.Violations().Total),
	)

	return nil
}

// logState turns session snapshots into log lines. Overlay flips are the
// ones a proctor cares about, the rest stays at debug. Snapshots arrive
// from several session goroutines.
func logState(logger *slog.Logger) func(session.State) {
	var mu sync.Mutex
	var lastVisible bool
	return func(st session.State) {
		mu.Lock()
		flipped := st.Violations.Overlay.Visible != lastVisible
		lastVisible = st.Violations.Overlay.Visible
		mu.Unlock()

		if flipped {
			if st.Violations.Overlay.Visible {
				logger.Info("violation overlay shown",
					slog.String("mode", st.Violations.Overlay.Mode),
					slog.Any("kinds", st.Violations.Overlay.Kinds),
				)
			} else {
				logger.Info("violation overlay cleared")
			}
		}

		logger.Debug("session state",
			slog.Bool("running", st.Running),
			slog.Int("integrity_score", st.Integrity.Score),
			slog.String("integrity_level", st.Integrity.Level),
			slog.Int("violations_total", st.Violations.Total),
			slog.Bool("remote_connected", st.RemoteConnected),
		)
	}
}
