package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/detector"
	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/media"
	"github.com/examtrace/vigil/internal/remotecam"
)

// Loop names in the cancel registry. Stop cancels and awaits each one.
const (
	loopPrimarySample    = "primary-sample"
	loopPrimaryAnalyze   = "primary-analyze"
	loopSecondaryBridge  = "secondary-bridge"
	loopSecondaryAnalyze = "secondary-analyze"
	loopAggregate        = "aggregate"
	loopFocus            = "focus"
	loopIntegrity        = "integrity"
	loopReport           = "report"
	loopRecord           = "record"
	loopTrackWatch       = "track-watch"
)

// loop is one named monitoring goroutine with its own cancel handle.
type loop struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// spawnLocked registers and starts one loop. Loops get their own root
// context so they outlive the context passed to Start; Stop cancels them.
func (s *Session) spawnLocked(name string, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{name: name, cancel: cancel, done: make(chan struct{})}
	s.loops[name] = l
	go func() {
		defer close(l.done)
		run(ctx)
	}()
}

// Loops returns the names of the live monitoring loops, sorted.
func (s *Session) Loops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.loops))
	for name := range s.loops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) spawnLoopsLocked(bridge *remotecam.Bridge) {
	sampler := capture.NewSampler(s.videoSrc, capture.SamplerConfig{
		Interval: s.config.SampleInterval,
		Quality:  s.config.JPEGQuality,
		MaxWidth: s.config.MaxFrameWidth,
		Source:   domain.SourcePrimary,
	}, s.logger)

	pipeline := detector.NewPipeline(detector.PipelineConfig{
		Source:   domain.SourcePrimary,
		Analyzer: s.gaze,
		Detectors: []detector.Detector{
			detector.NewFaceDetector(domain.SourcePrimary),
			detector.NewGazeDetector(domain.SourcePrimary, s.config.GazeThreshold, s.config.GazeSustained),
			detector.NewObjectDetector(domain.SourcePrimary),
		},
		Sink:    s.deps.Aggregator,
		Timeout: s.config.AnalysisTimeout,
		Logger:  s.logger,
	})

	focus := detector.NewFocusDetector(domain.SourcePrimary, s.deps.Aggregator, s.logger)

	s.spawnLocked(loopAggregate, func(ctx context.Context) {
		_ = s.deps.Aggregator.Run(ctx)
	})
	s.spawnLocked(loopPrimarySample, func(ctx context.Context) {
		sampler.Run(ctx)
	})
	s.spawnLocked(loopPrimaryAnalyze, func(ctx context.Context) {
		_ = pipeline.Run(ctx, sampler.Frames())
	})
	s.spawnLocked(loopFocus, func(ctx context.Context) {
		_ = focus.Run(ctx, s.focus)
	})

	if bridge != nil {
		workspace := detector.NewWorkspacePipeline(detector.WorkspacePipelineConfig{
			SessionID: s.config.RemoteSessionID,
			Source:    domain.SourceSecondary,
			Analyzer:  s.deps.Workspace,
			Sink:      s.deps.Aggregator,
			Timeout:   s.config.AnalysisTimeout,
			Logger:    s.logger,
		})
		s.spawnLocked(loopSecondaryBridge, func(ctx context.Context) {
			_ = bridge.Run(ctx)
		})
		s.spawnLocked(loopSecondaryAnalyze, func(ctx context.Context) {
			_ = workspace.Run(ctx, bridge.Frames())
		})
	}

	if s.deps.Reporter != nil {
		s.spawnLocked(loopReport, func(ctx context.Context) {
			_ = s.deps.Reporter.Run(ctx)
		})
	}

	s.spawnLocked(loopRecord, func(ctx context.Context) {
		s.runRecord(ctx)
	})
	s.spawnLocked(loopIntegrity, func(ctx context.Context) {
		s.runIntegrity(ctx)
	})
	s.spawnLocked(loopTrackWatch, func(ctx context.Context) {
		s.runTrackWatch(ctx)
	})
}

// runRecord drains admitted violations into the on-device history that
// integrity scoring counts, and forwards them for remote persistence.
func (s *Session) runRecord(ctx context.Context) {
	admitted := s.deps.Aggregator.Admitted()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-admitted:
			if !ok {
				return
			}
			s.mu.Lock()
			s.recorded = append(s.recorded, v)
			s.mu.Unlock()
			if s.deps.Reporter != nil {
				s.deps.Reporter.Enqueue(v)
			}
			s.pushState()
		}
	}
}

// runIntegrity pushes fresh state on a fixed cadence and whenever the
// aggregator reports a change.
func (s *Session) runIntegrity(ctx context.Context) {
	ticker := time.NewTicker(s.config.IntegrityInterval)
	defer ticker.Stop()

	changes := s.deps.Aggregator.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pushState()
		case <-changes:
			s.pushState()
		}
	}
}

// runTrackWatch recovers tracks that die on their own. Camera and
// microphone get bounded re-acquisition; a dead screen share is only
// surfaced, the host has to ask for it again.
func (s *Session) runTrackWatch(ctx context.Context) {
	for {
		s.mu.Lock()
		video, audio, screen := s.video, s.audio, s.screen
		s.mu.Unlock()

		var videoEnded, audioEnded, screenEnded <-chan struct{}
		if video != nil {
			videoEnded = video.Ended()
		}
		if audio != nil {
			audioEnded = audio.Ended()
		}
		if screen != nil {
			screenEnded = screen.Ended()
		}

		select {
		case <-ctx.Done():
			return
		case <-s.tracksChange:
			// tracks swapped, re-arm the watch
		case <-videoEnded:
			s.recoverTrack(ctx, media.KindVideo)
		case <-audioEnded:
			s.recoverTrack(ctx, media.KindAudio)
		case <-screenEnded:
			s.mu.Lock()
			s.screen = nil
			s.mu.Unlock()
			s.logger.Warn("screen share ended")
			s.pushState()
		}
	}
}

// recoverTrack re-acquires a dead camera or microphone. Exhausting the
// attempt budget surfaces a persistent device error and the session keeps
// running without that track.
func (s *Session) recoverTrack(ctx context.Context, kind string) {
	s.logger.Warn("track ended, attempting recovery", "kind", kind)

	var lastErr error
	for attempt := 1; attempt <= s.config.ReacquireAttempts; attempt++ {
		err := s.reacquire(ctx, kind)
		if err == nil {
			s.logger.Info("track recovered", "kind", kind, "attempt", attempt)
			s.pushState()
			return
		}
		if errors.Is(err, ErrStopped) {
			return
		}
		lastErr = err
		s.logger.Warn("track recovery failed", "kind", kind, "attempt", attempt, "error", err)

		if attempt < s.config.ReacquireAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	s.mu.Lock()
	if s.phase != phaseRunning {
		s.mu.Unlock()
		return
	}
	switch kind {
	case media.KindVideo:
		s.video = nil
		s.videoSrc.swap(nil)
	case media.KindAudio:
		s.audio = nil
	}
	s.lastErr = domain.ErrTrackEnded.WithError(lastErr)
	s.mu.Unlock()

	s.logger.Error("track recovery exhausted", "kind", kind, "attempts", s.config.ReacquireAttempts)
	s.pushState()
}

// reacquire acquires and installs one replacement track. A session that
// stopped while the device was being acquired gets ErrStopped and the
// fresh track is released.
func (s *Session) reacquire(ctx context.Context, kind string) error {
	switch kind {
	case media.KindVideo:
		track, err := s.deps.Provider.AcquireVideo(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.phase != phaseRunning {
			s.mu.Unlock()
			track.Stop()
			return ErrStopped
		}
		s.video = track
		s.videoSrc.swap(track)
		s.mu.Unlock()
		return nil

	case media.KindAudio:
		track, err := s.deps.Provider.AcquireAudio(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.phase != phaseRunning {
			s.mu.Unlock()
			track.Stop()
			return ErrStopped
		}
		s.audio = track
		s.mu.Unlock()
		return nil
	}
	return nil
}

func reacquireBackoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}
