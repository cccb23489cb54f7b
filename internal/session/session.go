// Package session coordinates a full proctoring run: device acquisition,
// frame sampling, analysis pipelines, the remote camera bridge, violation
// aggregation, integrity scoring and report delivery. Every background
// loop is registered under a name in an explicit cancel registry so
// teardown is complete and observable.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/examtrace/vigil/internal/detector"
	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
	"github.com/examtrace/vigil/internal/integrity"
	"github.com/examtrace/vigil/internal/media"
	"github.com/examtrace/vigil/internal/remotecam"
	"github.com/examtrace/vigil/internal/report"
	"github.com/examtrace/vigil/internal/violation"
)

const (
	defaultIntegrityInterval = 5 * time.Second
	defaultReacquireAttempts = 3
	focusBuffer              = 16
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrNotRunning is returned by operations that need a live session.
	ErrNotRunning = errors.New("session is not running")
	// ErrStopped is returned by Start when Stop won a race against it.
	ErrStopped = errors.New("session stopped during start")
)

// Config carries the per-run settings of one proctoring session.
type Config struct {
	// TestID identifies the exam run on reported violations.
	TestID string
	// RemoteSessionID pairs the phone camera through the relay. Empty
	// disables the secondary camera entirely.
	RemoteSessionID string

	// SampleInterval is the primary camera sampling cadence.
	SampleInterval time.Duration
	// JPEGQuality and MaxFrameWidth control frame encoding before analysis.
	JPEGQuality   int
	MaxFrameWidth int
	// AnalysisTimeout bounds one provider call per frame.
	AnalysisTimeout time.Duration

	// GazeThreshold and GazeSustained tune the attention detector.
	GazeThreshold float64
	GazeSustained int

	// IntegrityInterval is how often the state listener gets a fresh
	// snapshot even without violation activity. Zero defaults to 5s.
	IntegrityInterval time.Duration
	// ReacquireAttempts bounds recovery after a track dies on its own.
	// Zero defaults to 3.
	ReacquireAttempts int

	// Remote configures the secondary camera bridge.
	Remote remotecam.Config

	// OnState receives a snapshot after every meaningful change. It is
	// called from session goroutines and must not block.
	OnState func(State)
}

// Dependencies are the collaborators a session orchestrates. Provider,
// Analyzer and Aggregator are required; Reporter, Relay and Workspace are
// optional and disable their feature when nil.
type Dependencies struct {
	Provider   media.Provider
	Analyzer   inference.Analyzer
	Workspace  detector.WorkspaceAnalyzer
	Aggregator *violation.Aggregator
	Reporter   *report.Reporter
	Relay      *remotecam.Client
	Logger     *slog.Logger
}

// State is one observable snapshot of the session for the embedding host.
type State struct {
	Running bool
	// Err is the persistent device error, set when track recovery is
	// exhausted. The session keeps running in degraded form.
	Err error

	Integrity  domain.SessionIntegrity
	Violations violation.Snapshot

	CameraActive     bool
	MicrophoneActive bool
	ScreenSharing    bool

	Remote          domain.RemoteCameraStatus
	RemoteConnected bool
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarting
	phaseRunning
	phaseStopped
)

// Session conduz a prova inteira: câmeras, análise e violações.
type Session struct {
	config Config
	deps   Dependencies
	logger *slog.Logger

	gaze *gazeTap

	mu       sync.Mutex
	phase    phase
	loops    map[string]*loop
	video    media.VideoTrack
	audio    media.Track
	screen   media.VideoTrack
	videoSrc *switchableSource
	bridge   *remotecam.Bridge
	recorded []domain.Violation
	lastErr  error

	focus        chan detector.FocusEvent
	tracksChange chan struct{}

	backoff func(attempt int) time.Duration
}

// New creates a session. Nothing runs until Start.
func New(config Config, deps Dependencies) *Session {
	if config.IntegrityInterval <= 0 {
		config.IntegrityInterval = defaultIntegrityInterval
	}
	if config.ReacquireAttempts <= 0 {
		config.ReacquireAttempts = defaultReacquireAttempts
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		config:       config,
		deps:         deps,
		logger:       logger,
		gaze:         newGazeTap(deps.Analyzer),
		loops:        make(map[string]*loop),
		focus:        make(chan detector.FocusEvent, focusBuffer),
		tracksChange: make(chan struct{}, 1),
		backoff:      reacquireBackoff,
	}
}

// Start acquires the candidate's camera and microphone and spins up every
// monitoring loop. Acquisition failures are returned to the caller
// untouched so the host can show the exact device error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == phaseStarting || s.phase == phaseRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.phase = phaseStarting
	s.lastErr = nil
	s.recorded = nil
	s.mu.Unlock()

	video, err := s.deps.Provider.AcquireVideo(ctx)
	if err != nil {
		s.abortStart()
		return err
	}
	audio, err := s.deps.Provider.AcquireAudio(ctx)
	if err != nil {
		video.Stop()
		s.abortStart()
		return err
	}

	var bridge *remotecam.Bridge
	if s.deps.Relay != nil && s.config.RemoteSessionID != "" {
		if err := s.deps.Relay.CreateSession(ctx, s.config.RemoteSessionID); err != nil {
			s.logger.Warn("remote camera session registration failed",
				"session_id", s.config.RemoteSessionID,
				"error", err,
			)
		}
		bridge = remotecam.NewBridge(s.deps.Relay, s.config.RemoteSessionID, s.config.Remote, s.logger)
	}

	s.mu.Lock()
	if s.phase != phaseStarting {
		// Stop won the race while devices were being acquired.
		s.mu.Unlock()
		video.Stop()
		audio.Stop()
		return ErrStopped
	}
	s.video = video
	s.audio = audio
	s.videoSrc = newSwitchableSource(video)
	s.bridge = bridge
	s.spawnLoopsLocked(bridge)
	s.phase = phaseRunning
	s.mu.Unlock()

	s.logger.Info("session started",
		"test_id", s.config.TestID,
		"remote_camera", bridge != nil,
	)
	s.pushState()
	return nil
}

func (s *Session) abortStart() {
	s.mu.Lock()
	if s.phase == phaseStarting {
		s.phase = phaseIdle
	}
	s.mu.Unlock()
}

// Stop tears the session down: every named loop is cancelled and awaited,
// the tracks are stopped and the analyzer is closed. Calling it again is
// a no-op, and it is safe to race with an in-flight Start.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.phase == phaseIdle || s.phase == phaseStopped {
		s.mu.Unlock()
		return
	}
	s.phase = phaseStopped
	loops := s.loops
	s.loops = make(map[string]*loop)
	video, audio, screen := s.video, s.audio, s.screen
	s.video, s.audio, s.screen = nil, nil, nil
	s.videoSrc = nil
	s.bridge = nil
	s.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
	for _, l := range loops {
		<-l.done
	}

	if video != nil {
		video.Stop()
	}
	if audio != nil {
		audio.Stop()
	}
	if screen != nil {
		screen.Stop()
	}
	if closer, ok := s.deps.Analyzer.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("analyzer close failed", "error", err)
		}
	}

	s.logger.Info("session stopped", "test_id", s.config.TestID)
	s.pushState()
}

// ToggleMicrophone flips the microphone's enabled state and returns the
// new state. The track keeps running; a muted microphone still counts
// against integrity.
func (s *Session) ToggleMicrophone() bool {
	s.mu.Lock()
	audio := s.audio
	s.mu.Unlock()
	if audio == nil {
		return false
	}

	enabled := !audio.Enabled()
	audio.SetEnabled(enabled)
	s.logger.Info("microphone toggled", "enabled", enabled)
	s.pushState()
	return enabled
}

// ToggleScreenShare starts screen capture when off and stops it when on,
// returning the new sharing state. It never restarts the session.
func (s *Session) ToggleScreenShare() (bool, error) {
	s.mu.Lock()
	if s.phase != phaseRunning {
		s.mu.Unlock()
		return false, ErrNotRunning
	}
	screen := s.screen
	s.mu.Unlock()

	if screen != nil {
		screen.Stop()
		s.mu.Lock()
		s.screen = nil
		s.mu.Unlock()
		s.signalTracksChanged()
		s.logger.Info("screen share stopped")
		s.pushState()
		return false, nil
	}

	track, err := s.deps.Provider.AcquireScreen(context.Background())
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	if s.phase != phaseRunning {
		s.mu.Unlock()
		track.Stop()
		return false, ErrNotRunning
	}
	s.screen = track
	s.mu.Unlock()
	s.signalTracksChanged()
	s.logger.Info("screen share started")
	s.pushState()
	return true, nil
}

// NotifyFocus feeds a visibility transition from the exam surface into the
// focus detector. Events arriving while the session is down are dropped.
func (s *Session) NotifyFocus(event detector.FocusEvent) {
	s.mu.Lock()
	running := s.phase == phaseRunning
	s.mu.Unlock()
	if !running {
		return
	}

	select {
	case s.focus <- event:
	default:
		s.logger.Debug("focus event dropped", "kind", event.Kind)
	}
}

// DismissOverlay hides the violation overlay until its cooldown expires
// or a new violation kind shows up.
func (s *Session) DismissOverlay() {
	s.deps.Aggregator.Dismiss()
	s.pushState()
}

// Running reports whether the monitoring loops are up.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseRunning
}

// Err returns the persistent device error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Violations returns the aggregator's current snapshot.
func (s *Session) Violations() violation.Snapshot {
	return s.deps.Aggregator.Snapshot()
}

// Integrity computes the current integrity score from the recorded
// violations, the device states and the last valid gaze reading.
func (s *Session) Integrity() domain.SessionIntegrity {
	s.mu.Lock()
	recorded := s.recorded
	video, audio := s.video, s.audio
	s.mu.Unlock()

	flags := integrity.Flags{
		CameraActive:     video != nil && video.Enabled(),
		MicrophoneActive: audio != nil && audio.Enabled(),
	}
	return integrity.Score(recorded, flags, s.gaze.Last())
}

// State assembles the full observable state of the session.
func (s *Session) State() State {
	snap := s.deps.Aggregator.Snapshot()

	s.mu.Lock()
	recorded := s.recorded
	video, audio, screen := s.video, s.audio, s.screen
	bridge := s.bridge
	lastErr := s.lastErr
	running := s.phase == phaseRunning
	s.mu.Unlock()

	flags := integrity.Flags{
		CameraActive:     video != nil && video.Enabled(),
		MicrophoneActive: audio != nil && audio.Enabled(),
	}
	state := State{
		Running:          running,
		Err:              lastErr,
		Integrity:        integrity.Score(recorded, flags, s.gaze.Last()),
		Violations:       snap,
		CameraActive:     flags.CameraActive,
		MicrophoneActive: flags.MicrophoneActive,
		ScreenSharing:    screen != nil,
	}
	if bridge != nil {
		state.Remote = bridge.Status()
		state.RemoteConnected = bridge.Connected()
	}
	return state
}

func (s *Session) pushState() {
	if s.config.OnState == nil {
		return
	}
	s.config.OnState(s.State())
}

func (s *Session) signalTracksChanged() {
	select {
	case s.tracksChange <- struct{}{}:
	default:
	}
}
