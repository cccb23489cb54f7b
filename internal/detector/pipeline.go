package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

const defaultAnalysisTimeout = 8 * time.Second

// Pipeline runs the candidate-camera detectors over sampled frames and
// feeds the report sink.
type Pipeline struct {
	source    string
	analyzer  inference.Analyzer
	detectors []Detector
	sink      Sink
	timeout   time.Duration
	logger    *slog.Logger

	inFlight atomic.Bool
	now      func() time.Time
}

// PipelineConfig wires a pipeline for one camera source
type PipelineConfig struct {
	Source    string
	Analyzer  inference.Analyzer
	Detectors []Detector
	Sink      Sink
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewPipeline creates a frame analysis pipeline
func NewPipeline(cfg PipelineConfig) *Pipeline {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:    cfg.Source,
		analyzer:  cfg.Analyzer,
		detectors: cfg.Detectors,
		sink:      cfg.Sink,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes frames until the channel closes or the context ends
func (p *Pipeline) Run(ctx context.Context, frames <-chan capture.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := p.Process(ctx, frame); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("frame analysis failed",
					"source", p.source,
					"seq", frame.Seq,
					"provider", p.analyzer.Name(),
					"error", err,
				)
			}
		}
	}
}

// Process analyzes one frame. A frame arriving while the previous one is
// still being analyzed is dropped, never queued.
func (p *Pipeline) Process(ctx context.Context, frame capture.Frame) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("analysis in flight, dropping frame", "source", p.source, "seq", frame.Seq)
		return nil
	}
	defer p.inFlight.Store(false)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	insight, err := p.analyzer.AnalyzeFrame(callCtx, frame.Data)
	if err != nil {
		if submitErr := p.sink.Submit(ctx, failureReport(p.source, frame.Seq, p.now(), err)); submitErr != nil {
			p.logger.Warn("failure report dropped", "source", p.source, "error", submitErr)
		}
		return fmt.Errorf("analyze frame %d: %w", frame.Seq, err)
	}

	report := Report{
		Source:   p.source,
		Seq:      frame.Seq,
		Degraded: insight.Degraded || frame.Degraded,
		At:       p.now(),
	}
	for _, det := range p.detectors {
		violations, checked := det.Evaluate(insight, report.At)
		report.Violations = append(report.Violations, violations...)
		report.Checked = append(report.Checked, checked...)
	}
	// A successful analysis clears any prior failure state.
	report.Checked = append(report.Checked, domain.KindAnalysisFailed)

	if report.Degraded {
		for i := range report.Violations {
			report.Violations[i].Degraded = true
		}
	}

	return p.sink.Submit(ctx, report)
}

// WorkspaceAnalyzer runs the secondary-camera workspace analysis
type WorkspaceAnalyzer interface {
	AnalyzeWorkspace(ctx context.Context, sessionID string, frame []byte) (*inference.WorkspaceReport, error)
}

// WorkspacePipeline runs the workspace detector over secondary frames
type WorkspacePipeline struct {
	sessionID string
	source    string
	analyzer  WorkspaceAnalyzer
	detector  *WorkspaceDetector
	sink      Sink
	timeout   time.Duration
	logger    *slog.Logger

	inFlight atomic.Bool
	now      func() time.Time
}

// WorkspacePipelineConfig wires the secondary-camera pipeline
type WorkspacePipelineConfig struct {
	SessionID string
	Source    string
	Analyzer  WorkspaceAnalyzer
	Sink      Sink
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewWorkspacePipeline creates the workspace analysis pipeline
func NewWorkspacePipeline(cfg WorkspacePipelineConfig) *WorkspacePipeline {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	source := cfg.Source
	if source == "" {
		source = domain.SourceSecondary
	}
	return &WorkspacePipeline{
		sessionID: cfg.SessionID,
		source:    source,
		analyzer:  cfg.Analyzer,
		detector:  NewWorkspaceDetector(source),
		sink:      cfg.Sink,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes frames until the channel closes or the context ends
func (p *WorkspacePipeline) Run(ctx context.Context, frames <-chan capture.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := p.Process(ctx, frame); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("workspace analysis failed",
					"source", p.source,
					"seq", frame.Seq,
					"error", err,
				)
			}
		}
	}
}

// Process analyzes one secondary frame, dropping it if one is in flight
func (p *WorkspacePipeline) Process(ctx context.Context, frame capture.Frame) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("workspace analysis in flight, dropping frame", "source", p.source, "seq", frame.Seq)
		return nil
	}
	defer p.inFlight.Store(false)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ws, err := p.analyzer.AnalyzeWorkspace(callCtx, p.sessionID, frame.Data)
	if err != nil {
		if submitErr := p.sink.Submit(ctx, failureReport(p.source, frame.Seq, p.now(), err)); submitErr != nil {
			p.logger.Warn("failure report dropped", "source", p.source, "error", submitErr)
		}
		return fmt.Errorf("analyze workspace frame %d: %w", frame.Seq, err)
	}

	report := Report{
		Source:   p.source,
		Seq:      frame.Seq,
		Degraded: ws.Fallback || frame.Degraded,
		At:       p.now(),
	}
	report.Violations, report.Checked = p.detector.Evaluate(ws, report.At)
	report.Checked = append(report.Checked, domain.KindAnalysisFailed)

	if report.Degraded {
		for i := range report.Violations {
			report.Violations[i].Degraded = true
		}
	}

	return p.sink.Submit(ctx, report)
}

// failureReport marks a frame unanalyzable without losing the sample
func failureReport(source string, seq uint64, at time.Time, cause error) Report {
	v := domain.NewViolation(
		domain.KindAnalysisFailed,
		domain.SeverityLow,
		1,
		fmt.Sprintf("frame analysis failed: %v", cause),
		source,
		at,
	)
	v.Degraded = true
	return Report{
		Source:     source,
		Seq:        seq,
		Violations: []domain.Violation{v},
		Checked:    []string{domain.KindAnalysisFailed},
		Degraded:   true,
		At:         at,
	}
}
