package session

import (
	"context"
	"image"
	"sync"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/inference"
)

// gazeTap wraps the analyzer and remembers the last valid gaze score for
// the integrity calculation. Invalid readings keep the previous value.
type gazeTap struct {
	inference.Analyzer

	mu   sync.Mutex
	last float64
}

func newGazeTap(analyzer inference.Analyzer) *gazeTap {
	// No reading yet means no gaze penalty.
	return &gazeTap{Analyzer: analyzer, last: 1}
}

func (g *gazeTap) AnalyzeFrame(ctx context.Context, img []byte) (*inference.FrameInsight, error) {
	insight, err := g.Analyzer.AnalyzeFrame(ctx, img)
	if err == nil && insight != nil && insight.Gaze.Valid {
		g.mu.Lock()
		g.last = insight.Gaze.Score
		g.mu.Unlock()
	}
	return insight, err
}

// Last returns the most recent valid gaze score in [0,1].
func (g *gazeTap) Last() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// switchableSource lets the track watcher swap the backing camera track
// without rebuilding the sampler chain above it. A nil backing source
// reads as not playing, so sampling skips cleanly while a replacement is
// being acquired.
type switchableSource struct {
	mu  sync.RWMutex
	src capture.Source
}

var _ capture.Source = (*switchableSource)(nil)
var _ capture.DegradedReporter = (*switchableSource)(nil)

func newSwitchableSource(src capture.Source) *switchableSource {
	return &switchableSource{src: src}
}

func (s *switchableSource) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.RLock()
	src := s.src
	s.mu.RUnlock()
	if src == nil {
		return nil, capture.ErrNotPlaying
	}
	return src.Snapshot(ctx)
}

func (s *switchableSource) Degraded() bool {
	s.mu.RLock()
	src := s.src
	s.mu.RUnlock()
	if reporter, ok := src.(capture.DegradedReporter); ok {
		return reporter.Degraded()
	}
	return false
}

func (s *switchableSource) swap(src capture.Source) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}
