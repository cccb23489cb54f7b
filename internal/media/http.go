package media

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/domain"
)

// HTTPProvider serves tracks backed by MJPEG camera streams. The audio
// track is a liveness stub: audio content is never analyzed, only the
// enabled flag matters.
type HTTPProvider struct {
	config Config
	logger *slog.Logger
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a provider for the configured stream URLs
func NewHTTPProvider(config Config, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		config: config.withDefaults(),
		logger: logger,
	}
}

func (p *HTTPProvider) AcquireVideo(ctx context.Context) (VideoTrack, error) {
	if p.config.VideoURL == "" {
		return nil, domain.ErrDeviceUnavailable
	}
	return p.acquireStream(ctx, KindVideo, p.config.VideoURL)
}

func (p *HTTPProvider) AcquireAudio(_ context.Context) (Track, error) {
	return newBaseTrack(KindAudio), nil
}

func (p *HTTPProvider) AcquireScreen(ctx context.Context) (VideoTrack, error) {
	if p.config.ScreenURL == "" {
		return nil, domain.ErrScreenUnsupported
	}
	return p.acquireStream(ctx, KindScreen, p.config.ScreenURL)
}

func (p *HTTPProvider) acquireStream(ctx context.Context, kind, url string) (VideoTrack, error) {
	if err := p.probe(ctx, url); err != nil {
		return nil, err
	}

	src := capture.NewMJPEGSource(url, p.logger)
	streamCtx, cancel := context.WithCancel(context.Background())

	track := &streamTrack{
		baseTrack: newBaseTrack(kind),
		src:       src,
		cancel:    cancel,
		started:   time.Now(),
	}
	track.baseTrack.stop = cancel

	go src.Run(streamCtx)
	go track.watch(streamCtx, p.config.EndedAfter)

	return track, nil
}

// probe checks that the stream answers before a track is handed out, and
// maps the refusal onto the device error taxonomy.
func (p *HTTPProvider) probe(ctx context.Context, url string) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ErrDeviceUnavailable.WithError(err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.ErrDeviceUnavailable.WithError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrPermissionDenied
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusLocked:
		return domain.ErrDeviceBusy
	case resp.StatusCode >= 400:
		return domain.ErrDeviceUnavailable.WithError(errors.New(resp.Status))
	}
	return nil
}

// streamTrack is a video track over an MJPEG stream
type streamTrack struct {
	*baseTrack
	src     *capture.MJPEGSource
	cancel  context.CancelFunc
	started time.Time
}

func (t *streamTrack) Snapshot(ctx context.Context) (image.Image, error) {
	return t.src.Snapshot(ctx)
}

// watch declares the track dead when the stream stays silent past the
// window. The reconnect loop inside the source hides connection drops, so
// silence is the only reliable death signal.
func (t *streamTrack) watch(ctx context.Context, endedAfter time.Duration) {
	interval := endedAfter / 3
	if interval > 5*time.Second {
		interval = 5 * time.Second
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := t.src.LastFrameAt()
			if last.IsZero() {
				last = t.started
			}
			if time.Since(last) > endedAfter {
				t.fail()
				t.cancel()
				return
			}
		}
	}
}
