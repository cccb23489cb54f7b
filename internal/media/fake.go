package media

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/examtrace/vigil/internal/capture"
)

// FakeProvider hands out in-memory tracks. Tests drive acquisition
// failures and device revocations through it.
type FakeProvider struct {
	mu sync.Mutex

	VideoErr  error
	AudioErr  error
	ScreenErr error

	// Image is served by every video and screen track.
	Image image.Image

	acquired []*FakeTrack
}

var _ Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Image: capture.SolidImage(64, 48, color.RGBA{R: 200, G: 140, B: 110, A: 255}),
	}
}

func (p *FakeProvider) AcquireVideo(_ context.Context) (VideoTrack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.VideoErr != nil {
		return nil, p.VideoErr
	}
	return p.newTrack(KindVideo, p.Image), nil
}

func (p *FakeProvider) AcquireAudio(_ context.Context) (Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.AudioErr != nil {
		return nil, p.AudioErr
	}
	return p.newTrack(KindAudio, nil), nil
}

func (p *FakeProvider) AcquireScreen(_ context.Context) (VideoTrack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ScreenErr != nil {
		return nil, p.ScreenErr
	}
	return p.newTrack(KindScreen, p.Image), nil
}

// Acquired returns every track handed out so far, in order.
func (p *FakeProvider) Acquired() []*FakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakeTrack(nil), p.acquired...)
}

// AcquiredOf returns the tracks of one kind, in acquisition order.
func (p *FakeProvider) AcquiredOf(kind string) []*FakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*FakeTrack
	for _, tr := range p.acquired {
		if tr.Kind() == kind {
			out = append(out, tr)
		}
	}
	return out
}

func (p *FakeProvider) newTrack(kind string, img image.Image) *FakeTrack {
	tr := &FakeTrack{
		baseTrack: newBaseTrack(kind),
		img:       img,
	}
	p.acquired = append(p.acquired, tr)
	return tr
}

// FakeTrack is an in-memory track serving a fixed image
type FakeTrack struct {
	*baseTrack
	img image.Image
}

func (t *FakeTrack) Snapshot(_ context.Context) (image.Image, error) {
	if t.img == nil {
		return nil, capture.ErrNotPlaying
	}
	return t.img, nil
}

// EndNow simulates the device dying mid-session.
func (t *FakeTrack) EndNow() {
	t.fail()
}
