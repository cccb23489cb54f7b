package media

import (
	"sync"

	"github.com/google/uuid"
)

// baseTrack carries the shared track plumbing
type baseTrack struct {
	id   string
	kind string

	mu      sync.Mutex
	enabled bool
	stopped bool
	ended   chan struct{}

	// stop releases the backing resource; assigned by the owner.
	stop func()
}

func newBaseTrack(kind string) *baseTrack {
	return &baseTrack{
		id:      uuid.NewString(),
		kind:    kind,
		enabled: true,
		ended:   make(chan struct{}),
	}
}

func (t *baseTrack) ID() string {
	return t.id
}

func (t *baseTrack) Kind() string {
	return t.kind
}

func (t *baseTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *baseTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *baseTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	stop := t.stop
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (t *baseTrack) Ended() <-chan struct{} {
	return t.ended
}

// fail marks the track dead from the device side and fires Ended. After a
// regular Stop it is a no-op.
func (t *baseTrack) fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.ended)
}
