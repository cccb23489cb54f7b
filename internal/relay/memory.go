package relay

import (
	"context"
	"sync"
	"time"

	"github.com/examtrace/vigil/internal/domain"
)

// MemoryStore keeps pairing state in process memory. Pair it with the
// Sweeper so idle sessions do not accumulate.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	frames   map[string]FrameRecord
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		frames:   make(map[string]FrameRecord),
		now:      time.Now,
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := Session{ID: id, CreatedAt: m.now()}
	m.sessions[id] = sess
	delete(m.frames, id)
	return sess, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemoryStore) RecordUpload(_ context.Context, id string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	sess.FrameCount++
	sess.LastUpload = at
	m.sessions[id] = sess
	return sess.FrameCount, nil
}

func (m *MemoryStore) RecordHeartbeat(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.LastHeartbeat = at
	m.sessions[id] = sess
	return nil
}

func (m *MemoryStore) SetVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Verified = true
	m.sessions[id] = sess
	return nil
}

func (m *MemoryStore) PutFrame(_ context.Context, id string, frame FrameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	m.frames[id] = frame
	return nil
}

func (m *MemoryStore) GetFrame(_ context.Context, id string) (FrameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return FrameRecord{}, domain.ErrSessionNotFound
	}
	frame, ok := m.frames[id]
	if !ok {
		return FrameRecord{}, domain.ErrNoFrameAvailable
	}
	return frame, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.frames, id)
	return nil
}

// Sweep drops sessions whose latest activity predates the cutoff.
func (m *MemoryStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if lastActivity(sess).Before(olderThan) {
			delete(m.sessions, id)
			delete(m.frames, id)
			removed++
		}
	}
	return removed, nil
}

func lastActivity(sess Session) time.Time {
	last := sess.CreatedAt
	if sess.LastUpload.After(last) {
		last = sess.LastUpload
	}
	if sess.LastHeartbeat.After(last) {
		last = sess.LastHeartbeat
	}
	return last
}
