package relay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/vigil/internal/domain"
)

var storeBase = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemoryStoreAt(at time.Time) *MemoryStore {
	store := NewMemoryStore()
	store.now = func() time.Time { return at }
	return store
}

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(storeBase)

	created, err := store.CreateSession(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", created.ID)
	assert.Equal(t, storeBase, created.CreatedAt)

	count, err := store.RecordUpload(ctx, "room-1", storeBase.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.RecordUpload(ctx, "room-1", storeBase.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.RecordHeartbeat(ctx, "room-1", storeBase.Add(3*time.Second)))
	require.NoError(t, store.SetVerified(ctx, "room-1"))

	sess, err := store.GetSession(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.FrameCount)
	assert.Equal(t, storeBase.Add(2*time.Second), sess.LastUpload)
	assert.Equal(t, storeBase.Add(3*time.Second), sess.LastHeartbeat)
	assert.True(t, sess.Verified)

	require.NoError(t, store.DeleteSession(ctx, "room-1"))
	_, err = store.GetSession(ctx, "room-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_RecreateResetsSession(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(storeBase)

	_, err := store.CreateSession(ctx, "room-1")
	require.NoError(t, err)
	_, err = store.RecordUpload(ctx, "room-1", storeBase)
	require.NoError(t, err)
	require.NoError(t, store.PutFrame(ctx, "room-1", FrameRecord{Data: []byte("jpeg"), Seq: 1}))

	_, err = store.CreateSession(ctx, "room-1")
	require.NoError(t, err)

	sess, err := store.GetSession(ctx, "room-1")
	require.NoError(t, err)
	assert.Zero(t, sess.FrameCount)

	_, err = store.GetFrame(ctx, "room-1")
	require.ErrorIs(t, err, domain.ErrNoFrameAvailable)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetSession(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = store.RecordUpload(ctx, "ghost", storeBase)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, store.RecordHeartbeat(ctx, "ghost", storeBase), domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.SetVerified(ctx, "ghost"), domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.PutFrame(ctx, "ghost", FrameRecord{}), domain.ErrSessionNotFound)

	_, err = store.GetFrame(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// deleting what is not there is not an error
	assert.NoError(t, store.DeleteSession(ctx, "ghost"))
}

func TestMemoryStore_FrameRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(storeBase)

	_, err := store.CreateSession(ctx, "room-1")
	require.NoError(t, err)

	_, err = store.GetFrame(ctx, "room-1")
	require.ErrorIs(t, err, domain.ErrNoFrameAvailable)

	want := FrameRecord{Data: []byte{0xff, 0xd8, 0xff}, Seq: 7, UploadedAt: storeBase}
	require.NoError(t, store.PutFrame(ctx, "room-1", want))

	got, err := store.GetFrame(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSession_ConnectedGate(t *testing.T) {
	now := storeBase
	recency := 15 * time.Second

	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{
			name: "no uploads yet",
			sess: Session{FrameCount: 0},
			want: false,
		},
		{
			name: "recent upload",
			sess: Session{FrameCount: 3, LastUpload: now.Add(-5 * time.Second)},
			want: true,
		},
		{
			name: "upload exactly on the window edge",
			sess: Session{FrameCount: 3, LastUpload: now.Add(-recency)},
			want: true,
		},
		{
			name: "stale upload",
			sess: Session{FrameCount: 3, LastUpload: now.Add(-recency - time.Second)},
			want: false,
		},
		{
			name: "forced flag alone is not a connection",
			sess: Session{Forced: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sess.Connected(now, recency))
		})
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(storeBase.Add(-time.Hour))

	_, err := store.CreateSession(ctx, "idle")
	require.NoError(t, err)

	store.now = func() time.Time { return storeBase }
	_, err = store.CreateSession(ctx, "fresh")
	require.NoError(t, err)

	// heartbeats count as activity
	_, err = store.CreateSession(ctx, "beating")
	require.NoError(t, err)
	sess := store.sessions["beating"]
	sess.CreatedAt = storeBase.Add(-time.Hour)
	sess.LastHeartbeat = storeBase.Add(-time.Minute)
	store.sessions["beating"] = sess

	removed, err := store.Sweep(ctx, storeBase.Add(-DefaultSessionTTL))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetSession(ctx, "idle")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.GetSession(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.GetSession(ctx, "beating")
	assert.NoError(t, err)
}

func TestSweeper_EvictsIdleSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemoryStoreAt(storeBase.Add(-time.Hour))
	_, err := store.CreateSession(ctx, "idle")
	require.NoError(t, err)
	store.now = time.Now

	sweeper := NewSweeper(store, DefaultSessionTTL, 10*time.Millisecond, testLogger())
	sweeper.now = func() time.Time { return storeBase }

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, err := store.GetSession(context.Background(), "idle")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	sweeper.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
