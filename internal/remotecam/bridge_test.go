package remotecam

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodedJPEG(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	img := capture.SolidImage(64, 48, color.RGBA{R: 200, G: 140, B: 110, A: 255})
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestBridge(t *testing.T, baseURL string, config Config) *Bridge {
	t.Helper()

	config.BaseURL = baseURL
	return NewBridge(NewClient(config), "sess-1", config, testLogger())
}

func drainFrames(b *Bridge) []capture.Frame {
	var out []capture.Frame
	for {
		select {
		case f := <-b.Frames():
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestBridge_ForwardsEveryNthFreshFrame(t *testing.T) {
	frameData := encodedJPEG(t)
	var served atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)
		fmt.Fprintf(w, `{"frameData":%q,"frameCount":%d}`, frameData, n)
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{AnalysisEvery: 3})
	for i := 0; i < 7; i++ {
		b.pollFrame(context.Background())
	}

	frames := drainFrames(b)
	require.Len(t, frames, 2, "seven fresh frames forward twice at every third")
	assert.Equal(t, uint64(1), frames[0].Seq)
	assert.Equal(t, uint64(2), frames[1].Seq)
	assert.Equal(t, domain.SourceSecondary, frames[0].Source)
	assert.Equal(t, 64, frames[0].Width)
	assert.Equal(t, 48, frames[0].Height)
	assert.NotEmpty(t, frames[0].Data)
}

func TestBridge_SkipsRepeatedServerFrame(t *testing.T) {
	frameData := encodedJPEG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the phone stopped uploading; the relay keeps serving frame 5
		fmt.Fprintf(w, `{"frameData":%q,"frameCount":5}`, frameData)
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{AnalysisEvery: 1})
	for i := 0; i < 6; i++ {
		b.pollFrame(context.Background())
	}

	assert.Len(t, drainFrames(b), 1, "an unchanged frame is not re-analyzed")
}

func TestBridge_PlaceholderSkipsAnalysis(t *testing.T) {
	frameData := encodedJPEG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"frameData":%q,"frameCount":1,"isPlaceholder":true}`, frameData)
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{AnalysisEvery: 1})
	b.pollFrame(context.Background())

	assert.Empty(t, drainFrames(b))
	assert.True(t, b.Degraded())

	img, err := b.Snapshot(context.Background())
	require.NoError(t, err, "placeholder content still renders")
	assert.NotNil(t, img)
}

func TestBridge_ReconnectingPlaceholderAfterFailures(t *testing.T) {
	frameData := encodedJPEG(t)
	var failing atomic.Bool
	failing.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"frameData":%q,"frameCount":9}`, frameData)
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{FailureThreshold: 3})

	// up to the threshold nothing is served yet
	for i := 0; i < 3; i++ {
		b.pollFrame(context.Background())
	}
	_, err := b.Snapshot(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotPlaying)
	assert.False(t, b.Degraded())

	// one more failure trips the placeholder
	b.pollFrame(context.Background())
	assert.True(t, b.Degraded())

	img, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, placeholderWidth, rgba.Bounds().Dx())
	assert.Equal(t, placeholderHeight, rgba.Bounds().Dy())
	assert.Equal(t, placeholderBackground, rgba.RGBAAt(0, 0))

	// recovery swaps the live frame back in
	failing.Store(false)
	b.pollFrame(context.Background())
	assert.False(t, b.Degraded())

	img, err = b.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestBridge_ConnectionGate(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	fresh := now.Add(-5 * time.Second)

	tests := []struct {
		name   string
		status domain.RemoteCameraStatus
		want   bool
	}{
		{
			name: "all four signals hold",
			status: domain.RemoteCameraStatus{
				FrameCount: 3, LastUpdated: fresh, Connected: true, Verified: true,
			},
			want: true,
		},
		{
			name: "no frames uploaded",
			status: domain.RemoteCameraStatus{
				FrameCount: 0, LastUpdated: fresh, Connected: true, Verified: true,
			},
			want: false,
		},
		{
			name: "stale upload",
			status: domain.RemoteCameraStatus{
				FrameCount: 3, LastUpdated: now.Add(-20 * time.Second), Connected: true, Verified: true,
			},
			want: false,
		},
		{
			name: "not verified",
			status: domain.RemoteCameraStatus{
				FrameCount: 3, LastUpdated: fresh, Connected: true, Verified: false,
			},
			want: false,
		},
		{
			name: "relay says disconnected",
			status: domain.RemoteCameraStatus{
				FrameCount: 3, LastUpdated: fresh, Connected: false, Verified: true,
			},
			want: false,
		},
		{
			name: "forced flag alone never passes",
			status: domain.RemoteCameraStatus{
				FrameCount: 0, Connected: false, Verified: false, Forced: true,
			},
			want: false,
		},
		{
			name: "forced flag does not block a real connection",
			status: domain.RemoteCameraStatus{
				FrameCount: 3, LastUpdated: fresh, Connected: true, Verified: true, Forced: true,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge(nil, "sess-1", DefaultConfig(), testLogger())
			b.now = func() time.Time { return now }
			b.status = tt.status

			assert.Equal(t, tt.want, b.Connected())
		})
	}
}

func TestBridge_CheckCameraKeepsLastStatusOnError(t *testing.T) {
	var failing atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"connected":true,"verified":true,"frameCount":10,"lastUpdated":1741615200000}`))
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{})
	b.checkCamera(context.Background(), true)
	require.Equal(t, 10, b.Status().FrameCount)

	// a failed check keeps the stored status; the recency gate ages it out
	failing.Store(true)
	b.checkCamera(context.Background(), true)
	assert.Equal(t, 10, b.Status().FrameCount)
	assert.True(t, b.Status().Connected)
}

func TestBridge_RunStopsOnContext(t *testing.T) {
	frameData := encodedJPEG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"frameData":%q,"frameCount":1,"connected":true,"verified":true,"lastUpdated":1}`, frameData)
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop")
	}
}
