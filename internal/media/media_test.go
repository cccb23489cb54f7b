package media

import (
	"bytes"
	"context"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
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

// mjpegServer streams the given number of frames per connection, then
// holds the connection open without sending more.
func mjpegServer(t *testing.T, frames int) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, capture.SolidImage(32, 24, color.White), nil))
	frame := buf.Bytes()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}

		for i := 0; i < frames; i++ {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			if _, err := part.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
}

func TestHTTPProvider_MissingURLs(t *testing.T) {
	provider := NewHTTPProvider(Config{}, testLogger())

	_, err := provider.AcquireVideo(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceUnavailable)

	_, err = provider.AcquireScreen(context.Background())
	assert.ErrorIs(t, err, domain.ErrScreenUnsupported)
}

func TestHTTPProvider_ProbeRefusals(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantCode: "PERMISSION_DENIED"},
		{name: "forbidden", status: http.StatusForbidden, wantCode: "PERMISSION_DENIED"},
		{name: "conflict", status: http.StatusConflict, wantCode: "DEVICE_BUSY"},
		{name: "not found", status: http.StatusNotFound, wantCode: "DEVICE_UNAVAILABLE"},
		{name: "server error", status: http.StatusInternalServerError, wantCode: "DEVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider := NewHTTPProvider(Config{VideoURL: server.URL}, testLogger())
			_, err := provider.AcquireVideo(context.Background())

			var appErr *domain.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	provider := NewHTTPProvider(Config{
		VideoURL:     "http://127.0.0.1:1/stream",
		ProbeTimeout: 500 * time.Millisecond,
	}, testLogger())

	_, err := provider.AcquireVideo(context.Background())

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DEVICE_UNAVAILABLE", appErr.Code)
}

func TestHTTPProvider_AcquireVideo(t *testing.T) {
	server := mjpegServer(t, 1)
	defer server.Close()

	provider := NewHTTPProvider(Config{VideoURL: server.URL}, testLogger())
	track, err := provider.AcquireVideo(context.Background())
	require.NoError(t, err)
	defer track.Stop()

	assert.Equal(t, KindVideo, track.Kind())
	assert.NotEmpty(t, track.ID())
	assert.True(t, track.Enabled())

	require.Eventually(t, func() bool {
		img, err := track.Snapshot(context.Background())
		return err == nil && img != nil
	}, 2*time.Second, 10*time.Millisecond, "stream never produced a frame")

	// a regular stop must not look like a device failure
	track.Stop()
	select {
	case <-track.Ended():
		t.Fatal("stop fired the ended signal")
	default:
	}
}

func TestStreamTrack_EndsWhenStreamGoesSilent(t *testing.T) {
	server := mjpegServer(t, 1)
	defer server.Close()

	provider := NewHTTPProvider(Config{
		VideoURL:   server.URL,
		EndedAfter: 150 * time.Millisecond,
	}, testLogger())

	track, err := provider.AcquireVideo(context.Background())
	require.NoError(t, err)
	defer track.Stop()

	select {
	case <-track.Ended():
	case <-time.After(3 * time.Second):
		t.Fatal("silent stream never ended the track")
	}
}

func TestHTTPProvider_AudioStub(t *testing.T) {
	provider := NewHTTPProvider(Config{}, testLogger())

	track, err := provider.AcquireAudio(context.Background())
	require.NoError(t, err)

	assert.Equal(t, KindAudio, track.Kind())
	assert.True(t, track.Enabled())

	track.SetEnabled(false)
	assert.False(t, track.Enabled())
	track.SetEnabled(true)
	assert.True(t, track.Enabled())
}

func TestBaseTrack_StopIsIdempotent(t *testing.T) {
	stops := 0
	track := newBaseTrack(KindVideo)
	track.stop = func() { stops++ }

	track.Stop()
	track.Stop()

	assert.Equal(t, 1, stops)
	assert.False(t, track.Enabled(), "a stopped track reports disabled")
}

func TestFakeTrack_EndNow(t *testing.T) {
	provider := NewFakeProvider()

	track, err := provider.AcquireVideo(context.Background())
	require.NoError(t, err)

	fake := track.(*FakeTrack)
	fake.EndNow()

	select {
	case <-track.Ended():
	case <-time.After(time.Second):
		t.Fatal("ended signal never fired")
	}

	// a second end or a late stop are both harmless
	fake.EndNow()
	track.Stop()
}

func TestFakeProvider_Refusals(t *testing.T) {
	provider := NewFakeProvider()
	provider.VideoErr = domain.ErrPermissionDenied

	_, err := provider.AcquireVideo(context.Background())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = provider.AcquireAudio(context.Background())
	assert.NoError(t, err)

	assert.Len(t, provider.AcquiredOf(KindAudio), 1)
	assert.Empty(t, provider.AcquiredOf(KindVideo))
}
