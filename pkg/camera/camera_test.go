package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimateFPS(t *testing.T) {
	require.Equal(t, float64(10), EstimateFPS(nil))

	intervals := []time.Duration{
		100 * time.Millisecond,
		101 * time.Millisecond,
		99 * time.Millisecond,
		500 * time.Millisecond, // one stall must not skew the median
		100 * time.Millisecond,
	}
	require.Equal(t, float64(10), EstimateFPS(intervals))

	// Sub-1FPS cameras round to power-of-two seconds per frame
	slow := []time.Duration{4 * time.Second, 4 * time.Second, 4100 * time.Millisecond}
	require.InDelta(t, 0.25, EstimateFPS(slow), 1e-9)
}

func TestSyntheticSource(t *testing.T) {
	src := NewSyntheticSource(8, 8, time.Millisecond)
	require.NoError(t, src.Start())

	frame, ok := <-src.Frames()
	require.True(t, ok)
	require.Equal(t, 8, frame.Image.Width)
	require.Equal(t, 8, frame.Image.Height)
	require.False(t, frame.PTS.IsZero())

	src.Stop()
	src.Stop() // idempotent
	// Channel drains and closes after Stop
	for range src.Frames() {
	}
}

func TestSyntheticSourcePermission(t *testing.T) {
	src := NewSyntheticSource(8, 8, time.Millisecond)
	src.DenyPermission = true
	require.ErrorIs(t, src.Start(), ErrPermissionDenied)
}

func TestSyntheticSourceBadConfig(t *testing.T) {
	src := NewSyntheticSource(0, 8, time.Millisecond)
	require.ErrorIs(t, src.Start(), ErrDeviceUnavailable)
}

func TestSyntheticSourcePause(t *testing.T) {
	src := NewSyntheticSource(4, 4, time.Millisecond)
	require.NoError(t, src.Start())
	defer src.Stop()

	<-src.Frames()
	src.Pause()
	// Drain whatever was already buffered, then expect silence
	select {
	case <-src.Frames():
	default:
	}
	select {
	case <-src.Frames():
		t.Fatal("received frame while paused")
	case <-time.After(20 * time.Millisecond):
	}

	src.Resume()
	select {
	case _, ok := <-src.Frames():
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no frame after resume")
	}
}
