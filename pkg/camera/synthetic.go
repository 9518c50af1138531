package camera

import (
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
)

// SyntheticSource generates solid-color frames at a fixed rate. It exists
// so that the streaming pipeline can be exercised without real camera
// hardware, in tests and in the demo CLI.
type SyntheticSource struct {
	Width    int
	Height   int
	Interval time.Duration

	// DenyPermission makes Start fail with ErrPermissionDenied, to test
	// the synchronous failure path.
	DenyPermission bool

	frames   chan Frame
	paused   atomic.Bool
	mustStop atomic.Bool
	stopped  chan struct{}
}

// NewSyntheticSource creates a source producing width x height RGB frames
// every interval.
func NewSyntheticSource(width, height int, interval time.Duration) *SyntheticSource {
	return &SyntheticSource{
		Width:    width,
		Height:   height,
		Interval: interval,
	}
}

func (s *SyntheticSource) Start() error {
	if s.DenyPermission {
		return ErrPermissionDenied
	}
	if s.Width <= 0 || s.Height <= 0 || s.Interval <= 0 {
		return ErrDeviceUnavailable
	}
	s.frames = make(chan Frame, 1)
	s.stopped = make(chan struct{})
	go s.run()
	return nil
}

func (s *SyntheticSource) Pause() {
	s.paused.Store(true)
}

func (s *SyntheticSource) Resume() {
	s.paused.Store(false)
}

func (s *SyntheticSource) Stop() {
	if s.mustStop.Swap(true) {
		return
	}
	if s.stopped != nil {
		<-s.stopped
	}
}

func (s *SyntheticSource) Frames() <-chan Frame {
	return s.frames
}

func (s *SyntheticSource) run() {
	defer close(s.stopped)
	defer close(s.frames)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	seq := 0
	for !s.mustStop.Load() {
		<-ticker.C
		if s.paused.Load() {
			continue
		}
		img := cimg.NewImage(s.Width, s.Height, cimg.PixelFormatRGB)
		fill := byte(seq * 16)
		pix := img.Pixels
		for i := range pix {
			pix[i] = fill
		}
		seq++
		frame := Frame{Image: img, PTS: time.Now()}
		select {
		case s.frames <- frame:
		default:
			// Consumer is behind, drop the frame
		}
	}
}
