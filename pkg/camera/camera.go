// Package camera defines the frame source boundary between capture devices
// and the inference pipeline.
package camera

import (
	"errors"
	"time"

	"github.com/bmharper/cimg/v2"
)

var (
	// ErrPermissionDenied is returned by Start when the process is not
	// allowed to open the capture device.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceUnavailable is returned by Start when the device exists but
	// cannot deliver frames (busy, disconnected, wrong format).
	ErrDeviceUnavailable = errors.New("camera device unavailable")
)

// Frame is a single captured image with its presentation timestamp.
type Frame struct {
	Image *cimg.Image
	PTS   time.Time
}

// FrameSource is a camera or any other producer of frames.
//
// Start must fail synchronously if the device cannot be opened, so the
// caller never ends up with a half-started session. After Start succeeds,
// frames arrive on the Frames channel until Stop is called. Stop closes
// the channel and is idempotent. Pause suspends frame delivery without
// tearing down the device; Resume undoes it.
type FrameSource interface {
	Start() error
	Pause()
	Resume()
	Stop()
	Frames() <-chan Frame
}
