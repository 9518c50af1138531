// Package stream runs continuous inference on a live frame source.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sightline/pkg/camera"
	"github.com/cyclopcam/sightline/pkg/decode"
	"github.com/cyclopcam/sightline/pkg/predict"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// State is the lifecycle phase of a session. Stopped is terminal.
type State int32

const (
	StateRunning State = iota
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const defaultResultBuffer = 8
const intervalHistorySize = 64
const statsLogEvery = 256

// Session couples a frame source to a predictor. Frames that arrive while a
// decode is in flight are discarded, so a slow model degrades to a lower
// result rate instead of an ever-growing queue. Results fan out two ways: a
// channel for consumers that want every result, and Latest for consumers
// that only want the freshest one.
type Session struct {
	log       logs.Log
	source    camera.FrameSource
	predictor *predict.Predictor

	state   atomic.Int32
	pending chan camera.Frame
	results chan *vision.Result
	latest  atomic.Pointer[vision.Result]

	stopOnce   sync.Once
	decodeDone chan struct{}

	intervalLock sync.Mutex
	intervals    ringbuffer.RingP[time.Duration]
	lastFrameAt  time.Time

	framesIn      atomic.Int64
	framesDropped atomic.Int64
	framesDecoded atomic.Int64
}

// NewSession starts the source and begins decoding. If the source cannot
// start (no permission, device busy), the error is returned here and no
// session exists.
func NewSession(log logs.Log, source camera.FrameSource, predictor *predict.Predictor) (*Session, error) {
	if err := source.Start(); err != nil {
		return nil, err
	}
	s := &Session{
		log:        log,
		source:     source,
		predictor:  predictor,
		pending:    make(chan camera.Frame, 1),
		results:    make(chan *vision.Result, defaultResultBuffer),
		decodeDone: make(chan struct{}),
		intervals:  ringbuffer.NewRingP[time.Duration](intervalHistorySize),
	}
	s.state.Store(int32(StateRunning))
	go s.feedLoop()
	go s.decodeLoop()
	return s, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Results delivers decoded results in order. The channel closes when the
// session stops. If the consumer falls behind, the oldest buffered result
// is dropped first.
func (s *Session) Results() <-chan *vision.Result {
	return s.results
}

// Latest returns the most recently decoded result, or nil before the first
// frame completes.
func (s *Session) Latest() *vision.Result {
	return s.latest.Load()
}

// Retune applies new decode thresholds from the next frame onwards.
func (s *Session) Retune(settings decode.Settings) {
	s.predictor.Retune(settings)
}

// Pause suspends frame capture. Decoding of an in-flight frame finishes.
// No-op unless the session is running.
func (s *Session) Pause() {
	if s.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		s.source.Pause()
	}
}

// Resume undoes Pause. No-op unless the session is paused.
func (s *Session) Resume() {
	if s.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		s.source.Resume()
	}
}

// Stop tears the session down: the source stops, the result channel closes
// once the final decode finishes, and the session cannot be restarted.
// Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateStopped))
		s.source.Stop()
		<-s.decodeDone
		s.log.Infof("Stream stopped: %v frames in, %v decoded, %v dropped",
			s.framesIn.Load(), s.framesDecoded.Load(), s.framesDropped.Load())
	})
}

// feedLoop moves frames from the source to the decoder, dropping any frame
// that arrives while the decoder is busy.
func (s *Session) feedLoop() {
	defer close(s.pending)
	for frame := range s.source.Frames() {
		s.framesIn.Add(1)
		s.recordInterval(frame.PTS)
		select {
		case s.pending <- frame:
		default:
			s.framesDropped.Add(1)
		}
	}
}

func (s *Session) decodeLoop() {
	defer close(s.decodeDone)
	defer close(s.results)
	for frame := range s.pending {
		result, err := s.predictor.PredictStreaming(frame.Image)
		if err != nil {
			// A malformed frame must not kill the stream
			s.log.Errorf("Failed to decode frame: %v", err)
			continue
		}
		n := s.framesDecoded.Add(1)
		s.latest.Store(result)
		s.publish(result)
		if n%statsLogEvery == 0 {
			s.logStats()
		}
	}
}

func (s *Session) publish(result *vision.Result) {
	for {
		select {
		case s.results <- result:
			return
		default:
			// Consumer is behind, evict the oldest
			select {
			case <-s.results:
			default:
			}
		}
	}
}

func (s *Session) recordInterval(pts time.Time) {
	s.intervalLock.Lock()
	defer s.intervalLock.Unlock()
	if !s.lastFrameAt.IsZero() {
		s.intervals.Add(pts.Sub(s.lastFrameAt))
	}
	s.lastFrameAt = pts
}

func (s *Session) logStats() {
	s.intervalLock.Lock()
	intervals := make([]time.Duration, s.intervals.Len())
	for i := range intervals {
		intervals[i] = s.intervals.Peek(i)
	}
	s.intervalLock.Unlock()
	s.log.Infof("Stream: %.1f FPS in, %v dropped, %.1f ms infer, %.1f ms decode",
		camera.EstimateFPS(intervals),
		s.framesDropped.Load(),
		float64(s.predictor.AvgInferNS.Load())/1e6,
		float64(s.predictor.AvgDecodeNS.Load())/1e6)
}
