package camera

import (
	"math"
	"slices"
	"time"
)

// EstimateFPS takes a set of consecutive frame intervals and estimates the
// average frames per second. We use the median interval so that a single
// stall or burst doesn't skew the estimate. The value is a float64 because
// cameras can be configured for less than 1 FPS (1/2, 1/4, 1/8, 1/16).
func EstimateFPS(frameIntervals []time.Duration) float64 {
	if len(frameIntervals) == 0 {
		return 10
	}
	sorted := make([]time.Duration, len(frameIntervals))
	copy(sorted, frameIntervals)
	slices.Sort(sorted)
	mid := sorted[len(sorted)/2]
	if mid == 0 {
		return 10
	}
	fps := float64(time.Second) / float64(mid)
	if fps >= 0.9 {
		return math.Round(fps)
	}
	// Below 1 FPS, round to the nearest 1/2/4/8/16 seconds per frame
	secondsPerFrame := 1.0 / fps
	spfR := math.Round(secondsPerFrame)
	return 1 / spfR
}
