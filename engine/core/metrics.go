package core

// Frames folded into one rolling frame time average.
const frameTimeWindow = 30

// FrameStats aggregates per-frame timings into a rolling frame time average
// and a once-per-second FPS figure. Owned by the engine loop and updated
// from it only; not safe for concurrent use.
type FrameStats struct {
	window        [frameTimeWindow]float64
	cursor        int
	averageMS     float64
	frames        int
	accumulatedMS float64
	fps           float64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{}
}

// RecordFrame folds one frame duration, in seconds, into the stats. The
// average refreshes every frameTimeWindow frames, the FPS figure once per
// accumulated second.
func (s *FrameStats) RecordFrame(elapsedSeconds float64) {
	frameMS := elapsedSeconds * 1000.0
	s.window[s.cursor] = frameMS
	s.cursor++
	if s.cursor == frameTimeWindow {
		s.cursor = 0
		sum := 0.0
		for _, ms := range s.window {
			sum += ms
		}
		s.averageMS = sum / frameTimeWindow
	}

	s.frames++
	s.accumulatedMS += frameMS
	if s.accumulatedMS > 1000 {
		s.fps = float64(s.frames)
		s.accumulatedMS -= 1000
		s.frames = 0
	}
}

// FPS returns the frame count of the last full second, zero until one
// second of frames has accumulated.
func (s *FrameStats) FPS() float64 { return s.fps }

// AverageFrameMS returns the rolling frame time average in milliseconds,
// zero until the first window is full.
func (s *FrameStats) AverageFrameMS() float64 { return s.averageMS }
