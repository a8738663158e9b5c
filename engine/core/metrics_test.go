package core

import (
	"math"
	"testing"
)

func TestFrameStatsAverageWaitsForFullWindow(t *testing.T) {
	stats := NewFrameStats()

	for i := 0; i < frameTimeWindow-1; i++ {
		stats.RecordFrame(0.016)
	}
	if stats.AverageFrameMS() != 0 {
		t.Fatalf("average reported before the window filled: %f", stats.AverageFrameMS())
	}

	stats.RecordFrame(0.016)
	if math.Abs(stats.AverageFrameMS()-16.0) > 1e-9 {
		t.Fatalf("expected 16ms average, got %f", stats.AverageFrameMS())
	}
}

func TestFrameStatsFPSRollsOverEachSecond(t *testing.T) {
	stats := NewFrameStats()

	// 40 frames of 25ms land exactly on the second without crossing it.
	for i := 0; i < 40; i++ {
		stats.RecordFrame(0.025)
	}
	if stats.FPS() != 0 {
		t.Fatalf("FPS reported before a full second accumulated: %f", stats.FPS())
	}

	stats.RecordFrame(0.025)
	if stats.FPS() != 41 {
		t.Fatalf("expected 41 fps after crossing the second, got %f", stats.FPS())
	}

	// The counter restarts, so the next second stands on its own.
	for i := 0; i < 40; i++ {
		stats.RecordFrame(0.025)
	}
	if stats.FPS() != 40 {
		t.Fatalf("expected 40 fps for the second second, got %f", stats.FPS())
	}
}
