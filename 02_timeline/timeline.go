package timeline

import (
	"fmt"
	"log"

	"explainer-pipeline/types"
)

// Narration pace: 150 words per minute, 2.5 words per second.
const (
	wordsPerSecondNum = 5 // 2.5 expressed as 5/2 to keep the ceil in integers
	wordsPerSecondDen = 2
)

// EmptyTimelineError is returned when a stage receives a timeline with nothing on it
type EmptyTimelineError struct {
	Stage string
}

func (e *EmptyTimelineError) Error() string {
	return fmt.Sprintf("%s: timeline is empty", e.Stage)
}

// SegmentSeconds returns ceil(words / 2.5)
func SegmentSeconds(words int) int {
	if words <= 0 {
		return 0
	}
	return (words*wordsPerSecondDen + wordsPerSecondNum - 1) / wordsPerSecondNum
}

// Build lays the segments back-to-back starting at 0. The total is the sum of
// the estimated segment durations, never a measurement of the narration audio.
func Build(segments []types.NarrationSegment) types.Timeline {
	tl := types.Timeline{Segments: make([]types.TimedSegment, 0, len(segments))}
	elapsed := 0
	for i, seg := range segments {
		dur := SegmentSeconds(seg.Words())
		tl.Segments = append(tl.Segments, types.TimedSegment{
			NarrationSegment: seg,
			Index:            i,
			StartSec:         elapsed,
			EndSec:           elapsed + dur,
		})
		elapsed += dur
	}
	tl.TotalSec = elapsed
	log.Printf("[timeline] %d segments, %ds total", len(tl.Segments), tl.TotalSec)
	return tl
}

// RequireNonEmpty fails with *EmptyTimelineError when tl has no playable time
func RequireNonEmpty(tl types.Timeline, stage string) error {
	if len(tl.Segments) == 0 || tl.TotalSec <= 0 {
		return &EmptyTimelineError{Stage: stage}
	}
	return nil
}

// Check verifies the contiguity invariant of a timeline
func Check(tl types.Timeline) error {
	prevEnd := 0
	for i, seg := range tl.Segments {
		if seg.StartSec != prevEnd {
			return fmt.Errorf("segment %d starts at %d, previous ended at %d", i, seg.StartSec, prevEnd)
		}
		if seg.EndSec < seg.StartSec {
			return fmt.Errorf("segment %d ends before it starts", i)
		}
		prevEnd = seg.EndSec
	}
	if prevEnd != tl.TotalSec {
		return fmt.Errorf("last segment ends at %d, total is %d", prevEnd, tl.TotalSec)
	}
	return nil
}
