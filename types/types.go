package types

import (
	"strings"

	"github.com/google/uuid"
)

// SegmentKind is the narrative role of one narration beat
type SegmentKind string

const (
	KindHook        SegmentKind = "hook"
	KindContext     SegmentKind = "context"
	KindExplanation SegmentKind = "explanation"
	KindSummary     SegmentKind = "summary"
	KindCTA         SegmentKind = "cta"
)

// Valid reports whether k is one of the known segment kinds
func (k SegmentKind) Valid() bool {
	switch k {
	case KindHook, KindContext, KindExplanation, KindSummary, KindCTA:
		return true
	}
	return false
}

// NarrationSegment is one beat of the script, in narration order
type NarrationSegment struct {
	Kind      SegmentKind `json:"kind"`
	Text      string      `json:"text"`
	WordCount int         `json:"word_count,omitempty"`
}

// Words returns WordCount, or the whitespace-token count of Text when unset
func (s NarrationSegment) Words() int {
	if s.WordCount > 0 {
		return s.WordCount
	}
	return len(strings.Fields(s.Text))
}

// TimedSegment is a NarrationSegment placed on the timeline
type TimedSegment struct {
	NarrationSegment
	Index    int `json:"index"`
	StartSec int `json:"start_sec"`
	EndSec   int `json:"end_sec"`
}

// Duration returns the segment length in seconds
func (s TimedSegment) Duration() int {
	return s.EndSec - s.StartSec
}

// Timeline is the absolute schedule for all segments of one run
type Timeline struct {
	Segments []TimedSegment `json:"segments"`
	TotalSec int            `json:"total_sec"`
}

// VisualAsset is the still image shown for one timed segment
type VisualAsset struct {
	Index    int    `json:"index"`
	Path     string `json:"path"`
	Strategy string `json:"strategy"` // ladder step that produced the file
}

// CaptionCue is one numbered entry of the caption track
type CaptionCue struct {
	Index    int    `json:"index"`
	StartSec int    `json:"start_sec"`
	EndSec   int    `json:"end_sec"`
	Text     string `json:"text"`
}

// ReconcilePolicy decides the output length when timeline and narration disagree
type ReconcilePolicy string

const (
	PolicyShortest  ReconcilePolicy = "shortest"
	PolicyNarration ReconcilePolicy = "narration"
)

// AudioMixPlan describes how narration and optional music are combined
type AudioMixPlan struct {
	NarrationPath  string          `json:"narration_path"`
	MusicPath      string          `json:"music_path,omitempty"`
	NarrationLevel float64         `json:"narration_level"`
	MusicLevel     float64         `json:"music_level"`
	Policy         ReconcilePolicy `json:"policy"`
	OutputSec      float64         `json:"output_sec"`
}

// HasMusic reports whether the plan mixes a background track
func (p AudioMixPlan) HasMusic() bool {
	return p.MusicPath != ""
}

// ThumbnailSpec is consumed once by the thumbnail composer
type ThumbnailSpec struct {
	BackgroundFramePath string `json:"background_frame_path"`
	Title               string `json:"title"`
	Topic               string `json:"topic"`
	CallToAction        string `json:"call_to_action"`
	ColorScheme         string `json:"color_scheme"`
}

// Script is the ordered narration produced upstream
type Script struct {
	Title    string             `json:"title"`
	Topic    string             `json:"topic"`
	Segments []NarrationSegment `json:"segments"`
}

// Topic is a scored trend candidate
type Topic struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Category  string `json:"category"`
	Score     int    `json:"score"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
}

// VideoMetadata holds all YouTube upload metadata
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc"`
}

// RunOutputs is the complete triple produced by one composition run
type RunOutputs struct {
	VideoPath     string   `json:"video_path"`
	CaptionPath   string   `json:"caption_path"`
	ThumbnailPath string   `json:"thumbnail_path"`
	Timeline      Timeline `json:"timeline"`
	DurationSec   float64  `json:"duration_sec"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string         `json:"run_id"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at"`
	Topic       *Topic         `json:"topic,omitempty"`
	Script      *Script        `json:"script"`
	Outputs     *RunOutputs    `json:"outputs,omitempty"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	YouTubeID   string         `json:"youtube_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewRunID returns a short identifier used to derive output paths
func NewRunID() string {
	return uuid.NewString()[:8]
}
