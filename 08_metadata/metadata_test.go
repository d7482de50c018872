package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"explainer-pipeline/02_timeline"
	"explainer-pipeline/config"
	"explainer-pipeline/types"
)

func exampleScript() *types.Script {
	return &types.Script{
		Title: "Why Is The Sky Blue?",
		Topic: "rayleigh scattering",
		Segments: []types.NarrationSegment{
			{Kind: types.KindHook, Text: "Look up. Why blue and not purple?", WordCount: 8},
			{Kind: types.KindContext, Text: "context", WordCount: 30},
			{Kind: types.KindExplanation, Text: "explanation one", WordCount: 40},
			{Kind: types.KindExplanation, Text: "explanation two", WordCount: 45},
			{Kind: types.KindSummary, Text: "Short wavelengths scatter more.", WordCount: 12},
			{Kind: types.KindCTA, Text: "Subscribe.", WordCount: 10},
		},
	}
}

func TestChapters(t *testing.T) {
	tl := timeline.Build(exampleScript().Segments)
	got := Chapters(tl)
	want := []Chapter{
		{"0:00", "Intro"},
		{"0:04", "Background"},
		{"0:16", "The Explanation"},
		{"0:50", "Recap"},
		{"0:55", "What's Next"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chapters =\n%v\nwant\n%v", got, want)
	}
}

func TestStamp(t *testing.T) {
	tests := []struct {
		sec  int
		want string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{125, "2:05"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		if got := Stamp(tt.sec); got != tt.want {
			t.Errorf("Stamp(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Short", 70, "Short"},
		{"abcdefghij", 8, "abcde..."},
		{"  padded  ", 70, "padded"},
		{"ünïcödé title", 8, "ünïcö..."},
	}
	for _, tt := range tests {
		if got := TruncateTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateTitle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTags(t *testing.T) {
	topic := &types.Topic{Query: "Why is the sky blue", Category: "science"}
	tags := Tags(exampleScript(), topic, 15)
	if tags[0] != "science" || tags[1] != "why is the sky blue" {
		t.Errorf("category and query should lead: %v", tags)
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		if seen[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
	if !seen["rayleigh"] || !seen["scattering"] {
		t.Errorf("topic keywords missing: %v", tags)
	}
	if seen["why"] {
		t.Errorf("short words should be skipped: %v", tags)
	}

	if got := Tags(exampleScript(), topic, 2); len(got) != 2 {
		t.Errorf("limit not applied: %v", got)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "run.mp4")
	os.WriteFile(video, []byte("mp4"), 0644)

	cfg := config.Default()
	cfg.Metadata.ChannelName = "Explained Daily"
	script := exampleScript()
	out := &types.RunOutputs{VideoPath: video, Timeline: timeline.Build(script.Segments)}
	topic := &types.Topic{Query: "sky blue", Category: "science", SourceURL: "https://reddit.com/r/science/x"}

	md, err := New(cfg).Run(script, topic, out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if md.Title != "Why Is The Sky Blue?" {
		t.Errorf("Title = %q", md.Title)
	}
	for _, want := range []string{
		"Look up. Why blue and not purple?",
		"In this video: Short wavelengths scatter more.",
		"0:00 Intro\n",
		"0:16 The Explanation\n",
		"Source: https://reddit.com/r/science/x",
		"Subscribe to Explained Daily",
		"#science",
	} {
		if !strings.Contains(md.Description, want) {
			t.Errorf("description missing %q:\n%s", want, md.Description)
		}
	}
	if md.CategoryID != "27" || md.Visibility != "private" {
		t.Errorf("category/visibility = %s/%s", md.CategoryID, md.Visibility)
	}
	if md.ScheduledTimeUTC != "" {
		t.Error("private uploads are not scheduled")
	}
}

func TestRun_MissingVideo(t *testing.T) {
	out := &types.RunOutputs{VideoPath: filepath.Join(t.TempDir(), "nope.mp4")}
	if _, err := New(config.Default()).Run(exampleScript(), nil, out); err == nil {
		t.Fatal("expected error for missing video")
	}
}

func TestNextUploadTime(t *testing.T) {
	// Monday 2026-10-19 noon UTC
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	got, err := time.Parse(time.RFC3339, nextUploadTime(now))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.After(now) {
		t.Errorf("upload time %v not after %v", got, now)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tz database unavailable")
	}
	local := got.In(loc)
	if local.Weekday() != time.Tuesday || local.Hour() != 14 {
		t.Errorf("upload time = %v, want Tuesday 14:00 New York", local)
	}
}
