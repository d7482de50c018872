// Package compose runs the media composition stages for one run and owns
// its cleanup. A run yields the full video, caption and thumbnail triple or
// nothing.
package compose

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"explainer-pipeline/02_timeline"
	"explainer-pipeline/03_subtitles"
	"explainer-pipeline/04_visuals"
	"explainer-pipeline/05_audio"
	"explainer-pipeline/06_render"
	"explainer-pipeline/07_thumbnail"
	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"
)

// Inputs is everything one composition run consumes
type Inputs struct {
	RunID         string
	Script        *types.Script
	NarrationPath string
	NarrationSec  float64 // 0 = probe the file
	Category      string  // selects the thumbnail colour scheme
	ThumbTitle    string  // thumbnail headline; Script.Title when empty
}

// Composer wires the stages together. One Composer should serve every run
// in a process so the render cap applies across runs.
type Composer struct {
	cfg       *config.Config
	visuals   *visuals.Provisioner
	audio     *audio.Planner
	renderer  *render.Renderer
	thumbnail *thumbnail.Composer
}

// New creates a Composer driving external tools through runner
func New(cfg *config.Config, runner tools.Runner) *Composer {
	return &Composer{
		cfg:       cfg,
		visuals:   visuals.New(cfg, runner),
		audio:     audio.New(cfg, runner),
		renderer:  render.New(cfg, runner),
		thumbnail: thumbnail.New(cfg, runner),
	}
}

// Paths returns the deterministic output locations for a run
func Paths(outputDir, runID string) (video, captions, thumb string) {
	dir := filepath.Join(outputDir, runID)
	return filepath.Join(dir, runID+".mp4"),
		filepath.Join(dir, runID+".srt"),
		filepath.Join(dir, runID+"_thumb.jpg")
}

// ValidateScript rejects scripts no stage can place on a timeline
func ValidateScript(s *types.Script) error {
	if s == nil || len(s.Segments) == 0 {
		return &timeline.EmptyTimelineError{Stage: "script"}
	}
	for i, seg := range s.Segments {
		if !seg.Kind.Valid() {
			return fmt.Errorf("segment %d: unknown kind %q", i, seg.Kind)
		}
		if seg.Words() == 0 {
			return fmt.Errorf("segment %d (%s) has no words", i, seg.Kind)
		}
	}
	return nil
}

// Run composes one narrated video. Terminal errors (*render.RenderFailure,
// *render.RenderTimeout, *thumbnail.ThumbnailFailure) are returned unchanged
// apart from wrapping, so callers can match them with errors.As.
func (c *Composer) Run(ctx context.Context, in Inputs) (out *types.RunOutputs, err error) {
	start := time.Now()
	if in.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if err := ValidateScript(in.Script); err != nil {
		return nil, err
	}

	videoPath, captionPath, thumbPath := Paths(c.cfg.Paths.Output, in.RunID)
	defer func() {
		if err != nil {
			removeOutputs(videoPath, captionPath, thumbPath)
		}
	}()

	workDir := filepath.Join(c.cfg.Paths.Work, in.RunID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(workDir); rerr != nil {
			log.Printf("[compose] ⚠️  could not remove work dir %s: %v", workDir, rerr)
		}
	}()

	tl := timeline.Build(in.Script.Segments)
	if err := timeline.RequireNonEmpty(tl, "compose"); err != nil {
		return nil, err
	}

	if _, err := subtitles.Write(tl, captionPath, c.cfg.Subtitles.MaxCharsPerLine); err != nil {
		return nil, fmt.Errorf("captions: %w", err)
	}

	assets, err := c.visuals.Provision(ctx, tl, workDir)
	if err != nil {
		return nil, fmt.Errorf("visuals: %w", err)
	}
	defer visuals.Cleanup(assets)

	plan, err := c.audio.Plan(ctx, in.NarrationPath, in.NarrationSec, tl.TotalSec)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}

	graph, err := render.Compile(render.SettingsFrom(c.cfg), tl, assets, plan, captionPath, videoPath)
	if err != nil {
		return nil, err
	}
	if _, err := c.renderer.Run(ctx, graph); err != nil {
		return nil, err
	}

	title := in.Script.Title
	if in.ThumbTitle != "" {
		title = in.ThumbTitle
	}
	spec := thumbnail.SpecFor(c.cfg.Thumbnail, title, in.Script.Topic, in.Category)
	if _, err := c.thumbnail.Compose(ctx, videoPath, spec, thumbPath); err != nil {
		return nil, err
	}

	log.Printf("[compose] ✅ Run %s composed in %s", in.RunID, time.Since(start).Round(time.Millisecond))
	return &types.RunOutputs{
		VideoPath:     videoPath,
		CaptionPath:   captionPath,
		ThumbnailPath: thumbPath,
		Timeline:      tl,
		DurationSec:   plan.OutputSec,
	}, nil
}

func removeOutputs(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[compose] ⚠️  could not remove %s: %v", p, err)
		}
	}
}
