package thumbnail

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"
)

// Scheme is a named set of overlay colours
type Scheme struct {
	Title  string
	Topic  string
	Stroke string
	Accent string
	CTA    string
	Shade  string // translucent wash over the frame
}

var schemes = map[string]Scheme{
	"bold":  {Title: "#FFFFFF", Topic: "#F1C40F", Stroke: "#000000", Accent: "#E74C3C", CTA: "#FFFFFF", Shade: "rgba(0,0,0,0.35)"},
	"dark":  {Title: "#ECF0F1", Topic: "#95A5A6", Stroke: "#000000", Accent: "#2C3E50", CTA: "#ECF0F1", Shade: "rgba(0,0,0,0.6)"},
	"neon":  {Title: "#39FF14", Topic: "#00FFFF", Stroke: "#1A001A", Accent: "#FF00FF", CTA: "#000000", Shade: "rgba(10,0,30,0.5)"},
	"clean": {Title: "#2C3E50", Topic: "#34495E", Stroke: "#FFFFFF", Accent: "#3498DB", CTA: "#FFFFFF", Shade: "rgba(255,255,255,0.55)"},
}

// SchemeNamed returns the named scheme, or bold when the name is unknown
func SchemeNamed(name string) Scheme {
	if s, ok := schemes[name]; ok {
		return s
	}
	return schemes["bold"]
}

// ThumbnailFailure means every fallback level failed. This points at the
// environment (no working engine), not at the input.
type ThumbnailFailure struct {
	Output string
	Err    error
}

func (e *ThumbnailFailure) Error() string {
	return fmt.Sprintf("thumbnail %s: %v", e.Output, e.Err)
}

func (e *ThumbnailFailure) Unwrap() error { return e.Err }

type job struct {
	Spec types.ThumbnailSpec
	Out  string
}

// Composer builds the thumbnail from a frame of the finished video
type Composer struct {
	cfg    *config.Config
	runner tools.Runner
	ladder *tools.Ladder[job]
}

// New creates a Composer
func New(cfg *config.Config, runner tools.Runner) *Composer {
	c := &Composer{cfg: cfg, runner: runner}
	c.ladder = tools.NewLadder("thumbnail",
		tools.Step[job]{Name: "styled-overlay", Fn: c.styledOverlay},
		tools.Step[job]{Name: "drawtext", Fn: c.drawtextOverlay},
		tools.Step[job]{Name: "flat-color", Fn: c.flatColor},
	)
	return c
}

// SpecFor fills a ThumbnailSpec from the topic, choosing the colour scheme
// by category.
func SpecFor(cfg config.ThumbnailConfig, title, topic, category string) types.ThumbnailSpec {
	scheme := cfg.DefaultScheme
	if s, ok := cfg.CategorySchemes[strings.ToLower(category)]; ok {
		scheme = s
	}
	return types.ThumbnailSpec{
		Title:        title,
		Topic:        topic,
		CallToAction: cfg.CallToAction,
		ColorScheme:  scheme,
	}
}

// Compose extracts a frame from videoPath and writes the thumbnail to outPath
func (c *Composer) Compose(ctx context.Context, videoPath string, spec types.ThumbnailSpec, outPath string) (string, error) {
	log.Printf("[thumbnail] Composing thumbnail (%s scheme)...", spec.ColorScheme)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", &ThumbnailFailure{Output: outPath, Err: err}
	}

	frame := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_frame.jpg"
	if err := c.extractFrame(ctx, videoPath, frame); err != nil {
		log.Printf("[thumbnail] ⚠️  frame extraction failed: %v", err)
	}
	defer func() {
		if err := os.Remove(frame); err != nil && !os.IsNotExist(err) {
			log.Printf("[thumbnail] ⚠️  cleanup %s: %v", frame, err)
		}
	}()
	spec.BackgroundFramePath = frame

	path, strategy, err := c.ladder.Run(ctx, job{Spec: spec, Out: outPath})
	if err != nil {
		_ = os.Remove(outPath)
		return "", &ThumbnailFailure{Output: outPath, Err: err}
	}
	log.Printf("[thumbnail] ✅ Thumbnail ready via %s: %s", strategy, path)
	return path, nil
}

func (c *Composer) extractFrame(ctx context.Context, videoPath, frame string) error {
	_, err := c.runner.Run(ctx, tools.Command{
		Name: c.cfg.Render.Engine,
		Args: []string{
			"-y",
			"-ss", strconv.FormatFloat(c.cfg.Thumbnail.FrameOffsetSec, 'f', -1, 64),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			frame,
		},
		Timeout: c.cfg.ToolTimeout(),
	})
	if err != nil {
		return err
	}
	return tools.NonEmpty(frame)
}

// styledOverlay draws title, topic, CTA and an accent bar with the rasterizer
func (c *Composer) styledOverlay(ctx context.Context, j job) (string, error) {
	if err := tools.NonEmpty(j.Spec.BackgroundFramePath); err != nil {
		return "", fmt.Errorf("background frame: %w", err)
	}
	s := SchemeNamed(j.Spec.ColorScheme)
	w, h := c.cfg.Video.Width, c.cfg.Video.Height
	mx := w / 20

	args := []string{
		j.Spec.BackgroundFramePath,
		"-resize", fmt.Sprintf("%dx%d^", w, h),
		"-gravity", "center",
		"-extent", fmt.Sprintf("%dx%d", w, h),
		"-fill", s.Shade,
		"-draw", fmt.Sprintf("rectangle 0,0 %d,%d", w, h),
		"-gravity", "northwest",
		"-font", c.cfg.Thumbnail.Font,
		"-fill", s.Title,
		"-stroke", s.Stroke,
		"-strokewidth", "4",
		"-pointsize", strconv.Itoa(h / 9),
		"-annotate", fmt.Sprintf("+%d+%d", mx, h/6), j.Spec.Title,
		"-stroke", "none",
		"-fill", s.Topic,
		"-pointsize", strconv.Itoa(h / 18),
		"-annotate", fmt.Sprintf("+%d+%d", mx, h/2), j.Spec.Topic,
	}
	if j.Spec.CallToAction != "" {
		barTop := h * 3 / 4
		args = append(args,
			"-fill", s.Accent,
			"-draw", fmt.Sprintf("rectangle %d,%d %d,%d", mx, barTop, w/2, barTop+h/9),
			"-fill", s.CTA,
			"-pointsize", strconv.Itoa(h / 16),
			"-annotate", fmt.Sprintf("+%d+%d", mx+h/36, barTop+h/60), j.Spec.CallToAction,
		)
	}
	args = append(args, j.Out)

	if _, err := c.runner.Run(ctx, tools.Command{Name: c.cfg.Tools.Rasterizer, Args: args, Timeout: c.cfg.ToolTimeout()}); err != nil {
		return j.Out, fmt.Errorf("styled overlay: %w", err)
	}
	return j.Out, nil
}

// drawtextOverlay puts the title alone on the frame using the engine
func (c *Composer) drawtextOverlay(ctx context.Context, j job) (string, error) {
	if err := tools.NonEmpty(j.Spec.BackgroundFramePath); err != nil {
		return "", fmt.Errorf("background frame: %w", err)
	}
	w, h := c.cfg.Video.Width, c.cfg.Video.Height
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s",
		w, h, w, h, c.centredTitle(j.Spec.Title, h),
	)
	_, err := c.runner.Run(ctx, tools.Command{
		Name:    c.cfg.Render.Engine,
		Args:    []string{"-y", "-i", j.Spec.BackgroundFramePath, "-vf", vf, "-frames:v", "1", "-q:v", "2", j.Out},
		Timeout: c.cfg.ToolTimeout(),
	})
	if err != nil {
		return j.Out, fmt.Errorf("drawtext overlay: %w", err)
	}
	return j.Out, nil
}

// flatColor needs nothing but the engine: a palette colour and the title
func (c *Composer) flatColor(ctx context.Context, j job) (string, error) {
	w, h := c.cfg.Video.Width, c.cfg.Video.Height
	bg := PaletteColor(c.cfg.Thumbnail.Palette, j.Spec.Title)
	_, err := c.runner.Run(ctx, tools.Command{
		Name: c.cfg.Render.Engine,
		Args: []string{
			"-y",
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=1", tools.LavfiColor(bg), w, h),
			"-vf", c.centredTitle(j.Spec.Title, h),
			"-frames:v", "1",
			"-q:v", "2",
			j.Out,
		},
		Timeout: c.cfg.ToolTimeout(),
	})
	if err != nil {
		return j.Out, fmt.Errorf("flat colour: %w", err)
	}
	return j.Out, nil
}

func (c *Composer) centredTitle(title string, h int) string {
	return fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=%d:borderw=4:bordercolor=black:x=(w-text_w)/2:y=(h-text_h)/2",
		tools.EscapeDrawtext(title), h/10,
	)
}

// PaletteColor picks a palette entry from a hash of the title, so the same
// title always gets the same colour.
func PaletteColor(palette []string, title string) string {
	if len(palette) == 0 {
		return "#000000"
	}
	hsh := fnv.New32a()
	hsh.Write([]byte(title))
	return palette[hsh.Sum32()%uint32(len(palette))]
}
