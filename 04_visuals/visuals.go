package visuals

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"explainer-pipeline/02_timeline"
	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"
)

// kindColors is the fixed background colour per segment kind
var kindColors = map[types.SegmentKind]string{
	types.KindHook:        "#B03A2E",
	types.KindContext:     "#1F618D",
	types.KindExplanation: "#117A65",
	types.KindSummary:     "#6C3483",
	types.KindCTA:         "#CA6F1E",
}

const defaultColor = "#212F3D"

// KindColor returns the placeholder background for a segment kind
func KindColor(k types.SegmentKind) string {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return defaultColor
}

// job is the input to one rung of the per-segment ladder
type job struct {
	Index int
	Kind  types.SegmentKind
	Text  string
	Color string
	Dir   string
}

// Provisioner produces one still image per timed segment
type Provisioner struct {
	cfg    *config.Config
	runner tools.Runner
	ladder *tools.Ladder[job]
}

// New creates a Provisioner. Placeholders are rasterized with the configured
// tool and fall back to a flat frame from the render engine.
func New(cfg *config.Config, runner tools.Runner) *Provisioner {
	p := &Provisioner{cfg: cfg, runner: runner}
	p.ladder = tools.NewLadder("visuals",
		tools.Step[job]{Name: "placeholder", Fn: p.rasterizePlaceholder},
		tools.Step[job]{Name: "flat-frame", Fn: p.flatFrame},
	)
	return p
}

// Provision renders every segment's image into workDir. Work runs in
// parallel but the returned slice is always in segment order.
func (p *Provisioner) Provision(ctx context.Context, tl types.Timeline, workDir string) ([]types.VisualAsset, error) {
	if err := timeline.RequireNonEmpty(tl, "visuals"); err != nil {
		return nil, err
	}
	log.Printf("[visuals] Preparing %d segment images...", len(tl.Segments))

	visualDir := filepath.Join(workDir, "visuals")
	if err := os.MkdirAll(visualDir, 0755); err != nil {
		return nil, err
	}

	assets := make([]types.VisualAsset, len(tl.Segments))
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Visuals.Parallelism > 0 {
		g.SetLimit(p.cfg.Visuals.Parallelism)
	}
	for i, seg := range tl.Segments {
		i, seg := i, seg
		g.Go(func() error {
			j := job{
				Index: seg.Index,
				Kind:  seg.Kind,
				Text:  truncateRunes(strings.Join(strings.Fields(seg.Text), " "), p.cfg.Visuals.MaxTextRunes),
				Color: KindColor(seg.Kind),
				Dir:   visualDir,
			}
			path, strategy, err := p.ladder.Run(gctx, j)
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			assets[i] = types.VisualAsset{Index: seg.Index, Path: path, Strategy: strategy}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		Cleanup(assets)
		return nil, err
	}

	log.Printf("[visuals] ✅ %d images ready", len(assets))
	return assets, nil
}

// Cleanup removes provisioned images. Failures are logged, never returned.
func Cleanup(assets []types.VisualAsset) {
	for _, a := range assets {
		if a.Path == "" {
			continue
		}
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("[visuals] ⚠️  cleanup %s: %v", a.Path, err)
		}
	}
}

// rasterizePlaceholder draws index, kind label and text on the kind colour
func (p *Provisioner) rasterizePlaceholder(ctx context.Context, j job) (string, error) {
	outFile := filepath.Join(j.Dir, fmt.Sprintf("segment_%03d.png", j.Index))
	w, h := p.cfg.Video.Width, p.cfg.Video.Height
	label := fmt.Sprintf("%d · %s", j.Index+1, strings.ToUpper(string(j.Kind)))

	_, err := p.runner.Run(ctx, tools.Command{
		Name: p.cfg.Tools.Rasterizer,
		Args: []string{
			"-size", fmt.Sprintf("%dx%d", w, h),
			"xc:" + j.Color,
			"-font", p.cfg.Visuals.Font,
			"-fill", "white",
			"-gravity", "north",
			"-pointsize", "72",
			"-annotate", "+0+120", label,
			"(",
			"-size", fmt.Sprintf("%dx%d", w*4/5, h/2),
			"-background", "none",
			"-fill", "white",
			"-font", p.cfg.Visuals.Font,
			"-pointsize", "54",
			"-gravity", "center",
			"caption:" + j.Text,
			")",
			"-gravity", "center",
			"-composite",
			outFile,
		},
		Timeout: p.cfg.ToolTimeout(),
	})
	if err != nil {
		return outFile, fmt.Errorf("rasterize placeholder: %w", err)
	}
	return outFile, nil
}

// flatFrame emits a single flat-coloured frame with no text
func (p *Provisioner) flatFrame(ctx context.Context, j job) (string, error) {
	outFile := filepath.Join(j.Dir, fmt.Sprintf("fallback_%03d.png", j.Index))
	_, err := p.runner.Run(ctx, tools.Command{
		Name: p.cfg.Render.Engine,
		Args: []string{
			"-y",
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=1", tools.LavfiColor(j.Color), p.cfg.Video.Width, p.cfg.Video.Height),
			"-frames:v", "1",
			outFile,
		},
		Timeout: p.cfg.ToolTimeout(),
	})
	if err != nil {
		return outFile, fmt.Errorf("flat frame: %w", err)
	}
	return outFile, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
