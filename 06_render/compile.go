package render

import (
	"fmt"
	"strconv"

	"explainer-pipeline/02_timeline"
	"explainer-pipeline/03_subtitles"
	"explainer-pipeline/config"
	"explainer-pipeline/types"
)

// Settings is the fixed encoding profile for one run
type Settings struct {
	Width          int
	Height         int
	FPS            int
	VideoCodec     string
	Preset         string
	CRF            int
	PixelFormat    string
	AudioCodec     string
	AudioBitrate   string
	UniformSlotSec float64
	CaptionStyle   string
}

// SettingsFrom snapshots the render-relevant parts of cfg
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Width:          cfg.Video.Width,
		Height:         cfg.Video.Height,
		FPS:            cfg.Video.FPS,
		VideoCodec:     cfg.Video.VideoCodec,
		Preset:         cfg.Video.Preset,
		CRF:            cfg.Video.CRF,
		PixelFormat:    cfg.Video.PixelFormat,
		AudioCodec:     cfg.Video.AudioCodec,
		AudioBitrate:   cfg.Video.AudioBitrate,
		UniformSlotSec: cfg.Render.UniformSlotSec,
		CaptionStyle:   subtitles.ForceStyle(cfg.Subtitles),
	}
}

const (
	labelVideo = "vout"
	labelAudio = "aout"
)

// Compile turns the run's timeline, images, mix plan and captions into one
// render graph. It has no side effects.
func Compile(s Settings, tl types.Timeline, assets []types.VisualAsset, plan types.AudioMixPlan, captionPath, outPath string) (GraphSpec, error) {
	if err := timeline.RequireNonEmpty(tl, "render"); err != nil {
		return GraphSpec{}, err
	}
	if len(assets) != len(tl.Segments) {
		return GraphSpec{}, fmt.Errorf("have %d images for %d segments", len(assets), len(tl.Segments))
	}
	if plan.NarrationPath == "" {
		return GraphSpec{}, fmt.Errorf("mix plan has no narration")
	}
	if captionPath == "" {
		return GraphSpec{}, fmt.Errorf("no caption track")
	}

	var g GraphSpec
	scale := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d,format=%s",
		s.Width, s.Height, s.Width, s.Height, s.FPS, s.PixelFormat,
	)

	concatIn := make([]string, 0, len(assets))
	videoSec := 0.0
	for i, a := range assets {
		slot := float64(tl.Segments[i].Duration())
		if s.UniformSlotSec > 0 {
			slot = s.UniformSlotSec
		}
		videoSec += slot
		g.Inputs = append(g.Inputs, InputSpec{
			Options: []string{"-loop", "1", "-framerate", strconv.Itoa(s.FPS), "-t", seconds(slot)},
			Path:    a.Path,
		})
		label := fmt.Sprintf("v%d", i)
		g.Stages = append(g.Stages, FilterStage{
			Inputs:  []string{fmt.Sprintf("%d:v", i)},
			Filter:  scale,
			Outputs: []string{label},
		})
		concatIn = append(concatIn, label)
	}

	g.Stages = append(g.Stages, FilterStage{
		Inputs:  concatIn,
		Filter:  fmt.Sprintf("concat=n=%d:v=1:a=0", len(concatIn)),
		Outputs: []string{"vcat"},
	})

	// Narration wins: hold the last image until the narration ends
	extend := plan.Policy == types.PolicyNarration
	captionIn := "vcat"
	if extend && plan.OutputSec > videoSec {
		g.Stages = append(g.Stages, FilterStage{
			Inputs:  []string{"vcat"},
			Filter:  fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", seconds(plan.OutputSec-videoSec)),
			Outputs: []string{"vpad"},
		})
		captionIn = "vpad"
	}

	g.Stages = append(g.Stages,
		FilterStage{
			Inputs:  []string{captionIn},
			Filter:  fmt.Sprintf("subtitles='%s':force_style='%s'", subtitles.EscapeFilterPath(captionPath), s.CaptionStyle),
			Outputs: []string{labelVideo},
		},
	)

	narrIdx := len(g.Inputs)
	g.Inputs = append(g.Inputs, InputSpec{Path: plan.NarrationPath})
	if plan.HasMusic() {
		musicIdx := len(g.Inputs)
		g.Inputs = append(g.Inputs, InputSpec{Path: plan.MusicPath})
		g.Stages = append(g.Stages,
			FilterStage{
				Inputs:  []string{fmt.Sprintf("%d:a", narrIdx)},
				Filter:  fmt.Sprintf("volume=%.2f", plan.NarrationLevel),
				Outputs: []string{"narr"},
			},
			FilterStage{
				Inputs:  []string{fmt.Sprintf("%d:a", musicIdx)},
				Filter:  fmt.Sprintf("volume=%.2f", plan.MusicLevel),
				Outputs: []string{"bg"},
			},
			FilterStage{
				Inputs:  []string{"narr", "bg"},
				Filter:  "amix=inputs=2:duration=longest:normalize=0",
				Outputs: []string{labelAudio},
			},
		)
	} else {
		g.Stages = append(g.Stages, FilterStage{
			Inputs:  []string{fmt.Sprintf("%d:a", narrIdx)},
			Filter:  "anull",
			Outputs: []string{labelAudio},
		})
	}

	opts := []string{
		"-c:v", s.VideoCodec,
		"-preset", s.Preset,
		"-crf", strconv.Itoa(s.CRF),
		"-pix_fmt", s.PixelFormat,
		"-r", strconv.Itoa(s.FPS),
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
	}
	if plan.OutputSec > 0 {
		opts = append(opts, "-t", seconds(plan.OutputSec))
	}
	if !extend {
		opts = append(opts, "-shortest")
	}
	opts = append(opts, "-movflags", "+faststart")

	g.Output = OutputSpec{
		Maps:    []string{labelVideo, labelAudio},
		Options: opts,
		Path:    outPath,
	}

	if err := g.Validate(); err != nil {
		return GraphSpec{}, fmt.Errorf("compile render graph: %w", err)
	}
	return g, nil
}

func seconds(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
