package audio

import (
	"context"
	"fmt"
	"log"
	"math"

	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"
)

// Planner decides how narration and optional background music are mixed.
// The plan is handed to the render graph, never executed here.
type Planner struct {
	cfg    *config.Config
	runner tools.Runner
}

// New creates a Planner
func New(cfg *config.Config, runner tools.Runner) *Planner {
	return &Planner{cfg: cfg, runner: runner}
}

// Plan builds the mix for one run. narrationSec <= 0 means unknown, in which
// case the narration file is probed.
func (p *Planner) Plan(ctx context.Context, narrationPath string, narrationSec float64, timelineSec int) (types.AudioMixPlan, error) {
	if err := tools.NonEmpty(narrationPath); err != nil {
		return types.AudioMixPlan{}, fmt.Errorf("narration audio: %w", err)
	}
	if narrationSec <= 0 {
		dur, err := tools.ProbeDuration(ctx, p.runner, p.cfg.Tools.Probe, narrationPath, p.cfg.ToolTimeout())
		if err != nil {
			return types.AudioMixPlan{}, fmt.Errorf("narration duration: %w", err)
		}
		narrationSec = dur
	}
	return BuildPlan(p.cfg.Audio, narrationPath, narrationSec, timelineSec), nil
}

// BuildPlan is the pure part of Plan
func BuildPlan(cfg config.AudioConfig, narrationPath string, narrationSec float64, timelineSec int) types.AudioMixPlan {
	policy := types.ReconcilePolicy(cfg.Reconcile)
	plan := types.AudioMixPlan{
		NarrationPath:  narrationPath,
		NarrationLevel: 1.0,
		Policy:         policy,
		OutputSec:      Reconcile(policy, timelineSec, narrationSec),
	}

	if cfg.MusicPath != "" {
		if err := tools.NonEmpty(cfg.MusicPath); err == nil {
			plan.MusicPath = cfg.MusicPath
			plan.NarrationLevel = cfg.NarrationLevel
			plan.MusicLevel = cfg.MusicLevel
		} else {
			log.Printf("[audio] No background music (%v), narration only", err)
		}
	}

	if diff := math.Abs(float64(timelineSec) - narrationSec); diff >= 1 {
		log.Printf("[audio] ⚠️  timeline %ds vs narration %.2fs, %s policy gives %.2fs",
			timelineSec, narrationSec, policy, plan.OutputSec)
	}
	log.Printf("[audio] ✅ mix plan: music=%v narration@%.2f output=%.2fs", plan.HasMusic(), plan.NarrationLevel, plan.OutputSec)
	return plan
}

// Reconcile picks the output duration when the estimated timeline and the
// measured narration disagree.
func Reconcile(policy types.ReconcilePolicy, timelineSec int, narrationSec float64) float64 {
	tl := float64(timelineSec)
	switch policy {
	case types.PolicyNarration:
		if narrationSec > 0 {
			return narrationSec
		}
		return tl
	default:
		if narrationSec <= 0 {
			return tl
		}
		return math.Min(tl, narrationSec)
	}
}
