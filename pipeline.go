package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"explainer-pipeline/01_research"
	"explainer-pipeline/06_render"
	"explainer-pipeline/07_thumbnail"
	"explainer-pipeline/08_metadata"
	"explainer-pipeline/09_upload"
	"explainer-pipeline/compose"
	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"

	"github.com/joho/godotenv"
)

func main() {
	var (
		configPath   = flag.String("config", "config.yaml", "path to config.yaml")
		scriptPath   = flag.String("script", "script.json", "narration script JSON")
		narration    = flag.String("narration", "", "synthesized narration audio file")
		narrationSec = flag.Float64("narration-sec", 0, "narration length in seconds (0 = probe the file)")
		category     = flag.String("category", "", "topic category for the thumbnail scheme")
		doResearch   = flag.Bool("research", false, "pick a trending topic before composing")
		doUpload     = flag.Bool("upload", false, "upload the result to YouTube")
		verbose      = flag.Bool("v", false, "log every external command")
	)
	flag.Parse()

	// Load .env (local dev only, CI uses secrets)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Work, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	runID := types.NewRunID()
	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Fatalf("Failed to create run dir: %v", err)
	}

	log.Printf("🎬 Explainer Pipeline starting, Run ID: %s", runID)
	log.Printf("📁 Output dir: %s", runDir)

	ctx := context.Background()
	state := &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}

	// Save state on exit
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveState(state, runDir)
		if state.Error != "" {
			log.Printf("❌ Pipeline failed: %s", state.Error)
			os.Exit(1)
		}
		log.Printf("✅ Pipeline complete! Video: %s", state.Outputs.VideoPath)
	}()

	runner := tools.NewExecRunner(*verbose)
	caps := tools.Doctor(ctx, runner, cfg.ToolTimeout(), cfg.Render.Engine, cfg.Tools.Probe, cfg.Tools.Rasterizer)
	if !caps.Has(cfg.Render.Engine) {
		state.Error = fmt.Sprintf("Preflight: render engine %q unavailable", cfg.Render.Engine)
		return
	}

	// ─────────────────────────────────────────────
	// STAGE 1: Research (optional)
	// ─────────────────────────────────────────────
	if *doResearch || cfg.Research.Enabled {
		log.Println("\n━━━ STAGE 1: Research ━━━")
		src, err := research.NewRedditSource()
		if err != nil {
			state.Error = fmt.Sprintf("Stage 1 Research: %v", err)
			return
		}
		topic, err := research.New(cfg, src).Run(ctx)
		if err != nil {
			state.Error = fmt.Sprintf("Stage 1 Research: %v", err)
			return
		}
		state.Topic = topic
		saveJSON(filepath.Join(runDir, "topic.json"), topic)
	}

	// ─────────────────────────────────────────────
	// STAGE 2: Script
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Script ━━━")
	script, err := loadScript(*scriptPath)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 2 Script: %v", err)
		return
	}
	if state.Topic != nil {
		if script.Topic == "" {
			script.Topic = state.Topic.Query
		}
		if *category == "" {
			*category = state.Topic.Category
		}
	}
	state.Script = script
	saveJSON(filepath.Join(runDir, "script.json"), script)

	// ─────────────────────────────────────────────
	// STAGES 3-7: Composition
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGES 3-7: Composition ━━━")
	outputs, err := compose.New(cfg, runner).Run(ctx, compose.Inputs{
		RunID:         runID,
		Script:        script,
		NarrationPath: *narration,
		NarrationSec:  *narrationSec,
		Category:      *category,
		ThumbTitle:    thumbTitle(state.Topic),
	})
	if err != nil {
		state.Error = fmt.Sprintf("Composition (%s): %v", failureKind(err), err)
		return
	}
	state.Outputs = outputs

	// ─────────────────────────────────────────────
	// STAGE 8: Metadata
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 8: Metadata Generation ━━━")
	videoMetadata, err := metadata.New(cfg).Run(script, state.Topic, outputs)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 8 Metadata: %v", err)
		return
	}
	state.Metadata = videoMetadata
	saveJSON(filepath.Join(runDir, "metadata.json"), videoMetadata)

	// ─────────────────────────────────────────────
	// STAGE 9: Upload (optional)
	// ─────────────────────────────────────────────
	if !*doUpload {
		log.Println("Upload skipped (-upload not set)")
		return
	}
	log.Println("\n━━━ STAGE 9: YouTube Upload ━━━")
	res, err := upload.New(cfg).Run(ctx, outputs, videoMetadata)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 9 Upload: %v", err)
		return
	}
	state.YouTubeID = res.VideoID
	state.YouTubeURL = res.VideoURL

	if _, err := upload.LogUpload(res, outputs, cfg.Paths.Logs, videoMetadata); err != nil {
		log.Printf("Warning: could not write upload log: %v", err)
	}
}

// failureKind labels terminal composition errors for the state file
func failureKind(err error) string {
	var (
		rf *render.RenderFailure
		rt *render.RenderTimeout
		tf *thumbnail.ThumbnailFailure
	)
	switch {
	case errors.As(err, &rt):
		return "render timeout"
	case errors.As(err, &rf):
		return "render failure"
	case errors.As(err, &tf):
		return "thumbnail failure"
	}
	return "input"
}

func loadScript(path string) (*types.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s types.Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := compose.ValidateScript(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// thumbTitle headlines the thumbnail with the researched query when there is one
func thumbTitle(topic *types.Topic) string {
	if topic == nil {
		return ""
	}
	return topic.Query
}

func saveState(state *types.PipelineState, dir string) {
	saveJSON(filepath.Join(dir, "pipeline_state.json"), state)
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
