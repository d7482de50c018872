// Package render compiles the run into one ffmpeg filter graph and invokes
// the engine exactly once.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"explainer-pipeline/config"
	"explainer-pipeline/tools"
)

// RenderFailure is a terminal error: the engine failed or wrote nothing usable
type RenderFailure struct {
	Output string
	Err    error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("render %s failed: %v", e.Output, e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

// RenderTimeout is a terminal error: the engine exceeded its time bound
type RenderTimeout struct {
	Output string
	After  time.Duration
}

func (e *RenderTimeout) Error() string {
	return fmt.Sprintf("render %s timed out after %s", e.Output, e.After)
}

func (e *RenderTimeout) Unwrap() error { return tools.ErrTimeout }

// Renderer runs compiled graphs. Concurrent renders are capped by
// render.max_concurrent across every caller sharing the Renderer.
type Renderer struct {
	cfg    *config.Config
	runner tools.Runner
	sem    chan struct{}
}

// New creates a new Renderer
func New(cfg *config.Config, runner tools.Runner) *Renderer {
	n := cfg.Render.MaxConcurrent
	if n <= 0 {
		n = 1
	}
	return &Renderer{cfg: cfg, runner: runner, sem: make(chan struct{}, n)}
}

// Run invokes the engine once for g. There is no retry: any failure is
// returned as *RenderFailure or *RenderTimeout and the partial output removed.
func (r *Renderer) Run(ctx context.Context, g GraphSpec) (string, error) {
	out := g.Output.Path
	if err := g.Validate(); err != nil {
		return "", &RenderFailure{Output: out, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", &RenderFailure{Output: out, Err: err}
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return "", &RenderFailure{Output: out, Err: fmt.Errorf("cancelled while waiting for render slot: %w", ctx.Err())}
	}
	defer func() { <-r.sem }()

	timeout := r.cfg.RenderTimeout()
	log.Printf("[render] Starting final video assembly (%d inputs, %d filter stages)...", len(g.Inputs), len(g.Stages))
	res, err := r.runner.Run(ctx, tools.Command{
		Name:    r.cfg.Render.Engine,
		Args:    g.Args(),
		Timeout: timeout,
	})
	if err != nil {
		removePartial(out)
		if errors.Is(err, tools.ErrTimeout) {
			return "", &RenderTimeout{Output: out, After: timeout}
		}
		return "", &RenderFailure{Output: out, Err: err}
	}
	if err := tools.NonEmpty(out); err != nil {
		removePartial(out)
		return "", &RenderFailure{Output: out, Err: err}
	}

	log.Printf("[render] ✅ Final video ready: %s (%s)", out, res.Duration.Round(time.Millisecond))
	return out, nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[render] ⚠️  could not remove partial output %s: %v", path, err)
	}
}
