package tools

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// ProbeDuration uses ffprobe to get a media file's duration in seconds
func ProbeDuration(ctx context.Context, r Runner, probe, path string, timeout time.Duration) (float64, error) {
	res, err := r.Run(ctx, Command{
		Name: probe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	return dur, nil
}

// Capabilities reports which external tools answered a -version probe
type Capabilities struct {
	Tools    map[string]bool
	ProbedAt time.Time
}

// Has reports whether the named tool was found working
func (c Capabilities) Has(name string) bool {
	return c.Tools[name]
}

// Doctor probes each tool once and logs what is available. A missing
// rasterizer only degrades output; a missing engine makes every render fail.
func Doctor(ctx context.Context, r Runner, timeout time.Duration, names ...string) Capabilities {
	caps := Capabilities{Tools: make(map[string]bool, len(names)), ProbedAt: time.Now()}
	for _, name := range names {
		_, err := r.Run(ctx, Command{Name: name, Args: []string{"-version"}, Timeout: timeout})
		caps.Tools[name] = err == nil
		if err != nil {
			log.Printf("[doctor] ⚠️  %s unavailable: %v", name, err)
		} else {
			log.Printf("[doctor] ✅ %s available", name)
		}
	}
	return caps
}
