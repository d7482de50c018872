package thumbnail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"explainer-pipeline/config"
	"explainer-pipeline/tools"
)

// fakeRunner writes a file at the last argument unless fail says otherwise
type fakeRunner struct {
	fail  func(cmd tools.Command) error
	calls []tools.Command
}

func (f *fakeRunner) Run(ctx context.Context, cmd tools.Command) (tools.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.fail != nil {
		if err := f.fail(cmd); err != nil {
			return tools.Result{ExitCode: 1}, err
		}
	}
	out := cmd.Args[len(cmd.Args)-1]
	return tools.Result{}, os.WriteFile(out, []byte("jpeg"), 0644)
}

func isFrameExtract(cmd tools.Command) bool { return slices.Contains(cmd.Args, "-ss") }
func isLavfi(cmd tools.Command) bool        { return slices.Contains(cmd.Args, "lavfi") }

func compose(t *testing.T, f *fakeRunner) (string, string, error) {
	t.Helper()
	cfg := config.Default()
	out := filepath.Join(t.TempDir(), "run", "run_thumb.jpg")
	spec := SpecFor(cfg.Thumbnail, "Why Is The Sky Blue?", "Rayleigh scattering", "science")
	path, err := New(cfg, f).Compose(context.Background(), "/out/run/run.mp4", spec, out)
	return path, out, err
}

func TestCompose_StyledOverlay(t *testing.T) {
	f := &fakeRunner{}
	path, out, err := compose(t, f)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if path != out {
		t.Errorf("path = %q, want %q", path, out)
	}
	if len(f.calls) != 2 || f.calls[1].Name != "magick" {
		t.Fatalf("expected frame extract then magick, got %d calls", len(f.calls))
	}
	args := strings.Join(f.calls[1].Args, " ")
	for _, want := range []string{"Why Is The Sky Blue?", "Rayleigh scattering", "WATCH NOW", "#39FF14", "#FF00FF"} {
		if !strings.Contains(args, want) {
			t.Errorf("overlay args missing %q", want)
		}
	}
	if _, err := os.Stat(strings.TrimSuffix(out, ".jpg") + "_frame.jpg"); !os.IsNotExist(err) {
		t.Error("intermediate frame should be removed")
	}
}

func TestCompose_RasterizerForcedToFail(t *testing.T) {
	f := &fakeRunner{fail: func(cmd tools.Command) error {
		if cmd.Name == "magick" {
			return tools.ErrToolMissing
		}
		return nil
	}}
	path, _, err := compose(t, f)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if err := tools.NonEmpty(path); err != nil {
		t.Fatal(err)
	}
	last := f.calls[len(f.calls)-1]
	if last.Name != "ffmpeg" || isLavfi(last) {
		t.Errorf("expected drawtext on frame, got %s", last)
	}
	if !strings.Contains(strings.Join(last.Args, " "), "drawtext=text='Why Is The Sky Blue?'") {
		t.Errorf("drawtext filter missing title: %s", last)
	}
}

func TestCompose_UnreadableVideoFallsToFlatColor(t *testing.T) {
	f := &fakeRunner{fail: func(cmd tools.Command) error {
		if isFrameExtract(cmd) {
			return &tools.ExitError{Name: "ffmpeg", ExitCode: 1, StderrTail: "Invalid data found"}
		}
		return nil
	}}
	path, _, err := compose(t, f)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if err := tools.NonEmpty(path); err != nil {
		t.Fatal(err)
	}
	last := f.calls[len(f.calls)-1]
	if !isLavfi(last) {
		t.Errorf("expected flat colour fallback, got %s", last)
	}
	if len(f.calls) != 2 {
		t.Errorf("frame-based rungs should not invoke tools without a frame, calls = %d", len(f.calls))
	}
}

func TestCompose_ZeroByteOverlayFallsBack(t *testing.T) {
	r := &emptyMagick{fakeRunner: &fakeRunner{}}
	cfg := config.Default()
	out := filepath.Join(t.TempDir(), "thumb.jpg")
	if _, err := New(cfg, r).Compose(context.Background(), "v.mp4", SpecFor(cfg.Thumbnail, "T", "t", ""), out); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if r.last.Name != "ffmpeg" || isLavfi(r.last) {
		t.Errorf("zero-byte overlay should fall through to drawtext, last = %s", r.last)
	}
	if err := tools.NonEmpty(out); err != nil {
		t.Error(err)
	}
}

// emptyMagick leaves a zero-byte file for every rasterizer call
type emptyMagick struct {
	*fakeRunner
	last tools.Command
}

func (e *emptyMagick) Run(ctx context.Context, cmd tools.Command) (tools.Result, error) {
	e.last = cmd
	if cmd.Name == "magick" {
		return tools.Result{}, os.WriteFile(cmd.Args[len(cmd.Args)-1], nil, 0644)
	}
	return e.fakeRunner.Run(ctx, cmd)
}

func TestCompose_AllLevelsFail(t *testing.T) {
	f := &fakeRunner{fail: func(cmd tools.Command) error { return tools.ErrToolMissing }}
	_, out, err := compose(t, f)
	var tf *ThumbnailFailure
	if !errors.As(err, &tf) {
		t.Fatalf("err = %v, want *ThumbnailFailure", err)
	}
	var ex *tools.ExhaustedError
	if !errors.As(err, &ex) || len(ex.Attempts) != 3 {
		t.Errorf("expected 3 exhausted attempts, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no thumbnail should be left behind")
	}
}

func TestSpecFor(t *testing.T) {
	cfg := config.Default().Thumbnail
	tests := []struct {
		category string
		want     string
	}{
		{"science", "neon"},
		{"Education", "clean"},
		{"trivia", "bold"},
		{"history", "bold"},
		{"", "bold"},
	}
	for _, tt := range tests {
		spec := SpecFor(cfg, "title", "topic", tt.category)
		if spec.ColorScheme != tt.want {
			t.Errorf("SpecFor(%q).ColorScheme = %q, want %q", tt.category, spec.ColorScheme, tt.want)
		}
		if spec.CallToAction != "WATCH NOW" {
			t.Errorf("CallToAction = %q", spec.CallToAction)
		}
	}
}

func TestSchemeNamed(t *testing.T) {
	for _, name := range []string{"bold", "dark", "neon", "clean"} {
		if SchemeNamed(name) != schemes[name] {
			t.Errorf("scheme %q not returned", name)
		}
	}
	if SchemeNamed("pastel") != schemes["bold"] {
		t.Error("unknown scheme should fall back to bold")
	}
}

func TestPaletteColor(t *testing.T) {
	palette := config.Default().Thumbnail.Palette
	a := PaletteColor(palette, "Why Is The Sky Blue?")
	if a != PaletteColor(palette, "Why Is The Sky Blue?") {
		t.Error("colour should be deterministic for the same title")
	}
	if !slices.Contains(palette, a) {
		t.Errorf("colour %q not in palette", a)
	}
	if got := PaletteColor(nil, "x"); got != "#000000" {
		t.Errorf("empty palette colour = %q", got)
	}
}
