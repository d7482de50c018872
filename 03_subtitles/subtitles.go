package subtitles

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"explainer-pipeline/02_timeline"
	"explainer-pipeline/config"
	"explainer-pipeline/types"
)

// Cues emits one caption cue per timed segment, 1-indexed, same time ranges
func Cues(tl types.Timeline) ([]types.CaptionCue, error) {
	if err := timeline.RequireNonEmpty(tl, "captions"); err != nil {
		return nil, err
	}
	cues := make([]types.CaptionCue, 0, len(tl.Segments))
	for i, seg := range tl.Segments {
		cues = append(cues, types.CaptionCue{
			Index:    i + 1,
			StartSec: seg.StartSec,
			EndSec:   seg.EndSec,
			Text:     strings.Join(strings.Fields(seg.Text), " "),
		})
	}
	return cues, nil
}

// Render formats cues as an SRT document. Cue text is wrapped at maxChars
// per line; a cue is never split into several cues.
func Render(cues []types.CaptionCue, maxChars int) string {
	var sb strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			c.Index,
			FormatTimestamp(c.StartSec*1000),
			FormatTimestamp(c.EndSec*1000),
			wrapText(c.Text, maxChars),
		)
	}
	return sb.String()
}

// Write builds the caption track for tl and saves it to path
func Write(tl types.Timeline, path string, maxChars int) (string, error) {
	cues, err := Cues(tl)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(Render(cues, maxChars)), 0644); err != nil {
		return "", fmt.Errorf("write captions: %w", err)
	}
	if err := ValidateSRT(path); err != nil {
		return "", err
	}
	log.Printf("[subtitles] ✅ %d cues written: %s", len(cues), path)
	return path, nil
}

// FormatTimestamp renders milliseconds as HH:MM:SS,mmm
func FormatTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// ValidateSRT checks that the SRT file is valid and non-empty
func ValidateSRT(srtFile string) error {
	f, err := os.Open(srtFile)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if lineCount < 3 {
		return fmt.Errorf("SRT file appears empty or malformed (%d lines)", lineCount)
	}
	return nil
}

// ForceStyle builds the ASS force_style override for burned-in captions
func ForceStyle(cfg config.SubtitlesConfig) string {
	return fmt.Sprintf(
		"FontName=%s,FontSize=%d,Bold=%d,PrimaryColour=%s,OutlineColour=%s,Outline=%.0f,Alignment=2,MarginV=%d",
		cfg.Font,
		cfg.FontSize,
		boolToInt(cfg.FontWeight == "bold"),
		cfg.Color,
		cfg.StrokeColor,
		cfg.StrokeWidth,
		cfg.MarginBottom,
	)
}

// EscapeFilterPath escapes a path for use inside an ffmpeg filter argument
func EscapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}

func wrapText(text string, maxChars int) string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return text
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > maxChars {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
