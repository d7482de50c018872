package metadata

import (
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"
	"unicode"

	"explainer-pipeline/config"
	"explainer-pipeline/tools"
	"explainer-pipeline/types"
)

var descriptionTmpl = template.Must(template.New("description").Parse(
	`{{.Hook}}

In this video: {{.Summary}}

Chapters:
{{range .Chapters}}{{.Stamp}} {{.Label}}
{{end}}{{if .SourceURL}}
Source: {{.SourceURL}}
{{end}}
{{if .Channel}}Subscribe to {{.Channel}} for a new explainer every week.{{else}}Subscribe for a new explainer every week.{{end}}
What should we explain next? Tell us in the comments.

{{range .Hashtags}}#{{.}} {{end}}`))

// Chapter is one timestamped entry of the description
type Chapter struct {
	Stamp string
	Label string
}

type descriptionData struct {
	Hook      string
	Summary   string
	Chapters  []Chapter
	SourceURL string
	Channel   string
	Hashtags  []string
}

var stopWords = map[string]bool{
	"about": true, "after": true, "their": true, "there": true, "these": true,
	"this": true, "that": true, "what": true, "when": true, "where": true,
	"which": true, "with": true, "your": true, "from": true, "does": true,
	"have": true, "into": true, "they": true, "were": true, "will": true,
}

// Generator creates YouTube metadata from the script and its timeline
type Generator struct {
	cfg *config.Config
}

// New creates a new metadata Generator
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

// Run builds metadata for a finished run. The rendered video must exist.
func (g *Generator) Run(script *types.Script, topic *types.Topic, out *types.RunOutputs) (*types.VideoMetadata, error) {
	log.Println("[metadata] Generating YouTube metadata...")
	if out == nil {
		return nil, fmt.Errorf("no run outputs")
	}
	if err := tools.NonEmpty(out.VideoPath); err != nil {
		return nil, fmt.Errorf("video not found: %w", err)
	}

	data := descriptionData{
		Hook:     firstOfKind(script.Segments, types.KindHook),
		Summary:  firstOfKind(script.Segments, types.KindSummary),
		Chapters: Chapters(out.Timeline),
		Channel:  g.cfg.Metadata.ChannelName,
	}
	if data.Hook == "" {
		data.Hook = script.Title
	}
	if data.Summary == "" {
		data.Summary = script.Topic
	}
	if topic != nil {
		data.SourceURL = topic.SourceURL
	}

	tags := Tags(script, topic, g.cfg.Metadata.TagsCount)
	for _, t := range tags[:min(3, len(tags))] {
		data.Hashtags = append(data.Hashtags, strings.ReplaceAll(t, " ", ""))
	}

	var sb strings.Builder
	if err := descriptionTmpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("render description: %w", err)
	}

	metadata := &types.VideoMetadata{
		Title:       TruncateTitle(script.Title, g.cfg.Metadata.TitleMaxChars),
		Description: strings.TrimSpace(sb.String()),
		Tags:        tags,
		CategoryID:  g.cfg.Metadata.YouTubeCategoryID,
		Visibility:  g.cfg.Upload.Visibility,
	}
	if metadata.Visibility == "public" {
		metadata.ScheduledTimeUTC = nextUploadTime(time.Now())
	}

	log.Printf("[metadata] ✅ Title: %q", metadata.Title)
	log.Printf("[metadata] Tags: %d generated", len(metadata.Tags))
	return metadata, nil
}

// Chapters lists one chapter per run of same-kind segments
func Chapters(tl types.Timeline) []Chapter {
	var chapters []Chapter
	var prev types.SegmentKind
	for i, seg := range tl.Segments {
		if i > 0 && seg.Kind == prev {
			continue
		}
		prev = seg.Kind
		chapters = append(chapters, Chapter{Stamp: Stamp(seg.StartSec), Label: chapterLabel(seg.Kind)})
	}
	return chapters
}

// Stamp formats seconds the way YouTube chapter markers expect
func Stamp(sec int) string {
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, sec/60%60, sec%60)
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func chapterLabel(k types.SegmentKind) string {
	switch k {
	case types.KindHook:
		return "Intro"
	case types.KindContext:
		return "Background"
	case types.KindExplanation:
		return "The Explanation"
	case types.KindSummary:
		return "Recap"
	case types.KindCTA:
		return "What's Next"
	}
	return "Part"
}

// TruncateTitle shortens title to max runes, marking the cut with "..."
func TruncateTitle(title string, max int) string {
	r := []rune(strings.TrimSpace(title))
	if max <= 3 || len(r) <= max {
		return string(r)
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}

// Tags returns up to n unique lowercase tags: category and query first,
// then keywords from the title and topic.
func Tags(script *types.Script, topic *types.Topic, n int) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || len(tags) >= n {
			return
		}
		seen[t] = true
		tags = append(tags, t)
	}

	if topic != nil {
		add(topic.Category)
		add(topic.Query)
	}
	add(script.Topic)
	for _, src := range []string{script.Title, script.Topic} {
		for _, w := range strings.FieldsFunc(src, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
			if len([]rune(w)) >= 4 && !stopWords[strings.ToLower(w)] {
				add(w)
			}
		}
	}
	add("explained")
	return tags
}

func firstOfKind(segs []types.NarrationSegment, k types.SegmentKind) string {
	for _, s := range segs {
		if s.Kind == k {
			return strings.TrimSpace(s.Text)
		}
	}
	return ""
}

// nextUploadTime returns the next Tuesday or Friday at 2PM New York time in UTC
func nextUploadTime(now time.Time) string {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	now = now.In(loc)

	for i := 1; i <= 7; i++ {
		candidate := now.AddDate(0, 0, i)
		wd := candidate.Weekday()
		if wd == time.Tuesday || wd == time.Friday {
			upload := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 14, 0, 0, 0, loc)
			return upload.UTC().Format(time.RFC3339)
		}
	}
	return now.UTC().Add(48 * time.Hour).Format(time.RFC3339)
}
