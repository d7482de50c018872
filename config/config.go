package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Research  ResearchConfig  `yaml:"research"`
	Video     VideoConfig     `yaml:"video"`
	Visuals   VisualsConfig   `yaml:"visuals"`
	Audio     AudioConfig     `yaml:"audio"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Render    RenderConfig    `yaml:"render"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Tools     ToolsConfig     `yaml:"tools"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Upload    UploadConfig    `yaml:"upload"`
	Paths     PathsConfig     `yaml:"paths"`
}

type ResearchConfig struct {
	Enabled           bool              `yaml:"enabled"`
	Subreddits        []string          `yaml:"subreddits"`
	Categories        map[string]string `yaml:"categories"` // subreddit → category
	LookbackDays      int               `yaml:"lookback_days"`
	MinRedditScore    int               `yaml:"min_reddit_score"`
	MinComments       int               `yaml:"min_comments"`
	PostsPerSubreddit int               `yaml:"posts_per_subreddit"`
}

type VideoConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	PixelFormat  string `yaml:"pixel_format"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

type VisualsConfig struct {
	Font         string `yaml:"font"`
	MaxTextRunes int    `yaml:"max_text_runes"`
	Parallelism  int    `yaml:"parallelism"`
}

type AudioConfig struct {
	MusicPath      string  `yaml:"music_path"`
	NarrationLevel float64 `yaml:"narration_level"` // applied only when music is mixed in
	MusicLevel     float64 `yaml:"music_level"`
	Reconcile      string  `yaml:"reconcile"` // shortest | narration
}

type SubtitlesConfig struct {
	Font            string  `yaml:"font"`
	FontSize        int     `yaml:"font_size"`
	FontWeight      string  `yaml:"font_weight"`
	Color           string  `yaml:"color"`        // ASS &HAABBGGRR
	StrokeColor     string  `yaml:"stroke_color"` // ASS &HAABBGGRR
	StrokeWidth     float64 `yaml:"stroke_width"`
	MarginBottom    int     `yaml:"margin_bottom"`
	MaxCharsPerLine int     `yaml:"max_chars_per_line"`
}

type RenderConfig struct {
	Engine         string  `yaml:"engine"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	UniformSlotSec float64 `yaml:"uniform_slot_sec"` // 0 = hold each image for its segment's duration
}

type ThumbnailConfig struct {
	FrameOffsetSec  float64           `yaml:"frame_offset_sec"`
	Font            string            `yaml:"font"`
	CallToAction    string            `yaml:"call_to_action"`
	DefaultScheme   string            `yaml:"default_scheme"`
	CategorySchemes map[string]string `yaml:"category_schemes"`
	Palette         []string          `yaml:"palette"`
}

type ToolsConfig struct {
	Rasterizer string `yaml:"rasterizer"`
	Probe      string `yaml:"probe"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type MetadataConfig struct {
	TitleMaxChars     int    `yaml:"title_max_chars"`
	TagsCount         int    `yaml:"tags_count"`
	YouTubeCategoryID string `yaml:"youtube_category_id"`
	ChannelName       string `yaml:"channel_name"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type PathsConfig struct {
	Output        string `yaml:"output"`
	Work          string `yaml:"work"`
	Logs          string `yaml:"logs"`
	UsedTopicsLog string `yaml:"used_topics_log"`
}

// Default returns the configuration used when config.yaml omits a field
func Default() *Config {
	return &Config{
		Research: ResearchConfig{
			Subreddits:        []string{"explainlikeimfive", "todayilearned", "science"},
			Categories:        map[string]string{"science": "science", "todayilearned": "trivia", "explainlikeimfive": "education"},
			LookbackDays:      3,
			MinRedditScore:    500,
			MinComments:       50,
			PostsPerSubreddit: 25,
		},
		Video: VideoConfig{
			Width:        1920,
			Height:       1080,
			FPS:          30,
			VideoCodec:   "libx264",
			Preset:       "fast",
			CRF:          22,
			PixelFormat:  "yuv420p",
			AudioCodec:   "aac",
			AudioBitrate: "192k",
		},
		Visuals: VisualsConfig{
			Font:         "DejaVu-Sans-Bold",
			MaxTextRunes: 80,
			Parallelism:  4,
		},
		Audio: AudioConfig{
			MusicPath:      "assets/music/background.mp3",
			NarrationLevel: 0.3,
			MusicLevel:     0.1,
			Reconcile:      "shortest",
		},
		Subtitles: SubtitlesConfig{
			Font:            "Arial",
			FontSize:        24,
			FontWeight:      "bold",
			Color:           "&H00FFFFFF",
			StrokeColor:     "&H00000000",
			StrokeWidth:     2,
			MarginBottom:    40,
			MaxCharsPerLine: 42,
		},
		Render: RenderConfig{
			Engine:        "ffmpeg",
			TimeoutSec:    300,
			MaxConcurrent: 1,
		},
		Thumbnail: ThumbnailConfig{
			FrameOffsetSec: 2,
			Font:           "DejaVu-Sans-Bold",
			CallToAction:   "WATCH NOW",
			DefaultScheme:  "bold",
			CategorySchemes: map[string]string{
				"science":   "neon",
				"education": "clean",
				"trivia":    "bold",
			},
			Palette: []string{"#1B2631", "#7B241C", "#154360", "#0E6251", "#4A235A", "#784212"},
		},
		Tools: ToolsConfig{
			Rasterizer: "magick",
			Probe:      "ffprobe",
			TimeoutSec: 60,
		},
		Metadata: MetadataConfig{
			TitleMaxChars:     70,
			TagsCount:         15,
			YouTubeCategoryID: "27",
		},
		Upload: UploadConfig{
			Visibility:      "private",
			DefaultLanguage: "en",
		},
		Paths: PathsConfig{
			Output:        "output",
			Work:          "work",
			Logs:          "logs",
			UsedTopicsLog: "logs/used_topics.json",
		},
	}
}

// Load reads config.yaml over the defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("video resolution must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("video fps must be positive, got %d", c.Video.FPS)
	}
	if c.Render.TimeoutSec <= 0 {
		return fmt.Errorf("render timeout_sec must be positive, got %d", c.Render.TimeoutSec)
	}
	if c.Render.MaxConcurrent <= 0 {
		return fmt.Errorf("render max_concurrent must be positive, got %d", c.Render.MaxConcurrent)
	}
	if c.Render.UniformSlotSec < 0 {
		return fmt.Errorf("render uniform_slot_sec must not be negative")
	}
	if c.Tools.TimeoutSec <= 0 {
		return fmt.Errorf("tools timeout_sec must be positive, got %d", c.Tools.TimeoutSec)
	}
	switch c.Audio.Reconcile {
	case "shortest", "narration":
	default:
		return fmt.Errorf("audio reconcile must be shortest or narration, got %q", c.Audio.Reconcile)
	}
	if len(c.Thumbnail.Palette) == 0 {
		return fmt.Errorf("thumbnail palette must not be empty")
	}
	return nil
}

// RenderTimeout is the bound on the single render invocation
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSec) * time.Second
}

// ToolTimeout bounds rasterizer, frame extraction and probe calls
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tools.TimeoutSec) * time.Second
}
