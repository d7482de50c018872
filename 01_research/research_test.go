package research

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"explainer-pipeline/config"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	posts map[string][]Post
	errs  map[string]error
}

func (f *fakeSource) TopPosts(ctx context.Context, sub string, limit int) ([]Post, error) {
	if err := f.errs[sub]; err != nil {
		return nil, err
	}
	return f.posts[sub], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.UsedTopicsLog = filepath.Join(t.TempDir(), "logs", "used_topics.json")
	return cfg
}

func newScraper(cfg *config.Config, src Source) *Scraper {
	s := New(cfg, src)
	s.now = func() time.Time { return now }
	return s
}

func TestScorePost(t *testing.T) {
	base := Post{Title: "plain title", Score: 1000, NumComments: 100, Created: now.Add(-48 * time.Hour)}

	tests := []struct {
		name string
		post Post
		want int
	}{
		{"base", base, 1000 + 200 + 100},
		{"fresh", Post{Title: "plain title", Score: 1000, NumComments: 100, Created: now.Add(-time.Hour)}, 1000 + 200 + 200},
		{"old", Post{Title: "plain title", Score: 1000, NumComments: 100, Created: now.Add(-96 * time.Hour)}, 1000 + 200},
		{"question with hook words", Post{Title: "How does the brain work?", Score: 1000, NumComments: 100, Created: now.Add(-96 * time.Hour)}, 1000 + 200 + 100 + 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScorePost(tt.post, now); got != tt.want {
				t.Errorf("ScorePost = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCleanQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ELI5: why is the sky blue?", "Why is the sky blue?"},
		{"TIL that octopuses have three hearts.", "Octopuses have three hearts"},
		{"Today I learned bananas are berries!", "Bananas are berries"},
		{"How do magnets work", "How do magnets work"},
		{"TIL", "TIL"},
		{"TIL élan vital was a theory", "Élan vital was a theory"},
		{"eli5: ünicode titles", "Ünicode titles"},
	}
	for _, tt := range tests {
		if got := CleanQuery(tt.in); got != tt.want {
			t.Errorf("CleanQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !utf8.ValidString(CleanQuery(tt.in)) {
			t.Errorf("CleanQuery(%q) is not valid UTF-8", tt.in)
		}
	}
}

func TestRun_PicksBestUnusedTopic(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{posts: map[string][]Post{
		"science": {
			{ID: "a", Title: "Why do cats purr?", Permalink: "/r/science/a", Score: 5000, NumComments: 400, Created: now.Add(-time.Hour)},
			{ID: "low", Title: "low score", Score: 10, NumComments: 400, Created: now},
			{ID: "stale", Title: "old news", Score: 9000, NumComments: 900, Created: now.AddDate(0, 0, -10)},
		},
		"todayilearned": {
			{ID: "b", Title: "TIL honey never spoils", Score: 2000, NumComments: 100, Created: now.Add(-time.Hour)},
		},
	}, errs: map[string]error{"explainlikeimfive": errors.New("503")}}

	s := newScraper(cfg, src)
	topic, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if topic.ID != "reddit_a" || topic.Category != "science" || topic.Source != "r/science" {
		t.Errorf("topic = %+v", topic)
	}
	if topic.SourceURL != "https://reddit.com/r/science/a" {
		t.Errorf("SourceURL = %q", topic.SourceURL)
	}

	data, err := os.ReadFile(cfg.Paths.UsedTopicsLog)
	if err != nil {
		t.Fatalf("used topics log: %v", err)
	}
	var ids []string
	json.Unmarshal(data, &ids)
	if len(ids) != 1 || ids[0] != "reddit_a" {
		t.Errorf("used ids = %v", ids)
	}

	// A fresh scraper reads the log and moves on to the next topic
	next, err := newScraper(cfg, src).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if next.ID != "reddit_b" || next.Query != "Honey never spoils" || next.Category != "trivia" {
		t.Errorf("next topic = %+v", next)
	}

	if _, err := newScraper(cfg, src).Run(context.Background()); err == nil {
		t.Error("expected error once every topic is used")
	}
}

func TestRun_NoCandidates(t *testing.T) {
	if _, err := newScraper(testConfig(t), &fakeSource{}).Run(context.Background()); err == nil {
		t.Fatal("expected error with no posts")
	}
}
