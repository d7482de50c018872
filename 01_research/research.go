package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"explainer-pipeline/config"
	"explainer-pipeline/types"
)

// hookKeywords boost a topic's score when present
var hookKeywords = []string{
	"why", "how", "actually", "secret", "mystery", "discovered",
	"scientists", "ancient", "brain", "space", "universe", "invented",
	"really", "history", "explain", "works", "origin",
}

// titlePrefixes are subreddit conventions stripped from the query text
var titlePrefixes = regexp.MustCompile(`(?i)^\s*(eli5|til that|til|today i learned that|today i learned)\b\s*[:\-,]?\s*`)

// Post is the part of a subreddit listing the scorer needs
type Post struct {
	ID          string
	Title       string
	Body        string
	Permalink   string
	Subreddit   string
	Score       int
	NumComments int
	Created     time.Time
}

// Source lists recent top posts of one subreddit
type Source interface {
	TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
}

// Scraper picks the next explainer topic from trending posts
type Scraper struct {
	cfg        *config.Config
	source     Source
	usedTopics map[string]bool
	now        func() time.Time
}

// New creates a Scraper reading from source
func New(cfg *config.Config, source Source) *Scraper {
	return &Scraper{
		cfg:        cfg,
		source:     source,
		usedTopics: loadUsedTopics(cfg.Paths.UsedTopicsLog),
		now:        time.Now,
	}
}

// Run fetches, scores, deduplicates and returns the best topic
func (s *Scraper) Run(ctx context.Context) (*types.Topic, error) {
	log.Println("[research] Starting topic scrape...")

	cutoff := s.now().AddDate(0, 0, -s.cfg.Research.LookbackDays)
	var candidates []*types.Topic

	for _, sub := range s.cfg.Research.Subreddits {
		posts, err := s.source.TopPosts(ctx, sub, s.cfg.Research.PostsPerSubreddit)
		if err != nil {
			log.Printf("[research] Reddit r/%s error: %v", sub, err)
			continue
		}
		kept := 0
		for _, post := range posts {
			if post.Created.Before(cutoff) ||
				post.Score < s.cfg.Research.MinRedditScore ||
				post.NumComments < s.cfg.Research.MinComments {
				continue
			}
			candidates = append(candidates, s.toTopic(sub, post))
			kept++
		}
		log.Printf("[research] r/%s: %d of %d posts qualify", sub, kept, len(posts))
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no topics found from any subreddit")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	for _, topic := range candidates {
		if !s.usedTopics[topic.ID] {
			log.Printf("[research] ✅ Selected topic: %q (score: %d)", topic.Query, topic.Score)
			if err := s.markUsed(topic); err != nil {
				log.Printf("[research] ⚠️  could not update used topics log: %v", err)
			}
			return topic, nil
		}
	}
	return nil, fmt.Errorf("all candidate topics have been used already")
}

func (s *Scraper) toTopic(sub string, post Post) *types.Topic {
	category := s.cfg.Research.Categories[strings.ToLower(sub)]
	if category == "" {
		category = "education"
	}
	return &types.Topic{
		ID:        "reddit_" + post.ID,
		Query:     CleanQuery(post.Title),
		Category:  category,
		Score:     ScorePost(post, s.now()),
		Source:    "r/" + sub,
		SourceURL: "https://reddit.com" + post.Permalink,
	}
}

// ScorePost ranks a post: upvotes, discussion, recency and hook words
func ScorePost(post Post, now time.Time) int {
	score := post.Score + post.NumComments*2

	text := strings.ToLower(post.Title + " " + post.Body)
	for _, kw := range hookKeywords {
		if strings.Contains(text, kw) {
			score += 50
		}
	}

	switch age := now.Sub(post.Created); {
	case age < 0:
	case age < 24*time.Hour:
		score += 200
	case age < 72*time.Hour:
		score += 100
	}

	// Questions make better explainers
	if strings.HasSuffix(strings.TrimSpace(post.Title), "?") {
		score += 75
	}
	return score
}

// CleanQuery strips subreddit prefixes and trailing punctuation from a title
func CleanQuery(title string) string {
	q := titlePrefixes.ReplaceAllString(title, "")
	q = strings.TrimRight(strings.TrimSpace(q), ".!")
	if q == "" {
		return strings.TrimSpace(title)
	}
	r, size := utf8.DecodeRuneInString(q)
	return string(unicode.ToUpper(r)) + q[size:]
}

// --- Reddit source ---

// RedditSource reads listings through the go-reddit client
type RedditSource struct {
	client *reddit.Client
}

// NewRedditSource creates a read-only client. REDDIT_USER_AGENT is honoured.
func NewRedditSource() (*RedditSource, error) {
	var opts []reddit.Opt
	if ua := os.Getenv("REDDIT_USER_AGENT"); ua != "" {
		opts = append(opts, reddit.WithUserAgent(ua))
	}
	client, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &RedditSource{client: client}, nil
}

// TopPosts returns the day's top posts of a subreddit
func (r *RedditSource) TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	posts, _, err := r.client.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
		Time:        "week",
	})
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		post := Post{
			ID:          p.ID,
			Title:       p.Title,
			Body:        p.Body,
			Permalink:   p.Permalink,
			Subreddit:   p.SubredditName,
			Score:       p.Score,
			NumComments: p.NumberOfComments,
		}
		if p.Created != nil {
			post.Created = p.Created.Time
		}
		out = append(out, post)
	}
	return out, nil
}

// --- Used topics dedup log ---
func loadUsedTopics(path string) map[string]bool {
	used := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return used
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return used
	}
	for _, id := range ids {
		used[id] = true
	}
	return used
}

func (s *Scraper) markUsed(topic *types.Topic) error {
	s.usedTopics[topic.ID] = true
	ids := make([]string, 0, len(s.usedTopics))
	for id := range s.usedTopics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Paths.UsedTopicsLog), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.cfg.Paths.UsedTopicsLog, data, 0644)
}
