package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"explainer-pipeline/config"
	"explainer-pipeline/types"
)

// Uploader publishes the finished video and its thumbnail via Data API v3
type Uploader struct {
	cfg *config.Config
}

// New creates a new Uploader
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Result is what a successful upload reports back
type Result struct {
	VideoID  string
	VideoURL string
}

// Run uploads the video, then sets the thumbnail. A thumbnail failure is
// logged; the video is already live at that point.
func (u *Uploader) Run(ctx context.Context, out *types.RunOutputs, metadata *types.VideoMetadata) (*Result, error) {
	log.Println("[upload] Authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	log.Printf("[upload] Uploading: %q", metadata.Title)

	f, err := os.Open(out.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, u.buildVideo(metadata)).
		NotifySubscribers(u.cfg.Upload.NotifySubscribers).
		Context(ctx).
		Media(f).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	res := &Result{
		VideoID:  uploaded.Id,
		VideoURL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
	}
	log.Printf("[upload] ✅ Uploaded successfully!")
	log.Printf("[upload] Video URL: %s", res.VideoURL)

	if err := u.setThumbnail(ctx, svc, res.VideoID, out.ThumbnailPath); err != nil {
		log.Printf("[upload] ⚠️  thumbnail not set: %v", err)
	}
	return res, nil
}

func (u *Uploader) setThumbnail(ctx context.Context, svc *youtube.Service, videoID, path string) error {
	if path == "" {
		return fmt.Errorf("no thumbnail")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := svc.Thumbnails.Set(videoID).Context(ctx).Media(f).Do(); err != nil {
		return err
	}
	log.Printf("[upload] ✅ Thumbnail set")
	return nil
}

// buildVideo maps metadata onto the API resource
func (u *Uploader) buildVideo(metadata *types.VideoMetadata) *youtube.Video {
	snippet := &youtube.VideoSnippet{
		Title:                metadata.Title,
		Description:          metadata.Description,
		Tags:                 metadata.Tags,
		CategoryId:           metadata.CategoryID,
		DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
		DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           metadata.Visibility,
		SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
	}

	// Scheduled videos must be uploaded private
	if metadata.ScheduledTimeUTC != "" && metadata.Visibility == "public" {
		status.PrivacyStatus = "private"
		status.PublishAt = metadata.ScheduledTimeUTC
		log.Printf("[upload] Scheduled for: %s UTC", metadata.ScheduledTimeUTC)
	}

	return &youtube.Video{Snippet: snippet, Status: status}
}

// oauthClient creates an OAuth2 HTTP client from env credentials
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// LogUpload saves the upload result to the logs directory
func LogUpload(res *Result, out *types.RunOutputs, logsDir string, metadata *types.VideoMetadata) (string, error) {
	entry := map[string]interface{}{
		"video_id":       res.VideoID,
		"video_url":      res.VideoURL,
		"title":          metadata.Title,
		"scheduled_utc":  metadata.ScheduledTimeUTC,
		"uploaded_at":    time.Now().UTC().Format(time.RFC3339),
		"video_file":     out.VideoPath,
		"thumbnail_file": out.ThumbnailPath,
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", err
	}
	logFile := filepath.Join(logsDir, fmt.Sprintf("upload_%s_%s.json", time.Now().Format("20060102_150405"), res.VideoID))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return "", err
	}

	log.Printf("[upload] Upload log saved: %s", logFile)
	return logFile, nil
}
