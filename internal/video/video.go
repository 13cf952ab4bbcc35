// Package video extracts recipe content from video platform URLs. Platform
// metadata comes through the MetadataFetcher interface so richer backends can
// be swapped in; the bundled implementation speaks oEmbed.
package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mealcrafter/internal/recipe"
)

// ErrAuthRequired marks platforms that refuse anonymous access.
var ErrAuthRequired = errors.New("platform requires authentication")

const instagramGuidance = `Instagram requires authentication to access most content.

To add an Instagram recipe:
1. Copy the recipe text from the Instagram post
2. Paste it directly as recipe text
3. Or save the post and re-upload when it becomes publicly accessible

Alternative: use recipe videos from YouTube or TikTok, which do not require authentication.`

// Metadata is the platform-neutral shape a MetadataFetcher returns.
type Metadata struct {
	Title       string
	Uploader    string
	Description string
	Duration    int
	Thumbnail   string
	Thumbnails  []Thumbnail
}

// Thumbnail is one candidate image for a video.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
	ID     string
}

// MetadataFetcher resolves a video URL to its metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*Metadata, error)
}

// TranscriptFetcher resolves a YouTube video ID to its caption text.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Extractor turns a video URL into text suitable for recipe parsing.
type Extractor struct {
	metadata    MetadataFetcher
	transcripts TranscriptFetcher
}

// NewExtractor creates an Extractor. The transcript fetcher may be nil;
// transcripts are best-effort everywhere.
func NewExtractor(metadata MetadataFetcher, transcripts TranscriptFetcher) *Extractor {
	return &Extractor{metadata: metadata, transcripts: transcripts}
}

// DetectPlatform classifies the URL by host.
func DetectPlatform(rawURL string) recipe.Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return recipe.PlatformOther
	}
	host := strings.ToLower(u.Host)

	switch {
	case strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be"):
		return recipe.PlatformYouTube
	case strings.Contains(host, "instagram.com"):
		return recipe.PlatformInstagram
	case strings.Contains(host, "tiktok.com"):
		return recipe.PlatformTikTok
	case strings.Contains(host, "facebook.com") || strings.Contains(host, "fb.watch"):
		return recipe.PlatformFacebook
	case strings.Contains(host, "vimeo.com"):
		return recipe.PlatformVimeo
	default:
		return recipe.PlatformOther
	}
}

// Extract dispatches to the platform-specific extraction path.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*recipe.VideoExtraction, error) {
	platform := DetectPlatform(rawURL)
	log.Printf("Detected platform %s for URL %s", platform, rawURL)

	switch platform {
	case recipe.PlatformYouTube:
		return e.extractYouTube(ctx, rawURL)
	case recipe.PlatformInstagram:
		return e.extractInstagram(ctx, rawURL)
	case recipe.PlatformTikTok:
		return e.extractTikTok(ctx, rawURL)
	default:
		return e.extractGeneric(ctx, rawURL, platform)
	}
}

func (e *Extractor) extractYouTube(ctx context.Context, rawURL string) (*recipe.VideoExtraction, error) {
	videoID := YouTubeVideoID(rawURL)
	if videoID == "" {
		return nil, fmt.Errorf("could not extract YouTube video ID from URL: %s", rawURL)
	}

	meta, err := e.metadata.Fetch(ctx, rawURL)
	if err != nil {
		log.Printf("Could not get metadata for video %s: %v", rawURL, err)
		meta = &Metadata{}
	}

	var transcript string
	if e.transcripts != nil {
		transcript, err = e.transcripts.Fetch(ctx, videoID)
		if err != nil {
			log.Printf("Could not get YouTube transcript: %v", err)
			transcript = ""
		}
	}

	title := meta.Title
	if title == "" {
		title = "Video Recipe"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if meta.Description != "" {
		fmt.Fprintf(&sb, "## Description:\n%s\n\n", meta.Description)
	}
	if transcript != "" {
		fmt.Fprintf(&sb, "## Video Transcript:\n%s\n\n", transcript)
	}
	fullText := sb.String()

	// The downstream parser sees the complete description and transcript;
	// pre-extracting here tends to lose content.
	return &recipe.VideoExtraction{
		Platform:    recipe.PlatformYouTube,
		Title:       meta.Title,
		Author:      meta.Uploader,
		URL:         rawURL,
		Thumbnail:   bestThumbnail(meta),
		Duration:    meta.Duration,
		Description: meta.Description,
		Transcript:  transcript,
		FullText:    fullText,
		RecipeText:  fullText,
	}, nil
}

func (e *Extractor) extractInstagram(ctx context.Context, rawURL string) (*recipe.VideoExtraction, error) {
	meta, err := e.metadata.Fetch(ctx, rawURL)
	if err == nil && len(meta.Description) > 50 {
		title := meta.Title
		if title == "" {
			title = "Instagram Recipe"
		}
		author := meta.Uploader
		if author == "" {
			author = "Unknown"
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s\n\n", title)
		fmt.Fprintf(&sb, "By: %s\n\n", author)
		fmt.Fprintf(&sb, "Source: Instagram (%s)\n\n", rawURL)
		fmt.Fprintf(&sb, "## Content:\n%s\n\n", meta.Description)
		fullText := sb.String()

		return &recipe.VideoExtraction{
			Platform:    recipe.PlatformInstagram,
			Title:       title,
			Author:      author,
			URL:         rawURL,
			Thumbnail:   bestThumbnail(meta),
			Description: meta.Description,
			FullText:    fullText,
			RecipeText:  fullText,
		}, nil
	}
	if err != nil {
		log.Printf("Could not extract Instagram content: %v", err)
	}

	return nil, fmt.Errorf("%w\n\n%s", ErrAuthRequired, instagramGuidance)
}

func (e *Extractor) extractTikTok(ctx context.Context, rawURL string) (*recipe.VideoExtraction, error) {
	meta, err := e.metadata.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract TikTok content: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = "TikTok Recipe"
	}
	author := meta.Uploader
	if author == "" {
		author = "Unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "By: %s\n\n", author)
	if meta.Description != "" {
		fmt.Fprintf(&sb, "## Description:\n%s\n\n", meta.Description)
	}
	fullText := sb.String()

	recipeText := extractRecipeFromText(meta.Description)
	if recipeText == "" {
		recipeText = fullText
	}

	return &recipe.VideoExtraction{
		Platform:    recipe.PlatformTikTok,
		Title:       title,
		Author:      meta.Uploader,
		URL:         rawURL,
		Thumbnail:   bestThumbnail(meta),
		Description: meta.Description,
		FullText:    fullText,
		RecipeText:  recipeText,
	}, nil
}

func (e *Extractor) extractGeneric(ctx context.Context, rawURL string, platform recipe.Platform) (*recipe.VideoExtraction, error) {
	meta, err := e.metadata.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video content: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = "Video Recipe"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if meta.Uploader != "" {
		fmt.Fprintf(&sb, "By: %s\n\n", meta.Uploader)
	}
	if meta.Description != "" {
		fmt.Fprintf(&sb, "## Description:\n%s\n\n", meta.Description)
	}
	fullText := sb.String()

	recipeText := extractRecipeFromText(meta.Description)
	if recipeText == "" {
		recipeText = fullText
	}

	return &recipe.VideoExtraction{
		Platform:    platform,
		Title:       title,
		Author:      meta.Uploader,
		URL:         rawURL,
		Thumbnail:   meta.Thumbnail,
		Duration:    meta.Duration,
		Description: meta.Description,
		FullText:    fullText,
		RecipeText:  recipeText,
	}, nil
}

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([\w-]+)`),
	regexp.MustCompile(`youtu\.be/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/embed/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/v/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([\w-]+)`),
}

var shortsPathRe = regexp.MustCompile(`/shorts/([\w-]+)`)

var youtubeHosts = map[string]bool{
	"www.youtube.com": true,
	"youtube.com":     true,
	"m.youtube.com":   true,
}

// YouTubeVideoID pulls the video ID out of any of the URL shapes YouTube
// uses: watch, youtu.be, embed, /v/, shorts, and a bare v query parameter.
func YouTubeVideoID(rawURL string) string {
	for _, pattern := range youtubeIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if youtubeHosts[strings.ToLower(u.Host)] {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if m := shortsPathRe.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
	}
	return ""
}

var endOfVideoKeywords = []string{"final", "end", "last", "result"}

// bestThumbnail ranks the candidate thumbnails. Frames from the end of the
// video usually show the finished dish, so URL hints to that effect outrank
// resolution, which outranks positional IDs.
func bestThumbnail(meta *Metadata) string {
	if len(meta.Thumbnails) == 0 {
		return meta.Thumbnail
	}

	type ranked struct {
		priority float64
		url      string
	}
	var candidates []ranked
	for _, thumb := range meta.Thumbnails {
		if thumb.URL == "" {
			continue
		}
		priority := 0.0
		lower := strings.ToLower(thumb.URL)
		for _, kw := range endOfVideoKeywords {
			if strings.Contains(lower, kw) {
				priority += 10
				break
			}
		}
		if thumb.Width > 0 && thumb.Height > 0 {
			priority += float64(thumb.Width*thumb.Height) / 1e6
		}
		if n, err := strconv.Atoi(thumb.ID); err == nil {
			priority += float64(n) / 100
		}
		candidates = append(candidates, ranked{priority, thumb.URL})
	}

	if len(candidates) == 0 {
		return meta.Thumbnail
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})
	return candidates[0].url
}

var (
	descBulletRe = regexp.MustCompile(`^[-•*]\s*`)
	descStepRe   = regexp.MustCompile(`^\d+[.)]\s*`)

	descIngredientKeywords  = []string{"ingredients", "you need", "you'll need", "recipe:", "items needed"}
	descInstructionKeywords = []string{"instructions", "directions", "method", "steps", "how to", "preparation"}
	descSkipWords           = []string{"follow", "subscribe", "watch", "click", "link", "comment", "video", "channel"}
)

// extractRecipeFromText pulls a structured recipe out of a video description
// when it carries one. Social-media boilerplate and URLs are filtered from
// ingredient sections. Returns "" when no usable structure is found.
func extractRecipeFromText(text string) string {
	if text == "" {
		return ""
	}

	var parts []string
	inIngredients := false
	inInstructions := false
	stepNum := 0
	ingredientCount := 0

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))

		if containsAny(lower, descIngredientKeywords) {
			inIngredients, inInstructions = true, false
			parts = append(parts, "\n## Ingredients:\n")
			continue
		}
		if containsAny(lower, descInstructionKeywords) {
			inInstructions, inIngredients = true, false
			parts = append(parts, "\n## Instructions:\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if inIngredients {
			if strings.Contains(line, "http") || strings.Contains(line, "www.") || strings.Contains(line, "@") {
				continue
			}
			if containsAny(lower, descSkipWords) {
				continue
			}
			cleaned := descBulletRe.ReplaceAllString(trimmed, "")
			if len(cleaned) > 2 && !strings.HasPrefix(cleaned, "#") {
				parts = append(parts, "- "+cleaned)
				ingredientCount++
			}
		} else if inInstructions {
			if cleaned := descStepRe.ReplaceAllString(trimmed, ""); cleaned != "" {
				stepNum++
				parts = append(parts, fmt.Sprintf("%d. %s", stepNum, cleaned))
			}
		}
	}

	if ingredientCount > 0 || stepNum > 0 {
		return strings.Join(parts, "\n")
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
