package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"mealcrafter/internal/recipe"
)

// OEmbedFetcher resolves video metadata through the platforms' public oEmbed
// endpoints. Those endpoints carry no description or duration; backends with
// platform API credentials can implement MetadataFetcher to provide them.
type OEmbedFetcher struct {
	client    *http.Client
	endpoints map[recipe.Platform]string
}

// NewOEmbedFetcher creates an OEmbedFetcher with the given request timeout.
func NewOEmbedFetcher(timeout time.Duration) *OEmbedFetcher {
	return &OEmbedFetcher{
		client: &http.Client{Timeout: timeout},
		endpoints: map[recipe.Platform]string{
			recipe.PlatformYouTube: "https://www.youtube.com/oembed?format=json&url=",
			recipe.PlatformTikTok:  "https://www.tiktok.com/oembed?url=",
			recipe.PlatformVimeo:   "https://vimeo.com/api/oembed.json?url=",
		},
	}
}

type oembedResponse struct {
	Title           string `json:"title"`
	AuthorName      string `json:"author_name"`
	ThumbnailURL    string `json:"thumbnail_url"`
	ThumbnailWidth  int    `json:"thumbnail_width"`
	ThumbnailHeight int    `json:"thumbnail_height"`
}

// Fetch resolves metadata for the URL. Platforms without an anonymous oEmbed
// endpoint (Instagram, Facebook) fail here, which callers surface as an
// authentication problem.
func (f *OEmbedFetcher) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	platform := DetectPlatform(rawURL)
	endpoint, ok := f.endpoints[platform]
	if !ok {
		return nil, fmt.Errorf("no anonymous metadata endpoint for platform %s", platform)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed request failed: status %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oembed response invalid: %w", err)
	}

	meta := &Metadata{
		Title:     body.Title,
		Uploader:  body.AuthorName,
		Thumbnail: body.ThumbnailURL,
	}
	if body.ThumbnailURL != "" {
		meta.Thumbnails = []Thumbnail{{
			URL:    body.ThumbnailURL,
			Width:  body.ThumbnailWidth,
			Height: body.ThumbnailHeight,
		}}
	}
	return meta, nil
}
