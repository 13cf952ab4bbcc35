// Package images downloads recipe photos and keeps optimized local copies.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxSide      = 1200
	jpegQuality  = 95
	downloadSize = 20 * 1024 * 1024
)

var downloadHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":     "image/webp,image/apng,image/avif,image/svg+xml,image/*,*/*;q=0.8",
	// Instagram CDN URLs refuse requests without a plausible referer.
	"Referer": "https://www.instagram.com/",
}

// Store downloads remote images and saves them under a local directory,
// re-encoded as capped-size JPEGs.
type Store struct {
	dir     string
	urlBase string
	client  *http.Client
}

// NewStore creates a Store rooted at dir. Stored images are addressed as
// urlBase + filename. The directory is created on first use.
func NewStore(dir, urlBase string) *Store {
	return &Store{
		dir:     dir,
		urlBase: strings.TrimSuffix(urlBase, "/") + "/",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Download fetches the image at imageURL, normalizes it, and stores it under
// a unique name. It returns the serving path for the stored copy. recipeID
// may be empty; when set it prefixes the filename for easier inspection.
func (s *Store) Download(ctx context.Context, imageURL, recipeID string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("image storage dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("image download: %w", err)
	}
	for k, v := range downloadHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, downloadSize))
	if err != nil {
		return "", fmt.Errorf("image download: %w", err)
	}

	processed, err := process(data)
	if err != nil {
		return "", err
	}

	name := filename(recipeID)
	if err := os.WriteFile(filepath.Join(s.dir, name), processed, 0o644); err != nil {
		return "", fmt.Errorf("image storage: %w", err)
	}
	log.Printf("Stored image %s (%d bytes)", name, len(processed))
	return s.urlBase + name, nil
}

// Delete removes a stored image by its serving path. Paths outside the
// store's URL space are ignored.
func (s *Store) Delete(imagePath string) bool {
	if !strings.HasPrefix(imagePath, s.urlBase) {
		return false
	}
	name := filepath.Base(strings.TrimPrefix(imagePath, s.urlBase))
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return false
	}
	log.Printf("Deleted image %s", name)
	return true
}

// All stored images become JPEG regardless of the source format.
func filename(recipeID string) string {
	if recipeID != "" {
		return fmt.Sprintf("recipe_%s_%s.jpg", recipeID, uuid.NewString()[:8])
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ".jpg"
}

// process decodes the image, scales it down to fit within maxSide on both
// axes, and re-encodes it as JPEG.
func process(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error processing image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxSide || h > maxSide {
		scale := float64(maxSide) / float64(max(w, h))
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("error processing image: %w", err)
	}
	return buf.Bytes(), nil
}
