// Package imagesearch finds a representative photo for a recipe by name.
// Results come from image search and recipe-site scraping with a stock-photo
// fallback; lookups are cached per recipe name.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type site struct {
	name          string
	searchURL     string // format string taking the encoded query
	imageSelector string
}

// Searcher scrapes public sources for food photos.
type Searcher struct {
	client      *http.Client
	googleBase  string
	pexelsBase  string
	foodishBase string
	sites       []site

	// Last write wins; a duplicate fetch for the same name is harmless.
	mu    sync.Mutex
	cache map[string]string
}

// NewSearcher creates a Searcher with the given per-request timeout.
func NewSearcher(timeout time.Duration) *Searcher {
	return &Searcher{
		client:      &http.Client{Timeout: timeout},
		googleBase:  "https://www.google.com/search",
		pexelsBase:  "https://www.pexels.com/search/",
		foodishBase: "https://foodish-api.com",
		sites: []site{
			{"AllRecipes", "https://www.allrecipes.com/search?q=%s", "img.card__img"},
			{"FoodNetwork", "https://www.foodnetwork.com/search/%s-", "img.m-MediaBlock__a-Image"},
			{"Epicurious", "https://www.epicurious.com/search?q=%s", "img.photo"},
		},
		cache: make(map[string]string),
	}
}

// Search returns an image URL for the recipe name, or "" when every source
// comes up empty. Strategies run in order: image search, recipe sites, stock
// photos.
func (s *Searcher) Search(ctx context.Context, recipeName string) string {
	s.mu.Lock()
	cached, ok := s.cache[recipeName]
	s.mu.Unlock()
	if ok {
		log.Printf("Using cached image for: %s", recipeName)
		return cached
	}

	imageURL := s.searchGoogleImages(ctx, recipeName)
	if imageURL == "" {
		imageURL = s.searchRecipeSites(ctx, recipeName)
	}
	if imageURL == "" {
		imageURL = s.searchPexels(ctx, recipeName)
	}

	if imageURL != "" {
		s.mu.Lock()
		s.cache[recipeName] = imageURL
		s.mu.Unlock()
		log.Printf("Found image for %s: %s", recipeName, imageURL)
	} else {
		log.Printf("No image found for %s", recipeName)
	}
	return imageURL
}

var (
	highResImageRe = regexp.MustCompile(`https?://[^"]+\.(?:jpg|jpeg|png|webp)[^"]*(?:maxwidth=\d{4,}|size=\d{4,}|=s0)`)
	anyImageRe     = regexp.MustCompile(`https?://[^"]+\.(?:jpg|jpeg|png|webp)(?:\?[^"]*)?`)

	smallImageHints = []string{"thumb", "=s90", "=s180", "=s360", "small", "tiny"}
	largeImageHints = []string{"=s0", "=s1600", "=s1200", "=s1000", "original", "large", "full"}
)

// searchGoogleImages scrapes an image-search results page. Image URLs hide in
// inline scripts; candidates with large-size markers go to the front of the
// queue, thumbnails are dropped.
func (s *Searcher) searchGoogleImages(ctx context.Context, query string) string {
	searchURL := fmt.Sprintf("%s?q=%s&tbm=isch&tbs=isz:l,itp:photo",
		s.googleBase, url.QueryEscape(query+" recipe food high resolution"))

	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		log.Printf("Error searching images: %v", err)
		return ""
	}

	var best []string
	doc.Find("script").Each(func(_ int, script *goquery.Selection) {
		text := script.Text()
		if text == "" {
			return
		}
		for _, pattern := range []*regexp.Regexp{highResImageRe, anyImageRe} {
			for _, u := range pattern.FindAllString(text, -1) {
				lower := strings.ToLower(u)
				if containsAny(lower, smallImageHints) {
					continue
				}
				if containsAny(u, largeImageHints) {
					best = append([]string{u}, best...)
				} else {
					best = append(best, u)
				}
			}
		}
	})

	for _, u := range best {
		if validImageURL(u) {
			return u
		}
	}
	return ""
}

// searchRecipeSites tries each recipe site's search page in turn.
func (s *Searcher) searchRecipeSites(ctx context.Context, query string) string {
	for _, site := range s.sites {
		searchURL := fmt.Sprintf(site.searchURL, url.QueryEscape(query))
		doc, err := s.fetchDocument(ctx, searchURL)
		if err != nil {
			log.Printf("Error searching %s: %v", site.name, err)
			continue
		}

		found := ""
		doc.Find(site.imageSelector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			imgURL := firstAttr(img, "src", "data-src", "data-lazy-src")
			if imgURL == "" {
				return true
			}
			if strings.HasPrefix(imgURL, "//") {
				imgURL = "https:" + imgURL
			} else if strings.HasPrefix(imgURL, "/") {
				if base, err := url.Parse(searchURL); err == nil {
					imgURL = base.Scheme + "://" + base.Host + imgURL
				}
			}
			if validImageURL(imgURL) {
				found = imgURL
				return false
			}
			return true
		})
		if found != "" {
			log.Printf("Found image on %s", site.name)
			return found
		}
	}
	return ""
}

var pexelsQueryRe = regexp.MustCompile(`\?.*$`)

// searchPexels scrapes a stock-photo search page, preferring the lazy-loaded
// high-resolution variants over the visible thumbnails.
func (s *Searcher) searchPexels(ctx context.Context, query string) string {
	searchURL := s.pexelsBase + url.QueryEscape(query+" food") + "/"

	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		log.Printf("Error searching stock photos: %v", err)
		return ""
	}

	var sources []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range []string{"data-big-src", "data-large-src", "data-large2x-src"} {
			if v, ok := img.Attr(attr); ok && v != "" {
				sources = append(sources, v)
			}
		}
		if srcset, ok := img.Attr("srcset"); ok {
			for _, part := range strings.Split(srcset, ",") {
				part = strings.TrimSpace(part)
				if strings.Contains(part, "2x") || strings.Contains(part, "large") {
					sources = append(sources, strings.SplitN(part, " ", 2)[0])
				}
			}
		}
		if src, ok := img.Attr("src"); ok && strings.Contains(src, "images.pexels.com") {
			sources = append(sources, pexelsQueryRe.ReplaceAllString(src, "")+"?auto=compress&cs=tinysrgb&dpr=2&h=750&w=1260")
		}
	})

	for _, u := range sources {
		if validImageURL(u) {
			return u
		}
	}
	return ""
}

// Keyword table mapping dish names to stock-image categories. First match
// wins, so the more specific dishes come before the broad ones.
var fallbackCategories = []struct {
	category string
	keywords []string
}{
	{"burger", []string{"burger", "hamburger", "cheeseburger"}},
	{"pizza", []string{"pizza", "margherita", "pepperoni"}},
	{"pasta", []string{"pasta", "spaghetti", "lasagna", "macaroni", "penne", "noodle"}},
	{"rice", []string{"rice", "fried rice", "risotto", "pilaf"}},
	{"dessert", []string{"cake", "cookie", "brownie", "dessert", "sweet", "chocolate"}},
	{"biryani", []string{"biryani", "pulao"}},
	{"dosa", []string{"dosa", "idli", "uttapam"}},
	{"idly", []string{"idly", "idli"}},
	{"samosa", []string{"samosa", "pakora"}},
	{"butter-chicken", []string{"butter chicken", "chicken curry", "tikka"}},
}

// FallbackImage always returns a usable URL: a category-matched stock photo
// when the dish maps to one, a random food photo otherwise, and a placeholder
// service as the floor.
func (s *Searcher) FallbackImage(ctx context.Context, recipeName string) string {
	lower := strings.ToLower(recipeName)
	for _, fc := range fallbackCategories {
		if containsAny(lower, fc.keywords) {
			if img := s.foodishImage(ctx, s.foodishBase+"/api/images/"+fc.category); img != "" {
				log.Printf("Using stock fallback image for category: %s", fc.category)
				return img
			}
			break
		}
	}

	if img := s.foodishImage(ctx, s.foodishBase+"/api/"); img != "" {
		log.Printf("Using generic stock fallback image")
		return img
	}

	h := fnv.New32a()
	h.Write([]byte(recipeName))
	return fmt.Sprintf("https://picsum.photos/1200/800?random=%d", h.Sum32())
}

func (s *Searcher) foodishImage(ctx context.Context, endpoint string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Error getting stock image: %v", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Image
}

func (s *Searcher) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
var imageKeywords = []string{"image", "img", "photo", "pic"}

// validImageURL accepts URLs with an image extension, or extension-less CDN
// URLs that at least mention being an image.
func validImageURL(u string) bool {
	if u == "" {
		return false
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	lower := strings.ToLower(u)
	return containsAny(lower, imageExtensions) || containsAny(lower, imageKeywords)
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
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
