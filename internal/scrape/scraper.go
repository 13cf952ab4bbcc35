// Package scrape fetches a recipe web page and reduces it to a uniform text
// blob. Embedded schema.org Recipe markup is preferred; DOM heuristics and a
// whole-page markdown conversion are the fallbacks, in that order.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"mealcrafter/internal/recipe"
)

// Some recipe sites reject non-browser user agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Scraper fetches and extracts recipe pages.
type Scraper struct {
	client *http.Client
}

// NewScraper creates a Scraper with the given fetch timeout.
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	nonDigitRe    = regexp.MustCompile(`[^\d]`)
	nonNumericRe  = regexp.MustCompile(`[^\d.]`)
	titleSuffixRe = regexp.MustCompile(`\s*[\|\-–]\s*.*$`)
	durationRe    = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?`)
)

// Scrape fetches the URL and returns the extracted page. The returned Text is
// a markdown-flavored blob with "## Ingredients:" and "## Instructions:"
// sections when either extraction path could locate them.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*recipe.ScrapedPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL format")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe page: %w", err)
	}

	if ld := findRecipeJSONLD(doc); ld != nil {
		return pageFromJSONLD(ld), nil
	}
	return extractManually(doc)
}

// findRecipeJSONLD returns the first JSON-LD block whose @type is Recipe.
// Top-level arrays and @graph containers are searched; malformed blocks are
// skipped rather than failing the scrape.
func findRecipeJSONLD(doc *goquery.Document) map[string]any {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}

		switch v := data.(type) {
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok && isRecipeSchema(m) {
					found = m
					return false
				}
			}
		case map[string]any:
			if isRecipeSchema(v) {
				found = v
				return false
			}
			if graph, ok := v["@graph"].([]any); ok {
				for _, item := range graph {
					if m, ok := item.(map[string]any); ok && isRecipeSchema(m) {
						found = m
						return false
					}
				}
			}
		}
		return true
	})
	return found
}

// isRecipeSchema handles both string and list @type values.
func isRecipeSchema(data map[string]any) bool {
	switch t := data["@type"].(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, v := range t {
			if v == "Recipe" {
				return true
			}
		}
	}
	return false
}

// pageFromJSONLD renders a Recipe schema object into the uniform text blob
// and keeps the structured fields for title precedence downstream.
func pageFromJSONLD(data map[string]any) *recipe.ScrapedPage {
	var parts []string

	title := "Untitled Recipe"
	if name, ok := data["name"].(string); ok && name != "" {
		title = name
	}
	parts = append(parts, "# "+title+"\n")

	if desc, ok := data["description"].(string); ok && desc != "" {
		parts = append(parts, desc+"\n")
	}

	servings := yieldString(data["recipeYield"])
	if servings != "" {
		parts = append(parts, "Servings: "+servings+"\n")
	}

	if v, ok := data["prepTime"].(string); ok {
		parts = append(parts, "Prep Time: "+parseDuration(v))
	}
	if v, ok := data["cookTime"].(string); ok {
		parts = append(parts, "Cook Time: "+parseDuration(v))
	}
	if v, ok := data["totalTime"].(string); ok {
		parts = append(parts, "Total Time: "+parseDuration(v))
	}
	parts = append(parts, "")

	parts = append(parts, "## Ingredients:\n")
	ingredients := stringSlice(data["recipeIngredient"])
	for _, ing := range ingredients {
		ing = strings.TrimSpace(htmlTagRe.ReplaceAllString(ing, ""))
		if ing != "" {
			parts = append(parts, "- "+ing)
		}
	}
	parts = append(parts, "")

	parts = append(parts, "## Instructions:\n")
	instructions := instructionTexts(data["recipeInstructions"])
	for i, step := range instructions {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, step))
	}

	nutrition, _ := data["nutrition"].(map[string]any)
	if nutrition != nil {
		parts = append(parts, "\n## Nutrition Information:\n")
		if cal, ok := nutrition["calories"]; ok {
			parts = append(parts, "- Calories: "+nonDigitRe.ReplaceAllString(anyString(cal), ""))
		}
		for _, nm := range nutrientLabels {
			if v, ok := nutrition[nm.key]; ok {
				parts = append(parts, fmt.Sprintf("- %s: %sg", nm.label, nonNumericRe.ReplaceAllString(anyString(v), "")))
			}
		}
	}

	return &recipe.ScrapedPage{
		Text:     strings.Join(parts, "\n"),
		ImageURL: imageFromJSONLD(data["image"]),
		StructuredData: &recipe.StructuredData{
			Title:        title,
			Ingredients:  ingredients,
			Instructions: instructions,
			Servings:     servings,
			Nutrition:    nutrition,
		},
	}
}

var nutrientLabels = []struct {
	key   string
	label string
}{
	{"proteinContent", "Protein"},
	{"carbohydrateContent", "Carbohydrates"},
	{"fatContent", "Fat"},
	{"fiberContent", "Fiber"},
	{"sugarContent", "Sugar"},
	{"sodiumContent", "Sodium"},
}

// imageFromJSONLD handles the three shapes the image property takes in the
// wild: a bare URL string, an ImageObject, or a list of either.
func imageFromJSONLD(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return u
		}
		if u, ok := img["@url"].(string); ok {
			return u
		}
	case []any:
		if len(img) > 0 {
			return imageFromJSONLD(img[0])
		}
	}
	return ""
}

// yieldString normalizes recipeYield: lists collapse to their first element,
// numbers are formatted plainly.
func yieldString(v any) string {
	switch y := v.(type) {
	case string:
		return y
	case float64:
		return strconv.FormatFloat(y, 'f', -1, 64)
	case []any:
		if len(y) > 0 {
			return yieldString(y[0])
		}
	}
	return ""
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		out = append(out, anyString(item))
	}
	return out
}

// instructionTexts flattens recipeInstructions: HowToStep objects contribute
// their text (or name), anything else is used verbatim. HTML tags are
// stripped and empty steps dropped.
func instructionTexts(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		var text string
		switch step := item.(type) {
		case map[string]any:
			if t, ok := step["text"].(string); ok {
				text = t
			} else if n, ok := step["name"].(string); ok {
				text = n
			}
		default:
			text = anyString(item)
		}
		text = strings.TrimSpace(htmlTagRe.ReplaceAllString(text, ""))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func anyString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseDuration renders an ISO 8601 duration like PT1H30M as readable text.
// Values that do not parse are returned unchanged.
func parseDuration(duration string) string {
	m := durationRe.FindStringSubmatch(duration)
	if m == nil || (m[1] == "" && m[2] == "") {
		return duration
	}

	var parts []string
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		unit := "hour"
		if n > 1 {
			unit = "hours"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, unit))
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		unit := "minute"
		if n > 1 {
			unit = "minutes"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, unit))
	}
	return strings.Join(parts, " ")
}

// Selector cascades for pages without structured markup. Order matters: the
// most specific recipe markup comes first, generic containers last.
var (
	imageSelectors = []string{
		`img[itemprop="image"]`,
		"img.recipe-image",
		"img.recipe-photo",
		`[class*="recipe"] img`,
		"article img",
		"main img",
	}
	titleSelectors = []string{
		"h1.recipe-name",
		"h1.recipe-title",
		`h1[itemprop="name"]`,
		"h1",
	}
	ingredientSelectors = []string{
		`[class*="ingredient"]`,
		`[itemprop="recipeIngredient"]`,
		".recipe-ingredient",
		".ingredient-list li",
		"ul.ingredients li",
	}
	instructionSelectors = []string{
		`[class*="instruction"]`,
		`[class*="direction"]`,
		`[itemprop="recipeInstructions"]`,
		".recipe-instruction",
		".directions li",
		"ol.instructions li",
	}
)

// extractManually walks the DOM with selector cascades, then heading-adjacent
// lists, and as a last resort converts the page body to markdown.
func extractManually(doc *goquery.Document) (*recipe.ScrapedPage, error) {
	var parts []string

	imageURL := findImage(doc)

	var extractedTitle string
	for _, sel := range titleSelectors {
		if elem := doc.Find(sel).First(); elem.Length() > 0 {
			extractedTitle = strings.TrimSpace(elem.Text())
			break
		}
	}
	if extractedTitle == "" {
		if pageTitle := strings.TrimSpace(doc.Find("title").First().Text()); pageTitle != "" {
			// Drop the site name after " | " or " - ".
			extractedTitle = titleSuffixRe.ReplaceAllString(pageTitle, "")
		}
	}
	if extractedTitle != "" {
		parts = append(parts, "# "+extractedTitle+"\n")
	}

	ingredientLines := selectLines(doc, ingredientSelectors)
	if ingredientLines == nil {
		ingredientLines = headingAdjacentList(doc, []string{"ingredient"})
	}
	if ingredientLines != nil {
		parts = append(parts, "## Ingredients:\n")
		for _, line := range ingredientLines {
			parts = append(parts, "- "+line)
		}
	}
	parts = append(parts, "")

	instructionLines := selectLines(doc, instructionSelectors)
	if instructionLines == nil {
		instructionLines = headingAdjacentList(doc, []string{"instruction", "direction", "method"})
	}
	if instructionLines != nil {
		parts = append(parts, "## Instructions:\n")
		for i, line := range instructionLines {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, line))
		}
	}

	// Too little structure found: convert the whole main content instead.
	if len(parts) < 5 {
		text, err := pageMarkdown(doc)
		if err != nil {
			return nil, err
		}
		parts = []string{"# Recipe from URL\n", text}
	}

	page := &recipe.ScrapedPage{
		Text:     strings.Join(parts, "\n"),
		ImageURL: imageURL,
	}
	if extractedTitle != "" {
		page.StructuredData = &recipe.StructuredData{Title: extractedTitle}
	}
	return page, nil
}

// findImage tries recipe-specific img selectors, then the og:image meta tag.
// Relative URLs are resolved against the canonical link when one exists.
func findImage(doc *goquery.Document) string {
	canonical := doc.Find(`link[rel="canonical"]`).AttrOr("href", "")

	for _, sel := range imageSelectors {
		img := doc.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		src := firstAttr(img, "src", "data-src", "data-lazy-src")
		if src == "" {
			continue
		}
		return absoluteImageURL(src, canonical)
	}

	return doc.Find(`meta[property="og:image"]`).AttrOr("content", "")
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

func absoluteImageURL(src, canonical string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "/") && canonical != "" {
		base, err := url.Parse(canonical)
		if err == nil {
			if ref, err := url.Parse(src); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
	}
	return src
}

// selectLines returns the non-empty texts of the first selector in the
// cascade that matches anything.
func selectLines(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		matches := doc.Find(sel)
		if matches.Length() == 0 {
			continue
		}
		var lines []string
		matches.Each(func(_ int, elem *goquery.Selection) {
			if text := strings.TrimSpace(elem.Text()); text != "" {
				lines = append(lines, text)
			}
		})
		return lines
	}
	return nil
}

// headingAdjacentList finds an h2/h3/h4 whose text mentions one of the
// keywords and collects the list (or paragraph block) that follows it.
func headingAdjacentList(doc *goquery.Document, keywords []string) []string {
	var lines []string
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		text := strings.ToLower(heading.Text())
		matched := false
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		next := heading.Next()
		switch goquery.NodeName(next) {
		case "ul", "ol":
			next.Find("li").Each(func(_ int, li *goquery.Selection) {
				if t := strings.TrimSpace(li.Text()); t != "" {
					lines = append(lines, t)
				}
			})
			return false
		case "div":
			next.Find("p, div").Each(func(_ int, p *goquery.Selection) {
				if t := strings.TrimSpace(p.Text()); t != "" && len(t) > 10 {
					lines = append(lines, t)
				}
			})
			return false
		}
		return true
	})
	return lines
}

// pageMarkdown strips noise elements and converts the main content to
// markdown.
func pageMarkdown(doc *goquery.Document) (string, error) {
	doc.Find("script, style, nav, header, footer").Remove()

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	html, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse recipe page: %w", err)
	}
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert page content: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
