package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper() *Scraper {
	return NewScraper(5 * time.Second)
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	t.Cleanup(ts.Close)
	return ts
}

const jsonLDPage = `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Lemon Pound Cake",
  "description": "A bright, dense cake.",
  "image": {"url": "https://example.com/cake.jpg"},
  "recipeYield": "8 servings",
  "prepTime": "PT30M",
  "cookTime": "PT1H30M",
  "recipeIngredient": ["2 cups flour", "1 cup sugar", "3 eggs"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Cream the butter and sugar."},
    {"@type": "HowToStep", "text": "Fold in the flour."},
    {"@type": "HowToStep", "text": "Bake for 90 minutes."}
  ],
  "nutrition": {"calories": "420 kcal", "proteinContent": "6 g", "fatContent": "18 g"}
}
</script>
</head><body><h1>Totally unrelated markup</h1></body></html>`

func TestScrape_JSONLD(t *testing.T) {
	ts := serve(t, jsonLDPage)

	page, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page.Text, "# Lemon Pound Cake"))
	assert.Contains(t, page.Text, "Servings: 8 servings")
	assert.Contains(t, page.Text, "Prep Time: 30 minutes")
	assert.Contains(t, page.Text, "Cook Time: 1 hour 30 minutes")
	assert.Contains(t, page.Text, "## Ingredients:")
	assert.Contains(t, page.Text, "## Instructions:")
	assert.Contains(t, page.Text, "- Calories: 420")
	assert.Contains(t, page.Text, "- Protein: 6g")

	ingSection := page.Text[strings.Index(page.Text, "## Ingredients:"):strings.Index(page.Text, "## Instructions:")]
	assert.Equal(t, 3, strings.Count(ingSection, "\n- "))
	numbered := regexp.MustCompile(`(?m)^\d+\. `).FindAllString(page.Text, -1)
	assert.Len(t, numbered, 3)

	assert.Equal(t, "https://example.com/cake.jpg", page.ImageURL)
	require.NotNil(t, page.StructuredData)
	assert.Equal(t, "Lemon Pound Cake", page.StructuredData.Title)
	assert.Equal(t, []string{"2 cups flour", "1 cup sugar", "3 eggs"}, page.StructuredData.Ingredients)
	assert.Len(t, page.StructuredData.Instructions, 3)
	assert.Equal(t, "8 servings", page.StructuredData.Servings)
}

func TestScrape_JSONLDGraph(t *testing.T) {
	ts := serve(t, `<html><head>
<script type="application/ld+json">
{"@graph": [
  {"@type": "WebPage", "name": "Some page"},
  {"@type": ["Recipe", "NewsArticle"], "name": "Graph Curry",
   "recipeIngredient": ["1 onion"],
   "recipeInstructions": ["Cook the onion."]}
]}
</script>
</head><body></body></html>`)

	page, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(page.Text, "# Graph Curry"))
}

func TestScrape_MalformedJSONLDFallsThrough(t *testing.T) {
	ts := serve(t, `<html><head>
<script type="application/ld+json">{not json at all</script>
<title>Weeknight Stir Fry | Some Food Blog</title>
</head><body>
<h2>Ingredients</h2>
<ul><li>1 lb chicken</li><li>2 tbsp soy sauce</li></ul>
<h2>Instructions</h2>
<ol><li>Slice the chicken.</li><li>Stir fry over high heat.</li></ol>
</body></html>`)

	page, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page.Text, "# Weeknight Stir Fry\n"), "site suffix stripped from page title")
	assert.Contains(t, page.Text, "- 1 lb chicken")
	assert.Contains(t, page.Text, "1. Slice the chicken.")
}

func TestScrape_SelectorCascade(t *testing.T) {
	ts := serve(t, `<html><head>
<meta property="og:image" content="https://example.com/og.jpg">
</head><body>
<h1 class="recipe-title">Skillet Beans</h1>
<ul>
  <li class="recipe-ingredient">1 can beans</li>
  <li class="recipe-ingredient">1 tsp cumin</li>
</ul>
<ol>
  <li class="recipe-instruction">Drain the beans.</li>
  <li class="recipe-instruction">Simmer with cumin.</li>
</ol>
</body></html>`)

	page, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page.Text, "# Skillet Beans"))
	assert.Contains(t, page.Text, "- 1 can beans")
	assert.Contains(t, page.Text, "2. Simmer with cumin.")
	assert.Equal(t, "https://example.com/og.jpg", page.ImageURL)
	require.NotNil(t, page.StructuredData)
	assert.Equal(t, "Skillet Beans", page.StructuredData.Title)
}

func TestScrape_MarkdownLastResort(t *testing.T) {
	ts := serve(t, `<html><head><script>tracker()</script></head><body>
<nav>Home | About</nav>
<main>
<p>This casserole recipe has been in the family for decades and remains a favorite.</p>
<p>Layer everything in a greased dish and bake at 375 for about forty minutes.</p>
</main>
<footer>Copyright</footer>
</body></html>`)

	page, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page.Text, "# Recipe from URL"))
	assert.Contains(t, page.Text, "casserole recipe")
	assert.NotContains(t, page.Text, "tracker()")
	assert.NotContains(t, page.Text, "Copyright")
}

func TestScrape_InvalidURL(t *testing.T) {
	_, err := newTestScraper().Scrape(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL format")
}

func TestScrape_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PT30M", "30 minutes"},
		{"PT1M", "1 minute"},
		{"PT2H", "2 hours"},
		{"PT1H30M", "1 hour 30 minutes"},
		{"45 minutes", "45 minutes"},
		{"P2D", "P2D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDuration(tt.in), "input %q", tt.in)
	}
}

func TestAbsoluteImageURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.jpg", absoluteImageURL("//cdn.example.com/a.jpg", ""))
	assert.Equal(t, "https://example.com/img/a.jpg", absoluteImageURL("/img/a.jpg", "https://example.com/recipes/cake"))
	assert.Equal(t, "https://other.com/a.jpg", absoluteImageURL("https://other.com/a.jpg", "https://example.com/"))
	assert.Equal(t, "/img/a.jpg", absoluteImageURL("/img/a.jpg", ""))
}
