package imagesearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSearcher(timeout time.Duration) *Searcher {
	s := NewSearcher(timeout)
	// Point every strategy at an unroutable host so only the endpoints a test
	// overrides get hit.
	s.googleBase = "http://127.0.0.1:1/search"
	s.pexelsBase = "http://127.0.0.1:1/pexels/"
	s.foodishBase = "http://127.0.0.1:1"
	s.sites = nil
	return s
}

func TestSearch_GoogleImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "tbm=isch")
		assert.Contains(t, r.URL.Query().Get("q"), "paneer tikka recipe food")
		fmt.Fprint(w, `<html><body><script>
			var data = ["https://cdn.example.com/thumb/paneer.jpg",
			"https://cdn.example.com/photos/paneer.jpg?=s1600"];
		</script></body></html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.googleBase = srv.URL

	got := s.Search(context.Background(), "paneer tikka")
	assert.Equal(t, "https://cdn.example.com/photos/paneer.jpg?=s1600", got)
}

func TestSearch_SkipsThumbnails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><script>
			var a = "https://cdn.example.com/small/x.jpg";
			var b = "https://cdn.example.com/tiny/x.jpg";
		</script></html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.googleBase = srv.URL

	assert.Equal(t, "", s.Search(context.Background(), "mystery dish"))
}

func TestSearch_RecipeSiteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img class="card__img" data-src="//img.example.com/cards/pasta.jpg">
		</body></html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.sites = []site{{"AllRecipes", srv.URL + "/search?q=%s", "img.card__img"}}

	got := s.Search(context.Background(), "pasta")
	assert.Equal(t, "https://img.example.com/cards/pasta.jpg", got)
}

func TestSearch_RecipeSiteRelativeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><img class="photo" src="/media/dish.png"></html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.sites = []site{{"Epicurious", srv.URL + "/search?q=%s", "img.photo"}}

	got := s.Search(context.Background(), "soup")
	assert.Equal(t, srv.URL+"/media/dish.png", got)
}

func TestSearch_PexelsLastStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/pexels/"))
		fmt.Fprint(w, `<html>
			<img src="https://images.pexels.com/photos/42/salad.jpeg?w=300" srcset="">
		</html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.pexelsBase = srv.URL + "/pexels/"

	got := s.Search(context.Background(), "salad")
	assert.Equal(t, "https://images.pexels.com/photos/42/salad.jpeg?auto=compress&cs=tinysrgb&dpr=2&h=750&w=1260", got)
}

func TestSearch_CachesResult(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, `<html><script>var u = "https://cdn.example.com/photos/dal.jpg";</script></html>`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.googleBase = srv.URL

	first := s.Search(context.Background(), "dal")
	second := s.Search(context.Background(), "dal")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits)
}

func TestSearch_AllStrategiesFail(t *testing.T) {
	s := testSearcher(500 * time.Millisecond)
	assert.Equal(t, "", s.Search(context.Background(), "nothing"))
}

func TestFallbackImage_Category(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/images/biryani", r.URL.Path)
		fmt.Fprint(w, `{"image":"https://foodish.example.com/biryani/7.jpg"}`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.foodishBase = srv.URL

	got := s.FallbackImage(context.Background(), "Hyderabadi Chicken Biryani")
	assert.Equal(t, "https://foodish.example.com/biryani/7.jpg", got)
}

func TestFallbackImage_Generic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/", r.URL.Path)
		fmt.Fprint(w, `{"image":"https://foodish.example.com/misc/3.jpg"}`)
	}))
	defer srv.Close()

	s := testSearcher(2 * time.Second)
	s.foodishBase = srv.URL

	got := s.FallbackImage(context.Background(), "Mystery Stew")
	assert.Equal(t, "https://foodish.example.com/misc/3.jpg", got)
}

func TestFallbackImage_PlaceholderFloor(t *testing.T) {
	s := testSearcher(500 * time.Millisecond)

	got := s.FallbackImage(context.Background(), "Mystery Stew")
	assert.True(t, strings.HasPrefix(got, "https://picsum.photos/1200/800?random="), got)

	// The placeholder is stable for a given name.
	assert.Equal(t, got, s.FallbackImage(context.Background(), "Mystery Stew"))
}

func TestValidImageURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/a.jpg", true},
		{"http://cdn.example.com/a.webp?w=1200", true},
		{"https://cdn.example.com/photos/12345", true},
		{"https://cdn.example.com/content/12345", false},
		{"ftp://cdn.example.com/a.jpg", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, validImageURL(tc.url), tc.url)
	}
}
