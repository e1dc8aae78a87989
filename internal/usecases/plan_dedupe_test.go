package usecases_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"

	"pubspy/internal/domain"
	"pubspy/internal/usecases"
)

func TestPlanQueries_MostSelectiveFirst(t *testing.T) {
	// Act
	got := usecases.PlanQueries(testID)

	// Assert
	want := []string{
		`"ca-pub-1234567890123456"`,
		`"1234567890123456"`,
		`"data-ad-client" "ca-pub-1234567890123456"`,
		`"google_ad_client" "ca-pub-1234567890123456"`,
		`"ads.txt" "ca-pub-1234567890123456"`,
		`"ads.txt" "1234567890123456"`,
		`"googlesyndication.com" "ca-pub-1234567890123456"`,
		`"1234567890123456" "adsense"`,
	}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDedupeCandidates_CanonicalizesAndExcludes(t *testing.T) {
	// Arrange
	hits := []domain.SearchHit{
		hit("https://www.Recipes.com/a", "Recipes"),
		hit("http://recipes.com/b", "Recipes again"),
		hit("https://news.google.com/x", "Excluded subdomain"),
		hit("https://github.com/user/repo", "Excluded"),
		hit("not a link", "Dropped"),
		hit("https://blog.example.org/post", "  Blog \n  post  "),
		hit("https://myblog.blogspot.com/", "Blogspot stays"),
	}

	// Act
	got := usecases.DedupeCandidates(hits, usecases.DefaultExclusions)

	// Assert
	wantDomains := []string{"recipes.com", "blog.example.org", "myblog.blogspot.com"}
	if len(got) != len(wantDomains) {
		t.Fatalf("candidates: got %v, want %v", got, wantDomains)
	}
	for i, d := range wantDomains {
		if got[i].Domain != d {
			t.Errorf("candidate %d: got %s, want %s", i, got[i].Domain, d)
		}
		if got[i].Source != domain.SourceSearch || got[i].Method != domain.MethodNone {
			t.Errorf("candidate %d: got source %s method %s, want search/none", i, got[i].Source, got[i].Method)
		}
	}
	if got[0].Title != "Recipes" {
		t.Errorf("first occurrence wins: got title %q", got[0].Title)
	}
	if got[1].Title != "Blog post" {
		t.Errorf("title collapse: got %q, want %q", got[1].Title, "Blog post")
	}
}

func TestDedupeCandidates_TruncatesLongTitles(t *testing.T) {
	title := strings.Repeat("é", 150)

	got := usecases.DedupeCandidates([]domain.SearchHit{hit("https://a.com", title)}, nil)

	if n := utf8.RuneCountInString(got[0].Title); n != 100 {
		t.Errorf("title runes: got %d, want 100", n)
	}
}

// Output domains are unique, canonical, never excluded, and keep first-seen order.
func TestDedupeCandidates_Properties(t *testing.T) {
	hosts := []string{"a.com", "b.org", "c.net", "shop.a.com", "google.com", "maps.google.com", "x.com", "d.io"}
	exclusions := []string{"google.com", "x.com"}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "hits")
		hits := make([]domain.SearchHit, n)
		for i := range hits {
			host := rapid.SampledFrom(hosts).Draw(rt, "host")
			prefix := rapid.SampledFrom([]string{"https://", "http://www.", "https://WWW.", ""}).Draw(rt, "prefix")
			hits[i] = domain.SearchHit{Link: prefix + strings.ToUpper(host[:1]) + host[1:] + "/p", Title: fmt.Sprint(i)}
		}

		got := usecases.DedupeCandidates(hits, exclusions)

		seen := map[string]bool{}
		lastIndex := -1
		for _, c := range got {
			if seen[c.Domain] {
				rt.Fatalf("duplicate domain %s", c.Domain)
			}
			seen[c.Domain] = true
			if c.Domain != strings.ToLower(c.Domain) || strings.HasPrefix(c.Domain, "www.") {
				rt.Fatalf("non-canonical domain %s", c.Domain)
			}
			for _, ex := range exclusions {
				if domain.MatchesDomain(c.Domain, ex) {
					rt.Fatalf("excluded domain %s survived", c.Domain)
				}
			}
			var idx int
			_, _ = fmt.Sscan(c.Title, &idx)
			if idx <= lastIndex {
				rt.Fatalf("order not preserved at %s", c.Domain)
			}
			lastIndex = idx
		}
	})
}
