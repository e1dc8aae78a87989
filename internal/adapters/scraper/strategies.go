package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of finding raw identifier captures in a page.
// DOM strategies need a parsed document and are skipped when parsing fails.
type Strategy struct {
	Name    string
	DOM     bool
	Extract func(doc *goquery.Document, markup string) []string
}

var (
	// greedy digit runs so that 15 or 17 digit values fail normalization
	inlineIDRegex = regexp.MustCompile(`(?i)(?:ca-)?pub-\d+`)

	jsonKeyRegex    = regexp.MustCompile(`(?i)"(?:client|publisher|adClient|ad_client|publisherId|publisher_id)"\s*:\s*"([^"]+)"`)
	assignmentRegex = regexp.MustCompile(`(?i)\b(?:google_ad_client|adClient|ad_client)\s*[=:]\s*["']([^"']+)["']`)

	gtagRegex       = regexp.MustCompile(`(?i)gtag\(\s*['"](?:config|event)['"]\s*,\s*['"]([^'"]+)['"]`)
	dataLayerRegex  = regexp.MustCompile(`(?is)dataLayer\.push\((.*?)\)`)
	tagManagerRegex = regexp.MustCompile(`(?i)google_tag_manager\[\s*['"]([^'"]+)['"]\s*\]`)
	analyticsRegex  = regexp.MustCompile(`(?i)\bga\(\s*['"]create['"]\s*,\s*['"]([^'"]+)['"]`)
	asyncLoadRegex  = regexp.MustCompile(`(?i)adsbygoogle\.js\?[^"'\s<>]*`)
)

// publisherAttributes are data attributes that commonly carry the identifier.
var publisherAttributes = []string{
	"data-ad-client",
	"data-google-ad-client",
	"data-adclient",
	"data-publisher",
	"data-ad-publisher",
	"data-publisher-id",
	"data-adsense-id",
	"data-client-id",
	"data-google-publisher",
}

// iframeParams are query parameters of ad iframes that carry the identifier.
var iframeParams = []string{"client", "publisher", "ad_client", "pub"}

// DefaultStrategies returns the registry in evaluation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "page-source", Extract: scanPageSource},
		{Name: "script", DOM: true, Extract: scanScripts},
		{Name: "attributes", DOM: true, Extract: scanAttributes},
		{Name: "iframes", DOM: true, Extract: scanIframes},
		{Name: "json-config", Extract: scanJSONConfig},
		{Name: "tag-manager", Extract: scanTagManager},
	}
}

func scanPageSource(_ *goquery.Document, markup string) []string {
	return inlineIDRegex.FindAllString(markup, -1)
}

func scanScripts(doc *goquery.Document, _ string) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, inlineIDRegex.FindAllString(s.Text(), -1)...)
		if src, ok := s.Attr("src"); ok {
			out = append(out, inlineIDRegex.FindAllString(src, -1)...)
			out = append(out, queryValues(src, "client")...)
		}
	})
	return out
}

func scanAttributes(doc *goquery.Document, _ string) []string {
	var out []string
	for _, attr := range publisherAttributes {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				out = append(out, strings.TrimSpace(v))
			}
		})
	}
	return out
}

func scanIframes(doc *goquery.Document, _ string) []string {
	var out []string
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		out = append(out, inlineIDRegex.FindAllString(src, -1)...)
		out = append(out, queryValues(src, iframeParams...)...)
	})
	return out
}

func scanJSONConfig(_ *goquery.Document, markup string) []string {
	var out []string
	for _, m := range jsonKeyRegex.FindAllStringSubmatch(markup, -1) {
		out = append(out, m[1])
	}
	for _, m := range assignmentRegex.FindAllStringSubmatch(markup, -1) {
		out = append(out, m[1])
	}
	return out
}

func scanTagManager(_ *goquery.Document, markup string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{gtagRegex, tagManagerRegex, analyticsRegex} {
		for _, m := range re.FindAllStringSubmatch(markup, -1) {
			out = append(out, m[1])
		}
	}
	for _, m := range dataLayerRegex.FindAllStringSubmatch(markup, -1) {
		out = append(out, inlineIDRegex.FindAllString(m[1], -1)...)
	}
	for _, loader := range asyncLoadRegex.FindAllString(markup, -1) {
		out = append(out, queryValues("https://x/"+loader, "client")...)
	}
	return out
}

// queryValues returns the values of the named query parameters of rawURL.
func queryValues(rawURL string, names ...string) []string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil
	}
	q := u.Query()
	var out []string
	for _, name := range names {
		out = append(out, q[name]...)
	}
	return out
}
