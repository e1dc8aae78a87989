package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pubspy/internal/domain"
)

var metaCharsetRegex = regexp.MustCompile(`(?i)charset\s*=\s*["']?([\w-]+)`)

// ExtractPageInfo reads title, description, language and charset from markup.
// fallbackCharset is used when the page does not declare one (usually the transport charset).
func ExtractPageInfo(markup, pageURL, fallbackCharset string) domain.PageInfo {
	info := domain.PageInfo{
		URL:      pageURL,
		Title:    "Unknown",
		Language: "unknown",
		Charset:  "unknown",
	}
	if host, ok := domain.CanonicalDomain(pageURL); ok {
		info.Domain = host
	}
	if fallbackCharset != "" {
		info.Charset = strings.ToLower(fallbackCharset)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return info
	}

	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		info.Title = title
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		info.Language = strings.TrimSpace(lang)
	}

	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if cs, ok := s.Attr("charset"); ok && cs != "" {
			info.Charset = strings.ToLower(strings.TrimSpace(cs))
			return false
		}
		if equiv, _ := s.Attr("http-equiv"); strings.EqualFold(equiv, "content-type") {
			content, _ := s.Attr("content")
			if m := metaCharsetRegex.FindStringSubmatch(content); m != nil {
				info.Charset = strings.ToLower(m[1])
				return false
			}
		}
		return true
	})

	desc := doc.Find(`meta[name="description"]`).AttrOr("content", "")
	if desc == "" {
		desc = doc.Find(`meta[property="og:description"]`).AttrOr("content", "")
	}
	info.Description = collapseSpace(desc)

	return info
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
