package scraper

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// Extractor finds publisher identifiers in page markup by running every registered strategy.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an extractor. With no strategies the default registry is used.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// Strategies returns the names of the registered strategies in evaluation order.
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name
	}
	return names
}

// ExtractIDs returns the distinct valid identifiers found in markup, ordered by first appearance.
func (e *Extractor) ExtractIDs(markup string) []domain.PublisherID {
	ids, _ := e.Detect(markup)
	return ids
}

// Detect is ExtractIDs plus the names of the strategies that produced at least one valid
// identifier, in registry order.
func (e *Extractor) Detect(markup string) ([]domain.PublisherID, []string) {
	if strings.TrimSpace(markup) == "" {
		return []domain.PublisherID{}, []string{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.GlobalDebug("markup parse failed, DOM strategies disabled", "error", err)
		doc = nil
	}

	seen := make(map[domain.PublisherID]bool)
	var ids []domain.PublisherID
	methods := []string{}
	for _, s := range e.strategies {
		if s.DOM && doc == nil {
			continue
		}
		found := false
		for _, raw := range s.Extract(doc, markup) {
			id, ok := domain.NormalizePublisherID(raw)
			if !ok {
				continue
			}
			found = true
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		if found {
			methods = append(methods, s.Name)
		}
	}

	lower := strings.ToLower(markup)
	position := func(id domain.PublisherID) int {
		if i := strings.Index(lower, string(id)); i >= 0 {
			return i
		}
		if i := strings.Index(lower, id.Digits()); i >= 0 {
			return i
		}
		return len(lower)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return position(ids[i]) < position(ids[j])
	})

	if ids == nil {
		return []domain.PublisherID{}, methods
	}
	return ids, methods
}

// PageInfo extracts page metadata; see ExtractPageInfo.
func (e *Extractor) PageInfo(markup, pageURL, fallbackCharset string) domain.PageInfo {
	return ExtractPageInfo(markup, pageURL, fallbackCharset)
}
