package usecases

import (
	"fmt"

	"pubspy/internal/domain"
)

// DefaultVolumeThreshold is the raw hit count after which no further queries are run.
const DefaultVolumeThreshold = 20

// PlanQueries returns the search queries for id, most selective first.
func PlanQueries(id domain.PublisherID) []string {
	full := string(id)
	digits := id.Digits()

	return []string{
		quote(full),
		quote(digits),
		fmt.Sprintf(`"data-ad-client" %s`, quote(full)),
		fmt.Sprintf(`"google_ad_client" %s`, quote(full)),
		fmt.Sprintf(`"ads.txt" %s`, quote(full)),
		fmt.Sprintf(`"ads.txt" %s`, quote(digits)),
		fmt.Sprintf(`"googlesyndication.com" %s`, quote(full)),
		fmt.Sprintf(`%s "adsense"`, quote(digits)),
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
