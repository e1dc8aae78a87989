package verifier

import (
	"fmt"
	"strings"
	"time"

	"pubspy/internal/domain"
)

// Report renders a plain-text summary of an ads.txt analysis.
func Report(a *domain.AdsTxtAnalysis) string {
	var b strings.Builder

	b.WriteString("=== ads.txt report ===\n")
	fmt.Fprintf(&b, "URL:        %s\n", a.URL)
	fmt.Fprintf(&b, "Checked at: %s\n", a.CheckedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Found:      %s\n", yesNo(a.Found))

	if a.Found {
		fmt.Fprintf(&b, "Entries:    %d\n", len(a.Entries))
		fmt.Fprintf(&b, "Relevant:   %d\n", len(a.Relevant))
		if len(a.Relevant) > 0 {
			b.WriteString("\n--- relevant entries ---\n")
			for _, e := range a.Relevant {
				fmt.Fprintf(&b, "%s, %s, %s\n", e.Domain, e.PublisherID, e.Relationship)
			}
		}
	}

	if len(a.Errors) > 0 {
		b.WriteString("\n--- errors ---\n")
		for _, e := range a.Errors {
			fmt.Fprintf(&b, "* %s\n", e)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
