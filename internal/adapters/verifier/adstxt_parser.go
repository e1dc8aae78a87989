// Package verifier checks candidate domains against ads.txt and homepage content.
package verifier

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"pubspy/internal/domain"
)

// DefaultAllowlist lists the ad-system domains whose ads.txt records vouch for a publisher ID.
var DefaultAllowlist = []string{
	"google.com",
	"google.co.uk",
	"google.de",
	"google.fr",
	"google.com.au",
	"google.ca",
	"googlesyndication.com",
	"doubleclick.net",
}

// ParseAdsTxt parses an ads.txt body line by line.
// Malformed lines are reported as "line N: reason" and never stop the parse.
func ParseAdsTxt(r io.Reader) ([]domain.AdsTxtEntry, []string) {
	var entries []domain.AdsTxtEntry
	var errs []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isVariableLine(line) {
			continue
		}

		entry, err := parseRecord(line)
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %s", lineNo, err))
			continue
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Sprintf("line %d: %s", lineNo+1, err))
	}

	return entries, errs
}

// isVariableLine reports whether line is a key=value declaration such as contact= or subdomain=.
func isVariableLine(line string) bool {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return false
	}
	comma := strings.IndexByte(line, ',')
	return comma < 0 || eq < comma
}

func parseRecord(line string) (domain.AdsTxtEntry, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return domain.AdsTxtEntry{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if fields[0] == "" {
		return domain.AdsTxtEntry{}, fmt.Errorf("empty ad system domain")
	}
	if fields[1] == "" {
		return domain.AdsTxtEntry{}, fmt.Errorf("empty publisher account id")
	}

	var rel domain.Relationship
	switch strings.ToUpper(fields[2]) {
	case string(domain.RelationshipDirect):
		rel = domain.RelationshipDirect
	case string(domain.RelationshipReseller):
		rel = domain.RelationshipReseller
	default:
		return domain.AdsTxtEntry{}, fmt.Errorf("invalid relationship %q", fields[2])
	}

	entry := domain.AdsTxtEntry{
		Domain:       strings.ToLower(fields[0]),
		PublisherID:  fields[1],
		Relationship: rel,
	}
	if len(fields) > 3 {
		entry.CertificationAuthority = fields[3]
	}
	return entry, nil
}

// relevantEntries keeps entries issued by an allowlisted ad system, plus entries the
// checked domain declares for itself.
func relevantEntries(entries []domain.AdsTxtEntry, allowlist []string, host string) []domain.AdsTxtEntry {
	allowed := make(map[string]bool, len(allowlist)+1)
	for _, d := range allowlist {
		allowed[strings.ToLower(d)] = true
	}
	if host != "" {
		allowed[strings.ToLower(host)] = true
	}

	out := make([]domain.AdsTxtEntry, 0, len(entries))
	for _, e := range entries {
		if allowed[strings.TrimPrefix(e.Domain, "www.")] {
			out = append(out, e)
		}
	}
	return out
}
