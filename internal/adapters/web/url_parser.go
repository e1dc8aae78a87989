package web

import (
	"fmt"
	"net"

	"pubspy/internal/domain"
)

// ParseTargetURL validates a page URL submitted to the API.
// On top of the normal URL rules it rejects IP literals in loopback, private and
// link-local ranges so the service cannot be pointed at its own network.
// Returns an error wrapping domain.ErrInvalidURL.
func ParseTargetURL(raw string) (string, error) {
	u, err := domain.NormalizeTargetURL(raw)
	if err != nil {
		return "", err
	}

	if ip := net.ParseIP(u.Hostname()); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return "", fmt.Errorf("%w: internal address %s", domain.ErrInvalidURL, ip)
		}
	}
	return u.String(), nil
}
