package webhook

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrUnsafeURL marks a webhook URL rejected by ValidateURL. Callers can
// match it with errors.Is to distinguish a policy rejection from a
// delivery failure.
var ErrUnsafeURL = errors.New("unsafe webhook url")

// ValidateURL rejects endpoint URLs that could be used to reach internal
// infrastructure. Only http and https schemes with a public hostname are
// accepted; localhost, loopback, link-local, and RFC 1918 private ranges
// are blocked, whether given as IP literals or as hostnames resolving to
// one of those ranges. A hostname that fails to resolve passes the check
// and fails at delivery instead.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrUnsafeURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: localhost blocked", ErrUnsafeURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if err := checkIP(addr); err != nil {
			return fmt.Errorf("%s resolves to blocked address: %w", host, err)
		}
	}
	return nil
}

func checkIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("%w: loopback address blocked", ErrUnsafeURL)
	case ip.IsUnspecified():
		return fmt.Errorf("%w: unspecified address blocked", ErrUnsafeURL)
	case ip.IsPrivate():
		return fmt.Errorf("%w: private address blocked", ErrUnsafeURL)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("%w: link-local address blocked", ErrUnsafeURL)
	}
	return nil
}
