package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// MaxURLLength caps the audio URL a client may ask for
const MaxURLLength = 2048

var (
	ErrMissingURL  = errors.New("Missing audioUrl")
	ErrInvalidURL  = errors.New("invalid audio URL")
	ErrPrivateHost = errors.New("access to private networks is not allowed")
)

// HostGuard reports whether a hostname must not be fetched
type HostGuard func(hostname string) bool

// validateAudioURL checks that raw is an absolute http(s) URL on a host the guard allows
func validateAudioURL(raw string, blocked HostGuard) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingURL
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("%w: URL is too long", ErrInvalidURL)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: only HTTP and HTTPS URLs are allowed", ErrInvalidURL)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: URL must have a valid host", ErrInvalidURL)
	}
	if blocked(parsed.Hostname()) {
		return nil, ErrPrivateHost
	}
	return parsed, nil
}

// checkRedirect applies the same rules to every hop of a redirect chain
func checkRedirect(blocked HostGuard) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		_, err := validateAudioURL(req.URL.String(), blocked)
		return err
	}
}

// dialControl re-checks the resolved address of every outbound connection,
// so a public name pointing at a private address is still refused
func dialControl(blocked HostGuard) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, _ syscall.RawConn) error {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return err
		}
		if blocked(host) {
			return fmt.Errorf("%w: %s resolves to a blocked address", ErrPrivateHost, host)
		}
		return nil
	}
}

// IsPrivateOrLocalAddress reports whether hostname names localhost, a private
// network or a cloud metadata service
func IsPrivateOrLocalAddress(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	hostname = strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")

	if hostname == "localhost" ||
		strings.HasSuffix(hostname, ".localhost") ||
		strings.HasSuffix(hostname, ".local") ||
		strings.HasSuffix(hostname, ".internal") {
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}
