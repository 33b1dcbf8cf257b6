package redirect

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const defaultHTTPSPort = "443"

// ErrInvalidOrigin is returned by NormalizeOrigin for entries that cannot be
// used in an origin allowlist.
var ErrInvalidOrigin = errors.New("invalid origin")

// originOf returns scheme://host[:port] for u. The default https port is
// omitted so "https://a.com:443" and "https://a.com" are the same origin.
func originOf(u *url.URL) string {
	return u.Scheme + "://" + canonicalHost(u)
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (u.Scheme == "https" && port == defaultHTTPSPort) {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

// originAllowed compares origin against every entry, case-insensitively and as
// whole strings. An explicit ":443" on an https entry is ignored.
func originAllowed(origin string, allowed []string) bool {
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if strings.HasPrefix(strings.ToLower(entry), "https://") {
			entry = strings.TrimSuffix(entry, ":"+defaultHTTPSPort)
		}
		if strings.EqualFold(origin, entry) {
			return true
		}
	}
	return false
}

// NormalizeOrigin validates a single allowlist entry and returns it as
// lowercase "https://host[:port]", dropping an explicit :443. A trailing "/" is tolerated; any other path,
// a query, fragment, userinfo or wildcard is rejected.
func NormalizeOrigin(raw string) (string, error) {
	cleaned := trimInput(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidOrigin)
	}
	if strings.Contains(cleaned, "*") {
		return "", fmt.Errorf("%w: wildcards are not allowed: %q", ErrInvalidOrigin, cleaned)
	}
	if structuralAnomaly(cleaned) != "" || strings.ContainsAny(cleaned, " \t") {
		return "", fmt.Errorf("%w: malformed value: %q", ErrInvalidOrigin, cleaned)
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be https, got %q", ErrInvalidOrigin, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host: %q", ErrInvalidOrigin, cleaned)
	}
	if u.User != nil || u.Opaque != "" || u.RawQuery != "" || u.ForceQuery ||
		u.Fragment != "" || (u.Path != "" && u.Path != "/") {
		return "", fmt.Errorf(
			"%w: must not include path, query, fragment or credentials: %q",
			ErrInvalidOrigin,
			cleaned,
		)
	}

	return originOf(u), nil
}

// NormalizeOrigins normalizes every entry and drops duplicates, keeping the
// first occurrence. The first invalid entry aborts with an error.
func NormalizeOrigins(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		origin, err := NormalizeOrigin(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out, nil
}
