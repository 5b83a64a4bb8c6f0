package offline

import (
	"net"
	"net/url"
	"strings"
)

// canonicalHost lowercases the host and drops the scheme's default port.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return h
	}
	return host
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && canonicalHost(a) == canonicalHost(b)
}

// cacheKey normalizes a request URL: lowercase scheme and host, default port
// and fragment dropped, empty path as "/".
func cacheKey(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	key := strings.ToLower(u.Scheme) + "://" + canonicalHost(u) + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
