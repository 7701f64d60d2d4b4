package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Location describes the document a relative URL is resolved against.
type Location struct {
	Protocol string // e.g. "http:"
	Host     string // hostname plus optional ":port"
	Hostname string
	Port     int
}

// URL is a parsed URL with browser-style defaults filled in.
type URL struct {
	Protocol string
	Host     string
	Hostname string
	Port     int
	Path     string
	Query    Values
	Hash     string
	Auth     string
}

// DefaultPort returns the well-known port for a protocol such as "http:".
func DefaultPort(protocol string) int {
	switch protocol {
	case "http:":
		return 80
	case "https:":
		return 443
	}
	return 0
}

// ParseURL parses raw, filling scheme, host and port from loc when raw
// does not carry them.
func ParseURL(raw string, loc Location) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	out := URL{
		Protocol: u.Scheme + ":",
		Host:     u.Host,
		Hostname: u.Hostname(),
		Path:     NormalizePath(u.Path),
		Hash:     u.Fragment,
	}
	if out.Protocol == ":" {
		out.Protocol = loc.Protocol
	}
	if out.Host == "" {
		out.Host = loc.Host
	}
	if out.Hostname == "" {
		out.Hostname = loc.Hostname
	}

	if p := u.Port(); p != "" && p != "0" {
		out.Port, err = strconv.Atoi(p)
		if err != nil {
			return URL{}, fmt.Errorf("%w: port %q", ErrDecode, p)
		}
	}
	if out.Port == 0 {
		out.Port = DefaultPort(out.Protocol)
	}
	if out.Port == 0 {
		out.Port = loc.Port
	}

	if u.User != nil && u.User.Username() != "" {
		out.Auth = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			out.Auth += ":" + pw
		}
	}

	out.Query, err = Parse(u.RawQuery)
	if err != nil {
		return URL{}, err
	}
	return out, nil
}

// NormalizePath makes p absolute and strips trailing slashes unless the
// path is the root.
func NormalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
