package net

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Scheme prefixes share links, e.g. collabboard://192.168.1.20:3001.
const Scheme = "collabboard://"

// ErrInvalidShareLink is returned for links that do not name a host and port.
var ErrInvalidShareLink = errors.New("invalid share link")

// IsShareLink reports whether s looks like a share link.
func IsShareLink(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ShareLink builds the link peers use to join a relay at host:port.
func ShareLink(host string, port int) string {
	return Scheme + net.JoinHostPort(host, strconv.Itoa(port))
}

// ParseShareLink extracts host:port from a share link.
func ParseShareLink(link string) (string, error) {
	if !IsShareLink(link) {
		return "", fmt.Errorf("%w: %q does not start with %s", ErrInvalidShareLink, link, Scheme)
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, Scheme), "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidShareLink, err)
	}
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidShareLink)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("%w: bad port %q", ErrInvalidShareLink, port)
	}
	return addr, nil
}

// RelayURL turns a share link, a bare host:port or a ws:// URL into the
// websocket URL of the relay.
func RelayURL(target string) (string, error) {
	switch {
	case IsShareLink(target):
		addr, err := ParseShareLink(target)
		if err != nil {
			return "", err
		}
		return "ws://" + addr + "/", nil
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		if _, err := url.Parse(target); err != nil {
			return "", fmt.Errorf("invalid relay URL: %w", err)
		}
		return target, nil
	default:
		if _, _, err := net.SplitHostPort(target); err != nil {
			return "", fmt.Errorf("invalid relay address %q: %w", target, err)
		}
		return "ws://" + target + "/", nil
	}
}
