package session

import (
	"errors"
	"fmt"
	netUrl "net/url"
	"strings"
)

// Endpoint is one of the redundant service addresses. ID is the name used in logs and reports.
type Endpoint struct {
	ID      string
	Address string
}

// NewEndpoints builds endpoints in configured order. IDs must be unique.
func NewEndpoints(addresses []string) ([]Endpoint, error) {
	if len(addresses) == 0 {
		return nil, errors.New("no endpoints configured")
	}
	endpoints := make([]Endpoint, 0, len(addresses))
	seen := make(map[string]string, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		id, err := EndpointID(addr)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("endpoints %q and %q share the id %q", prev, addr, id)
		}
		seen[id] = addr
		endpoints = append(endpoints, Endpoint{ID: id, Address: addr})
	}

	return endpoints, nil
}

// EndpointID returns the path segment before the last one ("/v1/autocomplete" -> "v1"),
// or host[:port] when the path is too short.
func EndpointID(addr string) (string, error) {
	u, err := netUrl.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", addr, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("endpoint %q must be an absolute http(s) url", addr)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 2 && segments[len(segments)-2] != "" {
		return segments[len(segments)-2], nil
	}

	return u.Host, nil
}
