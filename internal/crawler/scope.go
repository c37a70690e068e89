package crawler

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope modes.
const (
	ScopeHost = "host" // same host as a seed
	ScopeSite = "site" // same registrable domain (eTLD+1) as a seed
	ScopeAny  = "any"  // no host restriction
)

// Scope decides which URLs a run may schedule. Seeds define the allowed hosts
// or sites; exclusions apply to every URL; the follow pattern only to links
// discovered on crawled pages.
type Scope struct {
	Mode          string
	FollowPattern *regexp.Regexp
	Exclude       []string // substrings, e.g. "?tab="

	hosts map[string]struct{}
	sites map[string]struct{}
}

// NewScope creates a scope for seeds.
func NewScope(mode string, seeds []string, followPattern string, exclude []string) (*Scope, error) {
	if mode == "" {
		mode = ScopeHost
	}
	if mode != ScopeHost && mode != ScopeSite && mode != ScopeAny {
		return nil, fmt.Errorf("unknown scope %q (want host, site or any)", mode)
	}

	s := &Scope{
		Mode:    mode,
		Exclude: exclude,
		hosts:   make(map[string]struct{}),
		sites:   make(map[string]struct{}),
	}

	if followPattern != "" {
		pattern, err := regexp.Compile(followPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid follow pattern: %w", err)
		}
		s.FollowPattern = pattern
	}

	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		s.hosts[host] = struct{}{}
		s.sites[siteOf(host)] = struct{}{}
	}

	return s, nil
}

// AllowsSeed reports whether a seed URL may be scheduled.
func (s *Scope) AllowsSeed(rawURL string) bool {
	return !s.excluded(rawURL)
}

// AllowsLink reports whether a link found on a crawled page may be
// scheduled.
func (s *Scope) AllowsLink(rawURL string) bool {
	if s.excluded(rawURL) {
		return false
	}
	if s.FollowPattern != nil && !s.FollowPattern.MatchString(rawURL) {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	switch s.Mode {
	case ScopeAny:
		return true
	case ScopeSite:
		_, ok := s.sites[siteOf(host)]
		return ok
	default:
		_, ok := s.hosts[host]
		return ok
	}
}

func (s *Scope) excluded(rawURL string) bool {
	for _, pattern := range s.Exclude {
		if pattern != "" && strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return false
}

// siteOf returns the registrable domain of host, or host itself for IPs,
// localhost and other names without a public suffix.
func siteOf(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}
