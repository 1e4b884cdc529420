package domain

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPMatchPolicy decides whether clientIP satisfies a single allow-list entry.
type IPMatchPolicy func(clientIP, allowed string) bool

// SubstringIPMatch accepts an exact match or any client address containing
// the entry. "10.0.0.1" therefore also admits "110.0.0.10".
func SubstringIPMatch(clientIP, allowed string) bool {
	if allowed == "" {
		return false
	}
	return clientIP == allowed || strings.Contains(clientIP, allowed)
}

// StrictIPMatch accepts an exact address match or membership in a CIDR entry.
func StrictIPMatch(clientIP, allowed string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	allowed = strings.TrimSpace(allowed)

	if strings.Contains(allowed, "/") {
		prefix, err := netip.ParsePrefix(allowed)
		if err != nil {
			return false
		}
		return prefix.Contains(addr)
	}
	want, err := netip.ParseAddr(allowed)
	if err != nil {
		return false
	}
	return want.Unmap() == addr
}

// ParseIPMatchPolicy resolves a policy name. An empty name selects substring.
func ParseIPMatchPolicy(name string) (IPMatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "substring":
		return SubstringIPMatch, nil
	case "strict":
		return StrictIPMatch, nil
	default:
		return nil, fmt.Errorf("unknown ip allow-list policy %q", name)
	}
}

// AllowsIP reports whether the user may connect from clientIP. Users without
// an allow-list are unrestricted.
func (u *User) AllowsIP(clientIP string, match IPMatchPolicy) bool {
	if len(u.AllowedIPs) == 0 {
		return true
	}
	if match == nil {
		match = SubstringIPMatch
	}
	for _, allowed := range u.AllowedIPs {
		if match(clientIP, allowed) {
			return true
		}
	}
	return false
}
