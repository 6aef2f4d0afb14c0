package registry

import (
	"fmt"
	"net"
)

// canonicalizeAddress parses addr to its binary form and re-emits it in the
// single canonical textual form. This is the sole entry point for
// normalizing addresses before they become registry keys; the overlay's
// address family is IPv6-only (spec non-goal: "IPv4 transport").
func canonicalizeAddress(addr string) (string, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", fmt.Errorf("registry: cannot parse address %q", addr)
	}
	ip6 := ip.To16()
	if ip6 == nil || ip.To4() != nil {
		return "", fmt.Errorf("registry: address %q is not an IPv6 overlay address", addr)
	}
	return ip6.String(), nil
}
