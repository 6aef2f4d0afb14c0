package daemon

import (
	"fmt"
	"net"
)

// resolveOverlayAddress scans the host's network interfaces for the first
// IPv6 address whose leading byte matches prefixByte, mirroring the
// original relay's getifaddrs loop over AF_INET6 addresses testing
// addr6->sin6_addr.s6_addr[0] == 0xfc. The byte is configurable rather
// than hardcoded, since cjdns is only one of several reserved-prefix
// overlay schemes this shape fits.
func resolveOverlayAddress(prefixByte byte) (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("daemon: enumerate interfaces: %w", err)
	}
	return pickOverlayAddress(addrs, prefixByte)
}

// pickOverlayAddress contains the actual selection logic, split out from
// resolveOverlayAddress so it can be exercised without real interfaces.
func pickOverlayAddress(addrs []net.Addr, prefixByte byte) (string, error) {
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip16 := ipNet.IP.To16()
		if ip16 == nil || ipNet.IP.To4() != nil {
			continue
		}
		if ip16[0] == prefixByte {
			return ip16.String(), nil
		}
	}
	return "", fmt.Errorf("daemon: no local interface address with prefix byte 0x%02x found", prefixByte)
}
