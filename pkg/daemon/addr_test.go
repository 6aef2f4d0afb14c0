package daemon

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPickOverlayAddressMatchesPrefixByte(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("192.168.1.5"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("fc12:3456::1"), Mask: net.CIDRMask(8, 128)},
	}

	addr, err := pickOverlayAddress(addrs, 0xfc)
	require.NoError(t, err)
	require.Equal(t, "fc12:3456::1", addr)
}

func TestPickOverlayAddressNoneFound(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("192.168.1.5"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
	}

	_, err := pickOverlayAddress(addrs, 0xfc)
	require.Error(t, err)
}

func TestPickOverlayAddressIgnoresNonIPNetAddrs(t *testing.T) {
	addrs := []net.Addr{
		&net.UnixAddr{Name: "/tmp/sock", Net: "unix"},
		&net.IPNet{IP: net.ParseIP("fc00::2"), Mask: net.CIDRMask(8, 128)},
	}

	addr, err := pickOverlayAddress(addrs, 0xfc)
	require.NoError(t, err)
	require.Equal(t, "fc00::2", addr)
}
