package codec

import "github.com/mr-tron/base58"

// base58String renders opaque bytes the way neo-go renders binary
// identifiers in logs: base58, not a raw byte dump or hex.
func base58String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base58.Encode(b)
}
