package enet

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSource supplies the random 32-bit values used to generate
// connectIDs and outgoing session ids. spec.md §9 ("Global allocator
// hooks") and §9's Open Questions ask for a pluggable RNG rather than
// module-global state; HostConfig.RandomSource is that hook.
type RandomSource interface {
	Uint32() uint32
}

// cryptoRandSource is the default RandomSource. The original ENet
// seeds a non-cryptographic PRNG from platform entropy behind a
// swappable callback; Go's crypto/rand is the idiomatic zero-dependency
// replacement for that callback and needs no third-party package.
type cryptoRandSource struct{}

func (cryptoRandSource) Uint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; there is nothing sensible to do but fall back to a
		// fixed value rather than panic the host.
		return 0x9E3779B9
	}
	return binary.BigEndian.Uint32(buf[:])
}

var defaultRandomSource RandomSource = cryptoRandSource{}
