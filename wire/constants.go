// Package wire implements the on-the-wire framing for the reliable UDP
// transport: the datagram header, the command header, and the fixed-size
// command records that ride inside a datagram. Nothing in this package
// touches a socket or keeps connection state; it only turns bytes into
// typed records and back.
package wire

import "time"

// MTU bounds (spec.md §6).
const (
	MinimumMTU = 576
	MaximumMTU = 4096
	DefaultMTU = 1400
)

// Window bounds.
const (
	MinimumWindowSize = 4096
	MaximumWindowSize = 65536
)

// Channel bounds.
const (
	MinimumChannelCount = 1
	MaximumChannelCount = 255
	MaximumPeerID       = 0xFFF
)

// Fragmentation.
const MaximumFragmentCount = 1048576

// Reliable window bookkeeping (spec.md §4.3).
const (
	ReliableWindowSize = 4096
	ReliableWindows    = 16
	FreeReliableWindows = 8
)

// Unsequenced de-duplication window (spec.md §4.11).
const (
	UnsequencedWindowSize   = 1024
	FreeUnsequencedWindows  = 32
)

// Throttle.
const (
	PacketThrottleScale    = 32
	ThrottleCounterStep    = 7
	DefaultThrottleInterval = 5000 * time.Millisecond
)

// Host-wide bandwidth throttle cadence (spec.md §4.8).
const BandwidthThrottleInterval = 1000 * time.Millisecond

// Timeouts (spec.md §6).
const (
	TimeoutLimit   = 32
	TimeoutMinimum = 5000 * time.Millisecond
	TimeoutMaximum = 30000 * time.Millisecond
	PingInterval   = 500 * time.Millisecond
)

// PeerID header bit layout (spec.md §4.1, §6).
const (
	peerIDMask   = 0x0FFF
	sessionShift = 12
	sessionMask  = 0x3 << sessionShift
	flagCompressed = 1 << 14
	flagSentTime   = 1 << 15
)

// NoPeer marks a pre-connect datagram (no destination peer slot yet).
const NoPeer = 0xFFF

// Command header flag bits (spec.md §6).
const (
	FlagAcknowledge = 0x80
	FlagUnsequenced = 0x40
	commandMask     = 0x1F
)

// Command numbers (spec.md §6).
const (
	CommandAcknowledge            = 1
	CommandConnect                = 2
	CommandVerifyConnect          = 3
	CommandDisconnect             = 4
	CommandPing                   = 5
	CommandSendReliable           = 6
	CommandSendUnreliable         = 7
	CommandSendFragment           = 8
	CommandSendUnsequenced        = 9
	CommandBandwidthLimit         = 10
	CommandThrottleConfigure      = 11
	CommandSendUnreliableFragment = 12
)

// ChannelIDNone is the channel used for connection-handshake commands
// (CONNECT/VERIFY_CONNECT/DISCONNECT), which are not tied to any
// application channel.
const ChannelIDNone = 0xFF
