package enet

import "errors"

// Configuration and usage errors (spec.md §7): these are returned to
// the caller with no side effects, never surfaced as events.
var (
	ErrInvalidPeerCount    = errors.New("enet: peer count out of range")
	ErrInvalidChannelCount = errors.New("enet: channel count out of range")
	ErrHostFull            = errors.New("enet: no free peer slot available")
	ErrPeerNotConnected    = errors.New("enet: peer is not in a connected state")
	ErrPacketTooLarge      = errors.New("enet: packet exceeds the configured maximum packet size")
	ErrAlreadyConnecting   = errors.New("enet: peer is already connecting or connected")
	ErrHostClosed          = errors.New("enet: host has been destroyed")
)
