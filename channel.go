package enet

import (
	"goenet/internal/list"
	"goenet/wire"
)

// Channel is the per-peer, per-index sequencing state described in
// spec.md §3/§4.3: four 16-bit sequence counters, the two incoming
// queues, and the reliable-window usage bitmap.
type Channel struct {
	OutgoingReliableSequenceNumber   uint16
	OutgoingUnreliableSequenceNumber uint16
	IncomingReliableSequenceNumber   uint16
	IncomingUnreliableSequenceNumber uint16

	IncomingReliableCommands   list.List[IncomingCommand]
	IncomingUnreliableCommands list.List[IncomingCommand]

	// ReliableWindows[w] counts outstanding outgoing reliable commands
	// whose sequence number falls in reliable window w (spec.md §4.3).
	ReliableWindows     [wire.ReliableWindows]uint16
	UsedReliableWindows uint16

	incomingFragments []*fragmentAssembly
}

func newChannels(n int) []Channel {
	return make([]Channel, n)
}

// reliableWindow returns the window index (0..ReliableWindows-1) that
// sequence number seq belongs to.
func reliableWindow(seq uint16) uint16 {
	return seq / wire.ReliableWindowSize
}

// markWindowUsed increments the outstanding-command counter for the
// window containing seq and sets its bit in the usage bitmap.
func (c *Channel) markWindowUsed(seq uint16) {
	w := reliableWindow(seq)
	c.ReliableWindows[w]++
	c.UsedReliableWindows |= 1 << w
}

// unmarkWindowUsed is the inverse of markWindowUsed, called when a
// reliable command is acknowledged or is dropped from the outgoing
// queue before being sent.
func (c *Channel) unmarkWindowUsed(seq uint16) {
	w := reliableWindow(seq)
	if c.ReliableWindows[w] > 0 {
		c.ReliableWindows[w]--
	}
	if c.ReliableWindows[w] == 0 {
		c.UsedReliableWindows &^= 1 << w
	}
}

// acceptsReliableWindow is the receive-side gatekeeper spec.md §4.3 and
// §7 require of every reliable/fragment command: a sequence number
// whose window has already wrapped past what the channel is currently
// accepting is silently dropped, with no acknowledgement queued, so a
// far-future or replayed sequence number can't buffer indefinitely
// (mirrors enet_peer_queue_incoming_command's shared window check).
func (c *Channel) acceptsReliableWindow(seq uint16) bool {
	window := reliableWindow(seq)
	current := reliableWindow(c.IncomingReliableSequenceNumber)
	if seq < c.IncomingReliableSequenceNumber {
		window += wire.ReliableWindows
	}
	return window >= current && window < current+wire.FreeReliableWindows-1
}

// windowWrapped reports whether starting to send into reliableWindow
// would outrun the windows the peer has already acked: either the
// previous window's outgoing command count has hit the per-window
// ceiling, or any window in the wrap-around mask is still in use
// (spec.md §4.7, mirrors enet_protocol_check_outgoing_commands).
func (c *Channel) windowWrapped(window uint16) bool {
	mask := uint32(1)<<(wire.FreeReliableWindows+2) - 1
	shifted := (mask << window) | (mask >> (wire.ReliableWindows - window))
	prev := (window + wire.ReliableWindows - 1) % wire.ReliableWindows
	return c.ReliableWindows[prev] >= wire.ReliableWindowSize || uint32(c.UsedReliableWindows)&shifted != 0
}
