package enet

import "goenet/wire"

// applyBandwidthThrottle recomputes each peer's packetThrottleLimit
// from the host's outgoing bandwidth cap, at most once per
// wire.BandwidthThrottleInterval (spec.md §4.8).
func (h *Host) applyBandwidthThrottle() {
	elapsed := h.serviceTime - h.bandwidthThrottleEpoch
	if elapsed < uint32(wire.BandwidthThrottleInterval.Milliseconds()) {
		return
	}
	h.bandwidthThrottleEpoch = h.serviceTime

	if h.connectedPeers == 0 || h.outgoingBandwidth == 0 {
		h.resetDataTotals()
		return
	}

	var dataTotal uint32
	var peersRemaining uint32
	for _, p := range h.peers {
		if !p.active() {
			continue
		}
		dataTotal += p.outgoingDataTotal
		peersRemaining++
	}
	if peersRemaining == 0 {
		h.resetDataTotals()
		return
	}

	budget := h.outgoingBandwidth * (elapsed / 1000)
	throttle := uint32(wire.PacketThrottleScale)
	if dataTotal > budget {
		throttle = budget * wire.PacketThrottleScale / dataTotal
	}
	for _, p := range h.peers {
		if !p.active() {
			continue
		}
		p.packetThrottleLimit = throttle
	}
	h.resetDataTotals()
}

func (h *Host) resetDataTotals() {
	for _, p := range h.peers {
		p.incomingDataTotal = 0
		p.outgoingDataTotal = 0
	}
}

func (p *Peer) active() bool {
	return p.state == StateConnected || p.state == StateDisconnectLater
}
