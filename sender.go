package enet

import (
	"goenet/wire"
)

// flushOutgoing builds and transmits one datagram per peer that has
// something to say this tick (spec.md §4.10 "the pacer"). A peer in
// StateDisconnectLater whose outgoing and sent-reliable queues have
// drained is then disconnected.
func (h *Host) flushOutgoing() {
	for _, p := range h.peers {
		if p.state == StateDisconnected || p.state == StateZombie {
			continue
		}
		h.sendDatagrams(p)
		if p.state == StateDisconnectLater && p.outgoingCommands.Empty() && p.sentReliableCommands.Empty() {
			p.Disconnect(p.disconnectData)
		}
	}
}

// sendDatagrams drains as much of p's queued work as fits in one MTU
// worth of records, respecting the reliable flow-control window and
// the unreliable throttle probability (spec.md §4.5, §4.7).
func (h *Host) sendDatagrams(p *Peer) {
	if p.needsPing(h.serviceTime) {
		h.queuePing(p)
	}

	if p.acknowledgements.Empty() && p.outgoingCommands.Empty() {
		return
	}

	headerSize := 4 // HasSentTime always set below
	checksumSize := 0
	if h.checksum != nil {
		checksumSize = wire.ChecksumSize
	}

	cw := wire.NewWriter(int(p.mtu))
	budget := int(p.mtu) - headerSize - checksumSize
	sent := false

	p.acknowledgements.Each(func(ack *Acknowledgement) {
		cmd := wire.Command{
			Header:                         wire.CommandHeader{Command: wire.CommandAcknowledge, ChannelID: ack.channelID, ReliableSequenceNumber: ack.reliableSequenceNumber},
			ReceivedReliableSequenceNumber: ack.reliableSequenceNumber,
			ReceivedSentTime:               ack.sentTime,
		}
		size := wire.RecordSize(cmd)
		if size > budget {
			return
		}
		if err := cmd.Encode(cw); err == nil {
			budget -= size
			sent = true
		}
		p.acknowledgements.Remove(ack)
	})

	// windowWrap and windowExceeded latch once either gate trips and
	// stay tripped for the rest of this flush: once a reliable send
	// would wrap past windows the peer hasn't finished acking, no further
	// reliable command on an application channel goes out, and once the
	// congestion window is full, no further reliable command carrying a
	// packet goes out, until the next Service tick (spec.md §4.7, mirrors
	// enet_protocol_check_outgoing_commands).
	windowWrap := false
	windowExceeded := false

	var next *OutgoingCommand
	for oc := p.outgoingCommands.Front(); oc != nil; oc = next {
		next = p.outgoingCommands.Next(oc)

		if oc.isReliable() {
			if int(oc.channelID()) < len(p.channels) {
				channel := &p.channels[oc.channelID()]
				w := reliableWindow(oc.reliableSequenceNumber())
				if !windowWrap && oc.sendAttempts < 1 && oc.reliableSequenceNumber()%wire.ReliableWindowSize == 0 && channel.windowWrapped(w) {
					windowWrap = true
				}
				if windowWrap {
					continue
				}
			}

			if oc.packet != nil {
				if !windowExceeded {
					limit := p.windowSize * p.packetThrottle / wire.PacketThrottleScale
					if limit < p.mtu {
						limit = p.mtu
					}
					if p.reliableDataInTransit+oc.fragmentLength > limit {
						windowExceeded = true
					}
				}
				if windowExceeded {
					continue
				}
			}
		} else {
			p.packetThrottleCounter += wire.ThrottleCounterStep
			if p.packetThrottleCounter > wire.PacketThrottleScale {
				p.packetThrottleCounter = 0
			}
			if p.packetThrottleCounter > p.packetThrottle {
				p.outgoingCommands.Remove(oc)
				oc.release()
				continue
			}
		}

		size := wire.RecordSize(oc.command)
		if size > budget {
			continue
		}

		if err := oc.command.Encode(cw); err != nil {
			continue
		}
		budget -= size
		sent = true

		p.outgoingCommands.Remove(oc)
		if oc.isReliable() {
			oc.sentTime = h.serviceTime
			oc.sendAttempts++
			if oc.roundTripTimeout == 0 {
				oc.roundTripTimeout = p.retransmitTimeout()
			}
			p.reliableDataInTransit += oc.fragmentLength
			p.sentReliableCommands.PushBack(oc)
		} else {
			p.outgoingDataTotal += oc.fragmentLength
			oc.release()
		}
	}

	if !sent {
		return
	}

	commands := cw.Data()
	compressed := false
	if h.compressor != nil {
		if c := h.compressor.Compress(nil, commands); c != nil && len(c) < len(commands) {
			commands = c
			compressed = true
		}
	}

	w := wire.NewWriter(headerSize + checksumSize + len(commands))
	header := wire.Header{PeerID: p.outgoingPeerID, SessionID: p.outgoingSessionID, Compressed: compressed, HasSentTime: true, SentTime: uint16(h.serviceTime)}
	header.Encode(w)

	checksumOffset := -1
	if h.checksum != nil {
		checksumOffset = w.Len()
		w.Uint32(0)
	}
	w.Bytes(commands)

	body := w.Data()
	if checksumOffset >= 0 {
		sum := h.checksum([][]byte{body})
		wire.PatchUint32(body, checksumOffset, sum)
	}

	if h.conn != nil && p.Address != nil {
		_, _ = h.conn.WriteToUDP(body, p.Address)
	}
	p.lastSendTime = h.serviceTime
	if h.metrics != nil {
		h.metrics.BytesSent.Add(float64(len(body)))
		h.metrics.PacketsSent.Inc()
	}
}

func (p *Peer) needsPing(now uint32) bool {
	if p.state != StateConnected {
		return false
	}
	return now-p.lastSendTime >= p.pingInterval && p.outgoingCommands.Empty()
}

func (h *Host) queuePing(p *Peer) {
	cmd := wire.Command{Header: wire.CommandHeader{Command: wire.CommandPing, Acknowledge: true, ChannelID: wire.ChannelIDNone}}
	p.queueOutgoingCommand(cmd, nil, 0, 0)
}

// retransmitTimeout computes the next RTO from the RTT estimator,
// falling back to a fixed default before the first sample arrives
// (spec.md §4.6).
func (p *Peer) retransmitTimeout() uint32 {
	if !p.hasRTTSample {
		return 1000
	}
	timeout := p.roundTripTime + 4*p.roundTripTimeVariance
	if timeout < 100 {
		timeout = 100
	}
	return timeout
}
