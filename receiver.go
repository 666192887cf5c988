package enet

import (
	"encoding/binary"
	"net"
	"sort"

	"goenet/internal/list"
	"goenet/wire"
)

// receiveIncoming drains every datagram currently waiting on the
// socket without blocking (spec.md §4.11 "the protocol handler").
func (h *Host) receiveIncoming() error {
	if h.conn == nil {
		return nil
	}
	for {
		if err := h.conn.SetReadDeadline(timeNow()); err != nil {
			return err
		}
		n, addr, err := h.conn.ReadFromUDP(h.recvBuf[:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil
			}
			return nil // a transient read error should not stall the loop
		}
		h.handleDatagram(append([]byte(nil), h.recvBuf[:n]...), addr)
	}
}

func (h *Host) handleDatagram(data []byte, addr *net.UDPAddr) {
	r := wire.NewReader(data)
	header, err := wire.DecodeHeader(r)
	if err != nil {
		return
	}
	body := data[r.Offset():]

	if h.checksum != nil {
		if len(body) < wire.ChecksumSize {
			return
		}
		sum := binary.BigEndian.Uint32(body[:wire.ChecksumSize])
		check := make([]byte, 0, len(data))
		check = append(check, data[:r.Offset()]...)
		check = append(check, 0, 0, 0, 0)
		check = append(check, body[wire.ChecksumSize:]...)
		if h.checksum([][]byte{check}) != sum {
			return
		}
		body = body[wire.ChecksumSize:]
	}

	if header.Compressed {
		if h.compressor == nil {
			return
		}
		decompressed, err := h.compressor.Decompress(nil, body)
		if err != nil {
			return
		}
		body = decompressed
	}

	p := h.lookupPeer(header)
	if h.metrics != nil {
		h.metrics.BytesReceived.Add(float64(len(data)))
		h.metrics.PacketsReceived.Inc()
	}

	cr := wire.NewReader(body)
	for cr.Remaining() > 0 {
		cmd, err := wire.DecodeCommand(cr)
		if err != nil {
			return
		}
		h.handleCommand(p, header, cmd, addr)
	}
}

func (h *Host) lookupPeer(header wire.Header) *Peer {
	if header.PeerID == wire.NoPeer || int(header.PeerID) >= len(h.peers) {
		return nil
	}
	p := h.peers[header.PeerID]
	if p.state == StateDisconnected {
		return nil
	}
	return p
}

func (h *Host) handleCommand(p *Peer, header wire.Header, cmd wire.Command, addr *net.UDPAddr) {
	if cmd.Header.Command == wire.CommandConnect {
		p = h.handleConnect(cmd, addr)
		if p == nil {
			return
		}
	}
	if p == nil {
		return
	}
	p.lastReceiveTime = h.serviceTime

	// accepted gates the acknowledgement below: an out-of-window
	// reliable/fragment command is dropped silently, with no ack, so the
	// sender keeps retransmitting instead of believing it arrived
	// (spec.md §4.3, §7).
	accepted := true

	switch cmd.Header.Command {
	case wire.CommandAcknowledge:
		h.handleAcknowledge(p, cmd)
	case wire.CommandVerifyConnect:
		h.handleVerifyConnect(p, cmd)
	case wire.CommandDisconnect:
		h.handleDisconnect(p, cmd)
	case wire.CommandPing:
		// the queued acknowledgement below is the entire point of a ping
	case wire.CommandSendReliable:
		accepted = h.handleSendReliable(p, cmd)
	case wire.CommandSendUnreliable:
		accepted = h.handleSendUnreliable(p, cmd)
	case wire.CommandSendFragment, wire.CommandSendUnreliableFragment:
		accepted = h.handleSendFragment(p, cmd)
	case wire.CommandSendUnsequenced:
		h.handleSendUnsequenced(p, cmd)
	case wire.CommandBandwidthLimit:
		p.incomingBandwidth = cmd.IncomingBandwidth
		p.outgoingBandwidth = cmd.OutgoingBandwidth
	case wire.CommandThrottleConfigure:
		p.packetThrottleInterval = cmd.ThrottleInterval
		p.packetThrottleAcceleration = cmd.ThrottleAcceleration
		p.packetThrottleDeceleration = cmd.ThrottleDeceleration
	}

	if accepted && cmd.Header.Acknowledge && cmd.Header.Command != wire.CommandAcknowledge {
		p.acknowledgements.PushBack(&Acknowledgement{
			channelID:              cmd.Header.ChannelID,
			reliableSequenceNumber: cmd.Header.ReliableSequenceNumber,
			sentTime:               header.SentTime,
		})
	}
}

func (h *Host) handleConnect(cmd wire.Command, addr *net.UDPAddr) *Peer {
	p := h.allocatePeer()
	if p == nil {
		return nil
	}

	channelCount := int(cmd.ChannelCount)
	if channelCount < wire.MinimumChannelCount {
		channelCount = wire.MinimumChannelCount
	}
	if channelCount > h.channelLimit {
		channelCount = h.channelLimit
	}

	p.Address = addr
	p.channels = newChannels(channelCount)
	p.outgoingPeerID = cmd.OutgoingPeerID
	p.incomingSessionID = cmd.OutgoingSessionID
	p.outgoingSessionID = h.nextSessionID()
	p.mtu = clampMTU(cmd.MTU, h.mtu)
	p.windowSize = clampWindow(cmd.WindowSize)
	p.incomingBandwidth = cmd.IncomingBandwidth
	p.outgoingBandwidth = cmd.OutgoingBandwidth
	p.packetThrottleInterval = cmd.ThrottleInterval
	p.packetThrottleAcceleration = cmd.ThrottleAcceleration
	p.packetThrottleDeceleration = cmd.ThrottleDeceleration
	p.connectID = cmd.ConnectID
	p.eventData = cmd.Data
	p.state = StateAcknowledgingConnect

	verify := wire.Command{
		Header: wire.CommandHeader{Command: wire.CommandVerifyConnect, Acknowledge: true, ChannelID: wire.ChannelIDNone},

		OutgoingPeerID:       p.incomingPeerID,
		IncomingSessionID:    p.incomingSessionID,
		OutgoingSessionID:    p.outgoingSessionID,
		MTU:                  p.mtu,
		WindowSize:           p.windowSize,
		ChannelCount:         uint32(len(p.channels)),
		IncomingBandwidth:    h.incomingBandwidth,
		OutgoingBandwidth:    h.outgoingBandwidth,
		ThrottleInterval:     p.packetThrottleInterval,
		ThrottleAcceleration: p.packetThrottleAcceleration,
		ThrottleDeceleration: p.packetThrottleDeceleration,
		ConnectID:            p.connectID,
	}
	p.queueOutgoingCommand(verify, nil, 0, 0)
	return p
}

func (h *Host) handleVerifyConnect(p *Peer, cmd wire.Command) {
	if p.state != StateConnecting || cmd.ConnectID != p.connectID {
		return
	}
	p.outgoingPeerID = cmd.OutgoingPeerID
	p.outgoingSessionID = cmd.IncomingSessionID
	p.incomingSessionID = cmd.OutgoingSessionID
	if int(cmd.ChannelCount) < len(p.channels) {
		p.channels = p.channels[:cmd.ChannelCount]
	}
	p.mtu = clampMTU(cmd.MTU, p.mtu)
	p.windowSize = clampWindow(cmd.WindowSize)
	p.state = StateConnectionSucceeded
	p.markNeedsDispatch()
}

func (h *Host) handleAcknowledge(p *Peer, cmd wire.Command) {
	var matched *OutgoingCommand
	p.sentReliableCommands.Each(func(oc *OutgoingCommand) {
		if matched != nil {
			return
		}
		if oc.reliableSequenceNumber() == cmd.ReceivedReliableSequenceNumber && oc.channelID() == cmd.Header.ChannelID {
			matched = oc
		}
	})
	if matched == nil {
		return
	}

	p.sentReliableCommands.Remove(matched)
	if p.reliableDataInTransit > matched.fragmentLength {
		p.reliableDataInTransit -= matched.fragmentLength
	} else {
		p.reliableDataInTransit = 0
	}
	p.unmarkWindowIfReliable(matched)
	p.updateRoundTripTime(h.serviceTime - matched.sentTime)

	switch matched.command.Header.Command {
	case wire.CommandVerifyConnect:
		if p.state == StateAcknowledgingConnect {
			p.state = StateConnectionSucceeded
			p.markNeedsDispatch()
		}
	case wire.CommandDisconnect:
		p.state = StateZombie
		p.markNeedsDispatch()
	}
	matched.release()
}

func (h *Host) handleDisconnect(p *Peer, cmd wire.Command) {
	if p.state == StateDisconnected || p.state == StateZombie {
		return
	}
	p.disconnectData = cmd.Data
	p.dropQueuedSendCommands()
	p.state = StateZombie
	p.markNeedsDispatch()
}

func (h *Host) handleSendReliable(p *Peer, cmd wire.Command) bool {
	if int(cmd.Header.ChannelID) >= len(p.channels) {
		return false
	}
	channel := &p.channels[cmd.Header.ChannelID]
	if !channel.acceptsReliableWindow(cmd.Header.ReliableSequenceNumber) {
		return false
	}
	ic := &IncomingCommand{
		reliableSequenceNumber: cmd.Header.ReliableSequenceNumber,
		channelID:              cmd.Header.ChannelID,
		packet:                 NewPacket(cmd.Payload, 0),
	}
	h.insertIncomingReliable(p, channel, ic)
	h.dispatchReadyReliable(p, channel)
	return true
}

func (h *Host) handleSendUnreliable(p *Peer, cmd wire.Command) bool {
	if int(cmd.Header.ChannelID) >= len(p.channels) {
		return false
	}
	channel := &p.channels[cmd.Header.ChannelID]
	if !channel.acceptsReliableWindow(cmd.Header.ReliableSequenceNumber) {
		return false
	}
	h.dispatchUnreliable(p, channel, cmd.Header.ChannelID, cmd.UnreliableSequenceNumber, NewPacket(cmd.Payload, 0))
	return true
}

func (h *Host) handleSendUnsequenced(p *Peer, cmd wire.Command) {
	if int(cmd.Header.ChannelID) >= len(p.channels) {
		return
	}
	if p.unsequencedDuplicate(cmd.UnsequencedGroup) {
		return
	}
	ic := &IncomingCommand{channelID: cmd.Header.ChannelID, packet: NewPacket(cmd.Payload, PacketUnsequenced)}
	p.dispatchedCommands.PushBack(ic)
	p.markNeedsDispatch()
}

// insertIncomingReliable places ic into the channel's out-of-order
// buffer in sequence order, dropping it if it is a duplicate or
// already-delivered sequence number (spec.md §4.3, §4.11).
func (h *Host) insertIncomingReliable(p *Peer, channel *Channel, ic *IncomingCommand) {
	if !sequenceGreater(ic.reliableSequenceNumber, channel.IncomingReliableSequenceNumber) {
		ic.release()
		return
	}

	var items []*IncomingCommand
	channel.IncomingReliableCommands.Each(func(c *IncomingCommand) { items = append(items, c) })
	for _, c := range items {
		if c.reliableSequenceNumber == ic.reliableSequenceNumber {
			ic.release()
			return
		}
	}
	items = append(items, ic)
	sort.Slice(items, func(i, j int) bool {
		return sequenceGreater(items[j].reliableSequenceNumber, items[i].reliableSequenceNumber)
	})
	channel.IncomingReliableCommands = list.List[IncomingCommand]{}
	for _, c := range items {
		channel.IncomingReliableCommands.PushBack(c)
	}
}

// dispatchReadyReliable moves every contiguous, in-order reliable
// command from the channel's buffer onto the peer's dispatch queue. A
// reassembled fragment message is keyed on its start sequence number
// and advances the channel past all of its fragments' sequence numbers.
func (h *Host) dispatchReadyReliable(p *Peer, channel *Channel) {
	for {
		front := channel.IncomingReliableCommands.Front()
		if front == nil || front.reliableSequenceNumber != channel.IncomingReliableSequenceNumber+1 {
			return
		}
		channel.IncomingReliableCommands.Remove(front)
		channel.IncomingReliableSequenceNumber++
		if front.fragmentCount > 1 {
			channel.IncomingReliableSequenceNumber += uint16(front.fragmentCount - 1)
		}
		p.dispatchedCommands.PushBack(front)
		p.markNeedsDispatch()
	}
}

func (h *Host) dispatchUnreliable(p *Peer, channel *Channel, channelID uint8, seq uint16, packet *Packet) {
	if !sequenceGreater(seq, channel.IncomingUnreliableSequenceNumber) {
		packet.release()
		return
	}
	channel.IncomingUnreliableSequenceNumber = seq
	ic := &IncomingCommand{unreliableSequenceNumber: seq, channelID: channelID, packet: packet}
	p.dispatchedCommands.PushBack(ic)
	p.markNeedsDispatch()
}

func (p *Peer) unsequencedDuplicate(group uint16) bool {
	index := uint32(group) % wire.UnsequencedWindowSize
	word, bit := index/32, uint32(1)<<(index%32)
	if p.unsequencedWindow[word]&bit != 0 {
		return true
	}
	p.unsequencedWindow[word] |= bit
	return false
}

// checkTimeouts retransmits any reliable command whose RTO has
// elapsed, disconnects peers that exceed their retransmission or idle
// limits, and rolls over each peer's throttle interval (spec.md §4.5,
// §4.6).
func (h *Host) checkTimeouts() {
	for _, p := range h.peers {
		if p.state == StateDisconnected || p.state == StateZombie {
			continue
		}

		if h.serviceTime-p.packetThrottleEpoch >= p.packetThrottleInterval {
			p.rolloverThrottleInterval(h.serviceTime)
		}

		var next *OutgoingCommand
		for oc := p.sentReliableCommands.Front(); oc != nil; oc = next {
			next = p.sentReliableCommands.Next(oc)
			if h.serviceTime-oc.sentTime < oc.roundTripTimeout {
				continue
			}
			if uint32(oc.sendAttempts) >= p.timeoutLimit {
				p.state = StateZombie
				p.markNeedsDispatch()
				break
			}
			p.sentReliableCommands.Remove(oc)
			if p.reliableDataInTransit > oc.fragmentLength {
				p.reliableDataInTransit -= oc.fragmentLength
			} else {
				p.reliableDataInTransit = 0
			}
			oc.roundTripTimeout *= 2
			p.outgoingCommands.PushFront(oc)
			if h.metrics != nil {
				h.metrics.PacketsLost.Inc()
			}
		}

		if p.state != StateConnecting && p.lastReceiveTime != 0 && h.serviceTime-p.lastReceiveTime > p.timeoutMaximum {
			p.state = StateZombie
			p.markNeedsDispatch()
		}
	}
}

// sequenceGreater compares 16-bit sequence numbers with wraparound,
// the way TCP compares sequence numbers (spec.md §4.3).
func sequenceGreater(a, b uint16) bool {
	return int16(a-b) > 0
}

func (h *Host) nextSessionID() uint8 {
	return uint8(h.random.Uint32() & 0x3)
}

func clampMTU(requested, local uint32) uint32 {
	mtu := requested
	if local < mtu {
		mtu = local
	}
	if mtu < wire.MinimumMTU {
		mtu = wire.MinimumMTU
	}
	if mtu > wire.MaximumMTU {
		mtu = wire.MaximumMTU
	}
	return mtu
}

func clampWindow(requested uint32) uint32 {
	if requested < wire.MinimumWindowSize {
		return wire.MinimumWindowSize
	}
	if requested > wire.MaximumWindowSize {
		return wire.MaximumWindowSize
	}
	return requested
}
