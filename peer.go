package enet

import (
	"fmt"
	"net"

	"goenet/internal/list"
	"goenet/internal/logging"
	"goenet/wire"
)

// PeerState is a slot's position in the connection lifecycle described
// in spec.md §4.2.
type PeerState int

const (
	StateDisconnected PeerState = iota
	StateConnecting
	StateAcknowledgingConnect
	StateConnectionPending
	StateConnectionSucceeded
	StateConnected
	StateDisconnectLater
	StateDisconnecting
	StateAcknowledgingDisconnect
	StateZombie
)

func (s PeerState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAcknowledgingConnect:
		return "acknowledging_connect"
	case StateConnectionPending:
		return "connection_pending"
	case StateConnectionSucceeded:
		return "connection_succeeded"
	case StateConnected:
		return "connected"
	case StateDisconnectLater:
		return "disconnect_later"
	case StateDisconnecting:
		return "disconnecting"
	case StateAcknowledgingDisconnect:
		return "acknowledging_disconnect"
	case StateZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// Peer is one connection slot (spec.md §3). It embeds list.Node so the
// host can link it onto its dispatch queue without a second allocation.
type Peer struct {
	list.Node[Peer]

	host *Host

	incomingPeerID    uint16 // our slot index, as the remote addresses us
	outgoingPeerID    uint16 // the slot index we use to address the remote
	incomingSessionID uint8
	outgoingSessionID uint8

	Address *net.UDPAddr
	state   PeerState

	channels []Channel

	incomingBandwidth             uint32
	outgoingBandwidth             uint32
	incomingBandwidthThrottleEpoch uint32
	outgoingBandwidthThrottleEpoch uint32
	incomingDataTotal             uint32
	outgoingDataTotal             uint32

	packetsSent uint32
	packetsLost uint32

	packetThrottle             uint32
	packetThrottleLimit        uint32
	packetThrottleCounter      uint32
	packetThrottleEpoch        uint32
	packetThrottleInterval     uint32
	packetThrottleAcceleration uint32
	packetThrottleDeceleration uint32

	hasRTTSample                 bool
	roundTripTime                uint32
	roundTripTimeVariance        uint32
	lowestRoundTripTime          uint32
	highestRoundTripTimeVariance uint32
	lastRoundTripTime            uint32
	lastRoundTripTimeVariance    uint32

	windowSize            uint32
	reliableDataInTransit uint32
	totalWaitingData      uint32

	// connectedAccounted tracks whether this peer is currently counted
	// in host.connectedPeers, since by the time reset() runs the state
	// has usually already moved on to StateZombie.
	connectedAccounted bool

	incomingUnsequencedGroup uint16
	outgoingUnsequencedGroup uint16
	unsequencedWindow        [wire.UnsequencedWindowSize / 32]uint32

	acknowledgements       list.List[Acknowledgement]
	outgoingCommands       list.List[OutgoingCommand]
	sentReliableCommands   list.List[OutgoingCommand]
	sentUnreliableCommands list.List[OutgoingCommand]
	dispatchedCommands     list.List[IncomingCommand]

	needsDispatch bool

	connectID uint32
	eventData uint32

	mtu uint32

	lastSendTime    uint32
	lastReceiveTime uint32
	nextTimeout     uint32
	earliestTimeout uint32

	pingInterval   uint32
	timeoutLimit   uint32
	timeoutMinimum uint32
	timeoutMaximum uint32

	disconnectData uint32

	// UserData is application state attached to the peer; the engine
	// never reads it (spec.md §3 "eventData" is the protocol-level
	// analogue carried on the wire, this is purely local).
	UserData any

	log *logging.Logger
}

func newPeer(h *Host, slot uint16) *Peer {
	p := &Peer{
		host:           h,
		incomingPeerID: slot,
		state:          StateDisconnected,
		mtu:            h.mtu,
		windowSize:     wire.MinimumWindowSize,

		packetThrottle:             defaultPacketThrottle,
		packetThrottleLimit:        wire.PacketThrottleScale,
		packetThrottleInterval:     uint32(wire.DefaultThrottleInterval.Milliseconds()),
		packetThrottleAcceleration: defaultThrottleAcceleration,
		packetThrottleDeceleration: defaultThrottleDeceleration,

		pingInterval:   uint32(wire.PingInterval.Milliseconds()),
		timeoutLimit:   wire.TimeoutLimit,
		timeoutMinimum: uint32(wire.TimeoutMinimum.Milliseconds()),
		timeoutMaximum: uint32(wire.TimeoutMaximum.Milliseconds()),

		log: h.log.With("peer", slot),
	}
	return p
}

const (
	defaultPacketThrottle       = wire.PacketThrottleScale
	defaultThrottleAcceleration = 2
	defaultThrottleDeceleration = 2
)

// fragmentChunkSize returns the largest payload slice that fits in one
// command record for this peer's current MTU.
func (p *Peer) fragmentChunkSize(reliable bool) int {
	overhead := 4 /* datagram header w/ sentTime */ + wire.ChecksumSize + wire.CommandHeaderSize + 20 /* fragment trailing fields */
	size := int(p.mtu) - overhead
	if size < 64 {
		size = 64
	}
	_ = reliable
	return size
}

// Send queues packet for delivery to this peer on the given channel,
// per the reliability mode in packet.Flags (spec.md §6 peer_send).
// Ownership of packet is transferred to the engine: the caller must
// not touch it again after a successful call.
func (p *Peer) Send(channelID uint8, packet *Packet) error {
	if p.state != StateConnected && p.state != StateDisconnectLater {
		return ErrPeerNotConnected
	}
	if int(channelID) >= len(p.channels) {
		return fmt.Errorf("enet: channel %d out of range (have %d)", channelID, len(p.channels))
	}
	if uint32(len(packet.Data)) > p.host.maximumPacketSize {
		return ErrPacketTooLarge
	}

	reliable := packet.Flags&PacketReliable != 0
	unsequenced := packet.Flags&PacketUnsequenced != 0
	channel := &p.channels[channelID]
	chunk := p.fragmentChunkSize(reliable)

	switch {
	case unsequenced:
		if len(packet.Data) > chunk {
			return ErrPacketTooLarge
		}
		p.outgoingUnsequencedGroup++
		cmd := wire.Command{
			Header: wire.CommandHeader{
				Command:     wire.CommandSendUnsequenced,
				Unsequenced: true,
				ChannelID:   channelID,
			},
			UnsequencedGroup: p.outgoingUnsequencedGroup,
			Payload:          packet.Data,
		}
		p.queueOutgoingCommand(cmd, packet, 0, uint32(len(packet.Data)))

	case len(packet.Data) > chunk:
		p.queueFragmented(channel, channelID, packet, reliable, chunk)

	case reliable:
		channel.OutgoingReliableSequenceNumber++
		cmd := wire.Command{
			Header: wire.CommandHeader{
				Command:                wire.CommandSendReliable,
				Acknowledge:            true,
				ChannelID:              channelID,
				ReliableSequenceNumber: channel.OutgoingReliableSequenceNumber,
			},
			Payload: packet.Data,
		}
		p.queueOutgoingCommand(cmd, packet, 0, uint32(len(packet.Data)))

	default:
		channel.OutgoingUnreliableSequenceNumber++
		cmd := wire.Command{
			Header: wire.CommandHeader{
				Command:                wire.CommandSendUnreliable,
				ChannelID:              channelID,
				ReliableSequenceNumber: channel.OutgoingReliableSequenceNumber,
			},
			UnreliableSequenceNumber: channel.OutgoingUnreliableSequenceNumber,
			Payload:                  packet.Data,
		}
		p.queueOutgoingCommand(cmd, packet, 0, uint32(len(packet.Data)))
	}

	// The caller's reference is transferred to the queued command(s);
	// queueOutgoingCommand already retained one reference per command.
	packet.release()
	return nil
}

func (p *Peer) queueFragmented(channel *Channel, channelID uint8, packet *Packet, reliable bool, chunk int) {
	total := len(packet.Data)
	fragmentCount := uint32((total + chunk - 1) / chunk)

	commandType := byte(wire.CommandSendFragment)
	if !reliable {
		commandType = wire.CommandSendUnreliableFragment
	}

	var startSeq uint16
	if reliable {
		startSeq = channel.OutgoingReliableSequenceNumber + 1
	} else {
		channel.OutgoingUnreliableSequenceNumber++
		startSeq = channel.OutgoingUnreliableSequenceNumber
	}

	for i := uint32(0); i < fragmentCount; i++ {
		offset := int(i) * chunk
		length := chunk
		if offset+length > total {
			length = total - offset
		}

		header := wire.CommandHeader{
			Command:   commandType,
			ChannelID: channelID,
		}
		if reliable {
			channel.OutgoingReliableSequenceNumber++
			header.Acknowledge = true
			header.ReliableSequenceNumber = channel.OutgoingReliableSequenceNumber
		} else {
			header.ReliableSequenceNumber = channel.OutgoingReliableSequenceNumber
		}

		cmd := wire.Command{
			Header:              header,
			StartSequenceNumber: startSeq,
			FragmentCount:       fragmentCount,
			FragmentNumber:      i,
			TotalLength:         uint32(total),
			FragmentOffset:      uint32(offset),
			Payload:             packet.Data[offset : offset+length],
		}
		p.queueOutgoingCommand(cmd, packet, uint32(offset), uint32(length))
	}
}

// queueOutgoingCommand appends a new OutgoingCommand to outgoingCommands,
// retaining packet (if any) once and marking the owning channel's
// reliable window as in-use for ACKNOWLEDGE-flagged commands (spec.md
// §8, invariant 2).
func (p *Peer) queueOutgoingCommand(cmd wire.Command, packet *Packet, fragmentOffset, fragmentLength uint32) *OutgoingCommand {
	oc := &OutgoingCommand{command: cmd, fragmentOffset: fragmentOffset, fragmentLength: fragmentLength}
	if packet != nil {
		packet.retain()
		oc.packet = packet
	}
	p.outgoingCommands.PushBack(oc)
	if cmd.Header.Acknowledge && int(cmd.Header.ChannelID) < len(p.channels) {
		p.channels[cmd.Header.ChannelID].markWindowUsed(cmd.Header.ReliableSequenceNumber)
	}
	return oc
}

// Receive pulls the next fully-reassembled, in-order packet delivered
// to this peer, bypassing the host event queue (spec.md §6 peer_receive).
func (p *Peer) Receive() (packet *Packet, channelID uint8, ok bool) {
	ic := p.dispatchedCommands.PopFront()
	if ic == nil {
		return nil, 0, false
	}
	packet = ic.packet
	ic.packet = nil // ownership transfers to the caller
	return packet, ic.channelID, true
}

// Disconnect gracefully closes the connection: it discards every
// command still waiting in the outgoing queue, queues a reliable
// DISCONNECT and moves to StateDisconnecting; the Disconnect event
// follows once the remote acknowledges it (spec.md §4.2).
func (p *Peer) Disconnect(data uint32) {
	switch p.state {
	case StateDisconnected, StateDisconnecting, StateAcknowledgingDisconnect, StateZombie:
		return
	}
	p.dropQueuedSendCommands()
	p.state = StateDisconnecting
	cmd := wire.Command{
		Header: wire.CommandHeader{Command: wire.CommandDisconnect, Acknowledge: true, ChannelID: wire.ChannelIDNone},
		Data:   data,
	}
	p.queueOutgoingCommand(cmd, nil, 0, 0)
}

// DisconnectLater behaves like Disconnect once any already-queued
// reliable traffic has drained, and like an immediate Disconnect if
// nothing is queued (spec.md §4.2).
func (p *Peer) DisconnectLater(data uint32) {
	if p.state != StateConnected && p.state != StateDisconnectLater {
		return
	}
	if p.outgoingCommands.Empty() && p.sentReliableCommands.Empty() {
		p.Disconnect(data)
		return
	}
	p.state = StateDisconnectLater
	p.disconnectData = data
}

// DisconnectNow tears the connection down immediately with a best-effort
// unsequenced notice to the remote; no local Disconnect event fires.
func (p *Peer) DisconnectNow(data uint32) {
	if p.state == StateDisconnected {
		return
	}
	p.dropQueuedSendCommands()
	cmd := wire.Command{
		Header: wire.CommandHeader{Command: wire.CommandDisconnect, Unsequenced: true, ChannelID: wire.ChannelIDNone},
		Data:   data,
	}
	p.queueOutgoingCommand(cmd, nil, 0, 0)
	p.host.flushPeer(p)
	p.reset()
}

// Reset forcibly returns the peer to StateDisconnected with no
// notification sent to the remote.
func (p *Peer) Reset() { p.reset() }

func (p *Peer) dropQueuedSendCommands() {
	p.outgoingCommands.Each(func(c *OutgoingCommand) {
		p.unmarkWindowIfReliable(c)
		c.release()
	})
	p.outgoingCommands = list.List[OutgoingCommand]{}
	p.sentUnreliableCommands.Each(func(c *OutgoingCommand) { c.release() })
	p.sentUnreliableCommands = list.List[OutgoingCommand]{}
}

func (p *Peer) unmarkWindowIfReliable(c *OutgoingCommand) {
	if c.isReliable() && int(c.channelID()) < len(p.channels) {
		p.channels[c.channelID()].unmarkWindowUsed(c.reliableSequenceNumber())
	}
}

// reset returns the peer slot to StateDisconnected, releasing every
// packet referenced by its queues and clearing all connection state
// (spec.md §3 lifecycle, §5 "peer_reset").
func (p *Peer) reset() {
	if p.connectedAccounted {
		p.host.connectedPeers--
		p.connectedAccounted = false
	}

	p.outgoingCommands.Each(func(c *OutgoingCommand) { c.release() })
	p.sentReliableCommands.Each(func(c *OutgoingCommand) { c.release() })
	p.sentUnreliableCommands.Each(func(c *OutgoingCommand) { c.release() })
	p.acknowledgements.Each(func(*Acknowledgement) {})
	p.dispatchedCommands.Each(func(c *IncomingCommand) { c.release() })
	for i := range p.channels {
		p.channels[i].IncomingReliableCommands.Each(func(c *IncomingCommand) { c.release() })
		p.channels[i].IncomingUnreliableCommands.Each(func(c *IncomingCommand) { c.release() })
	}

	if p.needsDispatch {
		p.host.dispatchQueue.Remove(p)
		p.needsDispatch = false
	}

	*p = Peer{
		host:           p.host,
		incomingPeerID: p.incomingPeerID,
		state:          StateDisconnected,
		mtu:            p.host.mtu,
		windowSize:     wire.MinimumWindowSize,

		packetThrottle:             defaultPacketThrottle,
		packetThrottleLimit:        wire.PacketThrottleScale,
		packetThrottleInterval:     uint32(wire.DefaultThrottleInterval.Milliseconds()),
		packetThrottleAcceleration: defaultThrottleAcceleration,
		packetThrottleDeceleration: defaultThrottleDeceleration,

		pingInterval:   uint32(wire.PingInterval.Milliseconds()),
		timeoutLimit:   wire.TimeoutLimit,
		timeoutMinimum: uint32(wire.TimeoutMinimum.Milliseconds()),
		timeoutMaximum: uint32(wire.TimeoutMaximum.Milliseconds()),

		log: p.log,
	}
}

// PingInterval overrides how often an otherwise-idle connection to this
// peer sends a PING to keep the connection and RTT estimate alive.
func (p *Peer) PingInterval(interval uint32) { p.pingInterval = interval }

// Timeout configures the peer's timeout model (spec.md §4.6): limit is
// how many times one reliable command may be sent before the peer is
// dropped, and maximum is how long, in milliseconds, the peer may go
// without receiving anything. minimum is stored but not consulted by
// the timeout checks.
func (p *Peer) Timeout(limit, minimum, maximum uint32) {
	p.timeoutLimit, p.timeoutMinimum, p.timeoutMaximum = limit, minimum, maximum
}

// ThrottleConfigure adopts new throttle parameters locally and informs
// the remote via a reliable THROTTLE_CONFIGURE command (spec.md §4.5,
// §6 peer_throttle_configure).
func (p *Peer) ThrottleConfigure(interval, acceleration, deceleration uint32) {
	p.packetThrottleInterval = interval
	p.packetThrottleAcceleration = acceleration
	p.packetThrottleDeceleration = deceleration

	cmd := wire.Command{
		Header:               wire.CommandHeader{Command: wire.CommandThrottleConfigure, Acknowledge: true, ChannelID: wire.ChannelIDNone},
		ThrottleInterval:     interval,
		ThrottleAcceleration: acceleration,
		ThrottleDeceleration: deceleration,
	}
	p.queueOutgoingCommand(cmd, nil, 0, 0)
}

func (p *Peer) markNeedsDispatch() {
	if !p.needsDispatch {
		p.needsDispatch = true
		p.host.dispatchQueue.PushBack(p)
	}
}

// updateRoundTripTime folds one ack-derived RTT sample into the
// exponentially smoothed estimator and adjusts the throttle (spec.md
// §4.5).
func (p *Peer) updateRoundTripTime(measured uint32) {
	if !p.hasRTTSample {
		p.hasRTTSample = true
		p.roundTripTime = measured
		p.roundTripTimeVariance = measured / 2
	} else {
		diff := int64(measured) - int64(p.roundTripTime)
		absDiff := diff
		if absDiff < 0 {
			absDiff = -absDiff
		}
		p.roundTripTimeVariance += uint32(absDiff)/4 - p.roundTripTimeVariance/4
		p.roundTripTime = uint32(int64(p.roundTripTime) + diff/8)
	}

	if p.lowestRoundTripTime == 0 || p.roundTripTime < p.lowestRoundTripTime {
		p.lowestRoundTripTime = p.roundTripTime
	}
	if p.roundTripTimeVariance > p.highestRoundTripTimeVariance {
		p.highestRoundTripTimeVariance = p.roundTripTimeVariance
	}

	if measured <= p.lastRoundTripTime {
		p.packetThrottle += p.packetThrottleAcceleration
		if p.packetThrottle > p.packetThrottleLimit {
			p.packetThrottle = p.packetThrottleLimit
		}
	} else if measured > p.lastRoundTripTime+2*p.lastRoundTripTimeVariance {
		if p.packetThrottle > p.packetThrottleDeceleration {
			p.packetThrottle -= p.packetThrottleDeceleration
		} else {
			p.packetThrottle = 0
		}
	}

	if p.host.metrics != nil {
		p.host.metrics.RoundTripTime.Observe(float64(p.roundTripTime) / 1000.0)
	}
}

// State returns the peer's current position in the connection
// lifecycle.
func (p *Peer) State() PeerState { return p.state }

// EventData returns the 32-bit data value of this connection: on the
// accepting side, the value the remote attached to its CONNECT; on the
// connecting side, the value passed to Host.Connect. DISCONNECT data is
// reported in the Disconnect event's Data field instead.
func (p *Peer) EventData() uint32 { return p.eventData }

// ChannelCount returns the number of channels negotiated for this
// connection.
func (p *Peer) ChannelCount() int { return len(p.channels) }

// RoundTripTime returns the current smoothed RTT estimate in
// milliseconds.
func (p *Peer) RoundTripTime() uint32 { return p.roundTripTime }

// rolloverThrottleInterval latches this interval's extremes as the
// "last" values compared against for future samples (spec.md §4.5).
func (p *Peer) rolloverThrottleInterval(now uint32) {
	p.lastRoundTripTime = p.lowestRoundTripTime
	p.lastRoundTripTimeVariance = p.highestRoundTripTimeVariance
	p.lowestRoundTripTime = 0
	p.highestRoundTripTimeVariance = 0
	p.packetThrottleEpoch = now
}
