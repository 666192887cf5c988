package enet

import (
	"fmt"
	"net"
	"time"

	"goenet/internal/list"
	"goenet/internal/logging"
	"goenet/metrics"
	"goenet/wire"
)

// HostConfig configures a Host at construction time (spec.md §6 host_create).
type HostConfig struct {
	// Address is the local address to bind. A nil Address creates no
	// socket at all: the Host runs its protocol logic but sends and
	// receives no datagrams.
	Address *net.UDPAddr

	PeerCount    int
	ChannelLimit int

	IncomingBandwidth uint32 // bytes/sec, 0 = unlimited
	OutgoingBandwidth uint32

	MTU uint32 // 0 = wire.DefaultMTU

	Compressor Compressor
	Checksum   wire.ChecksumFunc // nil disables the checksum word

	RandomSource RandomSource
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// Host owns one UDP socket and up to PeerCount simultaneous Peer
// connections (spec.md §3/§4.1).
type Host struct {
	conn *net.UDPConn

	peers   []*Peer
	address *net.UDPAddr

	channelLimit int

	incomingBandwidth uint32
	outgoingBandwidth uint32

	bandwidthThrottleEpoch uint32

	mtu                uint32
	maximumPacketSize  uint32
	maximumWaitingData uint32

	compressor Compressor
	checksum   wire.ChecksumFunc
	random     RandomSource

	connectedPeers int

	serviceTime uint32 // milliseconds, monotonic from startTime
	startTime   time.Time

	dispatchQueue list.List[Peer]

	recvBuf [wire.MaximumMTU]byte

	closed bool

	log     *logging.Logger
	metrics *metrics.Metrics
}

const (
	defaultMaximumWaitingData = 32 * 1024 * 1024
)

// NewHost binds (if cfg.Address is set) a UDP socket and allocates
// cfg.PeerCount peer slots (spec.md §6 host_create).
func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.PeerCount <= 0 || cfg.PeerCount > int(wire.MaximumPeerID) {
		return nil, ErrInvalidPeerCount
	}
	channelLimit := cfg.ChannelLimit
	if channelLimit <= 0 {
		channelLimit = wire.MaximumChannelCount
	}
	if channelLimit < wire.MinimumChannelCount || channelLimit > wire.MaximumChannelCount {
		return nil, ErrInvalidChannelCount
	}

	mtu := cfg.MTU
	if mtu == 0 {
		mtu = wire.DefaultMTU
	}
	if mtu < wire.MinimumMTU {
		mtu = wire.MinimumMTU
	}
	if mtu > wire.MaximumMTU {
		mtu = wire.MaximumMTU
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	var conn *net.UDPConn
	if cfg.Address != nil {
		c, err := net.ListenUDP("udp", cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("enet: bind: %w", err)
		}
		conn = c
	}

	random := cfg.RandomSource
	if random == nil {
		random = defaultRandomSource
	}

	h := &Host{
		conn:               conn,
		address:            cfg.Address,
		channelLimit:       channelLimit,
		incomingBandwidth:  cfg.IncomingBandwidth,
		outgoingBandwidth:  cfg.OutgoingBandwidth,
		mtu:                mtu,
		maximumPacketSize:  32 * 1024 * 1024,
		maximumWaitingData: defaultMaximumWaitingData,
		compressor:         cfg.Compressor,
		checksum:           cfg.Checksum,
		random:             random,
		startTime:          timeNow(),
		log:                log,
		metrics:            cfg.Metrics,
	}

	h.peers = make([]*Peer, cfg.PeerCount)
	for i := range h.peers {
		h.peers[i] = newPeer(h, uint16(i))
	}

	return h, nil
}

// timeNow is a seam so tests can avoid depending on wall-clock
// granularity; production code always calls time.Now.
var timeNow = time.Now

func (h *Host) now() uint32 {
	return uint32(timeNow().Sub(h.startTime).Milliseconds())
}

// Connect begins connecting to a remote host on the given number of
// channels (spec.md §6 host_connect). It returns the allocated peer
// slot immediately; completion is reported via a Connect event once
// the handshake finishes.
func (h *Host) Connect(addr *net.UDPAddr, channelCount int, data uint32) (*Peer, error) {
	if channelCount <= 0 {
		channelCount = wire.MinimumChannelCount
	}
	if channelCount > h.channelLimit {
		channelCount = h.channelLimit
	}

	p := h.allocatePeer()
	if p == nil {
		return nil, ErrHostFull
	}

	p.Address = addr
	p.channels = newChannels(channelCount)
	p.outgoingSessionID = 0xFF
	p.incomingSessionID = 0xFF
	p.connectID = h.random.Uint32()
	p.outgoingPeerID = wire.NoPeer
	p.state = StateConnecting
	p.eventData = data

	cmd := wire.Command{
		Header: wire.CommandHeader{Command: wire.CommandConnect, Acknowledge: true, ChannelID: wire.ChannelIDNone},
		OutgoingPeerID:       p.incomingPeerID,
		IncomingSessionID:    p.incomingSessionID,
		OutgoingSessionID:    p.outgoingSessionID,
		MTU:                  p.mtu,
		WindowSize:           p.windowSize,
		ChannelCount:         uint32(channelCount),
		IncomingBandwidth:    h.incomingBandwidth,
		OutgoingBandwidth:    h.outgoingBandwidth,
		ThrottleInterval:     p.packetThrottleInterval,
		ThrottleAcceleration: p.packetThrottleAcceleration,
		ThrottleDeceleration: p.packetThrottleDeceleration,
		ConnectID:            p.connectID,
		Data:                 data,
	}
	p.queueOutgoingCommand(cmd, nil, 0, 0)

	return p, nil
}

func (h *Host) allocatePeer() *Peer {
	for _, p := range h.peers {
		if p.state == StateDisconnected {
			return p
		}
	}
	return nil
}

// Broadcast queues packet for delivery to every connected peer on the
// given channel (spec.md §6 host_broadcast).
func (h *Host) Broadcast(channelID uint8, packet *Packet) {
	for _, p := range h.peers {
		if p.state != StateConnected {
			continue
		}
		clone := NewPacket(packet.Data, packet.Flags&^PacketNoAllocate)
		_ = p.Send(channelID, clone)
	}
	packet.release()
}

// Flush sends every datagram currently queued for any peer without
// waiting for the next Service tick (spec.md §6 host_flush).
// DisconnectNow does the same for its single peer via flushPeer, so its
// disconnect notification is not stranded in the outgoing queue.
func (h *Host) Flush() {
	h.serviceTime = h.now()
	h.flushOutgoing()
}

// SetCompressor installs (or, with a nil Compressor, removes) the
// datagram body codec used by every future send/receive (spec.md §6
// host_compress).
func (h *Host) SetCompressor(c Compressor) {
	h.compressor = c
}

// SetChannelLimit bounds how many channels future incoming CONNECTs
// may request (spec.md §6 host_channel_limit).
func (h *Host) SetChannelLimit(limit int) {
	if limit <= 0 || limit > wire.MaximumChannelCount {
		limit = wire.MaximumChannelCount
	}
	h.channelLimit = limit
}

// SetBandwidthLimit updates the host-wide bandwidth caps enforced by
// the throttle pass (spec.md §4.8).
func (h *Host) SetBandwidthLimit(incoming, outgoing uint32) {
	h.incomingBandwidth = incoming
	h.outgoingBandwidth = outgoing
	h.bandwidthThrottleEpoch = 0
}

// Peers returns every allocated peer slot, connected or not.
func (h *Host) Peers() []*Peer { return h.peers }

// Close releases the socket. Connected peers are not notified; call
// Peer.Disconnect on each first for a graceful shutdown.
func (h *Host) Close() error {
	h.closed = true
	if h.conn != nil {
		return h.conn.Close()
	}
	return nil
}

// Service advances protocol time by one tick: it reads any pending
// datagrams, runs retransmission/timeout/throttle bookkeeping, and
// flushes queued outgoing commands (spec.md §4.12 host_service). It
// does not block: each socket read uses an immediate deadline, and
// reading stops once nothing more is pending.
func (h *Host) Service() error {
	if h.closed {
		return ErrHostClosed
	}
	h.serviceTime = h.now()

	if err := h.receiveIncoming(); err != nil {
		return err
	}
	h.checkTimeouts()
	h.applyBandwidthThrottle()
	h.flushOutgoing()
	return nil
}

// Run calls Service once per tick and drains CheckEvents, dispatching
// each Event to the matching callback. It returns Service's error
// (ErrHostClosed once the host has been closed), or nil when the host
// is closed from inside a callback. It is sugar over the
// poll-based API, adapted from the convenience-wrapper pattern the
// rest of this codebase uses for one-shot registration.
func (h *Host) Run(onConnect func(*Peer), onDisconnect func(*Peer, uint32), onReceive func(*Peer, uint8, *Packet), tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for range ticker.C {
		if err := h.Service(); err != nil {
			return err
		}
		for {
			ev, ok := h.CheckEvents()
			if !ok {
				break
			}
			switch ev.Type {
			case EventConnect:
				if onConnect != nil {
					onConnect(ev.Peer)
				}
			case EventDisconnect:
				if onDisconnect != nil {
					onDisconnect(ev.Peer, ev.Data)
				}
			case EventReceive:
				if onReceive != nil {
					onReceive(ev.Peer, ev.ChannelID, ev.Packet)
				}
			}
		}
		if h.closed {
			return nil
		}
	}
	return nil
}

func (h *Host) flushPeer(p *Peer) {
	h.sendDatagrams(p)
}
