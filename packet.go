package enet

// PacketFlag controls a Packet's delivery mode and ownership (spec.md
// §3, §6).
type PacketFlag uint32

const (
	// PacketReliable requests reliable, ordered delivery on its channel.
	PacketReliable PacketFlag = 1 << iota
	// PacketUnsequenced bypasses per-channel sequencing entirely and is
	// deduplicated via the peer's unsequenced window instead.
	PacketUnsequenced
	// PacketNoAllocate marks Data as borrowed: NewPacket keeps it by
	// reference instead of copying it and the engine never frees it, so
	// the caller must keep it alive until the packet's reference count
	// reaches zero. Broadcast gives each peer its own copy.
	PacketNoAllocate
	// packetUnreliableFragment names the flag for fragments of an
	// unreliable message; the engine does not set it.
	packetUnreliableFragment
	// packetSent names the flag for a packet whose bytes have been
	// handed to the socket; the engine does not set it.
	packetSent
)

// FreeCallback is invoked when a Packet's reference count drops to
// zero, letting the caller reclaim externally-owned storage (spec.md
// §3, §9 "reference-counted packets with possible external free").
type FreeCallback func(p *Packet)

// Packet is the application payload model described in spec.md §3: a
// byte buffer shared by reference count between outgoing/incoming
// command queues and the application, released (and its FreeCallback
// invoked, if any) once nothing references it any longer.
type Packet struct {
	Data         []byte
	Flags        PacketFlag
	refCount     int
	freeCallback FreeCallback
}

// NewPacket copies data (unless flags includes PacketNoAllocate, in
// which case data is retained by reference) into a new Packet with a
// reference count of one, held by the caller.
func NewPacket(data []byte, flags PacketFlag) *Packet {
	p := &Packet{Flags: flags, refCount: 1}
	if flags&PacketNoAllocate != 0 {
		p.Data = data
	} else {
		p.Data = append([]byte(nil), data...)
	}
	return p
}

// NewPacketWithFree is NewPacket plus a callback run when the packet is
// fully released; typically paired with PacketNoAllocate so the caller
// learns when it may reuse or free the backing buffer.
func NewPacketWithFree(data []byte, flags PacketFlag, free FreeCallback) *Packet {
	p := NewPacket(data, flags)
	p.freeCallback = free
	return p
}

func (p *Packet) retain() { p.refCount++ }

// release decrements the reference count and, if it reaches zero, runs
// the free callback (if any). Per spec.md §5 this only ever runs on
// the host's single service thread.
func (p *Packet) release() {
	p.refCount--
	if p.refCount <= 0 && p.freeCallback != nil {
		p.freeCallback(p)
	}
}

// ReferenceCount reports how many queue entries plus the application
// currently hold this packet (spec.md §8, testable invariant 1).
func (p *Packet) ReferenceCount() int { return p.refCount }
