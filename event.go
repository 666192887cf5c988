package enet

// EventType is the kind of notification Host.CheckEvents returns
// (spec.md §4.12, §6).
type EventType int

const (
	EventNone EventType = iota
	EventConnect
	EventDisconnect
	EventReceive
)

// Event is a single notification drained from a Host's dispatch queue.
type Event struct {
	Type      EventType
	Peer      *Peer
	ChannelID uint8
	Data      uint32
	Packet    *Packet
}

// CheckEvents pops and returns the next pending event without touching
// the network (spec.md §4.12 host_check_events). It never blocks. The
// second return value is false once the dispatch queue is empty.
func (h *Host) CheckEvents() (Event, bool) {
	for {
		p := h.dispatchQueue.PopFront()
		if p == nil {
			return Event{}, false
		}
		p.needsDispatch = false

		switch p.state {
		case StateConnectionPending, StateConnectionSucceeded:
			p.state = StateConnected
			h.connectedPeers++
			p.connectedAccounted = true
			if h.metrics != nil {
				h.metrics.ConnectedPeers.Inc()
			}
			return Event{Type: EventConnect, Peer: p}, true

		case StateZombie:
			data := p.disconnectData
			wasConnected := p.connectedAccounted
			p.reset()
			if wasConnected && h.metrics != nil {
				h.metrics.ConnectedPeers.Dec()
			}
			return Event{Type: EventDisconnect, Peer: p, Data: data}, true

		default:
			ic := p.dispatchedCommands.PopFront()
			if ic == nil {
				continue // stale dispatch entry; nothing left to report
			}
			if !p.dispatchedCommands.Empty() {
				p.markNeedsDispatch()
			}
			pkt := ic.packet
			ic.packet = nil
			return Event{Type: EventReceive, Peer: p, ChannelID: ic.channelID, Packet: pkt}, true
		}
	}
}
