package enet

import "goenet/wire"

// fragmentAssembly buffers the pieces of a single SEND_FRAGMENT or
// SEND_UNRELIABLE_FRAGMENT message until every fragment has arrived
// (spec.md §4.4 "reassembly").
type fragmentAssembly struct {
	reliable            bool
	startSequenceNumber uint16
	totalLength         uint32
	fragmentCount       uint32
	fragmentsRemaining  uint32
	bitmap              []uint32
	data                []byte
}

func newFragmentAssembly(cmd wire.Command, reliable bool) *fragmentAssembly {
	return &fragmentAssembly{
		reliable:            reliable,
		startSequenceNumber: cmd.StartSequenceNumber,
		totalLength:         cmd.TotalLength,
		fragmentCount:       cmd.FragmentCount,
		fragmentsRemaining:  cmd.FragmentCount,
		bitmap:              make([]uint32, fragmentBitmapWords(cmd.FragmentCount)),
		data:                make([]byte, cmd.TotalLength),
	}
}

func (f *fragmentAssembly) received(index uint32) bool {
	word, bit := index/32, uint32(1)<<(index%32)
	return f.bitmap[word]&bit != 0
}

func (f *fragmentAssembly) markReceived(index uint32) {
	word, bit := index/32, uint32(1)<<(index%32)
	f.bitmap[word] |= bit
}

func (c *Channel) findFragmentAssembly(reliable bool, startSeq uint16) *fragmentAssembly {
	for _, f := range c.incomingFragments {
		if f.reliable == reliable && f.startSequenceNumber == startSeq {
			return f
		}
	}
	return nil
}

func (c *Channel) removeFragmentAssembly(target *fragmentAssembly) {
	for i, f := range c.incomingFragments {
		if f == target {
			c.incomingFragments = append(c.incomingFragments[:i], c.incomingFragments[i+1:]...)
			return
		}
	}
}

// handleSendFragment accumulates one fragment of a multi-fragment
// message and, once complete, hands the reassembled packet to the
// same ordering path a non-fragmented SEND_RELIABLE/SEND_UNRELIABLE
// would take.
func (h *Host) handleSendFragment(p *Peer, cmd wire.Command) bool {
	if int(cmd.Header.ChannelID) >= len(p.channels) {
		return false
	}
	channel := &p.channels[cmd.Header.ChannelID]
	reliable := cmd.Header.Command == wire.CommandSendFragment

	// The reliable path windows on the fragment's own start sequence;
	// the unreliable path carries its channel position in the generic
	// command header instead (spec.md §4.3, §4.4).
	windowSeq := cmd.Header.ReliableSequenceNumber
	if reliable {
		windowSeq = cmd.StartSequenceNumber
	}
	if !channel.acceptsReliableWindow(windowSeq) {
		return false
	}

	if reliable && !sequenceGreater(cmd.StartSequenceNumber+uint16(cmd.FragmentCount)-1, channel.IncomingReliableSequenceNumber) {
		return false
	}

	fa := channel.findFragmentAssembly(reliable, cmd.StartSequenceNumber)
	if fa == nil {
		if cmd.FragmentCount == 0 || cmd.FragmentCount > wire.MaximumFragmentCount || cmd.TotalLength > h.maximumPacketSize {
			return false
		}
		fa = newFragmentAssembly(cmd, reliable)
		channel.incomingFragments = append(channel.incomingFragments, fa)
	}
	if cmd.FragmentNumber >= fa.fragmentCount || fa.received(cmd.FragmentNumber) {
		return true
	}
	end := cmd.FragmentOffset + uint32(len(cmd.Payload))
	if end > uint32(len(fa.data)) {
		return false
	}
	copy(fa.data[cmd.FragmentOffset:end], cmd.Payload)
	fa.markReceived(cmd.FragmentNumber)
	fa.fragmentsRemaining--
	if fa.fragmentsRemaining != 0 {
		return true
	}

	channel.removeFragmentAssembly(fa)
	packet := NewPacket(fa.data, PacketNoAllocate)

	if reliable {
		ic := &IncomingCommand{
			reliableSequenceNumber: fa.startSequenceNumber,
			channelID:              cmd.Header.ChannelID,
			fragmentCount:          fa.fragmentCount,
			packet:                 packet,
		}
		h.insertIncomingReliable(p, channel, ic)
		h.dispatchReadyReliable(p, channel)
	} else {
		h.dispatchUnreliable(p, channel, cmd.Header.ChannelID, fa.startSequenceNumber, packet)
	}
	return true
}
