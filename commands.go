package enet

import (
	"goenet/internal/list"
	"goenet/wire"
)

// OutgoingCommand is a queued command awaiting transmission (spec.md
// §3). It embeds list.Node so it can live on exactly one of a peer's
// outgoingCommands / sentReliableCommands / sentUnreliableCommands
// queues at a time.
type OutgoingCommand struct {
	list.Node[OutgoingCommand]

	command wire.Command
	packet  *Packet

	fragmentOffset uint32
	fragmentLength uint32

	sendAttempts uint16
	sentTime     uint32 // host.serviceTime at last transmission

	roundTripTimeout      uint32
	roundTripTimeoutLimit uint32
}

func (c *OutgoingCommand) reliableSequenceNumber() uint16 {
	return c.command.Header.ReliableSequenceNumber
}

func (c *OutgoingCommand) channelID() uint8 { return c.command.Header.ChannelID }

func (c *OutgoingCommand) isReliable() bool { return c.command.Header.Acknowledge }

func (c *OutgoingCommand) release() {
	if c.packet != nil {
		c.packet.release()
		c.packet = nil
	}
}

// IncomingCommand is a received-but-not-yet-dispatched command (spec.md
// §3): buffered while its sequence position or fragments are
// incomplete, or while waiting in a peer's dispatch queue for delivery
// to the application.
type IncomingCommand struct {
	list.Node[IncomingCommand]

	reliableSequenceNumber   uint16
	unreliableSequenceNumber uint16
	channelID                uint8
	command                  wire.CommandHeader
	packet                   *Packet

	fragmentCount      uint32
	fragmentsRemaining uint32
	fragments          []uint32 // bitmap, ceil(fragmentCount/32) words

	startSequenceNumber uint16 // for matching UNRELIABLE_FRAGMENT siblings
}

func (c *IncomingCommand) release() {
	if c.packet != nil {
		c.packet.release()
		c.packet = nil
	}
}

func fragmentBitmapWords(fragmentCount uint32) int {
	return int((fragmentCount + 31) / 32)
}

func (c *IncomingCommand) fragmentReceived(index uint32) bool {
	word := index / 32
	bit := uint32(1) << (index % 32)
	return c.fragments[word]&bit != 0
}

func (c *IncomingCommand) markFragmentReceived(index uint32) {
	word := index / 32
	bit := uint32(1) << (index % 32)
	c.fragments[word] |= bit
}

// Acknowledgement is a deferred ACK record (spec.md §3): the reliable
// sequence number and channel being acked, and the sender's echoed
// sentTime.
type Acknowledgement struct {
	list.Node[Acknowledgement]

	channelID              uint8
	reliableSequenceNumber uint16
	sentTime               uint16
}
