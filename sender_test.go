package enet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goenet/wire"
)

func TestSendWindowWrapStopsAllFurtherReliableSends(t *testing.T) {
	h := newTestHost(t, 1, 1)
	p := connectedPeer(t, h, 1)
	p.Address = &net.UDPAddr{Port: 1}

	ch := &p.channels[0]
	startSeq := uint16(wire.ReliableWindowSize)
	window := reliableWindow(startSeq)
	prev := (window + wire.ReliableWindows - 1) % wire.ReliableWindows
	ch.ReliableWindows[prev] = wire.ReliableWindowSize

	p.queueOutgoingCommand(wire.Command{
		Header:  wire.CommandHeader{Command: wire.CommandSendReliable, Acknowledge: true, ChannelID: 0, ReliableSequenceNumber: startSeq},
		Payload: []byte("a"),
	}, nil, 0, 1)
	p.queueOutgoingCommand(wire.Command{
		Header:  wire.CommandHeader{Command: wire.CommandSendReliable, Acknowledge: true, ChannelID: 0, ReliableSequenceNumber: startSeq + 1},
		Payload: []byte("b"),
	}, nil, 0, 1)

	h.sendDatagrams(p)

	assert.Equal(t, 2, p.outgoingCommands.Len(), "a saturated predecessor window must stall every reliable send this flush")
	assert.Equal(t, 0, p.sentReliableCommands.Len())
}

func TestCongestionWindowMTUFloorAllowsSendDespiteLowThrottle(t *testing.T) {
	h := newTestHost(t, 1, 1)
	p := connectedPeer(t, h, 1)
	p.Address = &net.UDPAddr{Port: 1}
	p.packetThrottle = 1
	p.windowSize = wire.MinimumWindowSize

	require.NoError(t, p.Send(0, NewPacket(make([]byte, 500), PacketReliable)))

	h.sendDatagrams(p)

	assert.Equal(t, 0, p.outgoingCommands.Len(), "the mtu floor must still allow one in-flight send")
	assert.Equal(t, 1, p.sentReliableCommands.Len())
}
