package enet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T, peerCount, channelCount int) *Host {
	t.Helper()
	h, err := NewHost(HostConfig{PeerCount: peerCount, ChannelLimit: channelCount})
	require.NoError(t, err)
	return h
}

func connectedPeer(t *testing.T, h *Host, channelCount int) *Peer {
	t.Helper()
	p := h.peers[0]
	p.state = StateConnected
	p.channels = newChannels(channelCount)
	p.connectedAccounted = true
	h.connectedPeers++
	return p
}

func TestSendRejectsDisconnectedPeer(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := h.peers[0]
	err := p.Send(0, NewPacket([]byte("hi"), 0))
	assert.ErrorIs(t, err, ErrPeerNotConnected)
}

func TestSendRejectsInvalidChannel(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	err := p.Send(5, NewPacket([]byte("hi"), 0))
	assert.Error(t, err)
}

func TestSendRejectsOversizedPacket(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	h.maximumPacketSize = 4
	err := p.Send(0, NewPacket([]byte("too big"), 0))
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

func TestSendReliableQueuesOneCommandAndAdvancesSequence(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	pkt := NewPacket([]byte("hello"), PacketReliable)
	require.NoError(t, p.Send(0, pkt))

	require.Equal(t, 1, p.outgoingCommands.Len())
	oc := p.outgoingCommands.Front()
	assert.True(t, oc.isReliable())
	assert.EqualValues(t, 0, oc.channelID())
	assert.EqualValues(t, 1, p.channels[0].OutgoingReliableSequenceNumber)
	assert.EqualValues(t, 1, p.channels[0].ReliableWindows[0])
}

func TestSendOwnershipTransferLeavesSingleQueuedReference(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	pkt := NewPacket([]byte("hello"), PacketReliable)
	require.NoError(t, p.Send(0, pkt))

	assert.Equal(t, 1, pkt.ReferenceCount(), "refcount should equal the single queued reference")
}

func TestSendFragmentsOversizedPayload(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	p.mtu = 600

	big := make([]byte, 4000)
	for i := range big {
		big[i] = byte(i)
	}
	pkt := NewPacket(big, PacketReliable)
	require.NoError(t, p.Send(0, pkt))

	assert.Greater(t, p.outgoingCommands.Len(), 1)
	assert.Equal(t, p.outgoingCommands.Len(), pkt.ReferenceCount())

	var total int
	p.outgoingCommands.Each(func(oc *OutgoingCommand) {
		total += len(oc.command.Payload)
	})
	assert.Equal(t, len(big), total)
}

func TestSendUnsequencedDoesNotTouchChannelSequence(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	require.NoError(t, p.Send(0, NewPacket([]byte("x"), PacketUnsequenced)))
	assert.EqualValues(t, 0, p.channels[0].OutgoingReliableSequenceNumber)
	assert.EqualValues(t, 1, p.outgoingUnsequencedGroup)
}

func TestDisconnectMovesToDisconnectingAndQueuesCommand(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	p.Disconnect(7)
	assert.Equal(t, StateDisconnecting, p.State())
	require.Equal(t, 1, p.outgoingCommands.Len())
}

func TestDisconnectLaterWaitsForQueueToDrain(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	require.NoError(t, p.Send(0, NewPacket([]byte("x"), PacketReliable)))

	p.DisconnectLater(1)
	assert.Equal(t, StateDisconnectLater, p.State())
}

func TestDisconnectLaterWithNothingQueuedDisconnectsImmediately(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	p.DisconnectLater(1)
	assert.Equal(t, StateDisconnecting, p.State())
}

func TestResetReturnsToDisconnectedAndReleasesPackets(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	pkt := NewPacket([]byte("x"), PacketReliable)
	require.NoError(t, p.Send(0, pkt))

	p.Reset()
	assert.Equal(t, StateDisconnected, p.State())
	assert.Equal(t, 0, p.outgoingCommands.Len())
	assert.Equal(t, 0, pkt.ReferenceCount(), "the queued reference must be released")
	assert.Equal(t, 0, h.connectedPeers)
}

func TestThrottleConfigureQueuesReliableCommand(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	p.ThrottleConfigure(1000, 4, 4)
	assert.EqualValues(t, 1000, p.packetThrottleInterval)
	require.Equal(t, 1, p.outgoingCommands.Len())
	assert.True(t, p.outgoingCommands.Front().isReliable())
}

func TestUpdateRoundTripTimeFirstSampleSeedsEstimator(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)

	p.updateRoundTripTime(100)
	assert.EqualValues(t, 100, p.roundTripTime)
	assert.True(t, p.hasRTTSample)
}

func TestUpdateRoundTripTimeAcceleratesOnFastAck(t *testing.T) {
	h := newTestHost(t, 1, 2)
	p := connectedPeer(t, h, 2)
	p.lastRoundTripTime = 200
	p.packetThrottle = 10
	p.packetThrottleLimit = 32
	p.packetThrottleAcceleration = 2

	p.updateRoundTripTime(50)
	assert.EqualValues(t, 12, p.packetThrottle)
}
