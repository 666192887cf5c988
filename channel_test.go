package enet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goenet/wire"
)

func TestReliableWindowIndex(t *testing.T) {
	assert.EqualValues(t, 0, reliableWindow(0))
	assert.EqualValues(t, 0, reliableWindow(wire.ReliableWindowSize-1))
	assert.EqualValues(t, 1, reliableWindow(wire.ReliableWindowSize))
}

func TestMarkAndUnmarkWindowUsed(t *testing.T) {
	ch := &newChannels(1)[0]
	ch.markWindowUsed(10)
	ch.markWindowUsed(10)
	ch.markWindowUsed(wire.ReliableWindowSize + 5)

	assert.EqualValues(t, 2, ch.ReliableWindows[0])
	assert.EqualValues(t, 1, ch.ReliableWindows[1])
	assert.NotZero(t, ch.UsedReliableWindows&1)
	assert.NotZero(t, ch.UsedReliableWindows&2)

	ch.unmarkWindowUsed(10)
	assert.EqualValues(t, 1, ch.ReliableWindows[0])
	assert.NotZero(t, ch.UsedReliableWindows&1, "window still has one outstanding command")

	ch.unmarkWindowUsed(10)
	assert.EqualValues(t, 0, ch.ReliableWindows[0])
	assert.Zero(t, ch.UsedReliableWindows&1, "window bit clears once its count hits zero")
}

func TestUnmarkWindowUsedNeverUnderflows(t *testing.T) {
	ch := &newChannels(1)[0]
	ch.unmarkWindowUsed(0)
	assert.EqualValues(t, 0, ch.ReliableWindows[0])
}

func TestAcceptsReliableWindowAcceptsCurrentAndNearFuture(t *testing.T) {
	ch := &newChannels(1)[0]
	ch.IncomingReliableSequenceNumber = wire.ReliableWindowSize * 3

	assert.True(t, ch.acceptsReliableWindow(wire.ReliableWindowSize*3))
	assert.True(t, ch.acceptsReliableWindow(wire.ReliableWindowSize*4))
}

func TestAcceptsReliableWindowRejectsFarFutureSequence(t *testing.T) {
	ch := &newChannels(1)[0]
	ch.IncomingReliableSequenceNumber = 0

	// wire.FreeReliableWindows+4 windows ahead is well past what the
	// channel currently accepts; this must be dropped, not buffered.
	farFuture := uint16(wire.ReliableWindowSize * (wire.FreeReliableWindows + 4))
	assert.False(t, ch.acceptsReliableWindow(farFuture))
}

func TestWindowWrappedDetectsSaturatedWindow(t *testing.T) {
	ch := &newChannels(1)[0]
	window := reliableWindow(wire.ReliableWindowSize * 2)
	prev := (window + wire.ReliableWindows - 1) % wire.ReliableWindows
	ch.ReliableWindows[prev] = wire.ReliableWindowSize

	assert.True(t, ch.windowWrapped(window))
}

func TestWindowWrappedFalseWhenNothingOutstanding(t *testing.T) {
	ch := &newChannels(1)[0]
	assert.False(t, ch.windowWrapped(reliableWindow(0)))
}
