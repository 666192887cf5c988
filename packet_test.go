package enet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacketCopiesDataByDefault(t *testing.T) {
	data := []byte("hello")
	p := NewPacket(data, 0)
	data[0] = 'X'
	assert.Equal(t, "hello", string(p.Data), "packet must not alias the caller's buffer")
	assert.Equal(t, 1, p.ReferenceCount())
}

func TestNewPacketNoAllocateAliasesBuffer(t *testing.T) {
	data := []byte("hello")
	p := NewPacket(data, PacketNoAllocate)
	data[0] = 'X'
	assert.Equal(t, "Xello", string(p.Data))
}

func TestPacketReferenceCounting(t *testing.T) {
	p := NewPacket([]byte("payload"), 0)
	require.Equal(t, 1, p.ReferenceCount())
	p.retain()
	p.retain()
	assert.Equal(t, 3, p.ReferenceCount())
	p.release()
	p.release()
	assert.Equal(t, 1, p.ReferenceCount())
}

func TestPacketFreeCallbackFiresAtZero(t *testing.T) {
	var freed bool
	p := NewPacketWithFree([]byte("x"), PacketNoAllocate, func(*Packet) { freed = true })
	p.retain()
	p.release()
	assert.False(t, freed, "callback must not fire while references remain")
	p.release()
	assert.True(t, freed)
}
