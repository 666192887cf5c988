package wire

import (
	"bytes"
	"testing"
)

func TestAcknowledgeCommandRoundTrip(t *testing.T) {
	c := Command{
		Header: CommandHeader{
			Command:                CommandAcknowledge,
			ChannelID:              3,
			ReliableSequenceNumber: 42,
		},
		ReceivedReliableSequenceNumber: 42,
		ReceivedSentTime:               0x1234,
	}

	w := NewWriter(16)
	if err := c.Encode(w); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := w.Len(), RecordSize(c); got != want {
		t.Errorf("encoded len = %d, RecordSize = %d", got, want)
	}

	got, err := DecodeCommand(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if got.Header != c.Header {
		t.Errorf("header = %+v, want %+v", got.Header, c.Header)
	}
	if got.ReceivedReliableSequenceNumber != c.ReceivedReliableSequenceNumber {
		t.Errorf("ReceivedReliableSequenceNumber = %d, want %d", got.ReceivedReliableSequenceNumber, c.ReceivedReliableSequenceNumber)
	}
	if got.ReceivedSentTime != c.ReceivedSentTime {
		t.Errorf("ReceivedSentTime = 0x%X, want 0x%X", got.ReceivedSentTime, c.ReceivedSentTime)
	}
}

func TestCommandHeaderFlagBits(t *testing.T) {
	h := CommandHeader{Command: CommandSendReliable, Acknowledge: true, Unsequenced: false, ChannelID: 0, ReliableSequenceNumber: 1}
	w := NewWriter(4)
	h.encode(w)
	if w.Data()[0] != (CommandSendReliable | FlagAcknowledge) {
		t.Errorf("command byte = 0x%02X, want 0x%02X", w.Data()[0], CommandSendReliable|FlagAcknowledge)
	}
}

func TestSendReliableCommandCarriesPayload(t *testing.T) {
	payload := []byte("hello world")
	c := Command{
		Header:  CommandHeader{Command: CommandSendReliable, ChannelID: 0, ReliableSequenceNumber: 1},
		Payload: payload,
	}
	w := NewWriter(32)
	if err := c.Encode(w); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeCommand(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, payload)
	}
}

func TestSendFragmentCommandRoundTrip(t *testing.T) {
	c := Command{
		Header:         CommandHeader{Command: CommandSendFragment, Acknowledge: true, ChannelID: 1, ReliableSequenceNumber: 5},
		StartSequenceNumber: 5,
		FragmentCount:  3,
		FragmentNumber: 1,
		TotalLength:    3000,
		FragmentOffset: 1000,
		Payload:        bytes.Repeat([]byte{0xAB}, 1000),
	}
	w := NewWriter(1100)
	if err := c.Encode(w); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeCommand(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if got.FragmentCount != 3 || got.FragmentNumber != 1 || got.TotalLength != 3000 || got.FragmentOffset != 1000 {
		t.Errorf("fragment fields mismatch: %+v", got)
	}
	if !bytes.Equal(got.Payload, c.Payload) {
		t.Error("fragment payload mismatch")
	}
}

func TestConnectCommandRoundTrip(t *testing.T) {
	c := Command{
		Header: CommandHeader{Command: CommandConnect, Acknowledge: true, ChannelID: ChannelIDNone, ReliableSequenceNumber: 1},
		OutgoingPeerID:       0,
		IncomingSessionID:    1,
		OutgoingSessionID:    2,
		MTU:                  DefaultMTU,
		WindowSize:           MinimumWindowSize,
		ChannelCount:         4,
		IncomingBandwidth:    0,
		OutgoingBandwidth:    0,
		ThrottleInterval:     5000,
		ThrottleAcceleration: 2,
		ThrottleDeceleration: 2,
		ConnectID:            0xCAFEBABE,
		Data:                 7,
	}
	w := NewWriter(64)
	if err := c.Encode(w); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeCommand(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if got.ConnectID != c.ConnectID || got.ChannelCount != c.ChannelCount || got.MTU != c.MTU {
		t.Errorf("connect fields mismatch: %+v", got)
	}
}

func TestDecodeCommandUnknownNumber(t *testing.T) {
	w := NewWriter(4)
	CommandHeader{Command: 31, ChannelID: 0, ReliableSequenceNumber: 0}.encode(w)
	if _, err := DecodeCommand(NewReader(w.Data())); err == nil {
		t.Error("expected error for unknown command number")
	}
}

func TestDecodeCommandTruncatedPayloadLength(t *testing.T) {
	w := NewWriter(8)
	CommandHeader{Command: CommandSendReliable, ChannelID: 0, ReliableSequenceNumber: 0}.encode(w)
	w.Uint16(100) // claims 100 bytes of payload but none follow
	if _, err := DecodeCommand(NewReader(w.Data())); err == nil {
		t.Error("expected error decoding truncated payload")
	}
}

func TestCRC32MatchesIEEE(t *testing.T) {
	// Known CRC32/IEEE vector for "123456789" is 0xCBF43926.
	got := CRC32([][]byte{[]byte("123456789")})
	if got != 0xCBF43926 {
		t.Errorf("CRC32 = 0x%08X, want 0xCBF43926", got)
	}
}

func TestCRC32OverMultipleBuffersMatchesConcatenation(t *testing.T) {
	a := CRC32([][]byte{[]byte("hello "), []byte("world")})
	b := CRC32([][]byte{[]byte("hello world")})
	if a != b {
		t.Errorf("CRC32 over split buffers = 0x%08X, want 0x%08X", a, b)
	}
}
