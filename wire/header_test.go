package wire

import "testing"

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{PeerID: 7, SessionID: 2, Compressed: true, HasSentTime: true, SentTime: 0xBEEF}

	w := NewWriter(8)
	h.Encode(w)

	if got, want := len(w.Data()), 4; got != want {
		t.Fatalf("encoded header length = %d, want %d", got, want)
	}

	got, err := DecodeHeader(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("DecodeHeader = %+v, want %+v", got, h)
	}
}

func TestHeaderNoSentTimeIsTwoBytes(t *testing.T) {
	h := Header{PeerID: 0xFFF}
	w := NewWriter(4)
	h.Encode(w)
	if len(w.Data()) != 2 {
		t.Errorf("header length = %d, want 2", len(w.Data()))
	}
	// PeerID 0xFFF with no flags set should encode as 0x0F 0xFF.
	if w.Data()[0] != 0x0F || w.Data()[1] != 0xFF {
		t.Errorf("header bytes = % X, want 0F FF", w.Data())
	}
}

func TestHeaderPeerIDMaskedTo12Bits(t *testing.T) {
	h := Header{PeerID: 0xFFFF}
	w := NewWriter(4)
	h.Encode(w)
	decoded, err := DecodeHeader(NewReader(w.Data()))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if decoded.PeerID != 0x0FFF {
		t.Errorf("PeerID = 0x%X, want 0x0FFF", decoded.PeerID)
	}
}

func TestDecodeHeaderTruncatedBuffer(t *testing.T) {
	if _, err := DecodeHeader(NewReader([]byte{0x01})); err == nil {
		t.Error("expected error decoding truncated header, got nil")
	}
}
